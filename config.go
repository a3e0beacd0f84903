package realtime

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tokmz/realtime/middleware"
	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/cache"
	"github.com/tokmz/realtime/pkg/logger"
	"github.com/tokmz/realtime/pkg/ratelimit"
	"github.com/tokmz/realtime/pkg/tracing"
	"github.com/tokmz/realtime/pkg/webhook"
	"github.com/tokmz/realtime/pkg/ws"
)

// ServerConfig 服务器配置
type ServerConfig struct {
	// Addr 监听地址，默认 ":6001"
	Addr string `mapstructure:"addr"`

	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`

	// MaxHeaderBytes 最大请求头字节数
	MaxHeaderBytes int `mapstructure:"max_header_bytes"`

	// TrustedProxies 信任的代理 IP
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	// MaxBodySize REST 接口请求体上限（字节）
	MaxBodySize int64 `mapstructure:"max_body_size"`
}

// ShutdownConfig 关机配置
type ShutdownConfig struct {
	// Timeout 关机超时时间，默认 10 秒
	Timeout time.Duration `mapstructure:"timeout"`
}

// LogConfig 日志配置的文件形式，级别用字符串表示
type LogConfig struct {
	Level            string                `mapstructure:"level"`
	Format           string                `mapstructure:"format"`
	Console          bool                  `mapstructure:"console"`
	File             string                `mapstructure:"file"`
	Rotate           *logger.RotateConfig  `mapstructure:"rotate"`
	Sampling         *logger.SamplingConfig `mapstructure:"sampling"`
	EnableCaller     bool                  `mapstructure:"enable_caller"`
	EnableStacktrace bool                  `mapstructure:"enable_stacktrace"`
}

// Options 转换为 logger 选项，交给 logger.NewWithOptions
func (c LogConfig) Options() []logger.Option {
	opts := []logger.Option{
		logger.WithLevelName(c.Level),
		logger.WithFormat(logger.Format(c.Format)),
		logger.WithConsole(c.Console),
		logger.WithFile(c.File),
		logger.WithRotate(c.Rotate),
		logger.WithCaller(c.EnableCaller),
		logger.WithStacktrace(c.EnableStacktrace),
	}
	if c.Sampling != nil {
		opts = append(opts, logger.WithSampling(c.Sampling.Initial, c.Sampling.Thereafter))
	}
	return opts
}

// HTTPConfig REST 接口的中间件配置，nil 表示不启用
type HTTPConfig struct {
	CORS      *middleware.CORSConfig        `mapstructure:"cors"`
	Gzip      *middleware.GzipConfig        `mapstructure:"gzip"`
	RateLimit *middleware.RateLimiterConfig `mapstructure:"rate_limit"`
	Timeout   *middleware.TimeoutConfig     `mapstructure:"timeout"`
}

// Config 服务配置
type Config struct {
	// Mode 运行模式：debug, release, test
	Mode string `mapstructure:"mode"`

	Server   ServerConfig   `mapstructure:"server"`
	Shutdown ShutdownConfig `mapstructure:"shutdown"`
	Logger   LogConfig      `mapstructure:"logger"`
	HTTP     HTTPConfig     `mapstructure:"http"`

	Tracing     *tracing.Config   `mapstructure:"tracing"`
	WS          *ws.Config        `mapstructure:"ws"`
	Cache       *cache.Config     `mapstructure:"cache"`
	Apps        *app.Config       `mapstructure:"apps"`
	RateLimiter *ratelimit.Config `mapstructure:"rate_limiter"`
	Webhook     *webhook.Config   `mapstructure:"webhook"`

	// CacheMissTTL 缓存频道载荷的保存时间，默认 30 分钟
	CacheMissTTL time.Duration `mapstructure:"cache_miss_ttl"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Mode: gin.ReleaseMode,
		Server: ServerConfig{
			Addr:           ":6001",
			ReadTimeout:    10 * time.Second,
			WriteTimeout:   10 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 1 << 20, // 1MB
			MaxBodySize:    1 << 20,
		},
		Shutdown: ShutdownConfig{
			Timeout: 10 * time.Second,
		},
		Logger: LogConfig{
			Level:   "info",
			Format:  string(logger.JSONFormat),
			Console: true,
		},
		HTTP: HTTPConfig{
			CORS:    middleware.DefaultCORSConfig(),
			Timeout: middleware.DefaultTimeoutConfig(),
		},
		Tracing:      tracing.DefaultConfig(),
		WS:           ws.DefaultConfig(),
		Cache:        cache.DefaultConfig(),
		Apps:         app.DefaultConfig(),
		RateLimiter:  ratelimit.DefaultConfig(),
		Webhook:      webhook.DefaultConfig(),
		CacheMissTTL: 30 * time.Minute,
	}
}

// Validate 验证配置，缺省的子配置补齐默认值
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return ErrInvalidConfig.WithMessage("server addr is required")
	}
	if c.Shutdown.Timeout <= 0 {
		return ErrInvalidConfig.WithMessage("shutdown timeout must be positive")
	}
	if c.CacheMissTTL < 0 {
		return ErrInvalidConfig.WithMessage("cache miss ttl must not be negative")
	}
	if c.Tracing == nil {
		c.Tracing = tracing.DefaultConfig()
	}
	if c.WS == nil {
		c.WS = ws.DefaultConfig()
	}
	if c.Cache == nil {
		c.Cache = cache.DefaultConfig()
	}
	if c.Apps == nil {
		c.Apps = app.DefaultConfig()
	}
	if c.RateLimiter == nil {
		c.RateLimiter = ratelimit.DefaultConfig()
	}
	if c.Webhook == nil {
		c.Webhook = webhook.DefaultConfig()
	}
	if err := c.WS.Validate(); err != nil {
		return err
	}
	return c.Webhook.Validate()
}
