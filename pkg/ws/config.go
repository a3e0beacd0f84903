package ws

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tokmz/realtime/pkg/cache"
)

// AdapterDriver 适配器驱动
type AdapterDriver string

const (
	AdapterLocal AdapterDriver = "local"
	AdapterRedis AdapterDriver = "redis"
)

// Config WebSocket 配置
type Config struct {
	// 连接配置
	ReadBufferSize    int           `mapstructure:"read_buffer_size"`   // 读缓冲区大小
	WriteBufferSize   int           `mapstructure:"write_buffer_size"`  // 写缓冲区大小
	HandshakeTimeout  time.Duration `mapstructure:"handshake_timeout"`  // 握手超时时间
	MaxMessageSize    int64         `mapstructure:"max_message_size"`   // 最大消息大小
	EnableCompression bool          `mapstructure:"enable_compression"` // 是否启用压缩
	AllowedOrigins    []string      `mapstructure:"allowed_origins"`    // Origin 白名单，为空时不限制

	// 写入配置
	SendQueueSize int           `mapstructure:"send_queue_size"` // 每个连接的发送队列大小
	WriteWait     time.Duration `mapstructure:"write_wait"`      // 单帧写超时
	PingInterval  time.Duration `mapstructure:"ping_interval"`   // 协议层 ping 间隔，0 表示关闭

	// 超时配置
	ActivityTimeout           time.Duration `mapstructure:"activity_timeout"`            // 无发送时的空闲超时
	UserAuthenticationTimeout time.Duration `mapstructure:"user_authentication_timeout"` // 登录超时

	// Debug 开启后以 debug 级别记录收发的每条消息
	Debug bool `mapstructure:"debug"`

	Adapter AdapterConfig `mapstructure:"adapter"`
}

// AdapterConfig 适配器配置
type AdapterConfig struct {
	Driver AdapterDriver      `mapstructure:"driver"`
	Prefix string             `mapstructure:"prefix"` // redis key 与频道前缀
	Redis  *cache.RedisConfig `mapstructure:"redis"`

	// 仅 redis 驱动使用
	NodeTTL       time.Duration `mapstructure:"node_ttl"`       // 节点心跳过期时间
	SweepInterval time.Duration `mapstructure:"sweep_interval"` // 清理失效节点的间隔，0 表示关闭
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		ReadBufferSize:            1024,
		WriteBufferSize:           1024,
		HandshakeTimeout:          10 * time.Second,
		MaxMessageSize:            512 * 1024, // 512KB
		SendQueueSize:             256,
		WriteWait:                 10 * time.Second,
		PingInterval:              30 * time.Second,
		ActivityTimeout:           120 * time.Second,
		UserAuthenticationTimeout: 30 * time.Second,
		Adapter: AdapterConfig{
			Driver:        AdapterLocal,
			Prefix:        "realtime",
			NodeTTL:       30 * time.Second,
			SweepInterval: time.Minute,
		},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.ReadBufferSize <= 0 || c.WriteBufferSize <= 0 {
		return ErrInvalidConfig.WithMessage("buffer sizes must be positive")
	}
	if c.MaxMessageSize <= 0 {
		return ErrInvalidConfig.WithMessage("max message size must be positive")
	}
	if c.SendQueueSize <= 0 {
		return ErrInvalidConfig.WithMessage("send queue size must be positive")
	}
	if c.WriteWait <= 0 {
		return ErrInvalidConfig.WithMessage("write wait must be positive")
	}
	if c.ActivityTimeout <= 0 {
		return ErrInvalidConfig.WithMessage("activity timeout must be positive")
	}
	if c.UserAuthenticationTimeout <= 0 {
		return ErrInvalidConfig.WithMessage("user authentication timeout must be positive")
	}
	switch c.Adapter.Driver {
	case AdapterLocal, "":
	case AdapterRedis:
		if c.Adapter.Redis == nil {
			return ErrInvalidConfig.WithMessage("redis adapter requires redis config")
		}
		if err := c.Adapter.Redis.Validate(); err != nil {
			return ErrInvalidConfig.WithError(err)
		}
		if c.Adapter.NodeTTL < 0 || c.Adapter.SweepInterval < 0 {
			return ErrInvalidConfig.WithMessage("node ttl and sweep interval must not be negative")
		}
	default:
		return ErrAdapterDriver.WithMessage("unsupported adapter driver: " + string(c.Adapter.Driver))
	}
	return nil
}

// createWhitelistChecker 创建白名单检查器
func createWhitelistChecker(allowedOrigins []string) func(*http.Request) bool {
	whitelist := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		whitelist[origin] = true
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			// 非浏览器客户端没有 Origin
			return true
		}
		return whitelist[origin]
	}
}

// newUpgrader 创建升级器
// 未配置白名单时接受任意 Origin
func newUpgrader(c *Config) *websocket.Upgrader {
	checkOrigin := func(*http.Request) bool { return true }
	if len(c.AllowedOrigins) > 0 {
		checkOrigin = createWhitelistChecker(c.AllowedOrigins)
	}
	return &websocket.Upgrader{
		ReadBufferSize:    c.ReadBufferSize,
		WriteBufferSize:   c.WriteBufferSize,
		HandshakeTimeout:  c.HandshakeTimeout,
		CheckOrigin:       checkOrigin,
		EnableCompression: c.EnableCompression,
	}
}
