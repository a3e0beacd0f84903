package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tokmz/realtime/pkg/logger"
	"github.com/tokmz/realtime/pkg/ratelimit"
)

// RateLimiterConfig 按客户端限流的中间件配置
// 应用级配额由 ratelimit.Limiter 处理，这里只防止单个来源刷接口
type RateLimiterConfig struct {
	// RequestsPerSecond 每秒允许的请求数（默认 100）
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`

	// Burst 突发容量（默认 100）
	Burst int `mapstructure:"burst"`

	// KeyFunc 限流 key（默认客户端 IP）
	KeyFunc func(c *gin.Context) string `mapstructure:"-"`

	// ExcludePaths 排除的路径（不限流）
	ExcludePaths []string `mapstructure:"exclude_paths"`

	Logger logger.Logger `mapstructure:"-"`

	// CleanupInterval 过期桶清理间隔（默认 10 分钟）
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`

	// BucketExpiry 桶闲置过期时间（默认 30 分钟）
	BucketExpiry time.Duration `mapstructure:"bucket_expiry"`
}

// DefaultRateLimiterConfig 返回默认配置
func DefaultRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		RequestsPerSecond: 100,
		Burst:             100,
		CleanupInterval:   10 * time.Minute,
		BucketExpiry:      30 * time.Minute,
	}
}

// RateLimiter 创建令牌桶限流中间件
// 返回的 stop 用于停止后台清理
func RateLimiter(cfgs ...*RateLimiterConfig) (gin.HandlerFunc, func()) {
	cfg := DefaultRateLimiterConfig()
	if len(cfgs) > 0 && cfgs[0] != nil {
		cfg = cfgs[0]
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string { return c.ClientIP() }
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	skipMap := pathSet(cfg.ExcludePaths)

	buckets := ratelimit.NewBuckets(cfg.CleanupInterval, cfg.BucketExpiry)

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)
		ok, _, wait := buckets.Take(key, 1, cfg.RequestsPerSecond, cfg.Burst)
		if !ok {
			cfg.Logger.WarnContext(c.Request.Context(), "rate limit exceeded",
				zap.String("key", key),
				zap.String("path", c.Request.URL.Path),
			)
			c.Header("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests."})
			return
		}
		c.Next()
	}, buckets.Close
}
