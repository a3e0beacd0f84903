// Package ratelimit 提供按应用配额的事件与读请求限流
package ratelimit

import (
	"context"
	"time"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/cache"
	"github.com/tokmz/realtime/pkg/errors"
)

// ErrInvalidConfig 限流配置非法
var ErrInvalidConfig = errors.New(6001, 500, "invalid rate limiter config", nil)

// Response 一次扣减的结果
type Response struct {
	CanContinue bool
	Remaining   int
	// ResetIn 距离配额恢复的时间
	ResetIn time.Duration
	Limit   int
}

// Limiter 应用级限流器
// 配额小于 0 表示不限制
type Limiter interface {
	ConsumeFrontendEventPoints(ctx context.Context, points int, a *app.App, socketID string) (*Response, error)
	ConsumeBackendEventPoints(ctx context.Context, points int, a *app.App) (*Response, error)
	ConsumeReadRequestsPoints(ctx context.Context, points int, a *app.App) (*Response, error)
	Close() error
}

// Driver 限流驱动
type Driver string

const (
	DriverLocal   Driver = "local"
	DriverCluster Driver = "cluster"
)

// Config 限流配置
type Config struct {
	Driver Driver `mapstructure:"driver"`
	// CleanupInterval 本地令牌桶过期清理间隔
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
	// BucketExpiry 本地令牌桶闲置过期时间
	BucketExpiry time.Duration `mapstructure:"bucket_expiry"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Driver:          DriverLocal,
		CleanupInterval: 10 * time.Minute,
		BucketExpiry:    30 * time.Minute,
	}
}

// New 根据配置创建限流器，cluster 驱动需要共享缓存
func New(cfg *Config, c cache.Cache) (Limiter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	switch cfg.Driver {
	case DriverLocal, "":
		return NewLocal(cfg), nil
	case DriverCluster:
		if c == nil {
			return nil, ErrInvalidConfig.WithMessage("cluster driver requires a cache")
		}
		return NewCluster(c), nil
	default:
		return nil, ErrInvalidConfig.WithMessage("unsupported driver: " + string(cfg.Driver))
	}
}

func frontendKey(a *app.App, socketID string) string {
	return "app:" + a.ID + ":frontend_events:" + socketID
}

func backendKey(a *app.App) string {
	return "app:" + a.ID + ":backend_events"
}

func readKey(a *app.App) string {
	return "app:" + a.ID + ":read_requests"
}

func unlimited() *Response {
	return &Response{CanContinue: true, Remaining: -1, Limit: -1}
}
