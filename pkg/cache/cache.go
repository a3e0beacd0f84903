package cache

import (
	"context"
	"time"
)

// Cache 缓存接口
// 值统一按字符串存取，ttl <= 0 表示永不过期
type Cache interface {
	Has(ctx context.Context, key string) (bool, error)
	// Get 键不存在时返回 ErrCacheNotFound
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// IncrBy 原子累加，键首次创建时设置 ttl
	IncrBy(ctx context.Context, key string, value int64, ttl time.Duration) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}

// New 根据配置创建缓存实例
func New(cfg *Config) (Cache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		c   Cache
		err error
	)
	switch cfg.Driver {
	case DriverRedis:
		c, err = newRedisCache(cfg)
	default:
		c = newMemoryCache(cfg)
	}
	if err != nil {
		return nil, err
	}
	if cfg.Tracing {
		c = NewTracing(c)
	}
	return c, nil
}

// NewWithOptions 使用 Options 模式创建缓存实例
func NewWithOptions(opts ...Option) (Cache, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return New(cfg)
}
