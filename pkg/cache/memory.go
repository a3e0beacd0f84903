package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// memoryCache 基于 go-cache 的进程内缓存
type memoryCache struct {
	cache     *gocache.Cache
	keyPrefix string
	mu        sync.Mutex // 保护 IncrBy 的读改写
}

func newMemoryCache(cfg *Config) *memoryCache {
	return &memoryCache{
		cache:     gocache.New(gocache.NoExpiration, cfg.Memory.CleanupInterval),
		keyPrefix: cfg.KeyPrefix,
	}
}

func (m *memoryCache) buildKey(key string) string {
	return m.keyPrefix + key
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (m *memoryCache) Has(_ context.Context, key string) (bool, error) {
	_, found := m.cache.Get(m.buildKey(key))
	return found, nil
}

func (m *memoryCache) Get(_ context.Context, key string) (string, error) {
	v, found := m.cache.Get(m.buildKey(key))
	if !found {
		return "", ErrCacheNotFound
	}
	switch val := v.(type) {
	case string:
		return val, nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	default:
		return "", ErrCacheOperation.WithMessage("invalid cache data type")
	}
}

func (m *memoryCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.cache.Set(m.buildKey(key), value, expiration(ttl))
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		m.cache.Delete(m.buildKey(key))
	}
	return nil
}

func (m *memoryCache) IncrBy(_ context.Context, key string, value int64, ttl time.Duration) (int64, error) {
	fullKey := m.buildKey(key)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, found := m.cache.Get(fullKey); !found {
		m.cache.Set(fullKey, value, expiration(ttl))
		return value, nil
	}
	n, err := m.cache.IncrementInt64(fullKey, value)
	if err != nil {
		return 0, ErrCacheOperation.WithError(err)
	}
	return n, nil
}

func (m *memoryCache) Ping(context.Context) error {
	return nil
}

func (m *memoryCache) Close() error {
	m.cache.Flush()
	return nil
}
