package app

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/tokmz/realtime/pkg/errors"
)

// CachedManager 为底层 Manager 增加进程内缓存
// 并发的同键查找合并为一次，未找到的结果同样缓存以防穿透
type CachedManager struct {
	next  Manager
	cache *gocache.Cache
	group singleflight.Group
	ttl   time.Duration
}

// notFound 负缓存占位
type notFound struct{}

// NewCachedManager 创建带缓存的 Manager
func NewCachedManager(next Manager, ttl time.Duration) *CachedManager {
	return &CachedManager{
		next:  next,
		cache: gocache.New(ttl, 2*ttl),
		ttl:   ttl,
	}
}

func (m *CachedManager) FindByID(ctx context.Context, id string) (*App, error) {
	return m.load(ctx, "id:"+id, func() (*App, error) {
		return m.next.FindByID(ctx, id)
	})
}

func (m *CachedManager) FindByKey(ctx context.Context, key string) (*App, error) {
	return m.load(ctx, "key:"+key, func() (*App, error) {
		return m.next.FindByKey(ctx, key)
	})
}

// Flush 清空缓存，配置变更后调用
func (m *CachedManager) Flush() {
	m.cache.Flush()
}

func (m *CachedManager) load(_ context.Context, cacheKey string, fn func() (*App, error)) (*App, error) {
	if v, ok := m.cache.Get(cacheKey); ok {
		return fromCache(v)
	}

	v, err, _ := m.group.Do(cacheKey, func() (any, error) {
		a, err := fn()
		switch {
		case err == nil:
			m.cache.Set(cacheKey, a, m.ttl)
			return a, nil
		case errors.Is(err, ErrAppNotFound):
			m.cache.Set(cacheKey, notFound{}, m.ttl)
			return notFound{}, nil
		default:
			return nil, err
		}
	})
	if err != nil {
		return nil, err
	}
	return fromCache(v)
}

func fromCache(v any) (*App, error) {
	a, ok := v.(*App)
	if !ok {
		return nil, ErrAppNotFound
	}
	return a.Clone(), nil
}
