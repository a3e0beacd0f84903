package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/cache"
)

const window = time.Second

// clusterLimiter 基于共享缓存的一秒固定窗口计数，多节点共享配额
type clusterLimiter struct {
	cache cache.Cache
	now   func() time.Time
}

// NewCluster 创建集群限流器
func NewCluster(c cache.Cache) Limiter {
	return &clusterLimiter{cache: c, now: time.Now}
}

func (l *clusterLimiter) consume(ctx context.Context, key string, points, limit int) (*Response, error) {
	if limit < 0 {
		return unlimited(), nil
	}
	now := l.now()
	slot := now.Truncate(window)
	n, err := l.cache.IncrBy(ctx, "ratelimit:"+key+":"+strconv.FormatInt(slot.Unix(), 10), int64(points), 2*window)
	if err != nil {
		return nil, err
	}

	remaining := limit - int(n)
	if remaining < 0 {
		remaining = 0
	}
	return &Response{
		CanContinue: int(n) <= limit,
		Remaining:   remaining,
		ResetIn:     slot.Add(window).Sub(now),
		Limit:       limit,
	}, nil
}

func (l *clusterLimiter) ConsumeFrontendEventPoints(ctx context.Context, points int, a *app.App, socketID string) (*Response, error) {
	return l.consume(ctx, frontendKey(a, socketID), points, a.MaxClientEventsPerSecond)
}

func (l *clusterLimiter) ConsumeBackendEventPoints(ctx context.Context, points int, a *app.App) (*Response, error) {
	return l.consume(ctx, backendKey(a), points, a.MaxBackendEventsPerSecond)
}

func (l *clusterLimiter) ConsumeReadRequestsPoints(ctx context.Context, points int, a *app.App) (*Response, error) {
	return l.consume(ctx, readKey(a), points, a.MaxReadRequestsPerSecond)
}

func (l *clusterLimiter) Close() error {
	return nil
}
