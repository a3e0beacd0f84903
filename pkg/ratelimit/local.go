package ratelimit

import (
	"context"
	"math"

	"github.com/tokmz/realtime/pkg/app"
)

// localLimiter 进程内令牌桶限流，每个 key 的容量与每秒补充量均为配额
type localLimiter struct {
	buckets *Buckets
}

// NewLocal 创建进程内限流器
func NewLocal(cfg *Config) Limiter {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &localLimiter{buckets: NewBuckets(cfg.CleanupInterval, cfg.BucketExpiry)}
}

func (l *localLimiter) consume(key string, points, limit int) *Response {
	if limit < 0 {
		return unlimited()
	}
	ok, remaining, wait := l.buckets.Take(key, float64(points), float64(limit), limit)
	return &Response{
		CanContinue: ok,
		Remaining:   int(math.Floor(remaining)),
		ResetIn:     wait,
		Limit:       limit,
	}
}

func (l *localLimiter) ConsumeFrontendEventPoints(_ context.Context, points int, a *app.App, socketID string) (*Response, error) {
	return l.consume(frontendKey(a, socketID), points, a.MaxClientEventsPerSecond), nil
}

func (l *localLimiter) ConsumeBackendEventPoints(_ context.Context, points int, a *app.App) (*Response, error) {
	return l.consume(backendKey(a), points, a.MaxBackendEventsPerSecond), nil
}

func (l *localLimiter) ConsumeReadRequestsPoints(_ context.Context, points int, a *app.App) (*Response, error) {
	return l.consume(readKey(a), points, a.MaxReadRequestsPerSecond), nil
}

func (l *localLimiter) Close() error {
	l.buckets.Close()
	return nil
}
