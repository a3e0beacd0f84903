package cache

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tokmz/realtime/pkg/errors"
)

const cacheTracerName = "github.com/tokmz/realtime/pkg/cache"

// tracedCache 链路追踪缓存装饰器
type tracedCache struct {
	Cache
	tracer trace.Tracer
}

// NewTracing 创建带链路追踪的缓存实例
func NewTracing(c Cache) Cache {
	return &tracedCache{
		Cache:  c,
		tracer: otel.Tracer(cacheTracerName),
	}
}

// wrap 为单次操作创建 client span，未命中不视为错误
func (t *tracedCache) wrap(ctx context.Context, operation, key string, fn func(context.Context) error) error {
	ctx, span := t.tracer.Start(ctx, "cache."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("cache.key", key),
			attribute.String("cache.operation", operation),
		),
	)
	defer span.End()

	err := fn(ctx)
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, ErrCacheNotFound):
		span.SetAttributes(attribute.Bool("cache.hit", false))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (t *tracedCache) Has(ctx context.Context, key string) (found bool, err error) {
	err = t.wrap(ctx, "has", key, func(ctx context.Context) error {
		found, err = t.Cache.Has(ctx, key)
		return err
	})
	return found, err
}

func (t *tracedCache) Get(ctx context.Context, key string) (value string, err error) {
	err = t.wrap(ctx, "get", key, func(ctx context.Context) error {
		value, err = t.Cache.Get(ctx, key)
		return err
	})
	return value, err
}

func (t *tracedCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return t.wrap(ctx, "set", key, func(ctx context.Context) error {
		return t.Cache.Set(ctx, key, value, ttl)
	})
}

func (t *tracedCache) Delete(ctx context.Context, keys ...string) error {
	var key string
	if len(keys) > 0 {
		key = keys[0]
	}
	return t.wrap(ctx, "delete", key, func(ctx context.Context) error {
		return t.Cache.Delete(ctx, keys...)
	})
}

func (t *tracedCache) IncrBy(ctx context.Context, key string, value int64, ttl time.Duration) (n int64, err error) {
	err = t.wrap(ctx, "incrby", key, func(ctx context.Context) error {
		n, err = t.Cache.IncrBy(ctx, key, value, ttl)
		return err
	})
	return n, err
}
