package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/cache"
	"github.com/tokmz/realtime/pkg/errors"
)

func testApp(clientLimit int) *app.App {
	return (&app.App{ID: "1", Key: "k", Secret: "s", MaxClientEventsPerSecond: clientLimit}).Normalize()
}

func TestLocalLimiter(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(&Config{})
	defer l.Close()

	a := testApp(2)
	for i := 0; i < 2; i++ {
		res, err := l.ConsumeFrontendEventPoints(ctx, 1, a, "1.1")
		require.NoError(t, err)
		assert.True(t, res.CanContinue)
	}
	res, err := l.ConsumeFrontendEventPoints(ctx, 1, a, "1.1")
	require.NoError(t, err)
	assert.False(t, res.CanContinue)
	assert.Equal(t, 2, res.Limit)
	assert.Greater(t, res.ResetIn, time.Duration(0))

	// 不同 socket 独立计数
	res, err = l.ConsumeFrontendEventPoints(ctx, 1, a, "2.2")
	require.NoError(t, err)
	assert.True(t, res.CanContinue)

	// 未配置的后端配额为不限制
	res, err = l.ConsumeBackendEventPoints(ctx, 1000, a)
	require.NoError(t, err)
	assert.True(t, res.CanContinue)
	assert.Equal(t, -1, res.Limit)
}

func TestLocalLimiterRefill(t *testing.T) {
	ctx := context.Background()
	l := NewLocal(&Config{})
	defer l.Close()

	a := testApp(20)
	res, err := l.ConsumeFrontendEventPoints(ctx, 20, a, "s")
	require.NoError(t, err)
	assert.True(t, res.CanContinue)

	res, _ = l.ConsumeFrontendEventPoints(ctx, 1, a, "s")
	assert.False(t, res.CanContinue)

	time.Sleep(150 * time.Millisecond)
	res, _ = l.ConsumeFrontendEventPoints(ctx, 1, a, "s")
	assert.True(t, res.CanContinue)
}

func TestClusterLimiter(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	redisCfg := cache.DefaultRedisConfig()
	redisCfg.Addr = mr.Addr()
	c, err := cache.NewWithOptions(cache.WithRedis(redisCfg))
	require.NoError(t, err)
	defer c.Close()

	l, err := New(&Config{Driver: DriverCluster}, c)
	require.NoError(t, err)
	cl := l.(*clusterLimiter)
	fixed := time.Unix(1700000000, 0)
	cl.now = func() time.Time { return fixed }

	a := (&app.App{ID: "9", MaxBackendEventsPerSecond: 3}).Normalize()
	res, err := l.ConsumeBackendEventPoints(ctx, 2, a)
	require.NoError(t, err)
	assert.True(t, res.CanContinue)
	assert.Equal(t, 1, res.Remaining)

	res, err = l.ConsumeBackendEventPoints(ctx, 2, a)
	require.NoError(t, err)
	assert.False(t, res.CanContinue)
	assert.Equal(t, 0, res.Remaining)

	// 下一个窗口重新计数
	cl.now = func() time.Time { return fixed.Add(time.Second) }
	res, err = l.ConsumeBackendEventPoints(ctx, 1, a)
	require.NoError(t, err)
	assert.True(t, res.CanContinue)
}

func TestClusterLimiterCacheError(t *testing.T) {
	mr := miniredis.RunT(t)
	redisCfg := cache.DefaultRedisConfig()
	redisCfg.Addr = mr.Addr()
	redisCfg.MaxRetries = -1
	c, err := cache.NewWithOptions(cache.WithRedis(redisCfg))
	require.NoError(t, err)
	defer c.Close()

	l := NewCluster(c)
	mr.Close()

	_, err = l.ConsumeReadRequestsPoints(context.Background(), 1, (&app.App{ID: "1", MaxReadRequestsPerSecond: 5}).Normalize())
	assert.Error(t, err)
}

func TestNewInvalid(t *testing.T) {
	_, err := New(&Config{Driver: DriverCluster}, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))

	_, err = New(&Config{Driver: "leaky"}, nil)
	assert.True(t, errors.Is(err, ErrInvalidConfig))
}

func TestBucketsCleanup(t *testing.T) {
	b := NewBuckets(0, 0)
	defer b.Close()

	assert.True(t, b.Allow("ip", 1, 1))
	assert.False(t, b.Allow("ip", 1, 1))
	b.cleanup(-time.Second)
	assert.True(t, b.Allow("ip", 1, 1), "expired bucket is recreated full")
}
