package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/realtime/pkg/errors"
)

func newTestCaches(t *testing.T) map[string]Cache {
	t.Helper()

	mem, err := NewWithOptions(WithMemory(DefaultMemoryConfig()), WithKeyPrefix("test:"))
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	redisCfg := DefaultRedisConfig()
	redisCfg.Addr = mr.Addr()
	rc, err := NewWithOptions(WithRedis(redisCfg), WithKeyPrefix("test:"), WithTracing())
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = mem.Close()
		_ = rc.Close()
	})
	return map[string]Cache{"memory": mem, "redis": rc}
}

// TestCacheDrivers 两种驱动行为一致
func TestCacheDrivers(t *testing.T) {
	ctx := context.Background()

	for name, c := range newTestCaches(t) {
		t.Run(name, func(t *testing.T) {
			ok, err := c.Has(ctx, "missing")
			require.NoError(t, err)
			assert.False(t, ok)

			_, err = c.Get(ctx, "missing")
			assert.True(t, errors.Is(err, ErrCacheNotFound))

			payload := `{"event":"price","data":"{\"v\":1}"}`
			require.NoError(t, c.Set(ctx, "app:1:channel:cache-x:cache_miss", payload, 0))

			ok, err = c.Has(ctx, "app:1:channel:cache-x:cache_miss")
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := c.Get(ctx, "app:1:channel:cache-x:cache_miss")
			require.NoError(t, err)
			assert.Equal(t, payload, got)

			require.NoError(t, c.Delete(ctx, "app:1:channel:cache-x:cache_miss"))
			ok, _ = c.Has(ctx, "app:1:channel:cache-x:cache_miss")
			assert.False(t, ok)

			n, err := c.IncrBy(ctx, "counter", 2, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, int64(2), n)
			n, err = c.IncrBy(ctx, "counter", 3, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, int64(5), n)

			v, err := c.Get(ctx, "counter")
			require.NoError(t, err)
			assert.Equal(t, "5", v)

			assert.NoError(t, c.Ping(ctx))
		})
	}
}

// TestMemoryExpiration 过期后不可读
func TestMemoryExpiration(t *testing.T) {
	ctx := context.Background()
	c, err := New(nil)
	require.NoError(t, err)

	require.NoError(t, c.Set(ctx, "k", "v", 20*time.Millisecond))
	time.Sleep(40 * time.Millisecond)

	_, err = c.Get(ctx, "k")
	assert.True(t, errors.Is(err, ErrCacheNotFound))
}

// TestRedisIncrByTTL 首次累加设置过期时间，后续累加不刷新
func TestRedisIncrByTTL(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)

	cfg := DefaultRedisConfig()
	cfg.Addr = mr.Addr()
	c, err := NewWithOptions(WithRedis(cfg))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.IncrBy(ctx, "window", 1, time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, mr.TTL("window"))

	mr.FastForward(500 * time.Millisecond)
	_, err = c.IncrBy(ctx, "window", 1, time.Second)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, mr.TTL("window"))

	mr.FastForward(time.Second)
	n, err := c.IncrBy(ctx, "window", 1, time.Second)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

// TestMemoryIncrByConcurrent 并发累加结果正确
func TestMemoryIncrByConcurrent(t *testing.T) {
	ctx := context.Background()
	c, err := New(DefaultConfig())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.IncrBy(ctx, "n", 1, 0)
		}()
	}
	wg.Wait()

	v, err := c.Get(ctx, "n")
	require.NoError(t, err)
	assert.Equal(t, "50", v)
}

// TestConfigValidate 配置校验
func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *Config
		wantErr bool
	}{
		{name: "memory default", cfg: DefaultConfig()},
		{name: "bad driver", cfg: &Config{Driver: "etcd"}, wantErr: true},
		{name: "redis without config", cfg: &Config{Driver: DriverRedis}, wantErr: true},
		{name: "redis cluster without addrs", cfg: &Config{Driver: DriverRedis, Redis: &RedisConfig{Mode: RedisCluster}}, wantErr: true},
		{name: "sentinel without master", cfg: &Config{Driver: DriverRedis, Redis: &RedisConfig{Mode: RedisSentinel, Addrs: []string{"a:1"}}}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrCacheInvalidConfig))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// TestNewRedisClientUnreachable 连接失败返回 ErrCacheConnection
func TestNewRedisClientUnreachable(t *testing.T) {
	cfg := DefaultRedisConfig()
	cfg.Addr = "127.0.0.1:1"
	cfg.DialTimeout = 100 * time.Millisecond
	cfg.MaxRetries = -1

	_, err := NewRedisClient(context.Background(), cfg)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCacheConnection))
}
