package ratelimit

import (
	"sync"
	"time"
)

// tokenBucket 令牌桶
type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastRefill: time.Now(),
	}
}

// take 尝试取出 n 个令牌，返回是否成功与剩余令牌
func (t *tokenBucket) take(n float64) (bool, float64, time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	t.tokens += now.Sub(t.lastRefill).Seconds() * t.refillRate
	if t.tokens > t.maxTokens {
		t.tokens = t.maxTokens
	}
	t.lastRefill = now

	if t.tokens >= n {
		t.tokens -= n
		return true, t.tokens, 0
	}
	var wait time.Duration
	if t.refillRate > 0 {
		wait = time.Duration((n - t.tokens) / t.refillRate * float64(time.Second))
	}
	return false, t.tokens, wait
}

// Buckets 按 key 维护的令牌桶集合，闲置的桶会被后台清理
type Buckets struct {
	mu      sync.RWMutex
	buckets map[string]*tokenBucket
	done    chan struct{}
	once    sync.Once
}

// NewBuckets 创建令牌桶集合
// cleanupInterval 清理间隔，expiry 桶闲置过期时间
func NewBuckets(cleanupInterval, expiry time.Duration) *Buckets {
	b := &Buckets{
		buckets: make(map[string]*tokenBucket),
		done:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go b.cleanupLoop(cleanupInterval, expiry)
	}
	return b
}

// Take 从 key 对应的桶取 n 个令牌，桶不存在时按 rate/burst 创建
func (b *Buckets) Take(key string, n, rate float64, burst int) (bool, float64, time.Duration) {
	return b.get(key, rate, burst).take(n)
}

// Allow 取一个令牌
func (b *Buckets) Allow(key string, rate float64, burst int) bool {
	ok, _, _ := b.Take(key, 1, rate, burst)
	return ok
}

// Close 停止后台清理
func (b *Buckets) Close() {
	b.once.Do(func() { close(b.done) })
}

func (b *Buckets) get(key string, rate float64, burst int) *tokenBucket {
	b.mu.RLock()
	bucket, ok := b.buckets[key]
	b.mu.RUnlock()
	if ok {
		return bucket
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if bucket, ok = b.buckets[key]; ok {
		return bucket
	}
	bucket = newTokenBucket(rate, burst)
	b.buckets[key] = bucket
	return bucket
}

func (b *Buckets) cleanupLoop(interval, expiry time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			b.cleanup(expiry)
		case <-b.done:
			return
		}
	}
}

func (b *Buckets) cleanup(expiry time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	for key, bucket := range b.buckets {
		bucket.mu.Lock()
		expired := now.Sub(bucket.lastRefill) > expiry
		bucket.mu.Unlock()
		if expired {
			delete(b.buckets, key)
		}
	}
}
