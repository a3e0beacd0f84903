package webhook

import (
	"math"
	"math/rand/v2"
	"net/http"
	"time"
)

// RetryConfig 重试配置
type RetryConfig struct {
	MaxAttempts  int           `mapstructure:"max_attempts"`  // 最大尝试次数（含首次）
	InitialDelay time.Duration `mapstructure:"initial_delay"` // 初始退避
	MaxDelay     time.Duration `mapstructure:"max_delay"`     // 最大退避
	Multiplier   float64       `mapstructure:"multiplier"`    // 退避倍数
}

// DefaultRetryConfig 返回默认重试配置
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts:  3,
		InitialDelay: 100 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// shouldRetry 网络错误、429 或 5xx 时重试
func shouldRetry(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError
}

// backoff 第 attempt 次重试的退避时间（±25% 抖动）
func (rc *RetryConfig) backoff(attempt int) time.Duration {
	delay := float64(rc.InitialDelay) * math.Pow(rc.Multiplier, float64(attempt))
	if delay > float64(rc.MaxDelay) {
		delay = float64(rc.MaxDelay)
	}
	jitter := delay * 0.25 * (rand.Float64()*2 - 1)
	return max(time.Duration(delay+jitter), 0)
}

func (rc *RetryConfig) normalize() {
	if rc.MaxAttempts <= 0 {
		rc.MaxAttempts = 3
	}
	if rc.InitialDelay <= 0 {
		rc.InitialDelay = 100 * time.Millisecond
	}
	if rc.MaxDelay <= 0 {
		rc.MaxDelay = 5 * time.Second
	}
	if rc.Multiplier <= 0 {
		rc.Multiplier = 2.0
	}
}
