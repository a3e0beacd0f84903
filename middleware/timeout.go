package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// TimeoutConfig 超时中间件配置
type TimeoutConfig struct {
	// Timeout 请求超时时间（默认 30 秒）
	Timeout time.Duration `mapstructure:"timeout"`

	// TimeoutMessage 超时响应消息
	TimeoutMessage string `mapstructure:"timeout_message"`

	// ExcludePaths 排除的路径（不做超时控制）
	ExcludePaths []string `mapstructure:"exclude_paths"`
}

// DefaultTimeoutConfig 返回默认配置
func DefaultTimeoutConfig() *TimeoutConfig {
	return &TimeoutConfig{
		Timeout:        30 * time.Second,
		TimeoutMessage: "Request timeout.",
	}
}

// Timeout 创建超时中间件
// 只注入带超时的 context，handler 通过 ctx.Done() 感知超时，未写响应时返回 408
func Timeout(cfgs ...*TimeoutConfig) gin.HandlerFunc {
	cfg := DefaultTimeoutConfig()
	if len(cfgs) > 0 && cfgs[0] != nil {
		cfg = cfgs[0]
	}
	skipMap := pathSet(cfg.ExcludePaths)

	return func(c *gin.Context) {
		if skipMap[c.Request.URL.Path] {
			c.Next()
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), cfg.Timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Writer.Written() {
			c.AbortWithStatusJSON(http.StatusRequestTimeout, gin.H{"error": cfg.TimeoutMessage})
		}
	}
}
