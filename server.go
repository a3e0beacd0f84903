package realtime

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/cache"
	"github.com/tokmz/realtime/pkg/logger"
	"github.com/tokmz/realtime/pkg/ratelimit"
	"github.com/tokmz/realtime/pkg/webhook"
	"github.com/tokmz/realtime/pkg/ws"
)

// WebhookSender 可关闭的 webhook 通知
type WebhookSender interface {
	ws.WebhookSender
	Close() error
}

// Server WebSocket 与 REST 接口服务
type Server struct {
	config *Config
	engine *gin.Engine
	server *http.Server

	handler  *ws.Handler
	adapter  ws.Adapter
	apps     app.Manager
	cache    cache.Cache
	limiter  ratelimit.Limiter
	webhooks WebhookSender
	metrics  ws.Metrics
	log      logger.Logger

	// closers 关机时逆序执行
	closers []func() error
}

// Option 服务选项，未替换的组件按配置创建
type Option func(*Server)

// WithLogger 设置日志
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// WithAppManager 替换应用查找
func WithAppManager(m app.Manager) Option {
	return func(s *Server) {
		s.apps = m
	}
}

// WithAdapter 替换适配器
func WithAdapter(a ws.Adapter) Option {
	return func(s *Server) {
		s.adapter = a
	}
}

// WithCache 替换缓存
func WithCache(c cache.Cache) Option {
	return func(s *Server) {
		s.cache = c
	}
}

// WithRateLimiter 替换应用级限流器
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(s *Server) {
		s.limiter = l
	}
}

// WithWebhooks 替换 webhook 通知
func WithWebhooks(w WebhookSender) Option {
	return func(s *Server) {
		s.webhooks = w
	}
}

// WithMetrics 设置连接指标
func WithMetrics(m ws.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithAddr 设置监听地址
func WithAddr(addr string) Option {
	return func(s *Server) {
		s.config.Server.Addr = addr
	}
}

// WithShutdownTimeout 设置关机超时时间
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(s *Server) {
		s.config.Shutdown.Timeout = timeout
	}
}

// New 创建服务
// 构建失败时已创建的组件会被释放
func New(ctx context.Context, cfg *Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	s := &Server{config: cfg}
	for _, opt := range opts {
		opt(s)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if s.log == nil {
		s.log = logger.NewNop()
	}
	if s.metrics == nil {
		s.metrics = ws.NoopMetrics{}
	}

	if err := s.build(ctx); err != nil {
		_ = s.close()
		return nil, err
	}
	return s, nil
}

func (s *Server) build(ctx context.Context) error {
	cfg := s.config

	if s.cache == nil {
		c, err := cache.New(cfg.Cache)
		if err != nil {
			return err
		}
		s.cache = c
		s.closers = append(s.closers, c.Close)
	}

	if s.apps == nil {
		m, closer, err := app.New(ctx, cfg.Apps, s.log.Named("app"))
		if err != nil {
			return err
		}
		s.apps = m
		s.closers = append(s.closers, closer)
	}

	if s.adapter == nil {
		a, err := ws.NewAdapter(ctx, cfg.WS.Adapter, s.log.Named("adapter"))
		if err != nil {
			return err
		}
		s.adapter = a
	}
	s.closers = append(s.closers, func() error {
		return s.adapter.Disconnect(context.Background())
	})

	if s.limiter == nil {
		l, err := ratelimit.New(cfg.RateLimiter, s.cache)
		if err != nil {
			return err
		}
		s.limiter = l
		s.closers = append(s.closers, l.Close)
	}

	if s.webhooks == nil {
		w, err := webhook.New(cfg.Webhook, s.log.Named("webhook"))
		if err != nil {
			return err
		}
		s.webhooks = w
	}
	s.closers = append(s.closers, s.webhooks.Close)

	h, err := ws.NewHandler(cfg.WS, s.adapter, s.apps,
		ws.WithCache(s.cache),
		ws.WithWebhooks(s.webhooks),
		ws.WithRateLimiter(s.limiter),
		ws.WithMetrics(s.metrics),
		ws.WithLogger(s.log),
	)
	if err != nil {
		return err
	}
	s.handler = h

	s.engine = s.newEngine()
	s.routes()
	return nil
}

func (s *Server) newEngine() *gin.Engine {
	if s.config.Mode != "" {
		gin.SetMode(s.config.Mode)
	}
	silenceGin()

	engine := gin.New()
	engine.Use(gin.Recovery())
	if s.config.Server.TrustedProxies != nil {
		if err := engine.SetTrustedProxies(s.config.Server.TrustedProxies); err != nil {
			s.log.Warn("set trusted proxies failed", zap.Error(err))
		}
	}
	return engine
}

// Handler 返回 HTTP 处理器，便于嵌入其他服务或测试
func (s *Server) Handler() http.Handler {
	return s.engine
}

// WS 返回协议处理器
func (s *Server) WS() *ws.Handler {
	return s.handler
}

// Run 启动服务，收到 SIGINT/SIGTERM 后优雅关机
func (s *Server) Run() error {
	s.server = &http.Server{
		Addr:           s.config.Server.Addr,
		Handler:        s.engine,
		ReadTimeout:    s.config.Server.ReadTimeout,
		WriteTimeout:   s.config.Server.WriteTimeout,
		IdleTimeout:    s.config.Server.IdleTimeout,
		MaxHeaderBytes: s.config.Server.MaxHeaderBytes,
	}

	s.printBanner(s.config.Server.Addr)

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errChan:
		_ = s.close()
		return err
	case sig := <-quit:
		s.log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Shutdown.Timeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown 排空并关闭服务
// 先拒绝新连接并以 4200 断开本节点连接，再关闭 HTTP 服务与各组件
func (s *Server) Shutdown(ctx context.Context) error {
	s.handler.SetClosing(true)

	var errs []error
	if err := s.handler.CloseAllLocalSockets(ctx); err != nil {
		errs = append(errs, err)
	}
	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			s.log.Error("server forced to shutdown", zap.Error(err))
			errs = append(errs, err)
		}
	}
	if err := s.close(); err != nil {
		errs = append(errs, err)
	}

	s.log.Info("server exited")
	return errors.Join(errs...)
}

// close 逆序释放组件
func (s *Server) close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.closers = nil
	return errors.Join(errs...)
}
