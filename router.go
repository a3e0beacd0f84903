package realtime

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tokmz/realtime/middleware"
)

// routes 注册全部路由
//
//	GET  /                                          存活检查
//	GET  /ready                                     排空时返回 503
//	GET  /accept-traffic                            排空时返回 503
//	GET  /app/:appKey                               WebSocket
//	GET  /apps/:appId/channels                      频道列表
//	GET  /apps/:appId/channels/:channel             频道信息
//	GET  /apps/:appId/channels/:channel/users       presence 成员
//	POST /apps/:appId/events                        发布事件
//	POST /apps/:appId/batch_events                  批量发布
//	POST /apps/:appId/users/:userId/terminate_connections
func (s *Server) routes() {
	r := s.engine
	httpCfg := s.config.HTTP

	if httpCfg.CORS != nil {
		r.Use(middleware.CORS(httpCfg.CORS))
	}

	r.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/ready", s.ready)
	r.GET("/accept-traffic", s.ready)

	r.GET("/app/:appKey", s.serveWS)

	api := r.Group("/apps/:appId")
	api.Use(
		middleware.Tracing(),
		middleware.Logger(s.log.Named("http")),
	)
	if httpCfg.RateLimit != nil {
		if httpCfg.RateLimit.Logger == nil {
			httpCfg.RateLimit.Logger = s.log.Named("http")
		}
		limit, stop := middleware.RateLimiter(httpCfg.RateLimit)
		api.Use(limit)
		s.closers = append(s.closers, func() error {
			stop()
			return nil
		})
	}
	if httpCfg.Timeout != nil {
		api.Use(middleware.Timeout(httpCfg.Timeout))
	}
	if httpCfg.Gzip != nil {
		api.Use(middleware.Gzip(httpCfg.Gzip))
	}
	if maxBody := s.config.Server.MaxBodySize; maxBody > 0 {
		api.Use(func(c *gin.Context) {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)
			c.Next()
		})
	}
	api.Use(s.authenticate(time.Now))

	api.GET("/channels", s.readLimited(), s.channels)
	api.GET("/channels/:channel", s.readLimited(), s.channel)
	api.GET("/channels/:channel/users", s.readLimited(), s.channelUsers)
	api.POST("/events", s.events)
	api.POST("/batch_events", s.batchEvents)
	api.POST("/users/:userId/terminate_connections", s.terminateUserConnections)
}

func (s *Server) ready(c *gin.Context) {
	if s.handler.Closing() {
		c.String(http.StatusServiceUnavailable, "Server is closing.")
		return
	}
	c.String(http.StatusOK, "OK")
}

func (s *Server) serveWS(c *gin.Context) {
	if err := s.handler.ServeWS(c.Writer, c.Request, c.Param("appKey")); err != nil {
		s.log.DebugContext(c.Request.Context(), "websocket upgrade failed",
			zap.String("client_ip", c.ClientIP()),
			zap.Error(err),
		)
	}
}
