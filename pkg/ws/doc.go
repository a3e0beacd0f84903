// Package ws 实现 Pusher 协议的 WebSocket 服务端
//
// 连接生命周期由 Handler 管理：准入检查、频道订阅与退订、presence 成员、
// 客户端事件、用户登录以及关闭时的清理。
//
// 注册表通过 Adapter 访问，LocalAdapter 用于单节点部署，
// RedisAdapter 把注册表放在 Redis 中并通过 pub/sub 在节点之间转发消息。
//
// # 基本用法
//
//	adapter, err := ws.NewAdapter(ctx, cfg.Adapter, log)
//	if err != nil {
//	    return err
//	}
//	handler, err := ws.NewHandler(cfg, adapter, apps,
//	    ws.WithLogger(log),
//	    ws.WithWebhooks(sender),
//	    ws.WithRateLimiter(limiter),
//	)
//	if err != nil {
//	    return err
//	}
//
//	r.GET("/app/:key", func(c *gin.Context) {
//	    _ = handler.ServeWS(c.Writer, c.Request, c.Param("key"))
//	})
//
// # 关闭码
//
//   - 4001 应用不存在
//   - 4003 应用已禁用
//   - 4009 未授权或登录超时
//   - 4100 连接数超出配额
//   - 4200 服务端正在关闭，客户端应稍后重连
//   - 4201 空闲超时
//
// 优雅关闭时先调用 SetClosing(true) 拒绝新连接，
// 再调用 CloseAllLocalSockets 断开本节点的所有连接。
package ws
