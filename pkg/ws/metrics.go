package ws

// Metrics 监控接口
type Metrics interface {
	// 连接指标
	MarkNewConnection(appID string)
	MarkDisconnection(appID string)

	// 消息指标，size 为帧字节数
	MarkWsMessageSent(appID string, size int)
	MarkWsMessageReceived(appID string, size int)
}

// NoopMetrics 空实现（默认）
type NoopMetrics struct{}

func (NoopMetrics) MarkNewConnection(string)          {}
func (NoopMetrics) MarkDisconnection(string)          {}
func (NoopMetrics) MarkWsMessageSent(string, int)     {}
func (NoopMetrics) MarkWsMessageReceived(string, int) {}
