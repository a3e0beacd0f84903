package ws

import "github.com/tokmz/realtime/pkg/errors"

// 错误定义
var (
	// 配置相关错误
	ErrInvalidConfig = errors.New(5001, 500, "ws: invalid config", nil)

	// 连接相关错误
	ErrConnectionClosed = errors.New(5002, 500, "ws: connection closed", nil)
	ErrSendQueueFull    = errors.New(5003, 500, "ws: send queue full", nil)

	// 适配器相关错误
	ErrAdapter         = errors.New(5004, 500, "ws: adapter operation failed", nil)
	ErrAdapterDriver   = errors.New(5005, 500, "ws: unsupported adapter driver", nil)
	ErrInvalidMessage  = errors.New(5006, 400, "ws: invalid message format", nil)
	ErrAdapterShutdown = errors.New(5007, 503, "ws: adapter disconnected", nil)
)

// Pusher 协议关闭码与错误码
const (
	CodeAppNotFound       = 4001
	CodeAppDisabled       = 4003
	CodeUnauthorized      = 4009
	CodeOverQuota         = 4100
	CodeServerClosing     = 4200
	CodeIdleTimeout       = 4201
	CodeClientEventDenied = 4301
	CodeServerError       = 4302
)
