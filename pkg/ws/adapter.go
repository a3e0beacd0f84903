package ws

import (
	"context"

	"github.com/tokmz/realtime/pkg/logger"
)

// Adapter 连接与频道注册表，负责跨节点广播
// 所有修改都经由 Adapter 完成，每个操作单独原子
type Adapter interface {
	AddSocket(ctx context.Context, appID string, s *Socket) error
	RemoveSocket(ctx context.Context, appID, socketID string) error

	// AddToChannel 返回加入后的订阅数
	AddToChannel(ctx context.Context, appID, channel string, s *Socket) (int, error)
	// RemoveFromChannel 返回剩余订阅数
	RemoveFromChannel(ctx context.Context, appID, channel, socketID string) (int, error)
	// RemoveFromChannels 批量退订，不返回计数
	RemoveFromChannels(ctx context.Context, appID string, channels []string, socketID string) error

	GetSockets(ctx context.Context, appID string) (map[string]*Socket, error)
	GetSocketsCount(ctx context.Context, appID string) (int, error)
	GetChannels(ctx context.Context, appID string) (map[string][]string, error)
	GetChannelsWithSocketsCount(ctx context.Context, appID string) (map[string]int, error)
	GetChannelSockets(ctx context.Context, appID, channel string) ([]string, error)
	GetChannelSocketsCount(ctx context.Context, appID, channel string) (int, error)
	GetChannelMembers(ctx context.Context, appID, channel string) (Members, error)
	GetChannelMembersCount(ctx context.Context, appID, channel string) (int, error)
	IsInChannel(ctx context.Context, appID, channel, socketID string) (bool, error)

	// Send 发给频道内除 exceptSocketID 外的所有连接
	// #server-to-user-<id> 发给该用户登录的所有连接
	Send(ctx context.Context, appID, channel string, payload []byte, exceptSocketID string) error
	TerminateUserConnections(ctx context.Context, appID, userID string) error

	AddUser(ctx context.Context, s *Socket) error
	RemoveUser(ctx context.Context, s *Socket) error
	GetUserSockets(ctx context.Context, appID, userID string) ([]*Socket, error)

	GetNamespaces() map[string]*Namespace
	ClearNamespace(ctx context.Context, appID string) error
	ClearNamespaces(ctx context.Context) error

	Disconnect(ctx context.Context) error
}

// NewAdapter 按配置创建适配器
func NewAdapter(ctx context.Context, cfg AdapterConfig, log logger.Logger) (Adapter, error) {
	switch cfg.Driver {
	case AdapterLocal, "":
		return NewLocalAdapter(), nil
	case AdapterRedis:
		return NewRedisAdapter(ctx, cfg, log)
	default:
		return nil, ErrAdapterDriver.WithMessage("unsupported adapter driver: " + string(cfg.Driver))
	}
}

// StaleLeaveFunc 失效节点的连接被清理后，对其退出的每个频道回调一次
// member 只在该连接持有 presence 成员信息时非空，remaining 为剩余订阅数
type StaleLeaveFunc func(ctx context.Context, appID, channel string, member *PresenceMember, remaining int)

// StaleNotifier 能发现其他节点失效的适配器
type StaleNotifier interface {
	OnStaleLeave(fn StaleLeaveFunc)
}
