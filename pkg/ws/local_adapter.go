package ws

import (
	"context"
	"sync"
)

// LocalAdapter 单进程内存实现
type LocalAdapter struct {
	mu         sync.RWMutex
	namespaces map[string]*Namespace
}

// NewLocalAdapter 创建内存适配器
func NewLocalAdapter() *LocalAdapter {
	return &LocalAdapter{namespaces: make(map[string]*Namespace)}
}

// Namespace 获取命名空间，不存在时创建
func (a *LocalAdapter) Namespace(appID string) *Namespace {
	a.mu.RLock()
	ns, ok := a.namespaces[appID]
	a.mu.RUnlock()
	if ok {
		return ns
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if ns, ok = a.namespaces[appID]; !ok {
		ns = NewNamespace(appID)
		a.namespaces[appID] = ns
	}
	return ns
}

func (a *LocalAdapter) AddSocket(_ context.Context, appID string, s *Socket) error {
	a.Namespace(appID).AddSocket(s)
	return nil
}

func (a *LocalAdapter) RemoveSocket(_ context.Context, appID, socketID string) error {
	a.Namespace(appID).RemoveSocket(socketID)
	return nil
}

func (a *LocalAdapter) AddToChannel(_ context.Context, appID, channel string, s *Socket) (int, error) {
	return a.Namespace(appID).AddToChannel(s, channel), nil
}

func (a *LocalAdapter) RemoveFromChannel(_ context.Context, appID, channel, socketID string) (int, error) {
	return a.Namespace(appID).RemoveFromChannel(socketID, channel), nil
}

func (a *LocalAdapter) RemoveFromChannels(_ context.Context, appID string, channels []string, socketID string) error {
	a.Namespace(appID).RemoveFromChannel(socketID, channels...)
	return nil
}

func (a *LocalAdapter) GetSockets(_ context.Context, appID string) (map[string]*Socket, error) {
	return a.Namespace(appID).Sockets(), nil
}

func (a *LocalAdapter) GetSocketsCount(_ context.Context, appID string) (int, error) {
	return a.Namespace(appID).SocketsCount(), nil
}

func (a *LocalAdapter) GetChannels(_ context.Context, appID string) (map[string][]string, error) {
	return a.Namespace(appID).Channels(), nil
}

func (a *LocalAdapter) GetChannelsWithSocketsCount(_ context.Context, appID string) (map[string]int, error) {
	return a.Namespace(appID).ChannelsWithSocketsCount(), nil
}

func (a *LocalAdapter) GetChannelSockets(_ context.Context, appID, channel string) ([]string, error) {
	sockets := a.Namespace(appID).ChannelSockets(channel)
	ids := make([]string, 0, len(sockets))
	for _, s := range sockets {
		ids = append(ids, s.ID)
	}
	return ids, nil
}

func (a *LocalAdapter) GetChannelSocketsCount(_ context.Context, appID, channel string) (int, error) {
	return a.Namespace(appID).ChannelSocketsCount(channel), nil
}

func (a *LocalAdapter) GetChannelMembers(_ context.Context, appID, channel string) (Members, error) {
	return a.Namespace(appID).ChannelMembers(channel), nil
}

func (a *LocalAdapter) GetChannelMembersCount(_ context.Context, appID, channel string) (int, error) {
	return len(a.Namespace(appID).ChannelMembers(channel)), nil
}

func (a *LocalAdapter) IsInChannel(_ context.Context, appID, channel, socketID string) (bool, error) {
	return a.Namespace(appID).IsInChannel(socketID, channel), nil
}

// Send 写失败的连接直接跳过
func (a *LocalAdapter) Send(_ context.Context, appID, channel string, payload []byte, exceptSocketID string) error {
	ns := a.Namespace(appID)
	var targets []*Socket
	if userID, ok := userFromChannel(channel); ok {
		targets = ns.UserSockets(userID)
	} else {
		targets = ns.ChannelSockets(channel)
	}
	for _, s := range targets {
		if exceptSocketID != "" && s.ID == exceptSocketID {
			continue
		}
		_ = s.SendRaw(payload)
	}
	return nil
}

func (a *LocalAdapter) TerminateUserConnections(_ context.Context, appID, userID string) error {
	a.Namespace(appID).TerminateUserConnections(userID)
	return nil
}

func (a *LocalAdapter) AddUser(_ context.Context, s *Socket) error {
	a.Namespace(s.AppID()).AddUser(s)
	return nil
}

func (a *LocalAdapter) RemoveUser(_ context.Context, s *Socket) error {
	a.Namespace(s.AppID()).RemoveUser(s)
	return nil
}

func (a *LocalAdapter) GetUserSockets(_ context.Context, appID, userID string) ([]*Socket, error) {
	return a.Namespace(appID).UserSockets(userID), nil
}

// GetNamespaces 命名空间快照
func (a *LocalAdapter) GetNamespaces() map[string]*Namespace {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make(map[string]*Namespace, len(a.namespaces))
	for id, ns := range a.namespaces {
		out[id] = ns
	}
	return out
}

// ClearNamespace 以空命名空间替换
func (a *LocalAdapter) ClearNamespace(_ context.Context, appID string) error {
	a.mu.Lock()
	a.namespaces[appID] = NewNamespace(appID)
	a.mu.Unlock()
	return nil
}

func (a *LocalAdapter) ClearNamespaces(_ context.Context) error {
	a.mu.Lock()
	a.namespaces = make(map[string]*Namespace)
	a.mu.Unlock()
	return nil
}

func (a *LocalAdapter) Disconnect(context.Context) error {
	return nil
}
