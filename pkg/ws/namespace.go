package ws

import "sync"

// Namespace 单个应用的连接、频道与用户索引
type Namespace struct {
	AppID string

	mu       sync.RWMutex
	sockets  map[string]*Socket
	channels map[string]map[string]struct{}
	users    map[string]map[string]struct{}
}

// NewNamespace 创建空命名空间
func NewNamespace(appID string) *Namespace {
	return &Namespace{
		AppID:    appID,
		sockets:  make(map[string]*Socket),
		channels: make(map[string]map[string]struct{}),
		users:    make(map[string]map[string]struct{}),
	}
}

// AddSocket 重复添加同一连接无副作用
func (n *Namespace) AddSocket(s *Socket) {
	n.mu.Lock()
	n.sockets[s.ID] = s
	n.mu.Unlock()
}

// RemoveSocket 移除连接及其全部频道订阅
func (n *Namespace) RemoveSocket(socketID string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	s := n.sockets[socketID]
	for ch, members := range n.channels {
		if _, ok := members[socketID]; !ok {
			continue
		}
		delete(members, socketID)
		if len(members) == 0 {
			delete(n.channels, ch)
		}
		if s != nil {
			s.unmarkSubscribed(ch)
		}
	}
	delete(n.sockets, socketID)
}

// AddToChannel 返回加入后的订阅数
func (n *Namespace) AddToChannel(s *Socket, channel string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	members, ok := n.channels[channel]
	if !ok {
		members = make(map[string]struct{})
		n.channels[channel] = members
	}
	members[s.ID] = struct{}{}
	s.markSubscribed(channel)
	return len(members)
}

// RemoveFromChannel 返回最后一个频道的剩余订阅数
func (n *Namespace) RemoveFromChannel(socketID string, channels ...string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	remaining := 0
	for _, ch := range channels {
		members, ok := n.channels[ch]
		if !ok {
			remaining = 0
			continue
		}
		delete(members, socketID)
		remaining = len(members)
		if remaining == 0 {
			delete(n.channels, ch)
		}
	}
	if s, ok := n.sockets[socketID]; ok {
		s.unmarkSubscribed(channels...)
	}
	return remaining
}

// IsInChannel 连接是否在频道中
func (n *Namespace) IsInChannel(socketID, channel string) bool {
	n.mu.RLock()
	defer n.mu.RUnlock()
	_, ok := n.channels[channel][socketID]
	return ok
}

// Sockets 连接快照
func (n *Namespace) Sockets() map[string]*Socket {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]*Socket, len(n.sockets))
	for id, s := range n.sockets {
		out[id] = s
	}
	return out
}

// SocketsCount 连接数
func (n *Namespace) SocketsCount() int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.sockets)
}

// Channels 频道到订阅连接 id 的快照
func (n *Namespace) Channels() map[string][]string {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string][]string, len(n.channels))
	for ch, members := range n.channels {
		ids := make([]string, 0, len(members))
		for id := range members {
			ids = append(ids, id)
		}
		out[ch] = ids
	}
	return out
}

// ChannelsWithSocketsCount 频道订阅数
func (n *Namespace) ChannelsWithSocketsCount() map[string]int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	out := make(map[string]int, len(n.channels))
	for ch, members := range n.channels {
		out[ch] = len(members)
	}
	return out
}

// ChannelSockets 频道内仍在线的连接
func (n *Namespace) ChannelSockets(channel string) []*Socket {
	n.mu.RLock()
	defer n.mu.RUnlock()
	members := n.channels[channel]
	out := make([]*Socket, 0, len(members))
	for id := range members {
		if s, ok := n.sockets[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// ChannelSocketsCount 频道订阅数
func (n *Namespace) ChannelSocketsCount(channel string) int {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return len(n.channels[channel])
}

// ChannelMembers presence 成员，按用户 id 去重
func (n *Namespace) ChannelMembers(channel string) Members {
	members := make(Members)
	for _, s := range n.ChannelSockets(channel) {
		if m, ok := s.Presence(channel); ok {
			members[m.UserID] = m.UserInfo
		}
	}
	return members
}

// AddUser 登录用户索引，未登录的连接忽略
func (n *Namespace) AddUser(s *Socket) {
	u := s.User()
	if u == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	ids, ok := n.users[u.ID]
	if !ok {
		ids = make(map[string]struct{})
		n.users[u.ID] = ids
	}
	ids[s.ID] = struct{}{}
}

// RemoveUser 从用户索引中移除连接
func (n *Namespace) RemoveUser(s *Socket) {
	u := s.User()
	if u == nil {
		return
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if ids, ok := n.users[u.ID]; ok {
		delete(ids, s.ID)
		if len(ids) == 0 {
			delete(n.users, u.ID)
		}
	}
}

// UserSockets 用户的所有连接
func (n *Namespace) UserSockets(userID string) []*Socket {
	n.mu.RLock()
	defer n.mu.RUnlock()
	ids := n.users[userID]
	out := make([]*Socket, 0, len(ids))
	for id := range ids {
		if s, ok := n.sockets[id]; ok {
			out = append(out, s)
		}
	}
	return out
}

// TerminateUserConnections 断开用户的所有连接
func (n *Namespace) TerminateUserConnections(userID string) {
	for _, s := range n.UserSockets(userID) {
		_ = s.Send(errorMessage("", CodeUnauthorized, "You got disconnected by the app."))
		s.Terminate(CodeUnauthorized, "")
	}
}
