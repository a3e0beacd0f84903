package ws

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/tokmz/realtime/pkg/app"
)

// Conn 连接传输层
// WriteMessage 与 Close 按调用顺序写出，Close 之后的写入返回 ErrConnectionClosed
type Conn interface {
	WriteMessage(data []byte) error
	Close(code int, reason string) error
	RemoteAddr() string
}

// User 通过 pusher:signin 登录的用户
type User struct {
	ID   string
	Data map[string]any
}

// Socket 单个连接的全部状态
// 由 Handler 创建，频道订阅集合只由 Adapter 修改
type Socket struct {
	ID     string
	AppKey string
	IP     string

	conn Conn

	mu         sync.RWMutex
	app        *app.App
	subscribed map[string]struct{}
	presence   map[string]PresenceMember
	user       *User

	// 定时器
	idleTimeout   time.Duration
	idleTimer     *time.Timer
	signinTimer   *time.Timer
	signinPending bool

	onSent  func(s *Socket, size int)
	closed  atomic.Bool
	evicted atomic.Bool
}

func newSocket(conn Conn, appKey string, idleTimeout time.Duration, onSent func(*Socket, int)) *Socket {
	return &Socket{
		ID:          generateSocketID(),
		AppKey:      appKey,
		IP:          conn.RemoteAddr(),
		conn:        conn,
		subscribed:  make(map[string]struct{}),
		presence:    make(map[string]PresenceMember),
		idleTimeout: idleTimeout,
		onSent:      onSent,
	}
}

// App 准入成功后绑定的应用，未绑定时为 nil
func (s *Socket) App() *app.App {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.app
}

func (s *Socket) bindApp(a *app.App) {
	s.mu.Lock()
	s.app = a
	s.mu.Unlock()
}

// AppID 未绑定时返回空串
func (s *Socket) AppID() string {
	if a := s.App(); a != nil {
		return a.ID
	}
	return ""
}

// Send 序列化并发送，每次成功发送都会重置空闲超时
func (s *Socket) Send(msg any) error {
	b, err := Encode(msg)
	if err != nil {
		return err
	}
	return s.SendRaw(b)
}

// SendRaw 发送已编码的帧
func (s *Socket) SendRaw(b []byte) error {
	if s.closed.Load() {
		return ErrConnectionClosed
	}
	if err := s.conn.WriteMessage(b); err != nil {
		return err
	}
	s.resetIdleTimer()
	if s.onSent != nil {
		s.onSent(s, len(b))
	}
	return nil
}

// Terminate 以指定关闭码断开连接，重复调用无效
func (s *Socket) Terminate(code int, reason string) {
	if !s.closed.CompareAndSwap(false, true) {
		return
	}
	_ = s.conn.Close(code, reason)
}

// IsClosed 是否已断开
func (s *Socket) IsClosed() bool {
	return s.closed.Load()
}

// Subscribed 已订阅频道快照
func (s *Socket) Subscribed() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.subscribed))
	for ch := range s.subscribed {
		out = append(out, ch)
	}
	return out
}

// IsSubscribed 是否订阅了该频道
func (s *Socket) IsSubscribed(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.subscribed[channel]
	return ok
}

func (s *Socket) markSubscribed(channel string) {
	s.mu.Lock()
	s.subscribed[channel] = struct{}{}
	s.mu.Unlock()
}

func (s *Socket) unmarkSubscribed(channels ...string) {
	s.mu.Lock()
	for _, ch := range channels {
		delete(s.subscribed, ch)
	}
	s.mu.Unlock()
}

// Presence 该连接在 presence 频道中的成员信息
func (s *Socket) Presence(channel string) (PresenceMember, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.presence[channel]
	return m, ok
}

// PresenceSnapshot 所有 presence 成员信息的快照
func (s *Socket) PresenceSnapshot() map[string]PresenceMember {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]PresenceMember, len(s.presence))
	for ch, m := range s.presence {
		out[ch] = m
	}
	return out
}

func (s *Socket) setPresence(channel string, m PresenceMember) {
	s.mu.Lock()
	s.presence[channel] = m
	s.mu.Unlock()
}

func (s *Socket) deletePresence(channel string) {
	s.mu.Lock()
	delete(s.presence, channel)
	s.mu.Unlock()
}

// User 登录用户，未登录时为 nil
func (s *Socket) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

func (s *Socket) setUser(u *User) {
	s.mu.Lock()
	s.user = u
	s.mu.Unlock()
}

func (s *Socket) resetIdleTimer() {
	if s.idleTimeout <= 0 || s.closed.Load() || s.evicted.Load() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer == nil {
		s.idleTimer = time.AfterFunc(s.idleTimeout, func() {
			s.Terminate(CodeIdleTimeout, "")
		})
		return
	}
	s.idleTimer.Reset(s.idleTimeout)
}

// startSigninTimer 到期且尚未登录时执行 fn
func (s *Socket) startSigninTimer(d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.signinPending = true
	s.signinTimer = time.AfterFunc(d, func() {
		s.mu.Lock()
		pending := s.signinPending
		s.signinPending = false
		s.mu.Unlock()
		if pending {
			fn()
		}
	})
}

// SigninPending 是否在等待登录
func (s *Socket) SigninPending() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.signinPending
}

// cancelSigninTimer 返回取消前是否处于等待状态
func (s *Socket) cancelSigninTimer() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := s.signinPending
	s.signinPending = false
	if s.signinTimer != nil {
		s.signinTimer.Stop()
	}
	return pending
}

// clearTimers 停止所有定时器，可重复调用
func (s *Socket) clearTimers() {
	s.cancelSigninTimer()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
}
