package ws

import (
	"context"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/cache"
	"github.com/tokmz/realtime/pkg/errors"
	"github.com/tokmz/realtime/pkg/logger"
	"github.com/tokmz/realtime/pkg/ratelimit"
	"github.com/tokmz/realtime/pkg/token"
)

// activityTimeoutHint connection_established 中告知客户端的 ping 间隔（秒）
const activityTimeoutHint = 30

// closeAllConcurrency 批量关闭时单个应用内的并发数
const closeAllConcurrency = 64

// CacheStore 缓存频道的载荷存储
type CacheStore interface {
	Has(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// WebhookSender webhook 通知，调用方不关心结果
type WebhookSender interface {
	ChannelOccupied(ctx context.Context, a *app.App, channel string)
	ChannelVacated(ctx context.Context, a *app.App, channel string)
	MemberAdded(ctx context.Context, a *app.App, channel, userID string)
	MemberRemoved(ctx context.Context, a *app.App, channel, userID string)
	ClientEvent(ctx context.Context, a *app.App, channel, event string, data any, socketID, userID string)
	CacheMissed(ctx context.Context, a *app.App, channel string)
}

// RateLimiter 客户端事件限流
type RateLimiter interface {
	ConsumeFrontendEventPoints(ctx context.Context, points int, a *app.App, socketID string) (*ratelimit.Response, error)
}

// Handler Pusher 协议分发器，管理连接的完整生命周期
type Handler struct {
	config   *Config
	adapter  Adapter
	apps     app.Manager
	channels *channelManagers
	upgrader *websocket.Upgrader

	cache    CacheStore
	webhooks WebhookSender
	limiter  RateLimiter
	metrics  Metrics
	log      logger.Logger

	closing atomic.Bool
}

// Option Handler 选项
type Option func(*Handler)

// WithCache 设置缓存频道的载荷存储
func WithCache(c CacheStore) Option {
	return func(h *Handler) {
		h.cache = c
	}
}

// WithWebhooks 设置 webhook 发送器
func WithWebhooks(w WebhookSender) Option {
	return func(h *Handler) {
		h.webhooks = w
	}
}

// WithRateLimiter 设置限流器
func WithRateLimiter(l RateLimiter) Option {
	return func(h *Handler) {
		h.limiter = l
	}
}

// WithMetrics 设置监控
func WithMetrics(m Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithLogger 设置日志
func WithLogger(l logger.Logger) Option {
	return func(h *Handler) {
		h.log = l
	}
}

// NewHandler 创建分发器
func NewHandler(cfg *Config, adapter Adapter, apps app.Manager, opts ...Option) (*Handler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if adapter == nil || apps == nil {
		return nil, ErrInvalidConfig.WithMessage("adapter and app manager are required")
	}

	h := &Handler{
		config:   cfg,
		adapter:  adapter,
		apps:     apps,
		channels: newChannelManagers(adapter),
		upgrader: newUpgrader(cfg),
		cache:    noopCache{},
		webhooks: noopWebhooks{},
		limiter:  unlimitedLimiter{},
		metrics:  NoopMetrics{},
		log:      logger.NewNop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.Named("ws")
	if n, ok := adapter.(StaleNotifier); ok {
		n.OnStaleLeave(h.leaveStale)
	}
	return h, nil
}

// Adapter 当前使用的适配器
func (h *Handler) Adapter() Adapter {
	return h.adapter
}

// SetClosing 设置排空标记，之后新连接与订阅都会被拒绝
func (h *Handler) SetClosing(closing bool) {
	h.closing.Store(closing)
}

// Closing 是否正在排空
func (h *Handler) Closing() bool {
	return h.closing.Load()
}

// NewSocket 为传输层连接创建状态记录
func (h *Handler) NewSocket(conn Conn, appKey string) *Socket {
	return newSocket(conn, appKey, h.config.ActivityTimeout, h.onSent)
}

func (h *Handler) onSent(s *Socket, size int) {
	if appID := s.AppID(); appID != "" {
		h.metrics.MarkWsMessageSent(appID, size)
	}
	if h.config.Debug {
		h.log.Debug("sent message", zap.String("socket_id", s.ID), zap.Int("size", size))
	}
}

// ServeWS 升级连接并阻塞运行读循环，直到连接关闭
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request, appKey string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	conn.SetReadLimit(h.config.MaxMessageSize)

	wc := newWSConn(conn, h.config)
	go wc.writePump()

	ctx := context.WithoutCancel(r.Context())
	s := h.NewSocket(wc, appKey)
	h.OnOpen(ctx, s)

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			wc.shutdown()
			h.OnClose(ctx, s, wc.closeCodeOf(err), "")
			<-wc.done
			return nil
		}
		h.OnMessage(ctx, s, data, mt == websocket.BinaryMessage)
	}
}

// OnOpen 准入检查，通过后登记连接并发送 connection_established
func (h *Handler) OnOpen(ctx context.Context, s *Socket) {
	if h.config.Debug {
		h.log.DebugContext(ctx, "new connection", zap.String("socket_id", s.ID), zap.String("app_key", s.AppKey), zap.String("ip", s.IP))
	}

	if h.closing.Load() {
		h.reject(s, CodeServerClosing, "Server is closing. Please reconnect shortly.")
		return
	}

	a, err := h.apps.FindByKey(ctx, s.AppKey)
	if err != nil || a == nil {
		if err != nil && !errors.Is(err, app.ErrAppNotFound) {
			h.log.ErrorContext(ctx, "find app failed", zap.String("app_key", s.AppKey), zap.Error(err))
		}
		h.reject(s, CodeAppNotFound, "App key "+s.AppKey+" does not exist.")
		return
	}
	if !a.IsEnabled() {
		h.reject(s, CodeAppDisabled, "The app is not enabled.")
		return
	}
	if !h.checkAppConnectionLimit(ctx, a) {
		h.reject(s, CodeOverQuota, "The current concurrent connections quota has been reached.")
		return
	}

	if err := h.adapter.AddSocket(ctx, a.ID, s); err != nil {
		h.log.ErrorContext(ctx, "register socket failed", zap.String("app_id", a.ID), zap.Error(err))
		h.reject(s, CodeServerError, "A server error has occured.")
		return
	}
	s.bindApp(a)

	_ = s.Send(OutMessage{
		Event: EventConnectionEstablished,
		Data: stringify(struct {
			SocketID        string `json:"socket_id"`
			ActivityTimeout int    `json:"activity_timeout"`
		}{s.ID, activityTimeoutHint}),
	})
	if a.EnableUserAuthentication {
		s.startSigninTimer(h.config.UserAuthenticationTimeout, func() {
			_ = s.Send(errorMessage("", CodeUnauthorized, "Connection not authorized within timeout."))
			s.Terminate(CodeUnauthorized, "")
		})
	}
	h.metrics.MarkNewConnection(a.ID)
}

// reject 发送错误后断开，连接从未登记
func (h *Handler) reject(s *Socket, code int, message string) {
	_ = s.Send(errorMessage("", code, message))
	s.Terminate(code, "")
}

// checkAppConnectionLimit 计数失败时拒绝
func (h *Handler) checkAppConnectionLimit(ctx context.Context, a *app.App) bool {
	if a.MaxConnections < 0 {
		return true
	}
	n, err := h.adapter.GetSocketsCount(ctx, a.ID)
	if err != nil {
		h.log.ErrorContext(ctx, "count sockets failed", zap.String("app_id", a.ID), zap.Error(err))
		return false
	}
	return n+1 <= a.MaxConnections
}

// OnMessage 处理一帧入站消息，同一连接的消息按顺序处理
// 无法解析的帧直接丢弃
func (h *Handler) OnMessage(ctx context.Context, s *Socket, raw []byte, binary bool) {
	a := s.App()
	if a == nil {
		return
	}
	h.metrics.MarkWsMessageReceived(a.ID, len(raw))

	msg, err := ParseMessage(raw)
	if err != nil {
		h.log.DebugContext(ctx, "drop invalid message", zap.String("socket_id", s.ID), zap.Error(err))
		return
	}
	if h.config.Debug {
		h.log.DebugContext(ctx, "received message",
			zap.String("socket_id", s.ID),
			zap.String("event", msg.Event),
			zap.Bool("binary", binary),
		)
	}

	switch {
	case msg.Event == EventPing:
		h.handlePing(ctx, s)
	case msg.Event == EventSubscribe:
		h.subscribeToChannel(ctx, s, msg)
	case msg.Event == EventUnsubscribe:
		var data SubscribeData
		if err := json.Unmarshal(msg.Data, &data); err == nil && data.Channel != "" {
			h.unsubscribeFromChannel(ctx, s, data.Channel, false)
		}
	case IsClientEvent(msg.Event):
		h.handleClientEvent(ctx, s, msg)
	case msg.Event == EventSignin:
		h.handleSignin(ctx, s, msg)
	}
}

// OnClose 传输层关闭
func (h *Handler) OnClose(ctx context.Context, s *Socket, code int, reason string) {
	s.closed.Store(true)
	if h.config.Debug {
		h.log.DebugContext(ctx, "connection closed", zap.String("socket_id", s.ID), zap.Int("code", code), zap.String("reason", reason))
	}
	// 4200 由服务端发起，清理已经完成
	if code == CodeServerClosing && s.evicted.Load() {
		return
	}
	h.EvictSocketFromMemory(ctx, s)
}

// EvictSocketFromMemory 退订全部频道、移除连接并停止定时器，可重复调用
func (h *Handler) EvictSocketFromMemory(ctx context.Context, s *Socket) {
	if !s.evicted.CompareAndSwap(false, true) {
		return
	}
	h.unsubscribeFromAllChannels(ctx, s)
	if a := s.App(); a != nil {
		if err := h.adapter.RemoveSocket(ctx, a.ID, s.ID); err != nil {
			h.log.ErrorContext(ctx, "remove socket failed", zap.String("app_id", a.ID), zap.String("socket_id", s.ID), zap.Error(err))
		}
		h.metrics.MarkDisconnection(a.ID)
	}
	s.clearTimers()
}

// CloseAllLocalSockets 通知并断开本节点的所有连接，然后清空命名空间
func (h *Handler) CloseAllLocalSockets(ctx context.Context) error {
	namespaces := h.adapter.GetNamespaces()
	if len(namespaces) == 0 {
		return nil
	}

	var g errgroup.Group
	for appID, ns := range namespaces {
		g.Go(func() error {
			var sg errgroup.Group
			sg.SetLimit(closeAllConcurrency)
			for _, s := range ns.Sockets() {
				sg.Go(func() error {
					_ = s.Send(errorMessage("", CodeServerClosing, "Server closed. Please reconnect shortly."))
					s.Terminate(CodeServerClosing, "")
					h.EvictSocketFromMemory(ctx, s)
					return nil
				})
			}
			_ = sg.Wait()
			return h.adapter.ClearNamespace(ctx, appID)
		})
	}
	err := g.Wait()
	if cerr := h.adapter.ClearNamespaces(ctx); err == nil {
		err = cerr
	}
	return err
}

func (h *Handler) handlePing(ctx context.Context, s *Socket) {
	_ = s.Send(OutMessage{Event: EventPong, Data: struct{}{}})
	if h.closing.Load() {
		h.closeDraining(ctx, s)
	}
}

// closeDraining 排空期间主动断开并清理
func (h *Handler) closeDraining(ctx context.Context, s *Socket) {
	_ = s.Send(errorMessage("", CodeServerClosing, "Server closed. Please reconnect shortly."))
	s.Terminate(CodeServerClosing, "")
	h.EvictSocketFromMemory(ctx, s)
}

func (h *Handler) subscribeToChannel(ctx context.Context, s *Socket, msg *Message) {
	if h.closing.Load() {
		h.closeDraining(ctx, s)
		return
	}

	var data SubscribeData
	if err := json.Unmarshal(msg.Data, &data); err != nil || data.Channel == "" {
		return
	}
	channel := data.Channel
	a := s.App()

	if NameLength(channel) > a.MaxChannelNameLength {
		_ = s.Send(subscriptionError(channel, "LimitReached",
			"The channel name is longer than the allowed "+strconv.Itoa(a.MaxChannelNameLength)+" characters.",
			CodeUnauthorized))
		return
	}

	resp, err := h.channels.managerFor(channel).Join(ctx, s, channel, &data)
	if err != nil {
		h.log.ErrorContext(ctx, "join channel failed", zap.String("app_id", a.ID), zap.String("channel", channel), zap.Error(err))
		_ = s.Send(serverError(channel))
		return
	}
	if !resp.Success {
		if resp.AuthError {
			_ = s.Send(subscriptionError(channel, "AuthError", resp.ErrorMessage, http.StatusUnauthorized))
			return
		}
		_ = s.Send(subscriptionError(channel, resp.Type, resp.ErrorMessage, resp.ErrorCode))
		return
	}

	h.syncSocket(ctx, a, s)
	if resp.ChannelConnections == 1 {
		h.webhooks.ChannelOccupied(ctx, a, channel)
	}

	if KindOf(channel) != ChannelPresence {
		_ = s.Send(OutMessage{Event: EventSubscriptionSucceeded, Channel: channel})
		if IsCachingChannel(channel) {
			h.sendMissedCacheIfExists(ctx, s, channel)
		}
		return
	}

	members, err := h.adapter.GetChannelMembers(ctx, a.ID, channel)
	if err != nil {
		h.log.ErrorContext(ctx, "get channel members failed", zap.String("app_id", a.ID), zap.String("channel", channel), zap.Error(err))
		_ = s.Send(serverError(channel))
		return
	}

	member := *resp.Member
	s.setPresence(channel, member)
	h.syncSocket(ctx, a, s)

	if _, exists := members[member.UserID]; !exists {
		h.webhooks.MemberAdded(ctx, a, channel, member.UserID)
		h.broadcast(ctx, a.ID, channel, OutMessage{
			Event:   EventMemberAdded,
			Channel: channel,
			Data:    stringify(member),
		}, s.ID)
		members[member.UserID] = member.UserInfo
	}

	_ = s.Send(OutMessage{
		Event:   EventSubscriptionSucceeded,
		Channel: channel,
		Data:    stringify(newPresenceData(members)),
	})
	if IsCachingChannel(channel) {
		h.sendMissedCacheIfExists(ctx, s, channel)
	}
}

// unsubscribeFromChannel closing 为 true 时连接即将移除，不再同步连接记录
func (h *Handler) unsubscribeFromChannel(ctx context.Context, s *Socket, channel string, closing bool) {
	a := s.App()
	member, hadPresence := s.Presence(channel)

	resp, err := h.channels.managerFor(channel).Leave(ctx, s, channel)
	if err != nil {
		h.log.ErrorContext(ctx, "leave channel failed", zap.String("app_id", a.ID), zap.String("channel", channel), zap.Error(err))
		return
	}
	if !resp.Left {
		return
	}

	if KindOf(channel) == ChannelPresence && hadPresence {
		s.deletePresence(channel)
		if !closing {
			h.syncSocket(ctx, a, s)
		}
		members, err := h.adapter.GetChannelMembers(ctx, a.ID, channel)
		if err != nil {
			h.log.ErrorContext(ctx, "get channel members failed", zap.String("app_id", a.ID), zap.String("channel", channel), zap.Error(err))
		} else if _, ok := members[member.UserID]; !ok {
			h.memberRemoved(ctx, a, channel, member.UserID, s.ID)
		}
	}

	if !closing {
		h.syncSocket(ctx, a, s)
	}
	if resp.RemainingConnections == 0 {
		h.webhooks.ChannelVacated(ctx, a, channel)
	}
}

func (h *Handler) memberRemoved(ctx context.Context, a *app.App, channel, userID, exceptSocketID string) {
	h.webhooks.MemberRemoved(ctx, a, channel, userID)
	h.broadcast(ctx, a.ID, channel, OutMessage{
		Event:   EventMemberRemoved,
		Channel: channel,
		Data: stringify(struct {
			UserID string `json:"user_id"`
		}{userID}),
	}, exceptSocketID)
}

// leaveStale 其他节点失效后，清理其连接的节点补发成员离开与频道空闲通知
func (h *Handler) leaveStale(ctx context.Context, appID, channel string, member *PresenceMember, remaining int) {
	a, err := h.apps.FindByID(ctx, appID)
	if err != nil || a == nil {
		h.log.WarnContext(ctx, "find app for stale socket failed", zap.String("app_id", appID), zap.Error(err))
		return
	}
	if member != nil {
		members, err := h.adapter.GetChannelMembers(ctx, appID, channel)
		if err != nil {
			h.log.ErrorContext(ctx, "get channel members failed", zap.String("app_id", appID), zap.String("channel", channel), zap.Error(err))
		} else if _, ok := members[member.UserID]; !ok {
			h.memberRemoved(ctx, a, channel, member.UserID, "")
		}
	}
	if remaining == 0 {
		h.webhooks.ChannelVacated(ctx, a, channel)
	}
}

// unsubscribeFromAllChannels 并发退订所有频道并移除用户索引
func (h *Handler) unsubscribeFromAllChannels(ctx context.Context, s *Socket) {
	if s.App() == nil {
		return
	}
	var g errgroup.Group
	for _, ch := range s.Subscribed() {
		g.Go(func() error {
			h.unsubscribeFromChannel(ctx, s, ch, true)
			return nil
		})
	}
	if s.User() != nil {
		g.Go(func() error {
			return h.adapter.RemoveUser(ctx, s)
		})
	}
	if err := g.Wait(); err != nil {
		h.log.ErrorContext(ctx, "remove user failed", zap.String("socket_id", s.ID), zap.Error(err))
	}
}

func (h *Handler) handleClientEvent(ctx context.Context, s *Socket, msg *Message) {
	a := s.App()
	channel := msg.Channel

	if !a.EnableClientMessages {
		_ = s.Send(errorMessage(channel, CodeClientEventDenied, "The app does not have client messaging enabled."))
		return
	}
	if NameLength(msg.Event) > a.MaxEventNameLength {
		_ = s.Send(errorMessage(channel, CodeClientEventDenied,
			"Event name is too long. Maximum allowed size is "+strconv.Itoa(a.MaxEventNameLength)+"."))
		return
	}
	if DataToKilobytes(msg.Data) > a.MaxEventPayloadInKb {
		_ = s.Send(errorMessage(channel, CodeClientEventDenied,
			"The event data should be less than "+strconv.FormatFloat(a.MaxEventPayloadInKb, 'f', -1, 64)+" KB."))
		return
	}

	in, err := h.adapter.IsInChannel(ctx, a.ID, channel, s.ID)
	if err != nil {
		h.log.ErrorContext(ctx, "check channel membership failed", zap.String("app_id", a.ID), zap.String("channel", channel), zap.Error(err))
		return
	}
	if !in {
		return
	}

	resp, err := h.limiter.ConsumeFrontendEventPoints(ctx, 1, a, s.ID)
	if err != nil {
		h.log.WarnContext(ctx, "rate limiter failed", zap.String("app_id", a.ID), zap.Error(err))
	}
	if err != nil || resp == nil || !resp.CanContinue {
		_ = s.Send(errorMessage(channel, CodeClientEventDenied, "The rate limit for sending client events exceeded the quota."))
		return
	}

	var userID string
	if m, ok := s.Presence(channel); ok {
		userID = m.UserID
	}
	data := rawData(msg.Data)
	h.broadcast(ctx, a.ID, channel, OutMessage{
		Event:   msg.Event,
		Channel: channel,
		Data:    data,
		UserID:  userID,
	}, s.ID)
	h.webhooks.ClientEvent(ctx, a, channel, msg.Event, data, s.ID, userID)
}

// handleSignin 只在等待登录期间有效
func (h *Handler) handleSignin(ctx context.Context, s *Socket, msg *Message) {
	if !s.SigninPending() {
		return
	}
	a := s.App()

	var data SigninData
	_ = json.Unmarshal(msg.Data, &data)
	if !token.VerifyAuth(a.Key, a.Secret, s.ID+"::user::"+data.UserData, data.Auth) {
		_ = s.Send(errorMessage("", CodeUnauthorized, "Connection not authorized."))
		s.Terminate(CodeUnauthorized, "")
		return
	}

	user, ok := decodeUser(data.UserData)
	if !ok {
		_ = s.Send(errorMessage("", CodeUnauthorized, `The returned user data must contain the "id" field.`))
		s.Terminate(CodeUnauthorized, "")
		return
	}

	// 登录超时已触发
	if !s.cancelSigninTimer() {
		return
	}
	s.setUser(user)
	h.syncSocket(ctx, a, s)
	if err := h.adapter.AddUser(ctx, s); err != nil {
		h.log.ErrorContext(ctx, "add user failed", zap.String("app_id", a.ID), zap.String("user_id", user.ID), zap.Error(err))
	}
	_ = s.Send(OutMessage{Event: EventSigninSuccess, Data: rawData(msg.Data)})
}

func decodeUser(userData string) (*User, bool) {
	var fields map[string]jsoniter.RawMessage
	if err := json.Unmarshal([]byte(userData), &fields); err != nil {
		return nil, false
	}
	id, ok := normalizeID(fields["id"])
	if !ok {
		return nil, false
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(userData), &data); err != nil {
		return nil, false
	}
	data["id"] = id
	return &User{ID: id, Data: data}, true
}

// CacheMissKey 缓存频道载荷的存储 key
func CacheMissKey(appID, channel string) string {
	return "app:" + appID + ":channel:" + channel + ":cache_miss"
}

// sendMissedCacheIfExists 命中时发送缓存载荷，未命中或出错时通知 webhook
func (h *Handler) sendMissedCacheIfExists(ctx context.Context, s *Socket, channel string) {
	a := s.App()
	cached, err := h.cache.Get(ctx, CacheMissKey(a.ID, channel))
	if err == nil && cached != "" {
		_ = s.Send(OutMessage{Event: EventCacheMiss, Channel: channel, Data: cached})
		return
	}
	h.webhooks.CacheMissed(ctx, a, channel)
}

// syncSocket 重新登记连接，使注册表中的 presence 信息与连接一致
func (h *Handler) syncSocket(ctx context.Context, a *app.App, s *Socket) {
	if err := h.adapter.AddSocket(ctx, a.ID, s); err != nil {
		h.log.ErrorContext(ctx, "sync socket failed", zap.String("app_id", a.ID), zap.String("socket_id", s.ID), zap.Error(err))
	}
}

// broadcast 发送失败只记录日志
func (h *Handler) broadcast(ctx context.Context, appID, channel string, msg OutMessage, exceptSocketID string) {
	b, err := Encode(msg)
	if err != nil {
		h.log.ErrorContext(ctx, "encode broadcast failed", zap.String("channel", channel), zap.Error(err))
		return
	}
	if err := h.adapter.Send(ctx, appID, channel, b, exceptSocketID); err != nil {
		h.log.WarnContext(ctx, "broadcast failed", zap.String("app_id", appID), zap.String("channel", channel), zap.Error(err))
	}
}

func subscriptionError(channel, typ, message string, status int) OutMessage {
	return OutMessage{
		Event:   EventSubscriptionError,
		Channel: channel,
		Data:    SubscriptionErrorData{Type: typ, Error: message, Status: status},
	}
}

func serverError(channel string) OutMessage {
	return OutMessage{
		Event:   EventError,
		Channel: channel,
		Data:    ServerErrorData{Type: "ServerError", Error: "A server error has occured.", Code: CodeServerError},
	}
}

// rawData 空载荷返回 nil，避免编码出非法 JSON
func rawData(raw jsoniter.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// noopCache 没有缓存存储时所有查询都未命中
type noopCache struct{}

func (noopCache) Has(context.Context, string) (bool, error) { return false, nil }
func (noopCache) Get(context.Context, string) (string, error) {
	return "", cache.ErrCacheNotFound
}
func (noopCache) Set(context.Context, string, string, time.Duration) error { return nil }

type noopWebhooks struct{}

func (noopWebhooks) ChannelOccupied(context.Context, *app.App, string)          {}
func (noopWebhooks) ChannelVacated(context.Context, *app.App, string)           {}
func (noopWebhooks) MemberAdded(context.Context, *app.App, string, string)      {}
func (noopWebhooks) MemberRemoved(context.Context, *app.App, string, string)    {}
func (noopWebhooks) CacheMissed(context.Context, *app.App, string)              {}
func (noopWebhooks) ClientEvent(context.Context, *app.App, string, string, any, string, string) {
}

type unlimitedLimiter struct{}

func (unlimitedLimiter) ConsumeFrontendEventPoints(context.Context, int, *app.App, string) (*ratelimit.Response, error) {
	return &ratelimit.Response{CanContinue: true, Remaining: -1, Limit: -1}, nil
}
