package ws

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tokmz/realtime/pkg/cache"
	"github.com/tokmz/realtime/pkg/logger"
)

// 总线消息类型
const (
	busSend          = "send"
	busTerminateUser = "terminate_user"
)

var addSocketScript = redis.NewScript(`
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
for i = 2, #KEYS do
  redis.call('HSET', KEYS[i], ARGV[1], ARGV[i + 1])
end
return 1
`)

var addToChannelScript = redis.NewScript(`
redis.call('SADD', KEYS[2], ARGV[2])
redis.call('SADD', KEYS[1], ARGV[1])
redis.call('SADD', KEYS[3], ARGV[1])
redis.call('HSET', KEYS[4], ARGV[2], ARGV[3])
return redis.call('SCARD', KEYS[2])
`)

// removeChannelsLua KEYS[1] 频道索引，KEYS[2] 连接的频道集合，ARGV[1] 连接 id
// 频道名从 ARGV[first] 开始，从 KEYS[offset] 开始每个频道占两个 key：订阅集合与成员 hash
const removeChannelsLua = `
local function removeChannels(offset, first)
  local n = 0
  for i = first, #ARGV do
    local sk = KEYS[offset + (i - first) * 2]
    local mk = KEYS[offset + (i - first) * 2 + 1]
    redis.call('SREM', sk, ARGV[1])
    redis.call('HDEL', mk, ARGV[1])
    redis.call('SREM', KEYS[2], ARGV[i])
    n = redis.call('SCARD', sk)
    if n == 0 then
      redis.call('SREM', KEYS[1], ARGV[i])
    end
  end
  return n
end
`

var removeFromChannelsScript = redis.NewScript(removeChannelsLua + `
return removeChannels(3, 2)
`)

var removeSocketScript = redis.NewScript(removeChannelsLua + `
removeChannels(4, 2)
redis.call('HDEL', KEYS[3], ARGV[1])
redis.call('DEL', KEYS[2])
return 1
`)

// evictSocketScript 只在连接仍登记在 ARGV[2] 节点名下时清理，多个节点同时清理时只有一个返回 1
// KEYS[3] 连接 hash，KEYS[4] 连接到用户的 hash，KEYS[5] 用户的连接集合
var evictSocketScript = redis.NewScript(removeChannelsLua + `
if redis.call('HGET', KEYS[3], ARGV[1]) ~= ARGV[2] then
  return 0
end
removeChannels(6, 3)
redis.call('HDEL', KEYS[3], ARGV[1])
redis.call('DEL', KEYS[2])
redis.call('HDEL', KEYS[4], ARGV[1])
redis.call('SREM', KEYS[5], ARGV[1])
return 1
`)

// busMessage 节点间广播的消息
type busMessage struct {
	Node    string `json:"node"`
	Type    string `json:"type"`
	AppID   string `json:"app_id"`
	Channel string `json:"channel,omitempty"`
	Payload string `json:"payload,omitempty"`
	Except  string `json:"except,omitempty"`
	UserID  string `json:"user_id,omitempty"`
}

// RedisAdapter 多节点实现
// 注册表保存在 Redis 中，计数与成员为所有节点的并集
// 本地连接句柄仍由内嵌的 LocalAdapter 管理，GetSockets 与 GetUserSockets 只返回本节点连接
type RedisAdapter struct {
	*LocalAdapter

	client     redis.UniversalClient
	ownsClient bool
	prefix     string
	nodeID     string
	log        logger.Logger

	nodeTTL       time.Duration
	sweepInterval time.Duration
	onStaleLeave  StaleLeaveFunc
	knownApps     sync.Map

	pubsub   *redis.PubSub
	wg       sync.WaitGroup
	once     sync.Once
	done     chan struct{}
	stopOnce sync.Once
}

// RedisOption RedisAdapter 选项
type RedisOption func(*RedisAdapter)

// WithNodeTTL 节点心跳过期时间，每 ttl/3 续期一次
func WithNodeTTL(ttl time.Duration) RedisOption {
	return func(a *RedisAdapter) {
		if ttl > 0 {
			a.nodeTTL = ttl
		}
	}
}

// WithSweepInterval 清理失效节点的间隔，0 表示只能手动调用 Sweep
func WithSweepInterval(d time.Duration) RedisOption {
	return func(a *RedisAdapter) {
		a.sweepInterval = d
	}
}

// NewRedisAdapter 连接 Redis 并订阅广播总线
func NewRedisAdapter(ctx context.Context, cfg AdapterConfig, log logger.Logger) (*RedisAdapter, error) {
	client, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		return nil, ErrAdapter.WithError(err)
	}
	a, err := NewRedisAdapterFromClient(ctx, client, cfg.Prefix, log,
		WithNodeTTL(cfg.NodeTTL),
		WithSweepInterval(cfg.SweepInterval),
	)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	a.ownsClient = true
	return a, nil
}

// NewRedisAdapterFromClient 使用已有客户端，Disconnect 时不关闭该客户端
func NewRedisAdapterFromClient(ctx context.Context, client redis.UniversalClient, prefix string, log logger.Logger, opts ...RedisOption) (*RedisAdapter, error) {
	if prefix == "" {
		prefix = "realtime"
	}
	if log == nil {
		log = logger.NewNop()
	}
	a := &RedisAdapter{
		LocalAdapter: NewLocalAdapter(),
		client:       client,
		prefix:       prefix,
		nodeID:       uuid.NewString(),
		log:          log.Named("redis-adapter"),
		nodeTTL:      30 * time.Second,
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}

	if err := a.beat(ctx); err != nil {
		return nil, ErrAdapter.WithMessage("register node heartbeat").WithError(err)
	}
	a.pubsub = client.Subscribe(ctx, a.busChannel())
	if _, err := a.pubsub.Receive(ctx); err != nil {
		_ = a.pubsub.Close()
		_ = client.Del(ctx, a.nodeKey(a.nodeID)).Err()
		return nil, ErrAdapter.WithMessage("subscribe adapter bus").WithError(err)
	}

	a.wg.Add(2)
	go a.listen()
	go a.heartbeat()
	return a, nil
}

// NodeID 本节点标识
func (a *RedisAdapter) NodeID() string {
	return a.nodeID
}

// OnStaleLeave 注册失效连接清理后的回调，需在开始处理连接前调用
func (a *RedisAdapter) OnStaleLeave(fn StaleLeaveFunc) {
	a.onStaleLeave = fn
}

func (a *RedisAdapter) busChannel() string {
	return a.prefix + ":bus"
}

func (a *RedisAdapter) nodeKey(nodeID string) string {
	return a.prefix + ":node:" + nodeID
}

// appsKey 登记过连接的应用，供清理时遍历
func (a *RedisAdapter) appsKey() string {
	return a.prefix + ":apps"
}

// appKey 同一应用的 key 共用一个 hash tag，集群模式下落在同一 slot
func (a *RedisAdapter) appKey(appID string) string {
	return a.prefix + ":app:{" + appID + "}:"
}

func (a *RedisAdapter) socketsKey(appID string) string {
	return a.appKey(appID) + "sockets"
}

func (a *RedisAdapter) channelsKey(appID string) string {
	return a.appKey(appID) + "channels"
}

func (a *RedisAdapter) channelSocketsKey(appID, channel string) string {
	return a.appKey(appID) + "channel:" + channel + ":sockets"
}

func (a *RedisAdapter) channelMembersKey(appID, channel string) string {
	return a.appKey(appID) + "channel:" + channel + ":members"
}

func (a *RedisAdapter) socketChannelsKey(appID, socketID string) string {
	return a.appKey(appID) + "socket:" + socketID + ":channels"
}

func (a *RedisAdapter) userSocketsKey(appID, userID string) string {
	return a.appKey(appID) + "user:" + userID + ":sockets"
}

// socketUsersKey 连接 id 到用户 id
func (a *RedisAdapter) socketUsersKey(appID string) string {
	return a.appKey(appID) + "socket_users"
}

func (a *RedisAdapter) registerApp(ctx context.Context, appID string) error {
	if _, ok := a.knownApps.Load(appID); ok {
		return nil
	}
	if err := a.client.SAdd(ctx, a.appsKey(), appID).Err(); err != nil {
		return ErrAdapter.WithError(err)
	}
	a.knownApps.Store(appID, struct{}{})
	return nil
}

// AddSocket 同时写入连接的 presence 成员信息
func (a *RedisAdapter) AddSocket(ctx context.Context, appID string, s *Socket) error {
	if err := a.registerApp(ctx, appID); err != nil {
		return err
	}
	keys := []string{a.socketsKey(appID)}
	args := []any{s.ID, a.nodeID}
	for ch, m := range s.PresenceSnapshot() {
		b, err := json.Marshal(m)
		if err != nil {
			return ErrAdapter.WithError(err)
		}
		keys = append(keys, a.channelMembersKey(appID, ch))
		args = append(args, string(b))
	}
	if err := addSocketScript.Run(ctx, a.client, keys, args...).Err(); err != nil {
		return ErrAdapter.WithError(err)
	}
	return a.LocalAdapter.AddSocket(ctx, appID, s)
}

func (a *RedisAdapter) RemoveSocket(ctx context.Context, appID, socketID string) error {
	_ = a.LocalAdapter.RemoveSocket(ctx, appID, socketID)

	channels, err := a.client.SMembers(ctx, a.socketChannelsKey(appID, socketID)).Result()
	if err != nil {
		return ErrAdapter.WithError(err)
	}
	keys := []string{a.channelsKey(appID), a.socketChannelsKey(appID, socketID), a.socketsKey(appID)}
	keys = append(keys, a.channelKeys(appID, channels)...)
	if err := removeSocketScript.Run(ctx, a.client, keys, a.removeArgs(socketID, channels)...).Err(); err != nil {
		return ErrAdapter.WithError(err)
	}
	return nil
}

func (a *RedisAdapter) channelKeys(appID string, channels []string) []string {
	keys := make([]string, 0, len(channels)*2)
	for _, ch := range channels {
		keys = append(keys, a.channelSocketsKey(appID, ch), a.channelMembersKey(appID, ch))
	}
	return keys
}

func (a *RedisAdapter) removeArgs(socketID string, channels []string) []any {
	args := make([]any, 0, len(channels)+1)
	args = append(args, socketID)
	for _, ch := range channels {
		args = append(args, ch)
	}
	return args
}

func (a *RedisAdapter) AddToChannel(ctx context.Context, appID, channel string, s *Socket) (int, error) {
	if err := a.registerApp(ctx, appID); err != nil {
		return 0, err
	}
	keys := []string{
		a.channelsKey(appID),
		a.channelSocketsKey(appID, channel),
		a.socketChannelsKey(appID, s.ID),
		a.socketsKey(appID),
	}
	n, err := addToChannelScript.Run(ctx, a.client, keys, channel, s.ID, a.nodeID).Int()
	if err != nil {
		return 0, ErrAdapter.WithError(err)
	}
	_, _ = a.LocalAdapter.AddToChannel(ctx, appID, channel, s)
	return n, nil
}

func (a *RedisAdapter) RemoveFromChannel(ctx context.Context, appID, channel, socketID string) (int, error) {
	_, _ = a.LocalAdapter.RemoveFromChannel(ctx, appID, channel, socketID)
	return a.removeFromChannels(ctx, appID, []string{channel}, socketID)
}

func (a *RedisAdapter) RemoveFromChannels(ctx context.Context, appID string, channels []string, socketID string) error {
	if len(channels) == 0 {
		return nil
	}
	_ = a.LocalAdapter.RemoveFromChannels(ctx, appID, channels, socketID)
	_, err := a.removeFromChannels(ctx, appID, channels, socketID)
	return err
}

func (a *RedisAdapter) removeFromChannels(ctx context.Context, appID string, channels []string, socketID string) (int, error) {
	keys := []string{a.channelsKey(appID), a.socketChannelsKey(appID, socketID)}
	keys = append(keys, a.channelKeys(appID, channels)...)
	n, err := removeFromChannelsScript.Run(ctx, a.client, keys, a.removeArgs(socketID, channels)...).Int()
	if err != nil {
		return 0, ErrAdapter.WithError(err)
	}
	return n, nil
}

func (a *RedisAdapter) GetSocketsCount(ctx context.Context, appID string) (int, error) {
	n, err := a.client.HLen(ctx, a.socketsKey(appID)).Result()
	if err != nil {
		return 0, ErrAdapter.WithError(err)
	}
	return int(n), nil
}

func (a *RedisAdapter) GetChannels(ctx context.Context, appID string) (map[string][]string, error) {
	channels, err := a.client.SMembers(ctx, a.channelsKey(appID)).Result()
	if err != nil {
		return nil, ErrAdapter.WithError(err)
	}
	cmds := make([]*redis.StringSliceCmd, len(channels))
	_, err = a.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, ch := range channels {
			cmds[i] = pipe.SMembers(ctx, a.channelSocketsKey(appID, ch))
		}
		return nil
	})
	if err != nil {
		return nil, ErrAdapter.WithError(err)
	}
	out := make(map[string][]string, len(channels))
	for i, ch := range channels {
		if ids := cmds[i].Val(); len(ids) > 0 {
			out[ch] = ids
		}
	}
	return out, nil
}

func (a *RedisAdapter) GetChannelsWithSocketsCount(ctx context.Context, appID string) (map[string]int, error) {
	channels, err := a.client.SMembers(ctx, a.channelsKey(appID)).Result()
	if err != nil {
		return nil, ErrAdapter.WithError(err)
	}
	cmds := make([]*redis.IntCmd, len(channels))
	_, err = a.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, ch := range channels {
			cmds[i] = pipe.SCard(ctx, a.channelSocketsKey(appID, ch))
		}
		return nil
	})
	if err != nil {
		return nil, ErrAdapter.WithError(err)
	}
	out := make(map[string]int, len(channels))
	for i, ch := range channels {
		if n := cmds[i].Val(); n > 0 {
			out[ch] = int(n)
		}
	}
	return out, nil
}

func (a *RedisAdapter) GetChannelSockets(ctx context.Context, appID, channel string) ([]string, error) {
	ids, err := a.client.SMembers(ctx, a.channelSocketsKey(appID, channel)).Result()
	if err != nil {
		return nil, ErrAdapter.WithError(err)
	}
	return ids, nil
}

func (a *RedisAdapter) GetChannelSocketsCount(ctx context.Context, appID, channel string) (int, error) {
	n, err := a.client.SCard(ctx, a.channelSocketsKey(appID, channel)).Result()
	if err != nil {
		return 0, ErrAdapter.WithError(err)
	}
	return int(n), nil
}

// GetChannelMembers 成员 hash 以连接 id 为 field，按用户 id 去重
func (a *RedisAdapter) GetChannelMembers(ctx context.Context, appID, channel string) (Members, error) {
	vals, err := a.client.HVals(ctx, a.channelMembersKey(appID, channel)).Result()
	if err != nil {
		return nil, ErrAdapter.WithError(err)
	}
	members := make(Members, len(vals))
	for _, v := range vals {
		var m PresenceMember
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			a.log.Warn("skip malformed presence member", zap.String("app_id", appID), zap.String("channel", channel))
			continue
		}
		members[m.UserID] = m.UserInfo
	}
	return members, nil
}

func (a *RedisAdapter) GetChannelMembersCount(ctx context.Context, appID, channel string) (int, error) {
	members, err := a.GetChannelMembers(ctx, appID, channel)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

func (a *RedisAdapter) IsInChannel(ctx context.Context, appID, channel, socketID string) (bool, error) {
	ok, err := a.client.SIsMember(ctx, a.channelSocketsKey(appID, channel), socketID).Result()
	if err != nil {
		return false, ErrAdapter.WithError(err)
	}
	return ok, nil
}

// Send 先投递本节点连接，再广播给其他节点
func (a *RedisAdapter) Send(ctx context.Context, appID, channel string, payload []byte, exceptSocketID string) error {
	_ = a.LocalAdapter.Send(ctx, appID, channel, payload, exceptSocketID)
	return a.publish(ctx, busMessage{
		Type:    busSend,
		AppID:   appID,
		Channel: channel,
		Payload: string(payload),
		Except:  exceptSocketID,
	})
}

func (a *RedisAdapter) TerminateUserConnections(ctx context.Context, appID, userID string) error {
	_ = a.LocalAdapter.TerminateUserConnections(ctx, appID, userID)
	return a.publish(ctx, busMessage{Type: busTerminateUser, AppID: appID, UserID: userID})
}

func (a *RedisAdapter) AddUser(ctx context.Context, s *Socket) error {
	u := s.User()
	if u == nil {
		return nil
	}
	appID := s.AppID()
	_, err := a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, a.userSocketsKey(appID, u.ID), s.ID)
		pipe.HSet(ctx, a.socketUsersKey(appID), s.ID, u.ID)
		return nil
	})
	if err != nil {
		return ErrAdapter.WithError(err)
	}
	return a.LocalAdapter.AddUser(ctx, s)
}

func (a *RedisAdapter) RemoveUser(ctx context.Context, s *Socket) error {
	u := s.User()
	if u == nil {
		return nil
	}
	_ = a.LocalAdapter.RemoveUser(ctx, s)
	appID := s.AppID()
	_, err := a.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, a.userSocketsKey(appID, u.ID), s.ID)
		pipe.HDel(ctx, a.socketUsersKey(appID), s.ID)
		return nil
	})
	if err != nil {
		return ErrAdapter.WithError(err)
	}
	return nil
}

// ClearNamespace 删除本节点在该应用下登记的连接
func (a *RedisAdapter) ClearNamespace(ctx context.Context, appID string) error {
	var firstErr error
	for id, s := range a.LocalAdapter.Namespace(appID).Sockets() {
		if err := a.RemoveUser(ctx, s); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := a.RemoveSocket(ctx, appID, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = a.LocalAdapter.ClearNamespace(ctx, appID)
	return firstErr
}

func (a *RedisAdapter) ClearNamespaces(ctx context.Context) error {
	var firstErr error
	for appID := range a.LocalAdapter.GetNamespaces() {
		if err := a.ClearNamespace(ctx, appID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = a.LocalAdapter.ClearNamespaces(ctx)
	return firstErr
}

// Disconnect 清理本节点的注册信息与心跳并退出总线
func (a *RedisAdapter) Disconnect(ctx context.Context) error {
	var err error
	a.once.Do(func() {
		err = a.ClearNamespaces(ctx)
		a.stop()
		if cerr := a.client.Del(ctx, a.nodeKey(a.nodeID)).Err(); err == nil && cerr != nil {
			err = ErrAdapter.WithError(cerr)
		}
		if cerr := a.pubsub.Close(); err == nil {
			err = cerr
		}
		a.wg.Wait()
		if a.ownsClient {
			if cerr := a.client.Close(); err == nil {
				err = cerr
			}
		}
	})
	return err
}

func (a *RedisAdapter) publish(ctx context.Context, msg busMessage) error {
	msg.Node = a.nodeID
	b, err := json.Marshal(msg)
	if err != nil {
		return ErrAdapter.WithError(err)
	}
	if err := a.client.Publish(ctx, a.busChannel(), b).Err(); err != nil {
		return ErrAdapter.WithError(err)
	}
	return nil
}

func (a *RedisAdapter) listen() {
	defer a.wg.Done()
	for msg := range a.pubsub.Channel() {
		a.handleBusMessage(msg.Payload)
	}
}

// handleBusMessage 只处理其他节点发出的消息
func (a *RedisAdapter) handleBusMessage(raw string) {
	var msg busMessage
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		a.log.Warn("drop malformed bus message", zap.Error(err))
		return
	}
	if msg.Node == a.nodeID {
		return
	}

	ctx := context.Background()
	switch msg.Type {
	case busSend:
		_ = a.LocalAdapter.Send(ctx, msg.AppID, msg.Channel, []byte(msg.Payload), msg.Except)
	case busTerminateUser:
		_ = a.LocalAdapter.TerminateUserConnections(ctx, msg.AppID, msg.UserID)
	default:
		a.log.Debug("unknown bus message", zap.String("type", msg.Type))
	}
}

func (a *RedisAdapter) stop() {
	a.stopOnce.Do(func() { close(a.done) })
}

func (a *RedisAdapter) beat(ctx context.Context) error {
	return a.client.Set(ctx, a.nodeKey(a.nodeID), time.Now().Unix(), a.nodeTTL).Err()
}

// heartbeat 续期本节点心跳并定期清理失效节点
func (a *RedisAdapter) heartbeat() {
	defer a.wg.Done()
	beat := time.NewTicker(a.nodeTTL / 3)
	defer beat.Stop()

	var sweepC <-chan time.Time
	if a.sweepInterval > 0 {
		sweep := time.NewTicker(a.sweepInterval)
		defer sweep.Stop()
		sweepC = sweep.C
	}

	for {
		select {
		case <-a.done:
			return
		case <-beat.C:
			ctx, cancel := context.WithTimeout(context.Background(), a.nodeTTL/3)
			if err := a.beat(ctx); err != nil {
				a.log.Warn("refresh node heartbeat failed", zap.String("node_id", a.nodeID), zap.Error(err))
			}
			cancel()
		case <-sweepC:
			ctx, cancel := context.WithTimeout(context.Background(), a.sweepInterval)
			if err := a.Sweep(ctx); err != nil {
				a.log.Warn("sweep stale sockets failed", zap.Error(err))
			}
			cancel()
		}
	}
}

// Sweep 清理心跳已过期节点登记的连接，包括频道订阅、presence 成员与用户索引
func (a *RedisAdapter) Sweep(ctx context.Context) error {
	apps, err := a.client.SMembers(ctx, a.appsKey()).Result()
	if err != nil {
		return ErrAdapter.WithError(err)
	}
	alive := map[string]bool{a.nodeID: true}
	for _, appID := range apps {
		owners, err := a.client.HGetAll(ctx, a.socketsKey(appID)).Result()
		if err != nil {
			return ErrAdapter.WithError(err)
		}
		for socketID, node := range owners {
			ok, seen := alive[node]
			if !seen {
				n, err := a.client.Exists(ctx, a.nodeKey(node)).Result()
				if err != nil {
					return ErrAdapter.WithError(err)
				}
				ok = n > 0
				alive[node] = ok
			}
			if ok {
				continue
			}
			if err := a.evictStale(ctx, appID, socketID, node); err != nil {
				return err
			}
		}
	}
	return nil
}

func (a *RedisAdapter) evictStale(ctx context.Context, appID, socketID, node string) error {
	channels, err := a.client.SMembers(ctx, a.socketChannelsKey(appID, socketID)).Result()
	if err != nil {
		return ErrAdapter.WithError(err)
	}
	members := make(map[string]*PresenceMember)
	for _, ch := range channels {
		if KindOf(ch) != ChannelPresence {
			continue
		}
		v, err := a.client.HGet(ctx, a.channelMembersKey(appID, ch), socketID).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return ErrAdapter.WithError(err)
		}
		var m PresenceMember
		if err := json.Unmarshal([]byte(v), &m); err == nil {
			members[ch] = &m
		}
	}
	userID, err := a.client.HGet(ctx, a.socketUsersKey(appID), socketID).Result()
	if err != nil && err != redis.Nil {
		return ErrAdapter.WithError(err)
	}

	keys := []string{
		a.channelsKey(appID),
		a.socketChannelsKey(appID, socketID),
		a.socketsKey(appID),
		a.socketUsersKey(appID),
		a.userSocketsKey(appID, userID),
	}
	keys = append(keys, a.channelKeys(appID, channels)...)
	args := []any{socketID, node}
	for _, ch := range channels {
		args = append(args, ch)
	}
	removed, err := evictSocketScript.Run(ctx, a.client, keys, args...).Int()
	if err != nil {
		return ErrAdapter.WithError(err)
	}
	if removed == 0 {
		return nil
	}
	a.log.Info("evicted stale socket",
		zap.String("app_id", appID),
		zap.String("socket_id", socketID),
		zap.String("node_id", node),
		zap.Int("channels", len(channels)),
	)

	if a.onStaleLeave == nil {
		return nil
	}
	for _, ch := range channels {
		remaining, err := a.client.SCard(ctx, a.channelSocketsKey(appID, ch)).Result()
		if err != nil {
			a.log.Warn("count channel sockets failed", zap.String("app_id", appID), zap.String("channel", ch), zap.Error(err))
			continue
		}
		a.onStaleLeave(ctx, appID, ch, members[ch], int(remaining))
	}
	return nil
}
