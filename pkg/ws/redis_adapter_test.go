package ws

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/logger"
)

// newRedisNodes 共享同一个 Redis 的多个节点
func newRedisNodes(t *testing.T, n int) []*RedisAdapter {
	t.Helper()
	mr := miniredis.RunT(t)

	nodes := make([]*RedisAdapter, 0, n)
	for i := 0; i < n; i++ {
		nodes = append(nodes, newRedisNode(t, mr))
	}
	return nodes
}

func newRedisNode(t *testing.T, mr *miniredis.Miniredis, opts ...RedisOption) *RedisAdapter {
	t.Helper()
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	a, err := NewRedisAdapterFromClient(ctx, client, "test", logger.NewNop(), opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Disconnect(ctx)
		_ = client.Close()
	})
	return a
}

// crash 停止心跳与总线但不清理注册信息
func crash(a *RedisAdapter) {
	a.stop()
	_ = a.pubsub.Close()
	a.wg.Wait()
}

func boundSocket(a *app.App) (*Socket, *fakeConn) {
	conn := &fakeConn{}
	s := newSocket(conn, a.Key, 0, nil)
	s.bindApp(a)
	return s, conn
}

func TestRedisAdapterRegistryAcrossNodes(t *testing.T) {
	ctx := context.Background()
	nodes := newRedisNodes(t, 2)
	a, b := nodes[0], nodes[1]
	tenant := (&app.App{ID: "1", Key: testKey, Secret: testSecret}).Normalize()

	s1, _ := boundSocket(tenant)
	s2, _ := boundSocket(tenant)
	require.NoError(t, a.AddSocket(ctx, "1", s1))
	require.NoError(t, b.AddSocket(ctx, "1", s2))

	n, err := a.AddToChannel(ctx, "1", "news", s1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	n, err = b.AddToChannel(ctx, "1", "news", s2)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.True(t, s1.IsSubscribed("news"))

	for _, node := range nodes {
		count, err := node.GetSocketsCount(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		count, err = node.GetChannelSocketsCount(ctx, "1", "news")
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		channels, err := node.GetChannelsWithSocketsCount(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"news": 2}, channels)

		ids, err := node.GetChannelSockets(ctx, "1", "news")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{s1.ID, s2.ID}, ids)
	}

	in, err := b.IsInChannel(ctx, "1", "news", s1.ID)
	require.NoError(t, err)
	assert.True(t, in)

	// 本地句柄只在所属节点
	local, err := a.GetSockets(ctx, "1")
	require.NoError(t, err)
	assert.Len(t, local, 1)

	remaining, err := a.RemoveFromChannel(ctx, "1", "news", s1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
	assert.False(t, s1.IsSubscribed("news"))

	require.NoError(t, b.RemoveSocket(ctx, "1", s2.ID))
	channels, err := a.GetChannels(ctx, "1")
	require.NoError(t, err)
	assert.Empty(t, channels)
	count, err := a.GetSocketsCount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRedisAdapterPresenceMembers(t *testing.T) {
	ctx := context.Background()
	nodes := newRedisNodes(t, 2)
	a, b := nodes[0], nodes[1]
	tenant := (&app.App{ID: "1", Key: testKey, Secret: testSecret}).Normalize()
	const channel = "presence-room"

	join := func(node *RedisAdapter, userID string) *Socket {
		s, _ := boundSocket(tenant)
		_, err := node.AddToChannel(ctx, "1", channel, s)
		require.NoError(t, err)
		s.setPresence(channel, PresenceMember{UserID: userID, UserInfo: map[string]any{"name": userID}})
		require.NoError(t, node.AddSocket(ctx, "1", s))
		return s
	}

	s1 := join(a, "u1")
	join(b, "u1")
	join(b, "u2")

	members, err := a.GetChannelMembers(ctx, "1", channel)
	require.NoError(t, err)
	assert.Len(t, members, 2)
	assert.Equal(t, map[string]any{"name": "u2"}, members["u2"])

	count, err := b.GetChannelMembersCount(ctx, "1", channel)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	// u1 仍有另一个节点上的连接
	_, err = a.RemoveFromChannel(ctx, "1", channel, s1.ID)
	require.NoError(t, err)
	members, err = b.GetChannelMembers(ctx, "1", channel)
	require.NoError(t, err)
	assert.Contains(t, members, "u1")
}

func TestRedisAdapterSendAcrossNodes(t *testing.T) {
	ctx := context.Background()
	nodes := newRedisNodes(t, 2)
	a, b := nodes[0], nodes[1]
	tenant := (&app.App{ID: "1", Key: testKey, Secret: testSecret}).Normalize()

	s1, conn1 := boundSocket(tenant)
	s2, conn2 := boundSocket(tenant)
	require.NoError(t, a.AddSocket(ctx, "1", s1))
	require.NoError(t, b.AddSocket(ctx, "1", s2))
	_, err := a.AddToChannel(ctx, "1", "news", s1)
	require.NoError(t, err)
	_, err = b.AddToChannel(ctx, "1", "news", s2)
	require.NoError(t, err)

	require.NoError(t, a.Send(ctx, "1", "news", []byte(`{"event":"update","channel":"news"}`), s1.ID))
	assert.Eventually(t, func() bool {
		return conn2.count(t, "update") == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Zero(t, conn1.count(t, "update"))

	s2.setUser(&User{ID: "u1"})
	require.NoError(t, b.AddUser(ctx, s2))
	require.NoError(t, a.Send(ctx, "1", ServerToUserChannel("u1"), []byte(`{"event":"direct"}`), ""))
	assert.Eventually(t, func() bool {
		return conn2.count(t, "direct") == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, a.TerminateUserConnections(ctx, "1", "u1"))
	assert.Eventually(t, func() bool {
		return conn2.closeCode() == CodeUnauthorized
	}, 2*time.Second, 10*time.Millisecond)
	d := decodeError(t, conn2.last(t))
	assert.Equal(t, "You got disconnected by the app.", d.Message)
}

func TestHandlersAcrossNodes(t *testing.T) {
	ctx := context.Background()
	nodes := newRedisNodes(t, 2)
	apps, err := app.NewArrayManager([]app.App{{ID: "1", Key: testKey, Secret: testSecret}})
	require.NoError(t, err)

	handlers := make([]*Handler, len(nodes))
	for i, node := range nodes {
		handlers[i], err = NewHandler(DefaultConfig(), node, apps)
		require.NoError(t, err)
	}
	envA := &testEnv{h: handlers[0], hooks: &recordWebhooks{}}
	envB := &testEnv{h: handlers[1], hooks: &recordWebhooks{}}

	s1, conn1 := envA.connect(t)
	s2, conn2 := envB.connect(t)
	envA.subscribePresence(s1, "presence-room", "u1")
	envB.subscribePresence(s2, "presence-room", "u2")

	var p presenceData
	decodeStringData(t, conn2.last(t).Data, &p)
	assert.Equal(t, 2, p.Presence.Count)

	assert.Eventually(t, func() bool {
		return conn1.count(t, EventMemberAdded) == 1
	}, 2*time.Second, 10*time.Millisecond)

	count, err := nodes[0].GetSocketsCount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	handlers[1].OnClose(ctx, s2, 1000, "")
	assert.Eventually(t, func() bool {
		return conn1.count(t, EventMemberRemoved) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

type staleLeave struct {
	channel   string
	userID    string
	remaining int
}

func TestRedisAdapterSweepsCrashedNode(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	opts := []RedisOption{WithNodeTTL(10 * time.Second), WithSweepInterval(0)}
	a := newRedisNode(t, mr, opts...)
	b := newRedisNode(t, mr, opts...)
	tenant := (&app.App{ID: "1", Key: testKey, Secret: testSecret}).Normalize()

	var (
		mu   sync.Mutex
		left []staleLeave
	)
	b.OnStaleLeave(func(_ context.Context, appID, channel string, m *PresenceMember, remaining int) {
		mu.Lock()
		defer mu.Unlock()
		l := staleLeave{channel: channel, remaining: remaining}
		if m != nil {
			l.userID = m.UserID
		}
		left = append(left, l)
	})

	ghost, _ := boundSocket(tenant)
	_, err := a.AddToChannel(ctx, "1", "presence-x", ghost)
	require.NoError(t, err)
	_, err = a.AddToChannel(ctx, "1", "news", ghost)
	require.NoError(t, err)
	ghost.setPresence("presence-x", PresenceMember{UserID: "ghost"})
	ghost.setUser(&User{ID: "ghost"})
	require.NoError(t, a.AddSocket(ctx, "1", ghost))
	require.NoError(t, a.AddUser(ctx, ghost))

	live, _ := boundSocket(tenant)
	require.NoError(t, b.AddSocket(ctx, "1", live))
	_, err = b.AddToChannel(ctx, "1", "news", live)
	require.NoError(t, err)

	crash(a)

	// 心跳未过期时不清理
	require.NoError(t, b.Sweep(ctx))
	count, err := b.GetSocketsCount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	mr.FastForward(time.Minute)
	require.NoError(t, b.Sweep(ctx))

	count, err = b.GetSocketsCount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = b.GetChannelSocketsCount(ctx, "1", "presence-x")
	require.NoError(t, err)
	assert.Zero(t, count)
	members, err := b.GetChannelMembers(ctx, "1", "presence-x")
	require.NoError(t, err)
	assert.Empty(t, members)
	count, err = b.GetChannelSocketsCount(ctx, "1", "news")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	channels, err := b.GetChannelsWithSocketsCount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"news": 1}, channels)
	assert.False(t, mr.Exists("test:app:{1}:user:ghost:sockets"))

	mu.Lock()
	assert.ElementsMatch(t, []staleLeave{
		{channel: "presence-x", userID: "ghost", remaining: 0},
		{channel: "news", remaining: 1},
	}, left)
	mu.Unlock()

	// 已清理的连接不会重复回调
	require.NoError(t, b.Sweep(ctx))
	mu.Lock()
	assert.Len(t, left, 2)
	mu.Unlock()
}

func TestHandlerNotifiesStaleMembers(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	opts := []RedisOption{WithNodeTTL(10 * time.Second), WithSweepInterval(0)}
	nodeA := newRedisNode(t, mr, opts...)
	nodeB := newRedisNode(t, mr, opts...)
	apps, err := app.NewArrayManager([]app.App{{ID: "1", Key: testKey, Secret: testSecret}})
	require.NoError(t, err)

	hA, err := NewHandler(DefaultConfig(), nodeA, apps)
	require.NoError(t, err)
	hooks := &recordWebhooks{}
	hB, err := NewHandler(DefaultConfig(), nodeB, apps, WithWebhooks(hooks))
	require.NoError(t, err)
	envA := &testEnv{h: hA, hooks: &recordWebhooks{}}
	envB := &testEnv{h: hB, hooks: hooks}

	s1, _ := envA.connect(t)
	s2, conn2 := envB.connect(t)
	envA.subscribePresence(s1, "presence-room", "u1")
	envA.subscribe(s1, SubscribeData{Channel: "solo"})
	envB.subscribePresence(s2, "presence-room", "u2")

	crash(nodeA)
	mr.FastForward(time.Minute)
	require.NoError(t, nodeB.Sweep(ctx))

	f, ok := conn2.find(t, EventMemberRemoved)
	require.True(t, ok)
	var removed struct {
		UserID string `json:"user_id"`
	}
	decodeStringData(t, f.Data, &removed)
	assert.Equal(t, "u1", removed.UserID)

	calls := hooks.of("member_removed")
	require.Len(t, calls, 1)
	assert.Equal(t, "u1", calls[0].userID)
	vacated := hooks.of("channel_vacated")
	require.Len(t, vacated, 1)
	assert.Equal(t, "solo", vacated[0].channel)

	count, err := nodeB.GetSocketsCount(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
