package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/errors"
	"github.com/tokmz/realtime/pkg/token"
)

// recordQueue 记录入队任务
type recordQueue struct {
	mu   sync.Mutex
	jobs []*Job
}

func (q *recordQueue) Enqueue(_ context.Context, job *Job) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
	return nil
}

func (q *recordQueue) Start(Handler) error { return nil }
func (q *recordQueue) Close() error        { return nil }

func (q *recordQueue) all() []*Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]*Job(nil), q.jobs...)
}

func testApp(url string, events ...string) *app.App {
	return (&app.App{
		ID:     "1",
		Key:    "app-key",
		Secret: "app-secret",
		Webhooks: []app.Webhook{{
			URL:        url,
			Headers:    map[string]string{"X-Custom": "yes"},
			EventTypes: events,
		}},
	}).Normalize()
}

func decodePayload(t *testing.T, body []byte) Payload {
	t.Helper()
	var p Payload
	require.NoError(t, json.Unmarshal(body, &p))
	return p
}

func TestSenderEndToEnd(t *testing.T) {
	type received struct {
		header http.Header
		body   []byte
	}
	got := make(chan received, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{header: r.Header.Clone(), body: body}
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	s, err := New(cfg, nil)
	require.NoError(t, err)
	defer s.Close()

	a := testApp(srv.URL, ChannelOccupied)
	s.ChannelOccupied(context.Background(), a, "presence-room")

	select {
	case r := <-got:
		assert.Equal(t, "app-key", r.header.Get("X-Pusher-Key"))
		assert.Equal(t, token.Sign("app-secret", string(r.body)), r.header.Get("X-Pusher-Signature"))
		assert.Equal(t, "yes", r.header.Get("X-Custom"))
		assert.Equal(t, "application/json", r.header.Get("Content-Type"))

		p := decodePayload(t, r.body)
		require.Len(t, p.Events, 1)
		assert.Equal(t, ChannelOccupied, p.Events[0].Name)
		assert.Equal(t, "presence-room", p.Events[0].Channel)
		assert.Greater(t, p.TimeMs, int64(0))
	case <-time.After(3 * time.Second):
		t.Fatal("webhook not delivered")
	}
}

func TestSenderFiltering(t *testing.T) {
	q := &recordQueue{}
	s := NewSender(q, DefaultConfig(), nil)
	ctx := context.Background()

	a := testApp("http://hook", MemberAdded, ClientEvent)
	a.Webhooks[0].Filter = app.WebhookFilter{ChannelNameStartsWith: "presence-", ChannelNameEndsWith: "-vip"}

	s.ChannelOccupied(ctx, a, "presence-room-vip")                         // 事件类型未订阅
	s.MemberAdded(ctx, a, "private-room-vip", "u1")                        // 前缀不匹配
	s.MemberAdded(ctx, a, "presence-room", "u1")                           // 后缀不匹配
	s.MemberAdded(ctx, a, "presence-room-vip", "u1")                       // 命中
	s.ClientEvent(ctx, a, "presence-a-vip", "client-x", "d", "1.1", "u2") // 命中

	jobs := q.all()
	require.Len(t, jobs, 2)

	p := decodePayload(t, jobs[0].Body)
	assert.Equal(t, Event{Name: MemberAdded, Channel: "presence-room-vip", UserID: "u1"}, p.Events[0])

	p = decodePayload(t, jobs[1].Body)
	assert.Equal(t, "client-x", p.Events[0].Event)
	assert.Equal(t, "1.1", p.Events[0].SocketID)
	assert.Equal(t, "u2", p.Events[0].UserID)
	assert.Equal(t, "1", jobs[1].AppID)
	assert.NotEmpty(t, jobs[1].ID)
}

func TestSenderBatching(t *testing.T) {
	q := &recordQueue{}
	cfg := DefaultConfig()
	cfg.Batching = true
	cfg.BatchDuration = 30 * time.Millisecond
	s := NewSender(q, cfg, nil)
	ctx := context.Background()

	a := testApp("http://hook", ChannelOccupied, ChannelVacated)
	s.ChannelOccupied(ctx, a, "a")
	s.ChannelVacated(ctx, a, "a")

	assert.Eventually(t, func() bool { return len(q.all()) == 1 }, time.Second, 5*time.Millisecond)
	p := decodePayload(t, q.all()[0].Body)
	require.Len(t, p.Events, 2)
	assert.Equal(t, ChannelOccupied, p.Events[0].Name)
	assert.Equal(t, ChannelVacated, p.Events[1].Name)

	// Close 立即发送未到期的批次
	cfg.BatchDuration = time.Hour
	s2 := NewSender(q, cfg, nil)
	s2.CacheMissed(ctx, testApp("http://hook", CacheMiss), "cache-x")
	require.NoError(t, s2.Close())
	assert.Len(t, q.all(), 2)
}

func TestDelivererRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDeliverer(time.Second, RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}, nil)
	err := d.Deliver(context.Background(), &Job{ID: "j", URL: srv.URL, Body: []byte("{}")})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestDelivererClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	d := NewDeliverer(time.Second, RetryConfig{MaxAttempts: 5, InitialDelay: time.Millisecond}, nil)
	err := d.Deliver(context.Background(), &Job{ID: "j", URL: srv.URL})
	assert.True(t, errors.Is(err, ErrDelivery))
	assert.Equal(t, int32(1), calls.Load())
}

func TestSyncQueueClose(t *testing.T) {
	q := NewSyncQueue(2, 10, time.Second, nil)
	var handled atomic.Int32
	require.NoError(t, q.Start(func(context.Context, *Job) error {
		handled.Add(1)
		return nil
	}))

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), &Job{ID: "x"}))
	}
	require.NoError(t, q.Close())
	assert.Equal(t, int32(5), handled.Load())
	assert.True(t, errors.Is(q.Enqueue(context.Background(), &Job{}), ErrQueueClosed))
}

func TestSyncQueueFull(t *testing.T) {
	q := NewSyncQueue(1, 1, 0, nil)
	require.NoError(t, q.Enqueue(context.Background(), &Job{}))
	assert.True(t, errors.Is(q.Enqueue(context.Background(), &Job{}), ErrQueueFull))
	assert.Equal(t, int64(1), q.Dropped())
}

// fakeAMQP 模拟 amqp channel 与 acknowledger
type fakeAMQP struct {
	mu         sync.Mutex
	published  []amqp.Publishing
	deliveries chan amqp.Delivery
	acks       []uint64
	nacks      []uint64
}

func (f *fakeAMQP) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeAMQP) Consume(string, string, bool, bool, bool, bool, amqp.Table) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func (f *fakeAMQP) Close() error {
	close(f.deliveries)
	return nil
}

func (f *fakeAMQP) Ack(tag uint64, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.acks = append(f.acks, tag)
	return nil
}

func (f *fakeAMQP) Nack(tag uint64, _, _ bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nacks = append(f.nacks, tag)
	return nil
}

func (f *fakeAMQP) Reject(tag uint64, requeue bool) error {
	return f.Nack(tag, false, requeue)
}

func TestAMQPQueue(t *testing.T) {
	f := &fakeAMQP{deliveries: make(chan amqp.Delivery, 3)}
	q := newAMQPQueue(f, "webhooks", time.Second, nil)

	job := &Job{ID: "job-1", AppID: "1", URL: "http://hook", Body: []byte(`{"a":1}`)}
	require.NoError(t, q.Enqueue(context.Background(), job))
	require.Len(t, f.published, 1)
	assert.Equal(t, amqp.Persistent, f.published[0].DeliveryMode)
	assert.Equal(t, "job-1", f.published[0].MessageId)

	var mu sync.Mutex
	var seen []string
	require.NoError(t, q.Start(func(_ context.Context, j *Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, j.ID)
		if j.ID == "bad" {
			return ErrDelivery
		}
		return nil
	}))

	good, _ := encodeJob(job)
	bad, _ := encodeJob(&Job{ID: "bad"})
	f.deliveries <- amqp.Delivery{Acknowledger: f, DeliveryTag: 1, Body: good}
	f.deliveries <- amqp.Delivery{Acknowledger: f, DeliveryTag: 2, Body: bad}
	f.deliveries <- amqp.Delivery{Acknowledger: f, DeliveryTag: 3, Body: []byte("not json")}
	require.NoError(t, q.Close())

	assert.Equal(t, []string{"job-1", "bad"}, seen)
	assert.Equal(t, []uint64{1}, f.acks)
	assert.Equal(t, []uint64{2, 3}, f.nacks)
}

func TestKafkaQueueEnqueue(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		j, err := decodeJob(val)
		if err != nil {
			return err
		}
		if j.ID != "job-k" {
			return ErrEncode
		}
		return nil
	})

	q := newKafkaQueue(producer, nil, "webhooks", time.Second, nil)
	require.NoError(t, q.Enqueue(context.Background(), &Job{ID: "job-k", AppID: "1"}))
	require.NoError(t, q.Start(nil))
	require.NoError(t, q.Close())
}

func TestKafkaGroupHandlerProcess(t *testing.T) {
	q := newKafkaQueue(mocks.NewSyncProducer(t, nil), nil, "webhooks", time.Second, nil)
	var got *Job
	h := &kafkaGroupHandler{queue: q, handler: func(_ context.Context, j *Job) error {
		got = j
		return nil
	}}

	body, err := encodeJob(&Job{ID: "from-kafka", URL: "http://hook"})
	require.NoError(t, err)
	h.process(context.Background(), &sarama.ConsumerMessage{Value: body})
	require.NotNil(t, got)
	assert.Equal(t, "from-kafka", got.ID)

	got = nil
	h.process(context.Background(), &sarama.ConsumerMessage{Value: []byte("{")})
	assert.Nil(t, got)
	require.NoError(t, q.Close())
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.Queue = QueueKafka
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.Queue = QueueAMQP
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg = DefaultConfig()
	cfg.Queue = "sqs"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))
}
