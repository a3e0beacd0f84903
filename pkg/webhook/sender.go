package webhook

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/logger"
	"github.com/tokmz/realtime/pkg/token"
)

// Sender 生成 webhook 事件并交给队列投递
// 所有方法只记录错误不返回，调用方无需处理
type Sender struct {
	queue Queue
	log   logger.Logger
	now   func() time.Time

	batching      bool
	batchDuration time.Duration
	mu            sync.Mutex
	batches       map[string]*batch
	closed        bool
}

// batch 同一应用同一目标在窗口内累积的事件
type batch struct {
	app     *app.App
	webhook app.Webhook
	events  []Event
	timer   *time.Timer
}

// New 按配置创建队列与 Sender，并启动 HTTP 投递
func New(cfg *Config, log logger.Logger) (*Sender, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewNop()
	}

	var (
		q   Queue
		err error
	)
	switch cfg.Queue {
	case QueueAMQP:
		q, err = NewAMQPQueue(cfg.AMQP, cfg.Timeout, log)
	case QueueKafka:
		q, err = NewKafkaQueue(cfg.Kafka, cfg.Timeout, log)
	default:
		q = NewSyncQueue(cfg.Workers, cfg.QueueSize, cfg.Timeout, log)
	}
	if err != nil {
		return nil, err
	}

	deliverer := NewDeliverer(cfg.Timeout, cfg.Retry, log)
	if err := q.Start(deliverer.Deliver); err != nil {
		_ = q.Close()
		return nil, err
	}
	return NewSender(q, cfg, log), nil
}

// NewSender 使用已有队列创建 Sender
func NewSender(q Queue, cfg *Config, log logger.Logger) *Sender {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Sender{
		queue:         q,
		log:           log,
		now:           time.Now,
		batching:      cfg.Batching,
		batchDuration: cfg.BatchDuration,
		batches:       make(map[string]*batch),
	}
}

// ChannelOccupied 频道出现第一个订阅者
func (s *Sender) ChannelOccupied(ctx context.Context, a *app.App, channel string) {
	s.send(ctx, a, Event{Name: ChannelOccupied, Channel: channel})
}

// ChannelVacated 频道最后一个订阅者离开
func (s *Sender) ChannelVacated(ctx context.Context, a *app.App, channel string) {
	s.send(ctx, a, Event{Name: ChannelVacated, Channel: channel})
}

// MemberAdded presence 频道新增用户
func (s *Sender) MemberAdded(ctx context.Context, a *app.App, channel, userID string) {
	s.send(ctx, a, Event{Name: MemberAdded, Channel: channel, UserID: userID})
}

// MemberRemoved presence 频道用户离开
func (s *Sender) MemberRemoved(ctx context.Context, a *app.App, channel, userID string) {
	s.send(ctx, a, Event{Name: MemberRemoved, Channel: channel, UserID: userID})
}

// ClientEvent 客户端事件
func (s *Sender) ClientEvent(ctx context.Context, a *app.App, channel, event string, data any, socketID, userID string) {
	s.send(ctx, a, Event{
		Name:     ClientEvent,
		Channel:  channel,
		Event:    event,
		Data:     data,
		SocketID: socketID,
		UserID:   userID,
	})
}

// CacheMissed 缓存频道没有可用的缓存事件
func (s *Sender) CacheMissed(ctx context.Context, a *app.App, channel string) {
	s.send(ctx, a, Event{Name: CacheMiss, Channel: channel})
}

func matches(w app.Webhook, e Event) bool {
	found := false
	for _, t := range w.EventTypes {
		if t == e.Name {
			found = true
			break
		}
	}
	if !found {
		return false
	}
	if p := w.Filter.ChannelNameStartsWith; p != "" && !strings.HasPrefix(e.Channel, p) {
		return false
	}
	if p := w.Filter.ChannelNameEndsWith; p != "" && !strings.HasSuffix(e.Channel, p) {
		return false
	}
	return true
}

func (s *Sender) send(ctx context.Context, a *app.App, e Event) {
	for _, w := range a.Webhooks {
		if !matches(w, e) {
			continue
		}
		if s.batching {
			s.addToBatch(a, w, e)
			continue
		}
		s.enqueue(ctx, a, w, []Event{e})
	}
}

func (s *Sender) addToBatch(a *app.App, w app.Webhook, e Event) {
	key := a.ID + "|" + w.URL

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	b, ok := s.batches[key]
	if !ok {
		b = &batch{app: a, webhook: w}
		b.timer = time.AfterFunc(s.batchDuration, func() { s.flush(key) })
		s.batches[key] = b
	}
	b.events = append(b.events, e)
}

func (s *Sender) flush(key string) {
	s.mu.Lock()
	b, ok := s.batches[key]
	delete(s.batches, key)
	s.mu.Unlock()

	if ok {
		s.enqueue(context.Background(), b.app, b.webhook, b.events)
	}
}

func (s *Sender) enqueue(ctx context.Context, a *app.App, w app.Webhook, events []Event) {
	job, err := s.buildJob(a, w, events)
	if err != nil {
		s.log.ErrorContext(ctx, "build webhook job failed", zap.String("app_id", a.ID), zap.Error(err))
		return
	}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.log.WarnContext(ctx, "enqueue webhook failed",
			zap.String("app_id", a.ID),
			zap.String("url", w.URL),
			zap.Error(err),
		)
	}
}

func (s *Sender) buildJob(a *app.App, w app.Webhook, events []Event) (*Job, error) {
	body, err := json.Marshal(Payload{TimeMs: s.now().UnixMilli(), Events: events})
	if err != nil {
		return nil, ErrEncode.WithError(err)
	}

	headers := make(map[string]string, len(w.Headers)+3)
	for k, v := range w.Headers {
		headers[k] = v
	}
	headers["Content-Type"] = "application/json"
	headers["X-Pusher-Key"] = a.Key
	headers["X-Pusher-Signature"] = token.Sign(a.Secret, string(body))

	return &Job{
		ID:      uuid.NewString(),
		AppID:   a.ID,
		URL:     w.URL,
		Headers: headers,
		Body:    body,
	}, nil
}

// Close 立即发送未满窗口的批次，然后关闭队列
func (s *Sender) Close() error {
	s.mu.Lock()
	s.closed = true
	pending := s.batches
	s.batches = make(map[string]*batch)
	s.mu.Unlock()

	for _, b := range pending {
		b.timer.Stop()
		s.enqueue(context.Background(), b.app, b.webhook, b.events)
	}
	return s.queue.Close()
}
