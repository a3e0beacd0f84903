package webhook

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/tokmz/realtime/pkg/logger"
)

// KafkaQueue 生产者写入 topic，消费组投递
type KafkaQueue struct {
	producer sarama.SyncProducer
	group    sarama.ConsumerGroup
	topic    string
	timeout  time.Duration
	log      logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

func newSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.ClientID = "realtime-webhooks"
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Return.Successes = true
	config.Producer.Partitioner = sarama.NewHashPartitioner
	config.Consumer.Offsets.Initial = sarama.OffsetOldest
	config.Version = sarama.V2_0_0_0
	return config
}

// NewKafkaQueue 创建 Kafka 队列
func NewKafkaQueue(cfg KafkaConfig, timeout time.Duration, log logger.Logger) (*KafkaQueue, error) {
	config := newSaramaConfig()
	producer, err := sarama.NewSyncProducer(cfg.Brokers, config)
	if err != nil {
		return nil, ErrInvalidConfig.WithMessage("create kafka producer").WithError(err)
	}
	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, config)
	if err != nil {
		_ = producer.Close()
		return nil, ErrInvalidConfig.WithMessage("create kafka consumer group").WithError(err)
	}
	return newKafkaQueue(producer, group, cfg.Topic, timeout, log), nil
}

func newKafkaQueue(producer sarama.SyncProducer, group sarama.ConsumerGroup, topic string, timeout time.Duration, log logger.Logger) *KafkaQueue {
	if log == nil {
		log = logger.NewNop()
	}
	return &KafkaQueue{producer: producer, group: group, topic: topic, timeout: timeout, log: log}
}

// Enqueue 以应用 id 作为分区键，保证同一应用的事件有序
func (q *KafkaQueue) Enqueue(_ context.Context, job *Job) error {
	body, err := encodeJob(job)
	if err != nil {
		return err
	}
	_, _, err = q.producer.SendMessage(&sarama.ProducerMessage{
		Topic: q.topic,
		Key:   sarama.StringEncoder(job.AppID),
		Value: sarama.ByteEncoder(body),
	})
	return err
}

// Start 在后台循环加入消费组
func (q *KafkaQueue) Start(handler Handler) error {
	if q.group == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	q.cancel = cancel

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		h := &kafkaGroupHandler{queue: q, handler: handler}
		for {
			if err := q.group.Consume(ctx, []string{q.topic}, h); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				q.log.Warn("kafka consume failed", zap.Error(err))
			}
			if ctx.Err() != nil {
				return
			}
		}
	}()
	return nil
}

// Close 停止消费并关闭生产者
func (q *KafkaQueue) Close() error {
	var errs []error
	q.once.Do(func() {
		if q.cancel != nil {
			q.cancel()
		}
		if q.group != nil {
			errs = append(errs, q.group.Close())
		}
		q.wg.Wait()
		errs = append(errs, q.producer.Close())
	})
	return errors.Join(errs...)
}

// kafkaGroupHandler sarama.ConsumerGroupHandler 实现
type kafkaGroupHandler struct {
	queue   *KafkaQueue
	handler Handler
}

func (h *kafkaGroupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *kafkaGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *kafkaGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			h.process(sess.Context(), msg)
			sess.MarkMessage(msg, "")
		case <-sess.Context().Done():
			return nil
		}
	}
}

// process 投递失败只记录日志，offset 照常提交
func (h *kafkaGroupHandler) process(ctx context.Context, msg *sarama.ConsumerMessage) {
	job, err := decodeJob(msg.Value)
	if err != nil {
		h.queue.log.Warn("drop malformed webhook job", zap.Error(err))
		return
	}
	if h.queue.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.queue.timeout)
		defer cancel()
	}
	if err := h.handler(ctx, job); err != nil {
		h.queue.log.Debug("webhook job failed", zap.String("job_id", job.ID), zap.Error(err))
	}
}
