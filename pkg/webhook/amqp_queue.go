package webhook

import (
	"context"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/tokmz/realtime/pkg/logger"
)

// amqpChannel amqp091.Channel 中用到的方法
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// AMQPQueue 通过 RabbitMQ 持久队列投递任务，多个节点可共同消费
type AMQPQueue struct {
	conn    *amqp.Connection
	ch      amqpChannel
	queue   string
	timeout time.Duration
	log     logger.Logger

	wg   sync.WaitGroup
	once sync.Once
}

// NewAMQPQueue 连接 RabbitMQ 并声明持久队列
func NewAMQPQueue(cfg AMQPConfig, timeout time.Duration, log logger.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, ErrInvalidConfig.WithMessage("connect rabbitmq").WithError(err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, ErrInvalidConfig.WithMessage("open rabbitmq channel").WithError(err)
	}
	if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, ErrInvalidConfig.WithMessage("declare rabbitmq queue").WithError(err)
	}
	q := newAMQPQueue(ch, cfg.Queue, timeout, log)
	q.conn = conn
	return q, nil
}

func newAMQPQueue(ch amqpChannel, queue string, timeout time.Duration, log logger.Logger) *AMQPQueue {
	if log == nil {
		log = logger.NewNop()
	}
	return &AMQPQueue{ch: ch, queue: queue, timeout: timeout, log: log}
}

// Enqueue 发布持久消息
func (q *AMQPQueue) Enqueue(ctx context.Context, job *Job) error {
	body, err := encodeJob(job)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return q.ch.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID,
		Body:         body,
	})
}

// Start 开始消费，处理成功 Ack，失败 Nack 不重新入队
func (q *AMQPQueue) Start(handler Handler) error {
	deliveries, err := q.ch.Consume(q.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		for d := range deliveries {
			q.handle(handler, d)
		}
	}()
	return nil
}

func (q *AMQPQueue) handle(handler Handler, d amqp.Delivery) {
	job, err := decodeJob(d.Body)
	if err != nil {
		q.log.Warn("drop malformed webhook job", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	ctx := context.Background()
	if q.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, q.timeout)
		defer cancel()
	}
	if err := handler(ctx, job); err != nil {
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

// Close 关闭 channel 与连接，等待消费协程退出
func (q *AMQPQueue) Close() error {
	var err error
	q.once.Do(func() {
		err = q.ch.Close()
		if q.conn != nil {
			if cerr := q.conn.Close(); err == nil {
				err = cerr
			}
		}
		q.wg.Wait()
	})
	return err
}
