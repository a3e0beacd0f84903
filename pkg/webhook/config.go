package webhook

import "time"

// QueueDriver 队列驱动
type QueueDriver string

const (
	QueueSync  QueueDriver = "sync"
	QueueAMQP  QueueDriver = "amqp"
	QueueKafka QueueDriver = "kafka"
)

// Config webhook 配置
type Config struct {
	Queue     QueueDriver `mapstructure:"queue"`
	Workers   int         `mapstructure:"workers"`
	QueueSize int         `mapstructure:"queue_size"`

	// Batching 开启后同一应用同一目标的事件在窗口内合并发送
	Batching      bool          `mapstructure:"batching"`
	BatchDuration time.Duration `mapstructure:"batch_duration"`

	Timeout time.Duration `mapstructure:"timeout"`
	Retry   RetryConfig   `mapstructure:"retry"`

	AMQP  AMQPConfig  `mapstructure:"amqp"`
	Kafka KafkaConfig `mapstructure:"kafka"`
}

// AMQPConfig RabbitMQ 队列配置
type AMQPConfig struct {
	URL   string `mapstructure:"url"`
	Queue string `mapstructure:"queue"`
}

// KafkaConfig Kafka 队列配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
	GroupID string   `mapstructure:"group_id"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Queue:         QueueSync,
		Workers:       10,
		QueueSize:     1000,
		BatchDuration: 50 * time.Millisecond,
		Timeout:       5 * time.Second,
		Retry:         *DefaultRetryConfig(),
		AMQP:          AMQPConfig{Queue: "realtime.webhooks"},
		Kafka:         KafkaConfig{Topic: "realtime.webhooks", GroupID: "realtime-webhooks"},
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.Queue {
	case QueueSync, "":
	case QueueAMQP:
		if c.AMQP.URL == "" || c.AMQP.Queue == "" {
			return ErrInvalidConfig.WithMessage("amqp url and queue are required")
		}
	case QueueKafka:
		if len(c.Kafka.Brokers) == 0 || c.Kafka.Topic == "" || c.Kafka.GroupID == "" {
			return ErrInvalidConfig.WithMessage("kafka brokers, topic and group id are required")
		}
	default:
		return ErrInvalidConfig.WithMessage("unsupported queue: " + string(c.Queue))
	}
	if c.Batching && c.BatchDuration <= 0 {
		return ErrInvalidConfig.WithMessage("batch duration must be positive")
	}
	return nil
}
