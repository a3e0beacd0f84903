// Package webhook 负责把频道生命周期与客户端事件以 Pusher webhook 格式投递给应用
package webhook

import (
	"context"

	jsoniter "github.com/json-iterator/go"

	"github.com/tokmz/realtime/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// 事件名称
const (
	ChannelOccupied = "channel_occupied"
	ChannelVacated  = "channel_vacated"
	MemberAdded     = "member_added"
	MemberRemoved   = "member_removed"
	ClientEvent     = "client_event"
	CacheMiss       = "cache_miss"
)

// 预定义错误
var (
	ErrInvalidConfig = errors.New(4001, 500, "invalid webhook config", nil)
	ErrQueueClosed   = errors.New(4002, 503, "webhook queue closed", nil)
	ErrQueueFull     = errors.New(4003, 503, "webhook queue full", nil)
	ErrDelivery      = errors.New(4004, 502, "webhook delivery failed", nil)
	ErrEncode        = errors.New(4005, 500, "webhook job encode failed", nil)
)

// Event 单条 webhook 事件
type Event struct {
	Name     string `json:"name"`
	Channel  string `json:"channel"`
	UserID   string `json:"user_id,omitempty"`
	Event    string `json:"event,omitempty"`
	Data     any    `json:"data,omitempty"`
	SocketID string `json:"socket_id,omitempty"`
}

// Payload webhook 请求体
type Payload struct {
	TimeMs int64   `json:"time_ms"`
	Events []Event `json:"events"`
}

// Job 一次待投递的 HTTP 请求，签名在入队前完成
type Job struct {
	ID      string            `json:"id"`
	AppID   string            `json:"app_id"`
	URL     string            `json:"url"`
	Headers map[string]string `json:"headers"`
	Body    []byte            `json:"body"`
}

// Handler 处理出队的任务
type Handler func(ctx context.Context, job *Job) error

// Queue 投递队列
// Start 之后出队的任务交给 handler 处理
type Queue interface {
	Enqueue(ctx context.Context, job *Job) error
	Start(handler Handler) error
	Close() error
}

func encodeJob(job *Job) ([]byte, error) {
	b, err := json.Marshal(job)
	if err != nil {
		return nil, ErrEncode.WithError(err)
	}
	return b, nil
}

func decodeJob(b []byte) (*Job, error) {
	var job Job
	if err := json.Unmarshal(b, &job); err != nil {
		return nil, ErrEncode.WithError(err)
	}
	return &job, nil
}
