// Package metrics 基于 OpenTelemetry metric API 的连接与消息统计
package metrics

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tokmz/realtime/pkg/errors"
)

// MeterName 默认 meter 名称
const MeterName = "github.com/tokmz/realtime"

// ErrInstrument 创建指标失败
var ErrInstrument = errors.New(1501, 500, "create metric instrument failed", nil)

// Metrics 连接与消息指标，所有指标都带 app_id 属性
type Metrics struct {
	connections      metric.Int64UpDownCounter
	newConnections   metric.Int64Counter
	disconnections   metric.Int64Counter
	bytesSent        metric.Int64Counter
	bytesReceived    metric.Int64Counter
	messagesSent     metric.Int64Counter
	messagesReceived metric.Int64Counter
}

// New 使用给定 meter 创建指标，meter 为 nil 时使用全局 MeterProvider
func New(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		meter = otel.Meter(MeterName)
	}

	m := &Metrics{}
	var err error
	if m.connections, err = meter.Int64UpDownCounter("realtime.connections",
		metric.WithDescription("Current number of connected sockets")); err != nil {
		return nil, ErrInstrument.WithError(err)
	}
	if m.newConnections, err = meter.Int64Counter("realtime.connections.new",
		metric.WithDescription("Total accepted connections")); err != nil {
		return nil, ErrInstrument.WithError(err)
	}
	if m.disconnections, err = meter.Int64Counter("realtime.connections.closed",
		metric.WithDescription("Total closed connections")); err != nil {
		return nil, ErrInstrument.WithError(err)
	}
	if m.bytesSent, err = meter.Int64Counter("realtime.ws.bytes.sent",
		metric.WithDescription("Total bytes sent over websocket"), metric.WithUnit("By")); err != nil {
		return nil, ErrInstrument.WithError(err)
	}
	if m.bytesReceived, err = meter.Int64Counter("realtime.ws.bytes.received",
		metric.WithDescription("Total bytes received over websocket"), metric.WithUnit("By")); err != nil {
		return nil, ErrInstrument.WithError(err)
	}
	if m.messagesSent, err = meter.Int64Counter("realtime.ws.messages.sent",
		metric.WithDescription("Total websocket messages sent")); err != nil {
		return nil, ErrInstrument.WithError(err)
	}
	if m.messagesReceived, err = meter.Int64Counter("realtime.ws.messages.received",
		metric.WithDescription("Total websocket messages received")); err != nil {
		return nil, ErrInstrument.WithError(err)
	}
	return m, nil
}

func appAttr(appID string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String("app_id", appID))
}

func (m *Metrics) MarkNewConnection(appID string) {
	ctx := context.Background()
	m.connections.Add(ctx, 1, appAttr(appID))
	m.newConnections.Add(ctx, 1, appAttr(appID))
}

func (m *Metrics) MarkDisconnection(appID string) {
	ctx := context.Background()
	m.connections.Add(ctx, -1, appAttr(appID))
	m.disconnections.Add(ctx, 1, appAttr(appID))
}

func (m *Metrics) MarkWsMessageSent(appID string, size int) {
	ctx := context.Background()
	m.bytesSent.Add(ctx, int64(size), appAttr(appID))
	m.messagesSent.Add(ctx, 1, appAttr(appID))
}

func (m *Metrics) MarkWsMessageReceived(appID string, size int) {
	ctx := context.Background()
	m.bytesReceived.Add(ctx, int64(size), appAttr(appID))
	m.messagesReceived.Add(ctx, 1, appAttr(appID))
}
