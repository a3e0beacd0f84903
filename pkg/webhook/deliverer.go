package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/tokmz/realtime/pkg/logger"
	"github.com/tokmz/realtime/pkg/tracing"
)

// tracingTransport 在 RoundTripper 层注入 trace headers
type tracingTransport struct {
	base http.RoundTripper
}

func (t *tracingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	otel.GetTextMapPropagator().Inject(req.Context(), propagation.HeaderCarrier(req.Header))
	return t.base.RoundTrip(req)
}

// Deliverer 以 HTTP POST 投递任务，失败按退避重试
type Deliverer struct {
	client *http.Client
	retry  RetryConfig
	log    logger.Logger
}

// NewDeliverer 创建 HTTP 投递器
func NewDeliverer(timeout time.Duration, retry RetryConfig, log logger.Logger) *Deliverer {
	retry.normalize()
	if log == nil {
		log = logger.NewNop()
	}
	return &Deliverer{
		client: &http.Client{
			Timeout:   timeout,
			Transport: &tracingTransport{base: http.DefaultTransport},
		},
		retry: retry,
		log:   log,
	}
}

// Deliver 实现 Handler
func (d *Deliverer) Deliver(ctx context.Context, job *Job) error {
	ctx, span := tracing.StartSpan(ctx, "webhook.deliver",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("webhook.app_id", job.AppID),
			attribute.String("webhook.url", job.URL),
		),
	)
	defer span.End()

	var lastErr error
	for attempt := 0; attempt < d.retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(d.retry.backoff(attempt - 1)):
			case <-ctx.Done():
				return ErrDelivery.WithError(ctx.Err())
			}
		}

		resp, err := d.post(ctx, job)
		if !shouldRetry(resp, err) {
			span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
			if resp.StatusCode >= http.StatusBadRequest {
				lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
				break
			}
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		d.log.DebugContext(ctx, "webhook attempt failed",
			zap.String("job_id", job.ID),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr),
		)
	}

	tracing.RecordError(span, lastErr)
	d.log.WarnContext(ctx, "webhook delivery failed",
		zap.String("job_id", job.ID),
		zap.String("app_id", job.AppID),
		zap.String("url", job.URL),
		zap.Error(lastErr),
	)
	return ErrDelivery.WithError(lastErr)
}

func (d *Deliverer) post(ctx context.Context, job *Job) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, job.URL, bytes.NewReader(job.Body))
	if err != nil {
		return nil, err
	}
	for k, v := range job.Headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp, nil
}
