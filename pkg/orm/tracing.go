package orm

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
)

const gormTracerName = "github.com/tokmz/realtime/pkg/orm"

// TracingPlugin GORM 链路追踪插件
type TracingPlugin struct {
	enableSQLTrace bool // 是否记录完整 SQL
}

// TracingOption 追踪插件选项
type TracingOption func(*TracingPlugin)

// WithSQLTrace 记录 SQL 语句
func WithSQLTrace(enable bool) TracingOption {
	return func(p *TracingPlugin) {
		p.enableSQLTrace = enable
	}
}

// NewTracingPlugin 创建 GORM 追踪插件
func NewTracingPlugin(opts ...TracingOption) *TracingPlugin {
	p := &TracingPlugin{}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name 插件名称
func (p *TracingPlugin) Name() string {
	return "otelgorm"
}

// Initialize 注册 before/after 回调
func (p *TracingPlugin) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	return errors.Join(
		cb.Create().Before("gorm:create").Register("otelgorm:before_create", p.before("gorm.Create")),
		cb.Create().After("gorm:create").Register("otelgorm:after_create", p.after),
		cb.Query().Before("gorm:query").Register("otelgorm:before_query", p.before("gorm.Query")),
		cb.Query().After("gorm:query").Register("otelgorm:after_query", p.after),
		cb.Update().Before("gorm:update").Register("otelgorm:before_update", p.before("gorm.Update")),
		cb.Update().After("gorm:update").Register("otelgorm:after_update", p.after),
		cb.Delete().Before("gorm:delete").Register("otelgorm:before_delete", p.before("gorm.Delete")),
		cb.Delete().After("gorm:delete").Register("otelgorm:after_delete", p.after),
		cb.Row().Before("gorm:row").Register("otelgorm:before_row", p.before("gorm.Row")),
		cb.Row().After("gorm:row").Register("otelgorm:after_row", p.after),
		cb.Raw().Before("gorm:raw").Register("otelgorm:before_raw", p.before("gorm.Raw")),
		cb.Raw().After("gorm:raw").Register("otelgorm:after_raw", p.after),
	)
}

func (p *TracingPlugin) before(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, _ = otel.Tracer(gormTracerName).Start(ctx, operation,
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("db.system", db.Dialector.Name()),
				attribute.String("db.operation", operation),
			),
		)
		db.Statement.Context = ctx
	}
}

func (p *TracingPlugin) after(db *gorm.DB) {
	span := trace.SpanFromContext(db.Statement.Context)
	if !span.IsRecording() {
		return
	}
	defer span.End()

	if p.enableSQLTrace && db.Statement.SQL.Len() > 0 {
		span.SetAttributes(attribute.String("db.statement", db.Statement.SQL.String()))
	}
	if db.Statement.Table != "" {
		span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
	}
	span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))

	if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
		span.RecordError(db.Error)
		span.SetStatus(codes.Error, db.Error.Error())
	}
}
