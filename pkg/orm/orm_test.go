package orm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/tokmz/realtime/pkg/errors"
)

type record struct {
	ID   uint
	Name string
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg.DSN = "file::memory:"
	cfg.Type = "oracle"
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg.Type = SQLite
	cfg.ReadWriteSplit = &ReadWriteSplitConfig{}
	assert.True(t, errors.Is(cfg.Validate(), ErrInvalidConfig))

	cfg.ReadWriteSplit = nil
	assert.NoError(t, cfg.Validate())
}

func TestTracingPlugin(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	cfg := DefaultConfig()
	cfg.Type = SQLite
	cfg.DSN = "file::memory:"
	cfg.MaxOpenConns = 1
	cfg.Tracing = true
	cfg.TraceSQL = true

	db, err := New(cfg, nil)
	require.NoError(t, err)
	defer Close(db)

	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).AutoMigrate(&record{}))
	require.NoError(t, db.WithContext(ctx).Create(&record{Name: "a"}).Error)

	var found bool
	for _, s := range rec.Ended() {
		if s.Name() != "gorm.Create" {
			continue
		}
		found = true
		var stmt string
		for _, kv := range s.Attributes() {
			if kv.Key == "db.statement" {
				stmt = kv.Value.AsString()
			}
		}
		assert.Contains(t, stmt, "INSERT")
	}
	assert.True(t, found, "create span recorded")
}
