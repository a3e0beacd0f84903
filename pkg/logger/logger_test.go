package logger

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// recordHook 记录写入的日志条目
type recordHook struct {
	mu      sync.Mutex
	entries []zapcore.Entry
	fields  [][]zapcore.Field
}

func (h *recordHook) OnWrite(entry zapcore.Entry, fields []zapcore.Field) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)
	h.fields = append(h.fields, fields)
	return nil
}

// TestNew 测试创建 Logger
func TestNew(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name   string
		config *Config
	}{
		{name: "nil config", config: nil},
		{name: "console output", config: &Config{Level: InfoLevel, Format: JSONFormat, Console: true}},
		{name: "file output", config: &Config{File: filepath.Join(dir, "test.log")}},
		{name: "rotate output", config: &Config{Rotate: &RotateConfig{Filename: filepath.Join(dir, "rotate.log")}}},
		{name: "sampling", config: &Config{Console: true, Sampling: &SamplingConfig{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.config)
			require.NoError(t, err)
			require.NotNil(t, l)
			l.Info("hello")
		})
	}
}

// TestParseLevel 测试级别解析
func TestParseLevel(t *testing.T) {
	assert.Equal(t, DebugLevel, ParseLevel("debug"))
	assert.Equal(t, WarnLevel, ParseLevel(" WARN "))
	assert.Equal(t, ErrorLevel, ParseLevel("error"))
	assert.Equal(t, InfoLevel, ParseLevel("nonsense"))
	assert.Equal(t, "warn", WarnLevel.String())
}

// TestSetLevel 测试动态调整级别会影响实际输出
func TestSetLevel(t *testing.T) {
	hook := &recordHook{}
	l, err := NewWithOptions(WithLevel(InfoLevel), WithHook(hook))
	require.NoError(t, err)

	l.Debug("dropped")
	assert.Empty(t, hook.entries)

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())
	assert.True(t, l.Enabled(DebugLevel))

	l.Debug("kept")
	require.Len(t, hook.entries, 1)
	assert.Equal(t, "kept", hook.entries[0].Message)
}

// TestWithSharesLevel 子 Logger 与父 Logger 共享级别
func TestWithSharesLevel(t *testing.T) {
	hook := &recordHook{}
	l, err := NewWithOptions(WithLevel(WarnLevel), WithHook(hook))
	require.NoError(t, err)

	child := l.With(zap.String("module", "ws")).Named("child")
	child.Info("dropped")
	l.SetLevel(InfoLevel)
	child.Info("kept")

	require.Len(t, hook.entries, 1)
	assert.Equal(t, "child", hook.entries[0].LoggerName)
}

// TestContextFields 测试从 Context 提取 span 信息
func TestContextFields(t *testing.T) {
	hook := &recordHook{}
	l, err := NewWithOptions(WithLevel(InfoLevel), WithHook(hook))
	require.NoError(t, err)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	l.InfoContext(ctx, "with span", zap.String("k", "v"))
	l.InfoContext(context.Background(), "without span")

	require.Len(t, hook.fields, 2)
	assert.Len(t, hook.fields[0], 3)
	assert.Equal(t, "trace_id", hook.fields[0][0].Key)
	assert.Equal(t, traceID.String(), hook.fields[0][0].String)
	assert.Len(t, hook.fields[1], 0)
}

// TestNewNop 测试空 Logger
func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Error("ignored")
	assert.NoError(t, l.Sync())
}

// TestPresetsAndOptions 测试预设与选项组合
func TestPresetsAndOptions(t *testing.T) {
	prod, err := NewProduction()
	require.NoError(t, err)
	assert.Equal(t, InfoLevel, prod.Level())

	dev, err := NewDevelopment()
	require.NoError(t, err)
	assert.Equal(t, DebugLevel, dev.Level())

	hook := &recordHook{}
	l, err := NewWithOptions(
		WithLevel(WarnLevel),
		WithRotate(&RotateConfig{Filename: filepath.Join(t.TempDir(), "app.log")}),
		WithSampling(1, 1000),
		WithHook(hook),
	)
	require.NoError(t, err)

	l.Info("dropped by level")
	for range 5 {
		l.Warn("sampled")
	}
	hook.mu.Lock()
	defer hook.mu.Unlock()
	require.Len(t, hook.entries, 1)
	assert.Equal(t, "sampled", hook.entries[0].Message)
}

func TestOptionsFromFileSettings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realtime.log")
	l, err := NewWithOptions(
		WithLevelName("WARN"),
		WithFormat(ConsoleFormat),
		WithConsole(false),
		WithFile(path),
		WithRotate(nil),
		WithSampling(0, 0),
		WithCaller(true),
		WithStacktrace(false),
	)
	require.NoError(t, err)
	assert.Equal(t, WarnLevel, l.Level())

	l.Info("skipped")
	l.Warn("written")
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "written")
	assert.NotContains(t, string(b), "skipped")
	assert.Contains(t, string(b), "logger_test.go")
}
