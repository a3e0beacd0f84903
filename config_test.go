package realtime

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/realtime/pkg/logger"
)

func TestLogConfigOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "realtime.log")
	cfg := LogConfig{
		Level:    "error",
		Format:   string(logger.JSONFormat),
		File:     path,
		Sampling: &logger.SamplingConfig{Initial: 1, Thereafter: 100},
	}

	l, err := logger.NewWithOptions(cfg.Options()...)
	require.NoError(t, err)
	assert.Equal(t, logger.ErrorLevel, l.Level())

	l.Warn("below level")
	for range 3 {
		l.Error("app key missing")
	}
	require.NoError(t, l.Sync())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "below level")
	assert.Equal(t, 1, strings.Count(string(b), "app key missing"))
}

func TestDefaultLogConfig(t *testing.T) {
	l, err := logger.NewWithOptions(DefaultConfig().Logger.Options()...)
	require.NoError(t, err)
	assert.Equal(t, logger.InfoLevel, l.Level())
}
