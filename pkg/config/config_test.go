package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tokmz/realtime/pkg/errors"
)

const testYAML = `
server:
  addr: ":6001"
  shutdown_timeout: 5s
adapter:
  driver: local
apps:
  - id: "1"
    key: app-key
    secret: app-secret
`

type testOptions struct {
	Server struct {
		Addr            string        `mapstructure:"addr"`
		ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	} `mapstructure:"server"`
	Adapter struct {
		Driver string `mapstructure:"driver"`
	} `mapstructure:"adapter"`
	Apps []struct {
		ID     string `mapstructure:"id"`
		Key    string `mapstructure:"key"`
		Secret string `mapstructure:"secret"`
	} `mapstructure:"apps"`
}

func writeTestConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAndUnmarshal(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), testYAML)

	c := New(WithConfigFile(path))
	require.NoError(t, c.Load())

	var opts testOptions
	require.NoError(t, c.Unmarshal(&opts))

	assert.Equal(t, ":6001", opts.Server.Addr)
	assert.Equal(t, 5*time.Second, opts.Server.ShutdownTimeout)
	assert.Equal(t, "local", opts.Adapter.Driver)
	require.Len(t, opts.Apps, 1)
	assert.Equal(t, "app-key", opts.Apps[0].Key)
	assert.Equal(t, path, c.ConfigFileUsed())
}

func TestDefaultsAndEnv(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), testYAML)
	t.Setenv("RTTEST_ADAPTER_DRIVER", "redis")

	c := New(
		WithConfigFile(path),
		WithEnvPrefix("RTTEST"),
		WithDefaults(map[string]any{"cache.driver": "memory"}),
	)
	require.NoError(t, c.Load())

	assert.Equal(t, "redis", c.GetString("adapter.driver"))
	assert.Equal(t, "memory", c.GetString("cache.driver"))
	assert.Equal(t, 5*time.Second, c.GetDuration("server.shutdown_timeout"))

	var opts testOptions
	require.NoError(t, c.Unmarshal(&opts))
	assert.Equal(t, "redis", opts.Adapter.Driver)

	server, err := Bind[struct {
		Addr string `mapstructure:"addr"`
	}](c, "server")
	require.NoError(t, err)
	assert.Equal(t, ":6001", server.Addr)
}

func TestLoadMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	err := New(WithConfigFile(missing)).Load()
	require.Error(t, err)

	optional := New(WithConfigName("nope", t.TempDir()), WithConfigType("yaml"), WithOptional())
	assert.NoError(t, optional.Load())

	err = New(WithConfigName("nope", t.TempDir()), WithConfigType("yaml")).Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigNotFound))
}

func TestSetOverrides(t *testing.T) {
	path := writeTestConfig(t, t.TempDir(), testYAML)
	c := New(WithConfigFile(path))
	require.NoError(t, c.Load())

	c.Set("server.addr", ":7000")
	assert.Equal(t, ":7000", c.GetString("server.addr"))
	assert.True(t, c.IsSet("adapter.driver"))
	assert.False(t, c.IsSet("adapter.missing"))
}

func TestWatchTriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	path := writeTestConfig(t, dir, testYAML)

	var driver atomic.Value
	c := New(
		WithConfigFile(path),
		WithAutoWatch(true),
		WithOnChange(func(c *Config) {
			driver.Store(c.GetString("adapter.driver"))
		}),
	)
	require.NoError(t, c.Load())
	defer c.StopWatch()

	updated := []byte("adapter:\n  driver: redis\n")
	require.NoError(t, os.WriteFile(path, updated, 0o644))

	assert.Eventually(t, func() bool {
		v, _ := driver.Load().(string)
		return v == "redis"
	}, 5*time.Second, 50*time.Millisecond)
}
