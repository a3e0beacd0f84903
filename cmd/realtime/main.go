package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/tokmz/realtime"
	"github.com/tokmz/realtime/pkg/app"
	"github.com/tokmz/realtime/pkg/config"
	"github.com/tokmz/realtime/pkg/logger"
	"github.com/tokmz/realtime/pkg/metrics"
	"github.com/tokmz/realtime/pkg/tracing"
)

func main() {
	configFile := pflag.StringP("config", "c", "config.yaml", "配置文件路径")
	envFile := pflag.String("env", ".env", "启动前加载的 .env 文件")
	pflag.Parse()

	if err := run(*configFile, *envFile); err != nil {
		fmt.Fprintln(os.Stderr, "realtime:", err)
		os.Exit(1)
	}
}

func run(configFile, envFile string) error {
	// .env 不存在时直接使用进程环境变量
	_ = godotenv.Load(envFile)

	ctx := context.Background()
	cfg := realtime.DefaultConfig()

	var (
		log    logger.Logger
		arrays *app.ArrayManager
	)
	loader := config.New(
		config.WithConfigFile(configFile),
		config.WithOptional(),
		config.WithEnvPrefix("REALTIME"),
		config.WithAutoWatch(true),
		config.WithOnChange(func(c *config.Config) {
			reloadApps(c, arrays, log)
		}),
	)
	if err := loader.Load(); err != nil {
		return err
	}
	defer loader.StopWatch()
	if err := loader.Unmarshal(cfg); err != nil {
		return err
	}

	log, err := logger.NewWithOptions(cfg.Logger.Options()...)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	tp, err := tracing.NewTracerProvider(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Warn("flush traces failed", zap.Error(err))
		}
	}()

	m, err := metrics.New(otel.Meter(metrics.MeterName))
	if err != nil {
		return err
	}

	opts := []realtime.Option{
		realtime.WithLogger(log),
		realtime.WithMetrics(m),
	}
	// array 驱动的应用随配置文件热更新
	if cfg.Apps == nil || cfg.Apps.Driver == "" || cfg.Apps.Driver == app.DriverArray {
		var apps []app.App
		if cfg.Apps != nil {
			apps = cfg.Apps.Apps
		}
		if arrays, err = app.NewArrayManager(apps); err != nil {
			return err
		}
		opts = append(opts, realtime.WithAppManager(arrays))
	}

	srv, err := realtime.New(ctx, cfg, opts...)
	if err != nil {
		return err
	}
	log.Info("realtime server starting",
		zap.String("addr", cfg.Server.Addr),
		zap.String("config", loader.ConfigFileUsed()),
	)
	return srv.Run()
}

// reloadApps 配置文件变更后重新载入 array 驱动的应用
func reloadApps(c *config.Config, arrays *app.ArrayManager, log logger.Logger) {
	if arrays == nil {
		return
	}
	appsCfg, err := config.Bind[app.Config](c, "apps")
	if err != nil {
		log.Error("decode apps failed", zap.Error(err))
		return
	}
	if err := arrays.Reload(appsCfg.Apps); err != nil {
		log.Error("reload apps failed", zap.Error(err))
		return
	}
	log.Info("apps reloaded", zap.Int("count", arrays.Len()))
}
