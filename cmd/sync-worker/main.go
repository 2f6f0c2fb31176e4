// Package main 同步调度 worker 入口：周期扫描仓库并执行同步
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"np-blogger/internal/config"
	einoobs "np-blogger/internal/observability/eino"
	"np-blogger/internal/wire"
	"np-blogger/pkg/logger"
	"np-blogger/pkg/tracer"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracer.Init(ctx, tracer.Config{
		ServiceName: "sync-worker",
		Environment: cfg.App.Env,
		Endpoint:    cfg.Observability.Tracing.Endpoint,
		SampleRate:  cfg.Observability.Tracing.SampleRate,
		Insecure:    cfg.Observability.Tracing.Insecure,
		Enabled:     cfg.Observability.Tracing.Enabled,
	})
	if err != nil {
		logger.Fatal(ctx, "failed to init tracer", err)
	}
	defer func() { _ = shutdown(context.Background()) }()

	einoobs.Init()

	app, cleanup, err := wire.InitializeWorker(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize worker", err)
	}
	defer cleanup()

	if err := app.Runner.Start(ctx); err != nil {
		logger.Fatal(ctx, "failed to start sync runner", err)
	}
	if app.Consumer != nil {
		if err := app.Consumer.Start(ctx); err != nil {
			logger.Fatal(ctx, "failed to start sync consumer", err)
		}
	}

	log := logger.FromContext(ctx)
	log.Info("sync-worker started", "dispatch", cfg.Sync.Dispatch, "schedule", cfg.Sync.Schedule)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("sync-worker shutting down")

	// 先停止产生新任务，再等待执行中的同步结束
	stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.Sync.JobTimeout+10*time.Second)
	defer stopCancel()
	app.Runner.Stop(stopCtx)
	if app.Consumer != nil {
		app.Consumer.Stop()
	}
	cancel()
}
