package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"np-blogger/internal/domain/repository"
	"np-blogger/pkg/logger"
)

// Runner 周期性扫描开启同步的仓库并分发定时任务
type Runner struct {
	spec       string
	settings   repository.SettingsStore
	scheduler  *Scheduler
	dispatcher Dispatcher
	cron       *cron.Cron
	running    atomic.Bool
	now        func() time.Time
}

// NewRunner 创建周期调度器，spec 为 cron 表达式，如 "@every 1m"
func NewRunner(spec string, settings repository.SettingsStore, scheduler *Scheduler, dispatcher Dispatcher) *Runner {
	r := &Runner{
		spec:       spec,
		settings:   settings,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		now:        time.Now,
	}
	cl := cronLogger{}
	r.cron = cron.New(
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return r
}

// Start 注册任务并启动
func (r *Runner) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.spec, func() { r.Tick(ctx) }); err != nil {
		return err
	}
	r.cron.Start()
	logger.Info(ctx, "sync runner started", "schedule", r.spec)
	return nil
}

// Stop 停止调度并等待正在执行的 tick 结束
func (r *Runner) Stop(ctx context.Context) {
	stopCtx := r.cron.Stop()
	select {
	case <-stopCtx.Done():
	case <-ctx.Done():
	}
	logger.Info(ctx, "sync runner stopped")
}

// Tick 执行一轮扫描，上一轮未结束时直接跳过
func (r *Runner) Tick(ctx context.Context) {
	if !r.running.CompareAndSwap(false, true) {
		logger.Debug(ctx, "previous sync tick still running, skipped")
		return
	}
	defer r.running.Store(false)

	list, err := r.settings.ListSyncEnabled(ctx)
	if err != nil {
		logger.Error(ctx, "failed to list sync enabled repositories", err)
		return
	}

	now := r.now()
	ids := make([]int64, 0, len(list))
	for _, s := range list {
		if r.scheduler.Eligible(s, now) {
			ids = append(ids, s.RepositoryID)
		}
	}
	if len(ids) == 0 {
		return
	}

	logger.Info(ctx, "dispatching scheduled syncs", "count", len(ids))
	if err := r.dispatcher.Dispatch(ctx, ids); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error(ctx, "failed to dispatch scheduled syncs", err)
	}
}

// cronLogger 将 cron 内部日志转到 slog
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...any) {
	logger.Debug(context.Background(), "cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...any) {
	logger.Error(context.Background(), "cron: "+msg, err, keysAndValues...)
}
