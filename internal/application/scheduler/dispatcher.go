package scheduler

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"np-blogger/internal/domain/entity"
	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/logger"
)

// PoolDispatcher 进程内有界并发执行
type PoolDispatcher struct {
	trigger Trigger
	workers int
}

// NewPoolDispatcher 创建进程内分发器
func NewPoolDispatcher(trigger Trigger, workers int) *PoolDispatcher {
	if workers < 1 {
		workers = 1
	}
	return &PoolDispatcher{trigger: trigger, workers: workers}
}

// Dispatch 并发执行定时同步并等待全部结束。单个仓库的失败只记录日志。
func (d *PoolDispatcher) Dispatch(ctx context.Context, repositoryIDs []int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.workers)
	for _, id := range repositoryIDs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			runScheduled(gctx, d.trigger, id)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// runScheduled 执行一次定时同步并记录结果
func runScheduled(ctx context.Context, trigger Trigger, repositoryID int64) {
	ctx = logger.WithContext(ctx, logger.RepositoryIDKey, repositoryID)
	outcome, err := trigger.TriggerSync(ctx, repositoryID, entity.TriggerScheduled)
	switch {
	case err == nil:
		logger.Debug(ctx, "scheduled sync done", "status", string(outcome.Status))
	case errors.Is(err, apperrors.ErrSyncAlreadyInProgress), errors.Is(err, apperrors.ErrSyncNotEligible):
		logger.Debug(ctx, "scheduled sync skipped", "reason", err.Error())
	default:
		logger.Error(ctx, "scheduled sync failed", err)
	}
}
