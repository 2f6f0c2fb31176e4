package messaging

import (
	"context"
	"errors"
	"fmt"

	"np-blogger/internal/domain/entity"
	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/logger"
)

// SyncTrigger 同步执行入口
type SyncTrigger interface {
	TriggerSync(ctx context.Context, repositoryID int64, mode entity.TriggerMode) (*entity.SyncOutcome, error)
}

// SyncTriggerHandler 消费同步触发消息。
// 被拒绝的触发（不满足条件、已有同步在执行）视为已处理，只有基础设施错误才会重投。
func SyncTriggerHandler(trigger SyncTrigger) MessageHandler {
	return func(ctx context.Context, msg *Message) error {
		var payload SyncTriggerMessage
		if err := msg.UnmarshalPayload(&payload); err != nil {
			logger.Warn(ctx, "discarding malformed sync trigger", "error", err.Error())
			return nil
		}
		if payload.Mode == "" {
			payload.Mode = entity.TriggerScheduled
		}

		outcome, err := trigger.TriggerSync(ctx, payload.RepositoryID, payload.Mode)
		switch {
		case err == nil:
			logger.Info(ctx, "sync trigger consumed", "status", string(outcome.Status), "job_id", outcome.JobID)
			return nil
		case errors.Is(err, apperrors.ErrSyncAlreadyInProgress),
			errors.Is(err, apperrors.ErrSyncNotEligible),
			errors.Is(err, apperrors.ErrInvalidParam):
			logger.Debug(ctx, "sync trigger skipped", "reason", err.Error())
			return nil
		default:
			return fmt.Errorf("trigger sync %d: %w", payload.RepositoryID, err)
		}
	}
}
