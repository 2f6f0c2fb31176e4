package handler

import (
	"github.com/gin-gonic/gin"

	"np-blogger/internal/application/scheduler"
	"np-blogger/internal/domain/entity"
	"np-blogger/internal/interfaces/http/dto"
	"np-blogger/pkg/logger"
)

// SyncHandler 手动同步处理器
type SyncHandler struct {
	trigger scheduler.Trigger
}

// NewSyncHandler 创建同步处理器
func NewSyncHandler(trigger scheduler.Trigger) *SyncHandler {
	return &SyncHandler{trigger: trigger}
}

// Trigger 立即执行一次同步，跳过 auto_generate 与最小间隔检查
// @Summary 手动触发同步
// @Tags Sync
// @Produce json
// @Param id path int true "仓库 ID"
// @Success 200 {object} dto.Response[entity.SyncOutcome]
// @Failure 409 {object} dto.ErrorResponse
// @Failure 412 {object} dto.ErrorResponse
// @Router /v1/sync/repositories/{id} [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	id, ok := bindRepositoryID(c)
	if !ok {
		return
	}
	ctx := logger.WithContext(c.Request.Context(), logger.RepositoryIDKey, id)

	outcome, err := h.trigger.TriggerSync(ctx, id, entity.TriggerManual)
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, outcome)
}
