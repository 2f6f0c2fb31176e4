package handler

import (
	"github.com/gin-gonic/gin"

	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
	"np-blogger/internal/interfaces/http/dto"
	apperrors "np-blogger/pkg/errors"
)

// SettingsHandler 仓库同步设置处理器
type SettingsHandler struct {
	store repository.SettingsStore
}

// NewSettingsHandler 创建设置处理器
func NewSettingsHandler(store repository.SettingsStore) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// Get 获取设置；尚未写入的仓库返回默认值且不落库
// @Summary 获取仓库同步设置
// @Tags Settings
// @Produce json
// @Param id path int true "仓库 ID"
// @Success 200 {object} dto.Response[dto.SettingsResponse]
// @Router /v1/settings/repositories/{id} [get]
func (h *SettingsHandler) Get(c *gin.Context) {
	id, ok := bindRepositoryID(c)
	if !ok {
		return
	}
	settings, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if settings == nil {
		dto.Success(c, dto.ToSettingsResponse(entity.DefaultSyncSettings(id), false))
		return
	}
	dto.Success(c, dto.ToSettingsResponse(settings, true))
}

// Update 部分更新设置
// @Summary 更新仓库同步设置
// @Tags Settings
// @Accept json
// @Produce json
// @Param id path int true "仓库 ID"
// @Param body body dto.UpdateSettingsRequest true "部分更新"
// @Success 200 {object} dto.Response[dto.SettingsResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Router /v1/settings/repositories/{id} [put]
func (h *SettingsHandler) Update(c *gin.Context) {
	id, ok := bindRepositoryID(c)
	if !ok {
		return
	}
	var req dto.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	settings, err := h.store.Upsert(c.Request.Context(), id, req.ToPatch())
	if err != nil {
		respondError(c, err)
		return
	}
	dto.Success(c, dto.ToSettingsResponse(settings, true))
}
