// Package handler 提供 HTTP 请求处理器
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"np-blogger/internal/interfaces/http/dto"
	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/logger"
)

// respondError 按错误码映射 HTTP 状态。
// 参数与状态类错误返回 detail，上游与内部错误只返回概要信息。
func respondError(c *gin.Context, err error) {
	appErr := apperrors.AsAppError(err)
	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	detail := &dto.ErrorDetail{ErrorCode: string(appErr.Code)}
	if status < http.StatusInternalServerError {
		detail.Details = appErr.Detail
	} else {
		logger.Error(c.Request.Context(), "request failed", err, "path", c.FullPath())
	}
	dto.ErrorWithDetail(c, status, appErr.Message, detail, nil)
}

// bindRepositoryID 解析路径中的仓库 ID
func bindRepositoryID(c *gin.Context) (int64, bool) {
	var req dto.RepositoryIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		respondError(c, apperrors.ErrInvalidParam.WithDetail("repository id must be a positive integer"))
		return 0, false
	}
	return req.ID, true
}
