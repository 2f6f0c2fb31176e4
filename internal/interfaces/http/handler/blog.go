package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"np-blogger/internal/application/generation"
	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
	"np-blogger/internal/interfaces/http/dto"
	apperrors "np-blogger/pkg/errors"
)

// BlogGenerator 文章生成能力
type BlogGenerator interface {
	Generate(ctx context.Context, req generation.GenerateRequest) (*entity.GenerationOutcome, error)
}

// BlogHandler 文章处理器
type BlogHandler struct {
	generator     BlogGenerator
	posts         repository.BlogPostRepository
	maxReferences int
}

// NewBlogHandler 创建文章处理器，posts 可为 nil
func NewBlogHandler(generator BlogGenerator, posts repository.BlogPostRepository, defaultMaxReferences int) *BlogHandler {
	return &BlogHandler{generator: generator, posts: posts, maxReferences: defaultMaxReferences}
}

// Generate 生成文章
// @Summary 生成博客文章
// @Tags Blog
// @Accept json
// @Produce json
// @Param body body dto.GenerateBlogRequest true "生成参数"
// @Success 200 {object} dto.Response[dto.GenerateBlogResponse]
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Failure 504 {object} dto.ErrorResponse
// @Router /v1/blog/generate [post]
func (h *BlogHandler) Generate(c *gin.Context) {
	var req dto.GenerateBlogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.ErrInvalidParam.WithDetail(err.Error()))
		return
	}

	outcome, err := h.generator.Generate(c.Request.Context(), generation.GenerateRequest{
		RepositoryID: req.RepositoryID,
		Topic:        req.Topic,
		Content:      req.Content,
		Collection:   req.Collection,
		RAG:          req.RAG(h.maxReferences),
	})
	if err != nil {
		appErr := apperrors.AsAppError(err)
		if outcome == nil || appErr.HTTPStatus < 500 {
			respondError(c, err)
			return
		}
		dto.ErrorWithDetail(c, appErr.HTTPStatus, appErr.Message,
			&dto.ErrorDetail{ErrorCode: string(appErr.Code)},
			&dto.GenerateFailure{
				JobID:      outcome.JobID,
				FailedStep: string(outcome.FailedStep),
				Reason:     outcome.Reason,
			})
		return
	}

	dto.Success(c, dto.ToGenerateBlogResponse(outcome))
}

// ListPosts 分页列出仓库下生成的文章
// @Summary 仓库文章列表
// @Tags Blog
// @Produce json
// @Param id path int true "仓库 ID"
// @Router /v1/blog/repositories/{id}/posts [get]
func (h *BlogHandler) ListPosts(c *gin.Context) {
	id, ok := bindRepositoryID(c)
	if !ok {
		return
	}
	if h.posts == nil {
		respondError(c, apperrors.ErrServiceUnavailable.WithDetail("post storage not configured"))
		return
	}

	result, err := h.posts.ListByRepository(c.Request.Context(), id, dto.BindPage(c))
	if err != nil {
		respondError(c, err)
		return
	}
	dto.SuccessWithPage(c, dto.ToBlogPostResponses(result.Items), &dto.PageMeta{
		Page:       result.Page,
		PageSize:   result.PageSize,
		Total:      result.Total,
		TotalPages: result.TotalPages,
	})
}
