package dto

import (
	"time"

	"np-blogger/internal/domain/entity"
)

// GenerateBlogResponse 生成成功响应
type GenerateBlogResponse struct {
	JobID      string   `json:"job_id"`
	Content    string   `json:"content"`
	Degraded   bool     `json:"degraded"`
	Warnings   []string `json:"warnings"`
	References int      `json:"references"`
}

// GenerateFailure 生成失败详情，只包含失败步骤和面向用户的原因
type GenerateFailure struct {
	JobID      string `json:"job_id"`
	FailedStep string `json:"failed_step"`
	Reason     string `json:"reason"`
}

// ToGenerateBlogResponse 转换生成结果
func ToGenerateBlogResponse(o *entity.GenerationOutcome) *GenerateBlogResponse {
	warnings := o.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	return &GenerateBlogResponse{
		JobID:      o.JobID,
		Content:    o.Content,
		Degraded:   o.Degraded,
		Warnings:   warnings,
		References: o.References,
	}
}

// BlogPostResponse 文章记录
type BlogPostResponse struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	Status    string    `json:"status"`
	Degraded  bool      `json:"degraded"`
	CreatedAt time.Time `json:"created_at"`
}

// ToBlogPostResponses 转换文章列表
func ToBlogPostResponses(posts []*entity.BlogPost) []*BlogPostResponse {
	out := make([]*BlogPostResponse, 0, len(posts))
	for _, p := range posts {
		out = append(out, &BlogPostResponse{
			ID:        p.ID,
			JobID:     p.JobID,
			Title:     p.Title,
			Slug:      p.Slug,
			Content:   p.Content,
			Status:    string(p.Status),
			Degraded:  p.Degraded,
			CreatedAt: p.CreatedAt,
		})
	}
	return out
}
