// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
)

// BindPage 从查询参数 page / page_size 读取分页，非法值按缺省处理
func BindPage(c *gin.Context) repository.Pagination {
	return repository.NewPagination(
		parseIntWithDefault(c.Query("page"), 1),
		parseIntWithDefault(c.Query("page_size"), repository.DefaultPageSize),
	)
}

func parseIntWithDefault(s string, defaultVal int) int {
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// RepositoryIDRequest 仓库 ID 路径参数
type RepositoryIDRequest struct {
	ID int64 `uri:"id" binding:"required,min=1"`
}

// RAGOptionsRequest 检索选项
type RAGOptionsRequest struct {
	Enabled       bool `json:"enabled"`
	MaxReferences *int `json:"max_references,omitempty"`
}

// GenerateBlogRequest 生成文章请求
type GenerateBlogRequest struct {
	Topic        string             `json:"topic" binding:"required"`
	Content      string             `json:"content"`
	RepositoryID int64              `json:"repository_id,omitempty"`
	Collection   string             `json:"collection,omitempty"`
	RAGOptions   *RAGOptionsRequest `json:"rag_options,omitempty"`
}

// RAG 解析检索选项，未给出 max_references 时使用默认值
func (r *GenerateBlogRequest) RAG(defaultMaxReferences int) entity.RAGOptions {
	if r.RAGOptions == nil {
		return entity.RAGOptions{}
	}
	out := entity.RAGOptions{Enabled: r.RAGOptions.Enabled, MaxReferences: defaultMaxReferences}
	if r.RAGOptions.MaxReferences != nil {
		out.MaxReferences = *r.RAGOptions.MaxReferences
	}
	return out
}

// RAGSettingsPatch 检索设置的部分更新
type RAGSettingsPatch struct {
	Enabled       *bool `json:"enabled,omitempty"`
	MaxReferences *int  `json:"max_references,omitempty"`
}

// UpdateSettingsRequest 仓库设置部分更新，缺省字段保持不变
type UpdateSettingsRequest struct {
	SyncEnabled      *bool             `json:"sync_enabled,omitempty"`
	AutoGenerate     *bool             `json:"auto_generate,omitempty"`
	PlatformSettings map[string]bool   `json:"platform_settings,omitempty"`
	RAGSettings      *RAGSettingsPatch `json:"rag_settings,omitempty"`
}

// ToPatch 转换为领域补丁
func (r *UpdateSettingsRequest) ToPatch() entity.SettingsPatch {
	p := entity.SettingsPatch{
		SyncEnabled:   r.SyncEnabled,
		AutoGenerate:  r.AutoGenerate,
		PlatformFlags: r.PlatformSettings,
	}
	if r.RAGSettings != nil {
		p.RAGEnabled = r.RAGSettings.Enabled
		p.MaxReferences = r.RAGSettings.MaxReferences
	}
	return p
}
