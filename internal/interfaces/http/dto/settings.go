package dto

import (
	"time"

	"np-blogger/internal/domain/entity"
)

// RAGSettingsResponse 检索设置
type RAGSettingsResponse struct {
	Enabled       bool `json:"enabled"`
	MaxReferences int  `json:"max_references"`
}

// SettingsResponse 仓库同步设置
type SettingsResponse struct {
	RepositoryID     int64               `json:"repository_id"`
	SyncEnabled      bool                `json:"sync_enabled"`
	AutoGenerate     bool                `json:"auto_generate"`
	PlatformSettings map[string]bool     `json:"platform_settings"`
	RAGSettings      RAGSettingsResponse `json:"rag_settings"`
	LastSyncTime     *time.Time          `json:"last_sync_time,omitempty"`
	LastProcessedRef string              `json:"last_processed_ref,omitempty"`
	// Persisted 为 false 表示仓库尚未写入过设置，返回的是默认值
	Persisted bool `json:"persisted"`
}

// ToSettingsResponse 转换设置
func ToSettingsResponse(s *entity.RepositorySyncSettings, persisted bool) *SettingsResponse {
	flags := make(map[string]bool, len(s.PlatformFlags))
	for k, v := range s.PlatformFlags {
		flags[k] = v
	}
	return &SettingsResponse{
		RepositoryID:     s.RepositoryID,
		SyncEnabled:      s.SyncEnabled,
		AutoGenerate:     s.AutoGenerate,
		PlatformSettings: flags,
		RAGSettings: RAGSettingsResponse{
			Enabled:       s.RAG.Enabled,
			MaxReferences: s.RAG.MaxReferences,
		},
		LastSyncTime:     s.LastSyncTime,
		LastProcessedRef: s.LastProcessedRef,
		Persisted:        persisted,
	}
}
