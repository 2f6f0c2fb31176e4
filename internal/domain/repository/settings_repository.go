// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"np-blogger/internal/domain/entity"
)

// SettingsStore 仓库同步设置存储
type SettingsStore interface {
	// Get 获取设置，不存在时返回 nil, nil
	Get(ctx context.Context, repositoryID int64) (*entity.RepositorySyncSettings, error)

	// Upsert 不存在则以默认值创建后合并补丁，存在则合并；合并结果需通过校验
	Upsert(ctx context.Context, repositoryID int64, patch entity.SettingsPatch) (*entity.RepositorySyncSettings, error)

	// ListSyncEnabled 列出开启同步的仓库设置
	ListSyncEnabled(ctx context.Context) ([]*entity.RepositorySyncSettings, error)
}
