package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
	apperrors "np-blogger/pkg/errors"
)

// SettingsRepository 仓库同步设置仓储实现
type SettingsRepository struct {
	client *Client
	tx     repository.Transactor
}

var _ repository.SettingsStore = (*SettingsRepository)(nil)

// NewSettingsRepository 创建设置仓储
func NewSettingsRepository(client *Client, tx repository.Transactor) *SettingsRepository {
	return &SettingsRepository{client: client, tx: tx}
}

// Get 获取设置，不存在时返回 nil, nil
func (r *SettingsRepository) Get(ctx context.Context, repositoryID int64) (*entity.RepositorySyncSettings, error) {
	ctx, span := tracer.Start(ctx, "postgres.SettingsRepository.Get")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var s entity.RepositorySyncSettings
	if err := db.First(&s, "repository_id = ?", repositoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		span.RecordError(err)
		return nil, apperrors.ErrDatabase.WithError(err)
	}
	return &s, nil
}

// Upsert 在事务中 SELECT ... FOR UPDATE 后合并写入。
// 并发首次创建产生唯一约束冲突时重试一次，第二次读取会命中已创建的记录。
func (r *SettingsRepository) Upsert(ctx context.Context, repositoryID int64, patch entity.SettingsPatch) (*entity.RepositorySyncSettings, error) {
	ctx, span := tracer.Start(ctx, "postgres.SettingsRepository.Upsert")
	defer span.End()

	var (
		result *entity.RepositorySyncSettings
		err    error
	)
	for attempt := 0; attempt < 2; attempt++ {
		result, err = r.upsertOnce(ctx, repositoryID, patch)
		if err == nil || !isUniqueViolation(err) {
			break
		}
	}
	if err != nil {
		span.RecordError(err)
		if apperrors.IsAppError(err) {
			return nil, err
		}
		if isUniqueViolation(err) {
			return nil, apperrors.ErrConflict.WithError(err)
		}
		return nil, apperrors.ErrDatabase.WithError(err)
	}
	return result, nil
}

func (r *SettingsRepository) upsertOnce(ctx context.Context, repositoryID int64, patch entity.SettingsPatch) (*entity.RepositorySyncSettings, error) {
	var result *entity.RepositorySyncSettings
	err := r.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		db := getDB(txCtx, r.client.db)

		var current entity.RepositorySyncSettings
		created := false
		err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&current, "repository_id = ?", repositoryID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			current = *entity.DefaultSyncSettings(repositoryID)
			created = true
		case err != nil:
			return err
		}

		current.Apply(patch)
		if err := current.Validate(); err != nil {
			return err
		}

		if created {
			err = db.Create(&current).Error
		} else {
			err = db.Save(&current).Error
		}
		if err != nil {
			return err
		}
		result = &current
		return nil
	})
	return result, err
}

// ListSyncEnabled 列出开启同步的仓库设置
func (r *SettingsRepository) ListSyncEnabled(ctx context.Context) ([]*entity.RepositorySyncSettings, error) {
	ctx, span := tracer.Start(ctx, "postgres.SettingsRepository.ListSyncEnabled")
	defer span.End()

	db := getDB(ctx, r.client.db)
	var list []*entity.RepositorySyncSettings
	if err := db.Where("sync_enabled = ?", true).Order("repository_id ASC").Find(&list).Error; err != nil {
		span.RecordError(err)
		return nil, apperrors.ErrDatabase.WithError(err)
	}
	return list, nil
}
