package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
	"np-blogger/pkg/logger"
)

const settingsKeyPrefix = "settings:repo:"

// CachedSettingsStore 仓库设置的读穿透缓存，写入后失效
type CachedSettingsStore struct {
	next  repository.SettingsStore
	cache *Cache
	ttl   time.Duration
}

var _ repository.SettingsStore = (*CachedSettingsStore)(nil)

// NewCachedSettingsStore 创建带缓存的设置存储
func NewCachedSettingsStore(next repository.SettingsStore, cache *Cache, ttl time.Duration) *CachedSettingsStore {
	return &CachedSettingsStore{next: next, cache: cache, ttl: ttl}
}

func settingsKey(repositoryID int64) string {
	return settingsKeyPrefix + strconv.FormatInt(repositoryID, 10)
}

// Get 读缓存，未命中时回源。不存在的记录以 null 缓存。
func (s *CachedSettingsStore) Get(ctx context.Context, repositoryID int64) (*entity.RepositorySyncSettings, error) {
	raw, err := s.cache.GetOrLoad(ctx, settingsKey(repositoryID), s.ttl, func(ctx context.Context) (any, error) {
		return s.next.Get(ctx, repositoryID)
	})
	if err != nil {
		return nil, err
	}

	var out *entity.RepositorySyncSettings
	if err := json.Unmarshal(raw, &out); err != nil {
		logger.Warn(ctx, "corrupt settings cache entry, reloading", "error", err.Error())
		_ = s.cache.Delete(ctx, settingsKey(repositoryID))
		return s.next.Get(ctx, repositoryID)
	}
	return out, nil
}

// Upsert 写入后删除缓存
func (s *CachedSettingsStore) Upsert(ctx context.Context, repositoryID int64, patch entity.SettingsPatch) (*entity.RepositorySyncSettings, error) {
	out, err := s.next.Upsert(ctx, repositoryID, patch)
	if delErr := s.cache.Delete(ctx, settingsKey(repositoryID)); delErr != nil {
		logger.Warn(ctx, "failed to invalidate settings cache", "error", delErr.Error())
	}
	return out, err
}

// ListSyncEnabled 不缓存
func (s *CachedSettingsStore) ListSyncEnabled(ctx context.Context) ([]*entity.RepositorySyncSettings, error) {
	return s.next.ListSyncEnabled(ctx)
}
