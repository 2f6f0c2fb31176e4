package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
)

// SettingsStore 进程内仓库设置存储，未启用 PostgreSQL 时使用
type SettingsStore struct {
	mu      sync.Mutex
	records map[int64]*entity.RepositorySyncSettings
	now     func() time.Time
}

var _ repository.SettingsStore = (*SettingsStore)(nil)

// NewSettingsStore 创建内存设置存储
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{
		records: make(map[int64]*entity.RepositorySyncSettings),
		now:     time.Now,
	}
}

// Get 返回副本，不存在时返回 nil, nil
func (s *SettingsStore) Get(_ context.Context, repositoryID int64) (*entity.RepositorySyncSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[repositoryID]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

// Upsert 不存在时以默认值创建，合并后校验，校验失败不写入
func (s *SettingsStore) Upsert(_ context.Context, repositoryID int64, patch entity.SettingsPatch) (*entity.RepositorySyncSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	current, ok := s.records[repositoryID]
	var next *entity.RepositorySyncSettings
	if ok {
		next = current.Clone()
	} else {
		next = entity.DefaultSyncSettings(repositoryID)
		next.CreatedAt = now
	}
	next.Apply(patch)
	if err := next.Validate(); err != nil {
		return nil, err
	}
	next.UpdatedAt = now
	s.records[repositoryID] = next
	return next.Clone(), nil
}

// ListSyncEnabled 按仓库 ID 升序返回
func (s *SettingsStore) ListSyncEnabled(_ context.Context) ([]*entity.RepositorySyncSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.RepositorySyncSettings, 0, len(s.records))
	for _, rec := range s.records {
		if rec.SyncEnabled {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RepositoryID < out[j].RepositoryID })
	return out, nil
}
