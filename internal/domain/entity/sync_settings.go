// Package entity 定义领域实体
package entity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"time"

	apperrors "np-blogger/pkg/errors"
)

// 默认发布平台
const (
	PlatformJuejin = "juejin"
	PlatformCSDN   = "csdn"
	PlatformZhihu  = "zhihu"
)

// DefaultMaxReferences 默认检索参考数量
const DefaultMaxReferences = 5

var platformNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// PlatformFlags 平台开关集合，以 JSONB 存储
type PlatformFlags map[string]bool

// Value 实现 driver.Valuer
func (p PlatformFlags) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]bool(p))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner
func (p *PlatformFlags) Scan(value any) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*p = PlatformFlags{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("platform flags: unsupported scan type %T", value)
	}
	m := map[string]bool{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("platform flags: %w", err)
	}
	*p = m
	return nil
}

// Enabled 返回开启的平台（排序后）
func (p PlatformFlags) Enabled() []string {
	out := make([]string, 0, len(p))
	for name, on := range p {
		if on {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// RAGSettings 检索增强配置
type RAGSettings struct {
	Enabled       bool `json:"enabled" gorm:"column:rag_enabled;not null"`
	MaxReferences int  `json:"max_references" gorm:"column:rag_max_references;not null"`
}

// RepositorySyncSettings 仓库同步设置，每个仓库一条记录
type RepositorySyncSettings struct {
	RepositoryID  int64         `json:"repository_id" gorm:"primaryKey;autoIncrement:false"`
	SyncEnabled   bool          `json:"sync_enabled" gorm:"not null;index"`
	AutoGenerate  bool          `json:"auto_generate" gorm:"not null"`
	PlatformFlags PlatformFlags `json:"platform_settings" gorm:"type:jsonb;not null"`
	RAG           RAGSettings   `json:"rag_settings" gorm:"embedded"`
	LastSyncTime  *time.Time    `json:"last_sync_time,omitempty"`
	// LastProcessedRef 最近一次成功发布所基于的提交
	LastProcessedRef string    `json:"last_processed_ref,omitempty" gorm:"size:64;not null;default:''"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName 表名
func (RepositorySyncSettings) TableName() string {
	return "repository_sync_settings"
}

// DefaultSyncSettings 仓库首次写入设置时的默认值
func DefaultSyncSettings(repositoryID int64) *RepositorySyncSettings {
	return &RepositorySyncSettings{
		RepositoryID: repositoryID,
		PlatformFlags: PlatformFlags{
			PlatformJuejin: false,
			PlatformCSDN:   false,
			PlatformZhihu:  false,
		},
		RAG: RAGSettings{Enabled: false, MaxReferences: DefaultMaxReferences},
	}
}

// SettingsPatch 部分更新，nil 字段保持不变
type SettingsPatch struct {
	SyncEnabled      *bool           `json:"sync_enabled,omitempty"`
	AutoGenerate     *bool           `json:"auto_generate,omitempty"`
	PlatformFlags    map[string]bool `json:"platform_settings,omitempty"`
	RAGEnabled       *bool           `json:"rag_enabled,omitempty"`
	MaxReferences    *int            `json:"max_references,omitempty"`
	LastSyncTime     *time.Time      `json:"last_sync_time,omitempty"`
	LastProcessedRef *string         `json:"last_processed_ref,omitempty"`
}

// Apply 将补丁合并到设置中，平台开关按键合并
func (s *RepositorySyncSettings) Apply(p SettingsPatch) {
	if p.SyncEnabled != nil {
		s.SyncEnabled = *p.SyncEnabled
	}
	if p.AutoGenerate != nil {
		s.AutoGenerate = *p.AutoGenerate
	}
	if len(p.PlatformFlags) > 0 {
		if s.PlatformFlags == nil {
			s.PlatformFlags = PlatformFlags{}
		}
		for name, on := range p.PlatformFlags {
			s.PlatformFlags[name] = on
		}
	}
	if p.RAGEnabled != nil {
		s.RAG.Enabled = *p.RAGEnabled
	}
	if p.MaxReferences != nil {
		s.RAG.MaxReferences = *p.MaxReferences
	}
	if p.LastSyncTime != nil {
		t := *p.LastSyncTime
		s.LastSyncTime = &t
	}
	if p.LastProcessedRef != nil {
		s.LastProcessedRef = *p.LastProcessedRef
	}
}

// AlreadyProcessed ref 是否已在之前的同步中发布过
func (s *RepositorySyncSettings) AlreadyProcessed(ref string) bool {
	return ref != "" && ref == s.LastProcessedRef
}

// Validate 写入边界校验。autoGenerate 依赖 syncEnabled，组合无效时拒绝写入。
func (s *RepositorySyncSettings) Validate() error {
	if s.RepositoryID <= 0 {
		return apperrors.ErrSettingsInvalid.WithDetail("repository id must be positive")
	}
	if s.RAG.MaxReferences < 0 {
		return apperrors.ErrSettingsInvalid.WithDetail("max_references must be >= 0")
	}
	if s.AutoGenerate && !s.SyncEnabled {
		return apperrors.ErrSettingsInvalid.WithDetail("auto_generate requires sync_enabled")
	}
	for name := range s.PlatformFlags {
		if !platformNamePattern.MatchString(name) {
			return apperrors.ErrSettingsInvalid.WithDetail(fmt.Sprintf("invalid platform name %q", name))
		}
	}
	return nil
}

// Clone 深拷贝
func (s *RepositorySyncSettings) Clone() *RepositorySyncSettings {
	c := *s
	if s.PlatformFlags != nil {
		c.PlatformFlags = make(PlatformFlags, len(s.PlatformFlags))
		for k, v := range s.PlatformFlags {
			c.PlatformFlags[k] = v
		}
	}
	if s.LastSyncTime != nil {
		t := *s.LastSyncTime
		c.LastSyncTime = &t
	}
	return &c
}

// NextEligibleAt 下一次定时同步可执行时间；从未同步过返回零值
func (s *RepositorySyncSettings) NextEligibleAt(minInterval time.Duration) time.Time {
	if s.LastSyncTime == nil {
		return time.Time{}
	}
	return s.LastSyncTime.Add(minInterval)
}
