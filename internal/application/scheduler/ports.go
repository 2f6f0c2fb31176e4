// Package scheduler 实现按仓库的同步调度：资格判断、互斥、生成、多平台分发
package scheduler

import (
	"context"

	"np-blogger/internal/application/generation"
	"np-blogger/internal/domain/entity"
)

// SourceContent 仓库内容
type SourceContent struct {
	Topic   string
	Content string
	// Ref 内容来源标识，例如提交 SHA
	Ref string
}

// ContentSource 拉取仓库内容
type ContentSource interface {
	Fetch(ctx context.Context, repositoryID int64) (*SourceContent, error)
}

// PublishRequest 发布请求
type PublishRequest struct {
	RepositoryID int64
	JobID        string
	Title        string
	Slug         string
	Content      string
	SourceRef    string
}

// PublishingAdapter 单个平台的发布能力
type PublishingAdapter interface {
	Platform() string
	Publish(ctx context.Context, req *PublishRequest) (*entity.PublishResult, error)
}

// Generator 生成编排能力，由 generation.Orchestrator 实现
type Generator interface {
	Generate(ctx context.Context, req generation.GenerateRequest) (*entity.GenerationOutcome, error)
}

// Archiver 将已发布内容写入向量集合
type Archiver interface {
	Archive(ctx context.Context, collection, content string) error
}

// Locker 按键的非阻塞互斥锁。
// 锁被占用时返回 ErrSyncAlreadyInProgress，release 可重复调用。
type Locker interface {
	TryLock(ctx context.Context, key string) (release func(), err error)
}

// Trigger 触发一次同步
type Trigger interface {
	TriggerSync(ctx context.Context, repositoryID int64, mode entity.TriggerMode) (*entity.SyncOutcome, error)
}

// Dispatcher 将定时任务分发给执行方
type Dispatcher interface {
	Dispatch(ctx context.Context, repositoryIDs []int64) error
}
