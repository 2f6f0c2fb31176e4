package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"np-blogger/internal/application/generation"
	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/logger"
	"np-blogger/pkg/metrics"
	"np-blogger/pkg/tracer"
)

// Config 调度参数
type Config struct {
	MinInterval       time.Duration
	JobTimeout        time.Duration
	AdapterTimeout    time.Duration
	Collection        string
	ContentCollection string
	LockPrefix        string
}

// DefaultConfig 默认调度参数
func DefaultConfig() Config {
	return Config{
		MinInterval:       time.Hour,
		JobTimeout:        5 * time.Minute,
		AdapterTimeout:    30 * time.Second,
		Collection:        entity.CollectionBlogPosts,
		ContentCollection: entity.CollectionBlogContents,
		LockPrefix:        "lock:sync",
	}
}

// Option 调度器选项
type Option func(*Scheduler)

// WithConfig 设置调度参数，零值字段保持默认
func WithConfig(cfg Config) Option {
	return func(s *Scheduler) {
		if cfg.MinInterval > 0 {
			s.cfg.MinInterval = cfg.MinInterval
		}
		if cfg.JobTimeout > 0 {
			s.cfg.JobTimeout = cfg.JobTimeout
		}
		if cfg.AdapterTimeout > 0 {
			s.cfg.AdapterTimeout = cfg.AdapterTimeout
		}
		if cfg.Collection != "" {
			s.cfg.Collection = cfg.Collection
		}
		if cfg.ContentCollection != "" {
			s.cfg.ContentCollection = cfg.ContentCollection
		}
		if cfg.LockPrefix != "" {
			s.cfg.LockPrefix = cfg.LockPrefix
		}
	}
}

// WithBlogPosts 持久化生成的文章记录
func WithBlogPosts(repo repository.BlogPostRepository) Option {
	return func(s *Scheduler) { s.posts = repo }
}

// WithArchiver 发布成功后将内容写入内容集合
func WithArchiver(a Archiver) Option {
	return func(s *Scheduler) { s.archiver = a }
}

// WithClock 替换时钟
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// Scheduler 同步调度器
type Scheduler struct {
	settings  repository.SettingsStore
	source    ContentSource
	generator Generator
	locker    Locker
	adapters  map[string]PublishingAdapter
	posts     repository.BlogPostRepository
	archiver  Archiver
	cfg       Config
	now       func() time.Time
}

var _ Trigger = (*Scheduler)(nil)

// NewScheduler 创建调度器
func NewScheduler(
	settings repository.SettingsStore,
	source ContentSource,
	generator Generator,
	locker Locker,
	adapters []PublishingAdapter,
	opts ...Option,
) *Scheduler {
	s := &Scheduler{
		settings:  settings,
		source:    source,
		generator: generator,
		locker:    locker,
		adapters:  make(map[string]PublishingAdapter, len(adapters)),
		cfg:       DefaultConfig(),
		now:       time.Now,
	}
	for _, a := range adapters {
		s.adapters[a.Platform()] = a
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MinInterval 两次定时同步的最小间隔
func (s *Scheduler) MinInterval() time.Duration {
	return s.cfg.MinInterval
}

// Eligible 定时模式下的资格判断
func (s *Scheduler) Eligible(settings *entity.RepositorySyncSettings, now time.Time) bool {
	return checkEligible(settings, entity.TriggerScheduled, now, s.cfg.MinInterval) == nil
}

func checkEligible(settings *entity.RepositorySyncSettings, mode entity.TriggerMode, now time.Time, minInterval time.Duration) error {
	if settings == nil {
		return apperrors.ErrSyncNotEligible.WithDetail("no settings recorded for repository")
	}
	if !settings.SyncEnabled {
		return apperrors.ErrSyncNotEligible.WithDetail("sync is disabled")
	}
	if mode == entity.TriggerManual {
		return nil
	}
	if !settings.AutoGenerate {
		return apperrors.ErrSyncNotEligible.WithDetail("auto generate is disabled")
	}
	if next := settings.NextEligibleAt(minInterval); now.Before(next) {
		return apperrors.ErrSyncNotEligible.WithDetail("next eligible at " + next.UTC().Format(time.RFC3339))
	}
	return nil
}

// TriggerSync 执行一次同步。
// 不满足条件返回 ErrSyncNotEligible，同仓库已有任务运行时立即返回 ErrSyncAlreadyInProgress；
// 实际执行过的同步总是返回结果，失败体现在 Status 中。
func (s *Scheduler) TriggerSync(ctx context.Context, repositoryID int64, mode entity.TriggerMode) (outcome *entity.SyncOutcome, err error) {
	if !mode.Valid() {
		return nil, apperrors.ErrInvalidParam.WithDetail("unknown trigger mode " + string(mode))
	}
	ctx = logger.WithContext(ctx, logger.RepositoryIDKey, repositoryID)

	settings, err := s.eligibleSettings(ctx, repositoryID, mode)
	if err != nil {
		return nil, err
	}

	release, err := s.locker.TryLock(ctx, s.lockKey(repositoryID))
	if err != nil {
		s.reject(ctx, mode, err)
		return nil, err
	}
	defer release()

	// 持锁后重新读取，避免前一任务刚结束时基于旧的 lastSyncTime 重复执行
	settings, err = s.eligibleSettings(ctx, repositoryID, mode)
	if err != nil {
		return nil, err
	}

	jobID := uuid.NewString()
	ctx = logger.WithContext(ctx, logger.JobIDKey, jobID)
	ctx, span := tracer.Start(ctx, "scheduler.TriggerSync")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("repository.id", repositoryID),
		attribute.String("sync.mode", string(mode)),
	)

	outcome = &entity.SyncOutcome{
		RepositoryID: repositoryID,
		JobID:        jobID,
		Mode:         mode,
		Results:      []entity.PublishResult{},
		Warnings:     []string{},
		StartedAt:    s.now(),
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "sync run panicked", fmt.Errorf("%v", r), "stack", string(debug.Stack()))
			outcome.Status = entity.SyncFailed
			outcome.Reason = "internal error"
			s.finish(ctx, outcome, nil)
			err = nil
		}
		span.SetAttributes(attribute.String("sync.status", string(outcome.Status)))
	}()

	content := s.run(ctx, settings, outcome)
	s.finish(ctx, outcome, content)
	return outcome, nil
}

func (s *Scheduler) eligibleSettings(ctx context.Context, repositoryID int64, mode entity.TriggerMode) (*entity.RepositorySyncSettings, error) {
	settings, err := s.settings.Get(ctx, repositoryID)
	if err != nil {
		return nil, err
	}
	if err := checkEligible(settings, mode, s.now(), s.cfg.MinInterval); err != nil {
		s.reject(ctx, mode, err)
		return nil, err
	}
	return settings, nil
}

func (s *Scheduler) reject(ctx context.Context, mode entity.TriggerMode, err error) {
	reason := "not_eligible"
	if errors.Is(err, apperrors.ErrSyncAlreadyInProgress) {
		reason = "in_progress"
	}
	metrics.SyncRejectedTotal.WithLabelValues(string(mode), reason).Inc()
	logger.Info(ctx, "sync trigger rejected", "mode", string(mode), "reason", err.Error())
}

// run 拉取内容、生成并分发，返回生成的内容（未生成时为 nil）
func (s *Scheduler) run(ctx context.Context, settings *entity.RepositorySyncSettings, outcome *entity.SyncOutcome) *generated {
	jobCtx, cancel := context.WithTimeout(ctx, s.cfg.JobTimeout)
	defer cancel()

	src, err := s.source.Fetch(jobCtx, settings.RepositoryID)
	if err != nil {
		outcome.Status = entity.SyncFailed
		outcome.Reason = "content source: " + apperrors.AsAppError(err).Message
		logger.Error(ctx, "failed to fetch repository content", err)
		return nil
	}

	// 定时同步不重复处理同一提交；手动触发视为强制重新生成
	if outcome.Mode == entity.TriggerScheduled && settings.AlreadyProcessed(src.Ref) {
		outcome.Status = entity.SyncSkipped
		outcome.Reason = "no new commit since last sync"
		return nil
	}

	gen, err := s.generator.Generate(jobCtx, generation.GenerateRequest{
		RepositoryID: settings.RepositoryID,
		Topic:        src.Topic,
		Content:      src.Content,
		Collection:   s.cfg.Collection,
		RAG: entity.RAGOptions{
			Enabled:       settings.RAG.Enabled,
			MaxReferences: settings.RAG.MaxReferences,
		},
	})
	outcome.Generation = gen
	if gen != nil {
		outcome.Warnings = append(outcome.Warnings, gen.Warnings...)
	}
	if err != nil {
		outcome.Status = entity.SyncFailed
		outcome.Reason = "generation: " + failedReason(gen, err)
		return nil
	}

	post := &generated{
		jobID:    outcome.JobID,
		title:    src.Topic,
		slug:     entity.Slugify(src.Topic),
		content:  gen.Content,
		ref:      src.Ref,
		degraded: gen.Degraded,
	}

	platforms := settings.PlatformFlags.Enabled()
	if len(platforms) == 0 {
		outcome.Status = entity.SyncFailed
		outcome.Reason = "no publishing platform enabled"
		return post
	}

	outcome.Results = s.publishAll(jobCtx, platforms, &PublishRequest{
		RepositoryID: settings.RepositoryID,
		JobID:        outcome.JobID,
		Title:        post.title,
		Slug:         post.slug,
		Content:      post.content,
		SourceRef:    post.ref,
	})
	outcome.Status = entity.ClassifyPublishResults(outcome.Results)
	switch outcome.Status {
	case entity.SyncFailed:
		outcome.Reason = "all publishing platforms failed"
	case entity.SyncPartiallyFailed:
		outcome.Reason = "some publishing platforms failed"
	}
	return post
}

type generated struct {
	jobID    string
	title    string
	slug     string
	content  string
	ref      string
	degraded bool
}

// publishAll 并行分发，单个平台的失败或超时不影响其他平台
func (s *Scheduler) publishAll(ctx context.Context, platforms []string, req *PublishRequest) []entity.PublishResult {
	results := make([]entity.PublishResult, len(platforms))
	var g errgroup.Group
	for i, platform := range platforms {
		g.Go(func() error {
			results[i] = s.publishOne(ctx, platform, req)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) publishOne(ctx context.Context, platform string, req *PublishRequest) (result entity.PublishResult) {
	start := time.Now()
	ctx = logger.WithContext(ctx, logger.PlatformKey, platform)
	result = entity.PublishResult{Platform: platform}

	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, "publishing adapter panicked", fmt.Errorf("%v", r))
			result = entity.PublishResult{Platform: platform, ErrorDetail: "adapter panicked"}
		}
		result.DurationMs = time.Since(start).Milliseconds()
		metrics.PublishTotal.WithLabelValues(platform, strconv.FormatBool(result.Success)).Inc()
	}()

	adapter, ok := s.adapters[platform]
	if !ok {
		result.ErrorDetail = "no publishing adapter registered"
		logger.Warn(ctx, "platform enabled without adapter")
		return result
	}

	adapterCtx, cancel := context.WithTimeout(ctx, s.cfg.AdapterTimeout)
	defer cancel()

	res, err := adapter.Publish(adapterCtx, req)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(adapterCtx.Err(), context.DeadlineExceeded) {
			detail = "publish timed out"
		}
		result.ErrorDetail = detail
		logger.Warn(ctx, "publish failed", "error", detail)
		return result
	}
	if res != nil {
		result = *res
		result.Platform = platform
	}
	if !result.Success && result.ErrorDetail == "" {
		result.ErrorDetail = "platform reported failure"
	}
	return result
}

// finish 记录同步时间、文章与指标。lastSyncTime 是执行时间戳，不论成败都会更新。
func (s *Scheduler) finish(ctx context.Context, outcome *entity.SyncOutcome, post *generated) {
	now := s.now()
	outcome.FinishedAt = now
	outcome.NextEligibleAt = now.Add(s.cfg.MinInterval)

	// 使用独立上下文，任务超时后仍能记录执行时间
	recordCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	patch := entity.SettingsPatch{LastSyncTime: &now}
	// 仅在至少一个平台发布成功后记录提交，全部失败时下个周期重试
	if post != nil && post.ref != "" && len(outcome.Succeeded()) > 0 {
		patch.LastProcessedRef = &post.ref
	}
	if _, err := s.settings.Upsert(recordCtx, outcome.RepositoryID, patch); err != nil {
		outcome.Warnings = append(outcome.Warnings, "failed to record last sync time")
		logger.Error(ctx, "failed to record last sync time", err)
	}

	if post != nil {
		s.persistPost(recordCtx, outcome, post)
		if len(outcome.Succeeded()) > 0 && s.archiver != nil {
			if err := s.archiver.Archive(recordCtx, s.cfg.ContentCollection, post.content); err != nil {
				outcome.Warnings = append(outcome.Warnings, "failed to archive published content")
				logger.Warn(ctx, "failed to archive published content", "error", err.Error())
			}
		}
	}

	metrics.SyncRunsTotal.WithLabelValues(string(outcome.Mode), string(outcome.Status)).Inc()
	metrics.SyncRunDuration.WithLabelValues(string(outcome.Mode)).Observe(now.Sub(outcome.StartedAt).Seconds())
	logger.Info(ctx, "sync finished",
		"mode", string(outcome.Mode),
		"status", string(outcome.Status),
		"reason", outcome.Reason,
		"succeeded", outcome.Succeeded(),
		"failed", outcome.Failed(),
		"warnings", len(outcome.Warnings),
	)
}

func (s *Scheduler) persistPost(ctx context.Context, outcome *entity.SyncOutcome, post *generated) {
	if s.posts == nil {
		return
	}
	status := entity.BlogPostDraft
	if len(outcome.Succeeded()) > 0 {
		status = entity.BlogPostPublished
	}
	record := &entity.BlogPost{
		ID:           uuid.NewString(),
		RepositoryID: outcome.RepositoryID,
		JobID:        post.jobID,
		Title:        post.title,
		Slug:         post.slug,
		Content:      post.content,
		Status:       status,
		Degraded:     post.degraded,
	}
	if err := s.posts.Create(ctx, record); err != nil {
		outcome.Warnings = append(outcome.Warnings, "failed to persist blog post")
		logger.Error(ctx, "failed to persist blog post", err)
	}
}

func (s *Scheduler) lockKey(repositoryID int64) string {
	return s.cfg.LockPrefix + ":" + strconv.FormatInt(repositoryID, 10)
}

func failedReason(gen *entity.GenerationOutcome, err error) string {
	if gen != nil && gen.Reason != "" {
		return gen.Reason
	}
	return apperrors.AsAppError(err).Message
}
