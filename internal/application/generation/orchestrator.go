package generation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"np-blogger/internal/domain/entity"
	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/logger"
	"np-blogger/pkg/metrics"
	"np-blogger/pkg/tracer"
)

// Timeouts 各步骤的调用超时，0 表示仅受调用方上下文约束
type Timeouts struct {
	Embed    time.Duration
	Store    time.Duration
	Retrieve time.Duration
	Generate time.Duration
}

// GenerateRequest 生成请求
type GenerateRequest struct {
	RepositoryID int64
	Topic        string
	Content      string
	Collection   string
	RAG          entity.RAGOptions
}

// Option 编排器选项
type Option func(*Orchestrator)

// WithTimeouts 设置步骤超时
func WithTimeouts(t Timeouts) Option {
	return func(o *Orchestrator) { o.timeouts = t }
}

// WithProviderRetry 为嵌入与生成提供方增加有界指数退避重试。
// 向量存储调用不重试。
func WithProviderRetry(policy RetryPolicy) Option {
	return func(o *Orchestrator) {
		o.embedder = WithEmbeddingRetry(o.embedder, policy)
		o.generator = WithGenerationRetry(o.generator, policy)
	}
}

// WithIDGenerator 替换任务 ID 生成函数
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) { o.newID = fn }
}

// Orchestrator 嵌入 → 存储 → 检索 → 生成 流水线
type Orchestrator struct {
	embedder  EmbeddingProvider
	generator GenerationProvider
	retriever Retriever
	timeouts  Timeouts
	newID     func() string
}

// NewOrchestrator 创建编排器
func NewOrchestrator(embedder EmbeddingProvider, generator GenerationProvider, retriever Retriever, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		embedder:  embedder,
		generator: generator,
		retriever: retriever,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// run 单次任务的执行状态
type run struct {
	job         *entity.GenerationJob
	warnings    []string
	storeFailed bool
	degraded    bool
	references  []string
}

func (r *run) warn(ctx context.Context, step entity.JobState, msg string, err error) {
	w := string(step) + ": " + msg
	r.warnings = append(r.warnings, w)
	metrics.GenerationWarningsTotal.WithLabelValues(string(step)).Inc()
	logger.Warn(ctx, "generation step degraded",
		"step", string(step),
		"warning", msg,
		"error", errString(err),
	)
}

// Generate 执行一次生成任务。
// 失败时返回 State=Failed 的结果和带类型的错误，结果中不含任何部分内容。
func (o *Orchestrator) Generate(ctx context.Context, req GenerateRequest) (*entity.GenerationOutcome, error) {
	job := entity.NewGenerationJob(o.newID(), req.RepositoryID, req.Topic, req.Content, req.Collection, req.RAG)
	ctx = logger.WithContext(ctx, logger.JobIDKey, job.ID)
	if req.RepositoryID > 0 {
		ctx = logger.WithContext(ctx, logger.RepositoryIDKey, req.RepositoryID)
	}

	ctx, span := tracer.Start(ctx, "generation.Generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("collection", job.Collection),
		attribute.Bool("rag.enabled", job.RAG.Enabled),
	)

	r := &run{job: job}
	if err := o.validate(req); err != nil {
		return o.fail(ctx, r, entity.JobStatePending, err), err
	}

	if job.RAG.Enabled {
		// 正文为空时用主题作为检索查询，正文本身不入库
		query := job.SourceContent
		if strings.TrimSpace(query) == "" {
			query = job.Topic
		}
		vector, err := o.embed(ctx, r, query)
		if err != nil {
			tracer.RecordError(span, err)
			return o.fail(ctx, r, entity.JobStateEmbedding, err), err
		}
		o.store(ctx, r, vector)
		o.retrieve(ctx, r, vector)
	}

	content, err := o.generate(ctx, r)
	if err != nil {
		tracer.RecordError(span, err)
		return o.fail(ctx, r, entity.JobStateGenerating, err), err
	}

	job.Transition(entity.JobStateDone)
	outcome := &entity.GenerationOutcome{
		JobID:      job.ID,
		State:      entity.JobStateDone,
		Content:    content,
		Degraded:   r.degraded,
		Warnings:   warningsOrEmpty(r.warnings),
		References: len(r.references),
		States:     job.States,
	}
	metrics.GenerationJobsTotal.WithLabelValues(string(entity.JobStateDone), strconv.FormatBool(r.degraded)).Inc()
	span.SetAttributes(attribute.Bool("degraded", r.degraded), attribute.Int("references", len(r.references)))
	logger.Info(ctx, "generation completed",
		"degraded", r.degraded,
		"references", len(r.references),
		"warnings", len(r.warnings),
		"duration_ms", time.Since(job.StartedAt).Milliseconds(),
	)
	return outcome, nil
}

func (o *Orchestrator) validate(req GenerateRequest) error {
	if strings.TrimSpace(req.Topic) == "" {
		return apperrors.ErrInvalidParam.WithDetail("topic is required")
	}
	if req.RAG.MaxReferences < 0 {
		return apperrors.ErrSettingsInvalid.WithDetail("max_references must be >= 0")
	}
	if o.generator == nil {
		return apperrors.ErrGenerationProvider.WithDetail("generation provider not configured")
	}
	if req.RAG.Enabled && o.embedder == nil {
		return apperrors.ErrEmbeddingProvider.WithDetail("embedding provider not configured")
	}
	return nil
}

func (o *Orchestrator) embed(ctx context.Context, r *run, text string) ([]float32, error) {
	r.job.Transition(entity.JobStateEmbedding)
	start := time.Now()

	stepCtx, cancel := withTimeout(ctx, o.timeouts.Embed)
	defer cancel()

	vector, err := o.embedder.Embed(stepCtx, text)
	if err == nil && len(vector) == 0 {
		err = apperrors.ErrEmbeddingProvider.WithDetail("empty embedding returned")
	}
	observeStep(entity.JobStateEmbedding, start, err)
	if err != nil {
		return nil, providerError(stepCtx, err, apperrors.ErrEmbeddingProvider)
	}
	return vector, nil
}

// store 写入失败只记录告警
func (o *Orchestrator) store(ctx context.Context, r *run, vector []float32) {
	r.job.Transition(entity.JobStateStoring)
	start := time.Now()

	if strings.TrimSpace(r.job.SourceContent) == "" {
		r.storeFailed = true
		observeStep(entity.JobStateStoring, start, apperrors.ErrEmptyText)
		r.warn(ctx, entity.JobStateStoring, "source content is empty, embedding not stored", apperrors.ErrEmptyText)
		return
	}
	if o.retriever == nil {
		r.storeFailed = true
		observeStep(entity.JobStateStoring, start, apperrors.ErrStorageUnavailable)
		r.warn(ctx, entity.JobStateStoring, "vector store not configured", nil)
		return
	}

	stepCtx, cancel := withTimeout(ctx, o.timeouts.Store)
	defer cancel()

	_, err := o.retriever.StoreEmbedding(stepCtx, r.job.Collection, r.job.SourceContent, vector)
	observeStep(entity.JobStateStoring, start, err)
	if err == nil {
		return
	}
	r.storeFailed = true
	if errors.Is(err, apperrors.ErrEmptyText) {
		r.warn(ctx, entity.JobStateStoring, "source content is empty, embedding not stored", err)
		return
	}
	r.warn(ctx, entity.JobStateStoring, "failed to store embedding", err)
}

// retrieve 检索失败返回空参考集并标记降级
func (o *Orchestrator) retrieve(ctx context.Context, r *run, vector []float32) {
	r.job.Transition(entity.JobStateRetrieving)
	start := time.Now()

	var (
		refs []string
		err  error
	)
	if o.retriever == nil {
		err = apperrors.ErrStorageUnavailable.WithDetail("vector store not configured")
	} else {
		stepCtx, cancel := withTimeout(ctx, o.timeouts.Retrieve)
		refs, err = o.retriever.SearchSimilar(stepCtx, r.job.Collection, vector, r.job.RAG.MaxReferences)
		cancel()
	}
	observeStep(entity.JobStateRetrieving, start, err)

	if err != nil {
		r.references = []string{}
		r.degraded = true
		r.warn(ctx, entity.JobStateRetrieving, "retrieval failed, generating without references", err)
		return
	}
	r.references = refs
	if r.storeFailed && len(refs) == 0 {
		r.degraded = true
	}
}

func (o *Orchestrator) generate(ctx context.Context, r *run) (string, error) {
	r.job.Transition(entity.JobStateGenerating)
	start := time.Now()

	stepCtx, cancel := withTimeout(ctx, o.timeouts.Generate)
	defer cancel()

	refs := r.references
	if refs == nil {
		refs = []string{}
	}
	content, err := o.generator.Generate(stepCtx, r.job.Topic, refs)
	if err == nil && strings.TrimSpace(content) == "" {
		err = apperrors.ErrGenerationProvider.WithDetail("empty content returned")
	}
	observeStep(entity.JobStateGenerating, start, err)
	if err != nil {
		return "", providerError(stepCtx, err, apperrors.ErrGenerationProvider)
	}
	return content, nil
}

func (o *Orchestrator) fail(ctx context.Context, r *run, step entity.JobState, err error) *entity.GenerationOutcome {
	r.job.Transition(entity.JobStateFailed)
	reason := failureReason(err)
	metrics.GenerationJobsTotal.WithLabelValues(string(entity.JobStateFailed), "false").Inc()
	logger.Error(ctx, "generation failed", err,
		"failed_step", string(step),
		"reason", reason,
	)
	return &entity.GenerationOutcome{
		JobID:      r.job.ID,
		State:      entity.JobStateFailed,
		Degraded:   false,
		Warnings:   warningsOrEmpty(r.warnings),
		FailedStep: step,
		Reason:     reason,
		States:     r.job.States,
	}
}

// providerError 将提供方错误归类：超时优先，输入类错误原样返回，其余归为对应提供方错误
func providerError(ctx context.Context, err error, template *apperrors.AppError) error {
	if errors.Is(err, apperrors.ErrTimeout) || isInputError(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.ErrTimeout.WithError(err)
	}
	if errors.Is(err, template) {
		return err
	}
	return template.WithError(err)
}

// failureReason 面向用户的失败原因，不包含底层错误细节
func failureReason(err error) string {
	appErr := apperrors.AsAppError(err)
	if appErr.Code == apperrors.CodeInvalidParam || appErr.Code == apperrors.CodeSettingsInvalid {
		if appErr.Detail != "" {
			return appErr.Detail
		}
	}
	return appErr.Message
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func observeStep(step entity.JobState, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.GenerationStepDuration.WithLabelValues(string(step), status).Observe(time.Since(start).Seconds())
}

func warningsOrEmpty(w []string) []string {
	if w == nil {
		return []string{}
	}
	return w
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
