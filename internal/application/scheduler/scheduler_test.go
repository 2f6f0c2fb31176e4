package scheduler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"np-blogger/internal/application/generation"
	"np-blogger/internal/application/retrieval"
	"np-blogger/internal/domain/entity"
	"np-blogger/internal/domain/repository"
	"np-blogger/internal/infrastructure/persistence/memory"
	apperrors "np-blogger/pkg/errors"
)

type staticSource struct {
	topic   string
	content string
	err     error
}

func (s staticSource) Fetch(context.Context, int64) (*SourceContent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &SourceContent{Topic: s.topic, Content: s.content, Ref: "abc123"}, nil
}

type recordingAdapter struct {
	platform string
	fail     bool
	delay    time.Duration
	calls    atomic.Int32
	mu       sync.Mutex
	last     *PublishRequest
}

func (a *recordingAdapter) Platform() string { return a.platform }

func (a *recordingAdapter) Publish(ctx context.Context, req *PublishRequest) (*entity.PublishResult, error) {
	a.calls.Add(1)
	a.mu.Lock()
	a.last = req
	a.mu.Unlock()
	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.fail {
		return nil, errors.New(a.platform + " rejected the post")
	}
	return &entity.PublishResult{Platform: a.platform, Success: true, ExternalPostID: a.platform + "-1"}, nil
}

type fixture struct {
	settings *memory.SettingsStore
	vectors  *memory.VectorStore
	posts    *memory.BlogPostRepository
	orch     *generation.Orchestrator
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	vectors := memory.NewVectorStore()
	embedder := generation.EmbeddingFunc(func(_ context.Context, text string) ([]float32, error) {
		if strings.Contains(text, "Hello") {
			return []float32{1, 0, 0}, nil
		}
		return []float32{0.9, 0.1, 0}, nil
	})
	gen := generation.GenerationFunc(func(_ context.Context, topic string, refs []string) (string, error) {
		return "# " + topic + "\n\n参考：" + strings.Join(refs, " | "), nil
	})
	return &fixture{
		settings: memory.NewSettingsStore(),
		vectors:  vectors,
		posts:    memory.NewBlogPostRepository(),
		orch:     generation.NewOrchestrator(embedder, gen, retrieval.NewEngine(vectors)),
		now:      time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (f *fixture) scheduler(gen Generator, adapters ...PublishingAdapter) *Scheduler {
	if gen == nil {
		gen = f.orch
	}
	return NewScheduler(
		f.settings,
		staticSource{topic: "intro", content: "Hello World"},
		gen,
		NewMemoryLocker(),
		adapters,
		WithBlogPosts(f.posts),
		WithArchiver(f.orch),
		WithClock(func() time.Time { return f.now }),
		WithConfig(Config{AdapterTimeout: 200 * time.Millisecond}),
	)
}

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func (f *fixture) enable(t *testing.T, id int64, flags map[string]bool) {
	t.Helper()
	_, err := f.settings.Upsert(context.Background(), id, entity.SettingsPatch{
		SyncEnabled:   boolPtr(true),
		AutoGenerate:  boolPtr(true),
		PlatformFlags: flags,
		RAGEnabled:    boolPtr(true),
		MaxReferences: intPtr(5),
	})
	require.NoError(t, err)
}

func TestTriggerSyncPublishesToEnabledPlatform(t *testing.T) {
	f := newFixture(t)
	f.enable(t, 42, map[string]bool{"juejin": true, "csdn": false})
	_, err := f.vectors.Store(context.Background(), entity.CollectionBlogPosts, "An earlier greeting post", []float32{1, 0.05, 0})
	require.NoError(t, err)

	juejin := &recordingAdapter{platform: "juejin"}
	csdn := &recordingAdapter{platform: "csdn"}
	s := f.scheduler(nil, juejin, csdn)

	out, err := s.TriggerSync(context.Background(), 42, entity.TriggerScheduled)
	require.NoError(t, err)

	assert.Equal(t, entity.SyncSucceeded, out.Status)
	require.Len(t, out.Results, 1)
	assert.Equal(t, "juejin", out.Results[0].Platform)
	assert.True(t, out.Results[0].Success)
	assert.Equal(t, "juejin-1", out.Results[0].ExternalPostID)
	assert.Equal(t, int32(0), csdn.calls.Load())

	require.NotNil(t, out.Generation)
	assert.Contains(t, out.Generation.Content, "An earlier greeting post")
	assert.Contains(t, juejin.last.Content, "An earlier greeting post")
	assert.Equal(t, "intro", juejin.last.Slug)

	rec, err := f.settings.Get(context.Background(), 42)
	require.NoError(t, err)
	require.NotNil(t, rec.LastSyncTime)
	assert.True(t, rec.LastSyncTime.Equal(f.now))
	assert.Equal(t, f.now.Add(time.Hour), out.NextEligibleAt)

	page, err := f.posts.ListByRepository(context.Background(), 42, repository.NewPagination(1, 10))
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, entity.BlogPostPublished, page.Items[0].Status)
	assert.Equal(t, 1, f.vectors.Count(entity.CollectionBlogContents))
}

func TestTriggerSyncNoPlatformsIsFailed(t *testing.T) {
	f := newFixture(t)
	f.enable(t, 1, map[string]bool{"juejin": false, "csdn": false, "zhihu": false})
	s := f.scheduler(nil, &recordingAdapter{platform: "juejin"})

	out, err := s.TriggerSync(context.Background(), 1, entity.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncFailed, out.Status)
	assert.True(t, out.Generation.Succeeded())
	assert.Empty(t, out.Results)

	rec, _ := f.settings.Get(context.Background(), 1)
	assert.NotNil(t, rec.LastSyncTime)

	page, _ := f.posts.ListByRepository(context.Background(), 1, repository.NewPagination(1, 10))
	require.Len(t, page.Items, 1)
	assert.Equal(t, entity.BlogPostDraft, page.Items[0].Status)
	assert.Equal(t, 0, f.vectors.Count(entity.CollectionBlogContents))
}

func TestTriggerSyncPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.enable(t, 5, map[string]bool{"juejin": true, "csdn": true, "zhihu": true})
	s := f.scheduler(nil,
		&recordingAdapter{platform: "juejin"},
		&recordingAdapter{platform: "csdn", fail: true},
	)

	out, err := s.TriggerSync(context.Background(), 5, entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncPartiallyFailed, out.Status)
	assert.Equal(t, []string{"juejin"}, out.Succeeded())
	assert.ElementsMatch(t, []string{"csdn", "zhihu"}, out.Failed())

	for _, r := range out.Results {
		switch r.Platform {
		case "csdn":
			assert.Contains(t, r.ErrorDetail, "rejected")
		case "zhihu":
			assert.Equal(t, "no publishing adapter registered", r.ErrorDetail)
		}
	}
}

func TestSlowAdapterDoesNotBlockSiblings(t *testing.T) {
	f := newFixture(t)
	f.enable(t, 6, map[string]bool{"juejin": true, "csdn": true})
	slow := &recordingAdapter{platform: "csdn", delay: 5 * time.Second}
	s := f.scheduler(nil, &recordingAdapter{platform: "juejin"}, slow)

	start := time.Now()
	out, err := s.TriggerSync(context.Background(), 6, entity.TriggerManual)
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.Equal(t, entity.SyncPartiallyFailed, out.Status)
	for _, r := range out.Results {
		if r.Platform == "csdn" {
			assert.Equal(t, "publish timed out", r.ErrorDetail)
		}
	}
}

func TestTriggerSyncGenerationFailure(t *testing.T) {
	f := newFixture(t)
	f.enable(t, 3, map[string]bool{"juejin": true})
	failing := generation.NewOrchestrator(nil, generation.GenerationFunc(func(context.Context, string, []string) (string, error) {
		return "", errors.New("model overloaded")
	}), nil)
	juejin := &recordingAdapter{platform: "juejin"}

	_, err := f.settings.Upsert(context.Background(), 3, entity.SettingsPatch{RAGEnabled: boolPtr(false)})
	require.NoError(t, err)

	out, err := f.scheduler(failing, juejin).TriggerSync(context.Background(), 3, entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncFailed, out.Status)
	assert.Contains(t, out.Reason, "generation")
	assert.NotContains(t, out.Reason, "overloaded")
	assert.Equal(t, int32(0), juejin.calls.Load())

	rec, _ := f.settings.Get(context.Background(), 3)
	assert.NotNil(t, rec.LastSyncTime)
}

func TestTriggerSyncContentSourceFailure(t *testing.T) {
	f := newFixture(t)
	f.enable(t, 4, map[string]bool{"juejin": true})
	s := NewScheduler(f.settings, staticSource{err: apperrors.ErrContentSource}, f.orch, NewMemoryLocker(), nil)

	out, err := s.TriggerSync(context.Background(), 4, entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncFailed, out.Status)
	assert.Contains(t, out.Reason, "content source")
}

func TestEligibility(t *testing.T) {
	ctx := context.Background()

	t.Run("missing settings", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.scheduler(nil).TriggerSync(ctx, 99, entity.TriggerManual)
		assert.True(t, errors.Is(err, apperrors.ErrSyncNotEligible))
		rec, _ := f.settings.Get(ctx, 99)
		assert.Nil(t, rec)
	})

	t.Run("sync disabled rejects manual", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.settings.Upsert(ctx, 1, entity.SettingsPatch{RAGEnabled: boolPtr(true)})
		require.NoError(t, err)
		_, err = f.scheduler(nil).TriggerSync(ctx, 1, entity.TriggerManual)
		assert.True(t, errors.Is(err, apperrors.ErrSyncNotEligible))
	})

	t.Run("manual bypasses auto generate", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.settings.Upsert(ctx, 1, entity.SettingsPatch{
			SyncEnabled:   boolPtr(true),
			PlatformFlags: map[string]bool{"juejin": true},
		})
		require.NoError(t, err)
		s := f.scheduler(nil, &recordingAdapter{platform: "juejin"})

		_, err = s.TriggerSync(ctx, 1, entity.TriggerScheduled)
		assert.True(t, errors.Is(err, apperrors.ErrSyncNotEligible))

		out, err := s.TriggerSync(ctx, 1, entity.TriggerManual)
		require.NoError(t, err)
		assert.Equal(t, entity.SyncSucceeded, out.Status)
	})

	t.Run("scheduled respects min interval", func(t *testing.T) {
		f := newFixture(t)
		f.enable(t, 1, map[string]bool{"juejin": true})
		s := f.scheduler(nil, &recordingAdapter{platform: "juejin"})

		_, err := s.TriggerSync(ctx, 1, entity.TriggerScheduled)
		require.NoError(t, err)

		f.now = f.now.Add(30 * time.Minute)
		_, err = s.TriggerSync(ctx, 1, entity.TriggerScheduled)
		assert.True(t, errors.Is(err, apperrors.ErrSyncNotEligible))

		_, err = s.TriggerSync(ctx, 1, entity.TriggerManual)
		assert.NoError(t, err)

		f.now = f.now.Add(2 * time.Hour)
		_, err = s.TriggerSync(ctx, 1, entity.TriggerScheduled)
		assert.NoError(t, err)
	})

	t.Run("invalid mode", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.scheduler(nil).TriggerSync(ctx, 1, entity.TriggerMode("hourly"))
		assert.True(t, errors.Is(err, apperrors.ErrInvalidParam))
	})
}

// blockingGenerator 阻塞直到 release 关闭
type blockingGenerator struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *blockingGenerator) Generate(ctx context.Context, _ generation.GenerateRequest) (*entity.GenerationOutcome, error) {
	g.once.Do(func() { close(g.started) })
	select {
	case <-g.release:
	case <-ctx.Done():
	}
	return &entity.GenerationOutcome{State: entity.JobStateDone, Content: "done"}, nil
}

func TestConcurrentTriggersAreMutuallyExclusive(t *testing.T) {
	f := newFixture(t)
	f.enable(t, 8, map[string]bool{"juejin": true})
	gen := &blockingGenerator{started: make(chan struct{}), release: make(chan struct{})}
	s := f.scheduler(gen, &recordingAdapter{platform: "juejin"})

	first := make(chan error, 1)
	go func() {
		_, err := s.TriggerSync(context.Background(), 8, entity.TriggerScheduled)
		first <- err
	}()
	<-gen.started

	start := time.Now()
	_, err := s.TriggerSync(context.Background(), 8, entity.TriggerManual)
	assert.True(t, errors.Is(err, apperrors.ErrSyncAlreadyInProgress))
	assert.Equal(t, apperrors.KindConcurrency, apperrors.KindOf(err))
	assert.Less(t, time.Since(start), time.Second)

	close(gen.release)
	require.NoError(t, <-first)

	// 锁已释放
	_, err = s.TriggerSync(context.Background(), 8, entity.TriggerManual)
	assert.NoError(t, err)
}

type panickingGenerator struct{}

func (panickingGenerator) Generate(context.Context, generation.GenerateRequest) (*entity.GenerationOutcome, error) {
	panic("boom")
}

func TestPanicReleasesLock(t *testing.T) {
	f := newFixture(t)
	f.enable(t, 9, map[string]bool{"juejin": true})
	s := f.scheduler(panickingGenerator{}, &recordingAdapter{platform: "juejin"})

	out, err := s.TriggerSync(context.Background(), 9, entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncFailed, out.Status)

	rec, _ := f.settings.Get(context.Background(), 9)
	assert.NotNil(t, rec.LastSyncTime)

	out, err = s.TriggerSync(context.Background(), 9, entity.TriggerManual)
	require.NoError(t, err, "lock must be released after panic")
	assert.Equal(t, entity.SyncFailed, out.Status)
}

// refSource 可切换最新提交的内容来源
type refSource struct {
	mu  sync.Mutex
	ref string
}

func (s *refSource) set(ref string) {
	s.mu.Lock()
	s.ref = ref
	s.mu.Unlock()
}

func (s *refSource) Fetch(context.Context, int64) (*SourceContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &SourceContent{Topic: "release " + s.ref, Content: "Hello " + s.ref, Ref: s.ref}, nil
}

func TestScheduledSyncSkipsProcessedCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enable(t, 11, map[string]bool{"juejin": true})
	src := &refSource{ref: "c1"}
	juejin := &recordingAdapter{platform: "juejin"}
	s := NewScheduler(f.settings, src, f.orch, NewMemoryLocker(), []PublishingAdapter{juejin},
		WithClock(func() time.Time { return f.now }))

	out, err := s.TriggerSync(ctx, 11, entity.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSucceeded, out.Status)
	rec, _ := f.settings.Get(ctx, 11)
	assert.Equal(t, "c1", rec.LastProcessedRef)

	f.now = f.now.Add(2 * time.Hour)
	out, err = s.TriggerSync(ctx, 11, entity.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSkipped, out.Status)
	assert.Empty(t, out.Results)
	assert.Equal(t, int32(1), juejin.calls.Load())
	rec, _ = f.settings.Get(ctx, 11)
	assert.Equal(t, f.now, *rec.LastSyncTime)

	// 手动触发强制重新生成
	out, err = s.TriggerSync(ctx, 11, entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSucceeded, out.Status)
	assert.Equal(t, int32(2), juejin.calls.Load())

	src.set("c2")
	f.now = f.now.Add(2 * time.Hour)
	out, err = s.TriggerSync(ctx, 11, entity.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSucceeded, out.Status)
	assert.Equal(t, int32(3), juejin.calls.Load())
	rec, _ = f.settings.Get(ctx, 11)
	assert.Equal(t, "c2", rec.LastProcessedRef)
}

func TestFailedPublishDoesNotRecordCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.enable(t, 12, map[string]bool{"juejin": true})
	juejin := &recordingAdapter{platform: "juejin", fail: true}
	s := NewScheduler(f.settings, &refSource{ref: "c1"}, f.orch, NewMemoryLocker(), []PublishingAdapter{juejin},
		WithClock(func() time.Time { return f.now }))

	out, err := s.TriggerSync(ctx, 12, entity.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncFailed, out.Status)
	rec, _ := f.settings.Get(ctx, 12)
	assert.Empty(t, rec.LastProcessedRef)

	f.now = f.now.Add(2 * time.Hour)
	_, err = s.TriggerSync(ctx, 12, entity.TriggerScheduled)
	require.NoError(t, err)
	assert.Equal(t, int32(2), juejin.calls.Load())
}

type failingLastSync struct {
	*memory.SettingsStore
}

func (s failingLastSync) Upsert(ctx context.Context, id int64, p entity.SettingsPatch) (*entity.RepositorySyncSettings, error) {
	if p.LastSyncTime != nil {
		return nil, apperrors.ErrDatabase
	}
	return s.SettingsStore.Upsert(ctx, id, p)
}

func TestLastSyncTimeFailureIsWarning(t *testing.T) {
	f := newFixture(t)
	f.enable(t, 10, map[string]bool{"juejin": true})
	s := NewScheduler(failingLastSync{f.settings}, staticSource{topic: "t", content: "Hello"}, f.orch,
		NewMemoryLocker(), []PublishingAdapter{&recordingAdapter{platform: "juejin"}})

	out, err := s.TriggerSync(context.Background(), 10, entity.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, entity.SyncSucceeded, out.Status)
	assert.Contains(t, out.Warnings, "failed to record last sync time")
}

func TestMemoryLocker(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	release, err := l.TryLock(ctx, "a")
	require.NoError(t, err)

	_, err = l.TryLock(ctx, "a")
	assert.True(t, errors.Is(err, apperrors.ErrSyncAlreadyInProgress))

	other, err := l.TryLock(ctx, "b")
	require.NoError(t, err)
	other()

	release()
	release()
	again, err := l.TryLock(ctx, "a")
	require.NoError(t, err)
	again()
}

func TestMemoryLockerConcurrentAcquire(t *testing.T) {
	l := NewMemoryLocker()
	var acquired atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := l.TryLock(context.Background(), "repo"); err == nil {
				acquired.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()
	assert.Equal(t, int32(1), acquired.Load())
}

func TestMemoryLockerForgetsReleasedKeys(t *testing.T) {
	l := NewMemoryLocker()
	ctx := context.Background()

	for i := int64(1); i <= 100; i++ {
		release, err := l.TryLock(ctx, "lock:sync:"+strconv.FormatInt(i, 10))
		require.NoError(t, err)
		release()
	}
	assert.Equal(t, 0, l.Held())

	first, err := l.TryLock(ctx, "a")
	require.NoError(t, err)
	first()
	second, err := l.TryLock(ctx, "a")
	require.NoError(t, err)

	// 重复释放旧句柄不影响新的持有者
	first()
	_, err = l.TryLock(ctx, "a")
	assert.ErrorIs(t, err, apperrors.ErrSyncAlreadyInProgress)
	assert.Equal(t, 1, l.Held())
	second()
	assert.Equal(t, 0, l.Held())
}
