package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"np-blogger/internal/application/generation"
	"np-blogger/internal/domain/entity"
	"np-blogger/internal/infrastructure/persistence/memory"
	apperrors "np-blogger/pkg/errors"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGenerator struct {
	outcome *entity.GenerationOutcome
	err     error
	got     generation.GenerateRequest
}

func (s *stubGenerator) Generate(_ context.Context, req generation.GenerateRequest) (*entity.GenerationOutcome, error) {
	s.got = req
	return s.outcome, s.err
}

type stubTrigger struct {
	outcome *entity.SyncOutcome
	err     error
	mode    entity.TriggerMode
}

func (s *stubTrigger) TriggerSync(_ context.Context, repositoryID int64, mode entity.TriggerMode) (*entity.SyncOutcome, error) {
	s.mode = mode
	if s.err != nil {
		return nil, s.err
	}
	out := *s.outcome
	out.RepositoryID = repositoryID
	return &out, nil
}

type stubChecker struct{ err error }

func (s stubChecker) HealthCheck(context.Context) error { return s.err }

func do(t *testing.T, engine *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	}
	return w, decoded
}

func blogEngine(gen BlogGenerator) *gin.Engine {
	h := NewBlogHandler(gen, memory.NewBlogPostRepository(), 5)
	e := gin.New()
	e.POST("/v1/blog/generate", h.Generate)
	e.GET("/v1/blog/repositories/:id/posts", h.ListPosts)
	return e
}

func TestGenerateSuccess(t *testing.T) {
	gen := &stubGenerator{outcome: &entity.GenerationOutcome{
		JobID:    "job-1",
		State:    entity.JobStateDone,
		Content:  "# Raft",
		Degraded: true,
		Warnings: []string{"retrieve: vector storage unavailable"},
	}}
	w, body := do(t, blogEngine(gen), http.MethodPost, "/v1/blog/generate",
		`{"topic":"raft","content":"notes","rag_options":{"enabled":true}}`)

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "# Raft", data["content"])
	assert.Equal(t, true, data["degraded"])
	assert.Len(t, data["warnings"], 1)

	assert.Equal(t, "raft", gen.got.Topic)
	assert.True(t, gen.got.RAG.Enabled)
	assert.Equal(t, 5, gen.got.RAG.MaxReferences)
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		err        error
		outcome    *entity.GenerationOutcome
		wantStatus int
		wantStep   string
	}{
		{
			name:       "missing topic",
			body:       `{"content":"x"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name: "embedding provider",
			body: `{"topic":"t"}`,
			err:  apperrors.ErrEmbeddingProvider.WithError(errors.New("dial tcp: refused")),
			outcome: &entity.GenerationOutcome{
				JobID: "job-2", State: entity.JobStateFailed,
				FailedStep: entity.JobStateEmbedding, Reason: "embedding provider failed",
			},
			wantStatus: http.StatusBadGateway,
			wantStep:   "embedding",
		},
		{
			name: "generation timeout",
			body: `{"topic":"t"}`,
			err:  apperrors.ErrTimeout,
			outcome: &entity.GenerationOutcome{
				JobID: "job-3", State: entity.JobStateFailed,
				FailedStep: entity.JobStateGenerating, Reason: "operation timed out",
			},
			wantStatus: http.StatusGatewayTimeout,
			wantStep:   "generating",
		},
		{
			name:       "invalid rag options",
			body:       `{"topic":"t"}`,
			err:        apperrors.ErrInvalidParam.WithDetail("max_references must be >= 0"),
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{outcome: tt.outcome, err: tt.err}
			w, body := do(t, blogEngine(gen), http.MethodPost, "/v1/blog/generate", tt.body)

			require.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStep == "" {
				assert.Nil(t, body["data"])
				return
			}
			data := body["data"].(map[string]any)
			assert.Equal(t, tt.wantStep, data["failed_step"])
			assert.NotContains(t, w.Body.String(), "dial tcp")
		})
	}
}

func TestListPosts(t *testing.T) {
	posts := memory.NewBlogPostRepository()
	for _, slug := range []string{"a", "b", "c"} {
		require.NoError(t, posts.Create(context.Background(), &entity.BlogPost{
			ID: slug, RepositoryID: 7, Slug: slug, Title: slug, Status: entity.BlogPostPublished,
		}))
	}
	h := NewBlogHandler(&stubGenerator{}, posts, 5)
	e := gin.New()
	e.GET("/v1/blog/repositories/:id/posts", h.ListPosts)

	w, body := do(t, e, http.MethodGet, "/v1/blog/repositories/7/posts?page=1&page_size=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["data"], 2)
	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 3, meta["total"])
	assert.EqualValues(t, 2, meta["total_pages"])

	w, _ = do(t, e, http.MethodGet, "/v1/blog/repositories/abc/posts", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func settingsEngine() *gin.Engine {
	h := NewSettingsHandler(memory.NewSettingsStore())
	e := gin.New()
	e.GET("/v1/settings/repositories/:id", h.Get)
	e.PUT("/v1/settings/repositories/:id", h.Update)
	return e
}

func TestSettingsDefaultsForUnknownRepository(t *testing.T) {
	w, body := do(t, settingsEngine(), http.MethodGet, "/v1/settings/repositories/42", "")

	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, false, data["persisted"])
	assert.Equal(t, false, data["sync_enabled"])
	assert.EqualValues(t, 42, data["repository_id"])
}

func TestSettingsPartialUpdate(t *testing.T) {
	e := settingsEngine()

	w, _ := do(t, e, http.MethodPut, "/v1/settings/repositories/42",
		`{"sync_enabled":true,"platform_settings":{"juejin":true}}`)
	require.Equal(t, http.StatusOK, w.Code)

	w, body := do(t, e, http.MethodPut, "/v1/settings/repositories/42", `{"auto_generate":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, true, data["sync_enabled"])
	assert.Equal(t, true, data["auto_generate"])
	assert.Equal(t, true, data["persisted"])
	platforms := data["platform_settings"].(map[string]any)
	assert.Equal(t, true, platforms["juejin"])
	assert.Equal(t, false, platforms["csdn"])
}

func TestSettingsInvalidUpdate(t *testing.T) {
	e := settingsEngine()

	w, body := do(t, e, http.MethodPut, "/v1/settings/repositories/9", `{"auto_generate":true}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(apperrors.CodeSettingsInvalid), body["error"].(map[string]any)["error_code"])

	w, _ = do(t, e, http.MethodPut, "/v1/settings/repositories/9", `{"sync_enabled":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = do(t, e, http.MethodGet, "/v1/settings/repositories/0", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSyncTrigger(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"success", nil, http.StatusOK},
		{"already running", apperrors.ErrSyncAlreadyInProgress, http.StatusConflict},
		{"not eligible", apperrors.ErrSyncNotEligible.WithDetail("sync disabled"), http.StatusPreconditionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trigger := &stubTrigger{
				outcome: &entity.SyncOutcome{Status: entity.SyncSucceeded},
				err:     tt.err,
			}
			h := NewSyncHandler(trigger)
			e := gin.New()
			e.POST("/v1/sync/repositories/:id", h.Trigger)

			w, body := do(t, e, http.MethodPost, "/v1/sync/repositories/3", "")
			require.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, entity.TriggerManual, trigger.mode)
			if tt.err == nil {
				data := body["data"].(map[string]any)
				assert.Equal(t, "succeeded", data["status"])
				assert.EqualValues(t, 3, data["repository_id"])
			}
		})
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name       string
		deps       []Dependency
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name: "all healthy",
			deps: []Dependency{
				{Name: "postgres", Checker: stubChecker{}, Required: true},
				{Name: "milvus"},
			},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok", "milvus": "disabled"},
		},
		{
			name: "optional dependency down",
			deps: []Dependency{
				{Name: "postgres", Checker: stubChecker{}, Required: true},
				{Name: "milvus", Checker: stubChecker{err: errors.New("unreachable")}},
			},
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{"postgres": "ok", "milvus": "degraded"},
		},
		{
			name: "required dependency down",
			deps: []Dependency{
				{Name: "redis", Checker: stubChecker{err: errors.New("refused")}, Required: true},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{"redis": "error"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthHandler("v1.0.0", tt.deps...)
			e := gin.New()
			e.GET("/ready", h.Ready)

			w, body := do(t, e, http.MethodGet, "/ready", "")
			require.Equal(t, tt.wantStatus, w.Code)
			checks := body["checks"].(map[string]any)
			for name, status := range tt.wantChecks {
				assert.Equal(t, status, checks[name].(map[string]any)["status"], name)
			}
		})
	}
}
