package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "np-blogger/pkg/errors"
)

func boolPtr(b bool) *bool { return &b }
func intPtr(i int) *int    { return &i }

func TestDefaultSyncSettings(t *testing.T) {
	s := DefaultSyncSettings(7)

	assert.Equal(t, int64(7), s.RepositoryID)
	assert.False(t, s.SyncEnabled)
	assert.False(t, s.AutoGenerate)
	assert.Equal(t, PlatformFlags{"juejin": false, "csdn": false, "zhihu": false}, s.PlatformFlags)
	assert.Equal(t, RAGSettings{Enabled: false, MaxReferences: 5}, s.RAG)
	assert.Nil(t, s.LastSyncTime)
	require.NoError(t, s.Validate())
}

func TestApplyMergesPlatformFlagsPerKey(t *testing.T) {
	s := DefaultSyncSettings(1)
	s.PlatformFlags["juejin"] = true

	s.Apply(SettingsPatch{
		SyncEnabled:   boolPtr(true),
		PlatformFlags: map[string]bool{"csdn": true},
		MaxReferences: intPtr(3),
	})

	assert.True(t, s.SyncEnabled)
	assert.False(t, s.AutoGenerate)
	assert.Equal(t, PlatformFlags{"juejin": true, "csdn": true, "zhihu": false}, s.PlatformFlags)
	assert.Equal(t, 3, s.RAG.MaxReferences)
	assert.Equal(t, []string{"csdn", "juejin"}, s.PlatformFlags.Enabled())
}

func TestApplyCopiesLastSyncTime(t *testing.T) {
	s := DefaultSyncSettings(1)
	now := time.Now()
	s.Apply(SettingsPatch{LastSyncTime: &now})

	require.NotNil(t, s.LastSyncTime)
	assert.True(t, s.LastSyncTime.Equal(now))
	assert.NotSame(t, &now, s.LastSyncTime)
	assert.Equal(t, now.Add(time.Hour), s.NextEligibleAt(time.Hour))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *RepositorySyncSettings)
		wantErr bool
	}{
		{"defaults", func(s *RepositorySyncSettings) {}, false},
		{"negative max references", func(s *RepositorySyncSettings) { s.RAG.MaxReferences = -1 }, true},
		{"zero max references allowed", func(s *RepositorySyncSettings) { s.RAG.MaxReferences = 0 }, false},
		{"auto generate without sync", func(s *RepositorySyncSettings) { s.AutoGenerate = true }, true},
		{"auto generate with sync", func(s *RepositorySyncSettings) { s.AutoGenerate = true; s.SyncEnabled = true }, false},
		{"bad platform name", func(s *RepositorySyncSettings) { s.PlatformFlags["Bad Name"] = true }, true},
		{"non-positive repository", func(s *RepositorySyncSettings) { s.RepositoryID = 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSyncSettings(10)
			tt.mutate(s)
			err := s.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrSettingsInvalid))
			assert.Equal(t, apperrors.KindConfig, apperrors.KindOf(err))
		})
	}
}

func TestPlatformFlagsScanValue(t *testing.T) {
	var p PlatformFlags
	require.NoError(t, p.Scan([]byte(`{"juejin":true,"csdn":false}`)))
	assert.Equal(t, PlatformFlags{"juejin": true, "csdn": false}, p)

	v, err := PlatformFlags{"zhihu": true}.Value()
	require.NoError(t, err)
	assert.Equal(t, `{"zhihu":true}`, v)

	require.NoError(t, p.Scan(nil))
	assert.Empty(t, p)
	assert.Error(t, p.Scan(42))
}

func TestCloneIsDeep(t *testing.T) {
	now := time.Now()
	s := DefaultSyncSettings(3)
	s.LastSyncTime = &now

	c := s.Clone()
	c.PlatformFlags["juejin"] = true
	later := now.Add(time.Minute)
	*c.LastSyncTime = later

	assert.False(t, s.PlatformFlags["juejin"])
	assert.True(t, s.LastSyncTime.Equal(now))
}

func TestClassifyPublishResults(t *testing.T) {
	ok := PublishResult{Platform: "juejin", Success: true}
	bad := PublishResult{Platform: "csdn", Success: false, ErrorDetail: "503"}

	assert.Equal(t, SyncFailed, ClassifyPublishResults(nil))
	assert.Equal(t, SyncSucceeded, ClassifyPublishResults([]PublishResult{ok}))
	assert.Equal(t, SyncPartiallyFailed, ClassifyPublishResults([]PublishResult{ok, bad}))
	assert.Equal(t, SyncFailed, ClassifyPublishResults([]PublishResult{bad}))

	out := &SyncOutcome{Results: []PublishResult{ok, bad}}
	assert.Equal(t, []string{"juejin"}, out.Succeeded())
	assert.Equal(t, []string{"csdn"}, out.Failed())
}

func TestGenerationJobTransition(t *testing.T) {
	j := NewGenerationJob("j1", 1, "intro", "Hello", "", RAGOptions{Enabled: true, MaxReferences: 5})
	assert.Equal(t, CollectionBlogPosts, j.Collection)

	j.Transition(JobStateEmbedding)
	j.Transition(JobStateFailed)
	j.Transition(JobStateDone)

	assert.Equal(t, JobStateFailed, j.State)
	assert.Equal(t, []JobState{JobStatePending, JobStateEmbedding, JobStateFailed}, j.States)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello-world"},
		{"snake_case_title", "snake-case-title"},
		{"  Go: context & cancel! ", "go-context-cancel"},
		{"多 语言 标题", "多-语言-标题"},
		{"???", "post"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}
