package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandEnv(t *testing.T) {
	t.Setenv("NPB_TEST_HOST", "db.internal")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"set variable", "host: ${NPB_TEST_HOST}", "host: db.internal"},
		{"set variable ignores default", "host: ${NPB_TEST_HOST:localhost}", "host: db.internal"},
		{"default used", "port: ${NPB_TEST_UNSET_PORT:5432}", "port: 5432"},
		{"empty default", "password: ${NPB_TEST_UNSET_PW:}", "password: "},
		{"undefined kept", "token: ${NPB_TEST_UNSET_TOKEN}", "token: ${NPB_TEST_UNSET_TOKEN}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, expandEnv(tt.in))
		})
	}
}

func TestLoadFromDefaults(t *testing.T) {
	cfg, err := LoadFrom(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "np-blogger", cfg.App.Name)
	assert.Equal(t, "memory", cfg.Vector.Backend)
	assert.Equal(t, "blog_posts", cfg.Vector.Collection)
	assert.Equal(t, "blog_contents", cfg.Vector.ContentCollection)
	assert.Equal(t, 768, cfg.Embedding.Dimension)
	assert.Equal(t, 5, cfg.Generation.DefaultMaxReferences)
	assert.Equal(t, "@every 1m", cfg.Sync.Schedule)
	assert.Equal(t, 3, cfg.Sync.Retry.MaxAttempts)
	assert.Equal(t, 5*time.Minute, cfg.Sync.JobTimeout)
	assert.Equal(t, "redis", cfg.Sync.Lock.Backend)
	assert.True(t, cfg.Cache.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Server.HTTP.ShutdownTimeout)
}

func TestShippedConfigSharesLockAcrossProcesses(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join("..", "..", "configs"))
	require.NoError(t, err)
	assert.True(t, cfg.Database.Postgres.Enabled)
	assert.Equal(t, "redis", cfg.Sync.Lock.Backend)
	assert.True(t, cfg.Cache.Redis.Enabled)
}

func TestLoadFromFileAndEnvOverlay(t *testing.T) {
	dir := t.TempDir()
	base := `
vector:
  backend: milvus
publishing:
  platforms:
    juejin:
      type: webhook
      endpoint: ${NPB_TEST_JUEJIN_URL:http://localhost:9000/juejin}
sync:
  min_interval: 30m
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(base), 0o600))
	overlay := `
sync:
  workers: 9
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.staging.yaml"), []byte(overlay), 0o600))
	t.Setenv("APP_ENV", "staging")

	cfg, err := LoadFrom(dir)
	require.NoError(t, err)

	assert.Equal(t, "milvus", cfg.Vector.Backend)
	assert.Equal(t, 30*time.Minute, cfg.Sync.MinInterval)
	assert.Equal(t, 9, cfg.Sync.Workers)
	require.Contains(t, cfg.Publishing.Platforms, "juejin")
	assert.Equal(t, "http://localhost:9000/juejin", cfg.Publishing.Platforms["juejin"].Endpoint)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := LoadFrom(t.TempDir())
		require.NoError(t, err)
		return cfg
	}

	t.Run("redis lock ttl must exceed job timeout", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Redis.Enabled = true
		cfg.Sync.Lock.Backend = "redis"
		cfg.Sync.Lock.TTL = cfg.Sync.JobTimeout
		assert.ErrorContains(t, cfg.Validate(), "must exceed")
	})

	t.Run("redis lock requires redis", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Redis.Enabled = false
		assert.ErrorContains(t, cfg.Validate(), "cache.redis.enabled")
	})

	t.Run("memory lock rejected with shared postgres settings", func(t *testing.T) {
		cfg := valid()
		cfg.Sync.Lock.Backend = "memory"
		assert.ErrorContains(t, cfg.Validate(), "across processes")
	})

	t.Run("memory lock allowed for single process without postgres", func(t *testing.T) {
		cfg := valid()
		cfg.Sync.Lock.Backend = "memory"
		cfg.Database.Postgres.Enabled = false
		cfg.Cache.Redis.Enabled = false
		assert.NoError(t, cfg.Validate())
	})

	t.Run("retry attempts bounded", func(t *testing.T) {
		cfg := valid()
		cfg.Sync.Retry.MaxAttempts = 11
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown vector backend", func(t *testing.T) {
		cfg := valid()
		cfg.Vector.Backend = "faiss"
		assert.Error(t, cfg.Validate())
	})

	t.Run("github platform requires repo", func(t *testing.T) {
		cfg := valid()
		cfg.Publishing.Platforms = map[string]PlatformConfig{"github": {Type: "github", Owner: "octo"}}
		assert.ErrorContains(t, cfg.Validate(), "owner and repo")
	})
}
