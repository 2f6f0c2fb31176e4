// Package config 提供配置加载功能
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/spf13/viper"
)

var envPattern = regexp.MustCompile(`\${(\w+)(:([^}]*))?}`)

// Load 加载配置文件
// 按优先级加载：默认配置 -> 环境配置 -> 环境变量
func Load() (*Config, error) {
	return LoadFrom("configs")
}

// LoadFrom 从指定目录加载配置
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	// 1. 加载默认配置（目录下无 config.yaml 时仅使用默认值）
	if err := loadConfigFile(v, filepath.Join(dir, "config.yaml"), true); err != nil {
		return nil, err
	}

	// 2. 加载环境特定配置
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}
	envFile := filepath.Join(dir, fmt.Sprintf("config.%s.yaml", env))
	if err := loadConfigFile(v, envFile, true); err != nil {
		return nil, err
	}

	// 3. 绑定环境变量 (直接覆盖)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// 设置默认值 (兜底)
	setDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadConfigFile 读取文件，执行环境变量替换，并加载到 viper
func loadConfigFile(v *viper.Viper, path string, optional bool) error {
	content, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	reader := strings.NewReader(expandEnv(string(content)))
	if v.ConfigFileUsed() == "" {
		if err := v.ReadConfig(reader); err != nil {
			return fmt.Errorf("failed to read processed config %s: %w", path, err)
		}
		v.SetConfigFile(path)
	} else {
		if err := v.MergeConfig(reader); err != nil {
			return fmt.Errorf("failed to merge processed config %s: %w", path, err)
		}
	}

	return nil
}

// expandEnv 替换字符串中的 ${VAR:default} 占位符
// 未定义且无默认值的变量保留原样
func expandEnv(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envPattern.FindStringSubmatch(match)
		key := submatch[1]
		hasDefault := submatch[2] != ""
		defVal := submatch[3]

		if val, ok := os.LookupEnv(key); ok {
			return val
		}
		if hasDefault {
			return defVal
		}
		return match
	})
}

// MustLoad 加载配置，失败时 panic
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Validate 校验配置组合的合法性
func (c *Config) Validate() error {
	switch c.Vector.Backend {
	case "memory", "milvus":
	default:
		return fmt.Errorf("config: unknown vector.backend %q", c.Vector.Backend)
	}
	switch c.Embedding.Provider {
	case "openai", "http":
	default:
		return fmt.Errorf("config: unknown embedding.provider %q", c.Embedding.Provider)
	}
	switch c.Sync.Lock.Backend {
	case "memory":
		// 进程内锁只对单进程有效，设置存储共享时两个进程会各自持锁
		if c.Database.Postgres.Enabled {
			return fmt.Errorf("config: sync.lock.backend=memory cannot serialize triggers across processes sharing database.postgres; use redis")
		}
	case "redis":
		if !c.Cache.Redis.Enabled {
			return fmt.Errorf("config: sync.lock.backend=redis requires cache.redis.enabled")
		}
		if c.Sync.Lock.TTL <= c.Sync.JobTimeout {
			return fmt.Errorf("config: sync.lock.ttl (%s) must exceed sync.job_timeout (%s)", c.Sync.Lock.TTL, c.Sync.JobTimeout)
		}
	default:
		return fmt.Errorf("config: unknown sync.lock.backend %q", c.Sync.Lock.Backend)
	}
	switch c.Sync.Dispatch {
	case "pool":
	case "stream":
		if !c.Cache.Redis.Enabled {
			return fmt.Errorf("config: sync.dispatch=stream requires cache.redis.enabled")
		}
	default:
		return fmt.Errorf("config: unknown sync.dispatch %q", c.Sync.Dispatch)
	}
	if c.Sync.Retry.MaxAttempts < 1 || c.Sync.Retry.MaxAttempts > 10 {
		return fmt.Errorf("config: sync.retry.max_attempts must be within 1..10, got %d", c.Sync.Retry.MaxAttempts)
	}
	if c.Sync.JobTimeout <= 0 || c.Sync.AdapterTimeout <= 0 {
		return fmt.Errorf("config: sync.job_timeout and sync.adapter_timeout must be positive")
	}
	if c.Generation.DefaultMaxReferences < 0 {
		return fmt.Errorf("config: generation.default_max_references must be >= 0")
	}
	for name, p := range c.Publishing.Platforms {
		switch p.Type {
		case "webhook":
			if p.Endpoint == "" {
				return fmt.Errorf("config: publishing.platforms.%s.endpoint is required", name)
			}
		case "github":
			if p.Owner == "" || p.Repo == "" {
				return fmt.Errorf("config: publishing.platforms.%s requires owner and repo", name)
			}
		default:
			return fmt.Errorf("config: publishing.platforms.%s has unknown type %q", name, p.Type)
		}
	}
	return nil
}

// setDefaults 设置配置默认值
func setDefaults(v *viper.Viper) {
	// 应用默认值
	v.SetDefault("app.name", "np-blogger")
	v.SetDefault("app.version", "v0.0.0")
	v.SetDefault("app.env", "development")

	// HTTP 服务器默认值
	v.SetDefault("server.http.host", "0.0.0.0")
	v.SetDefault("server.http.port", 8080)
	v.SetDefault("server.http.read_timeout", "30s")
	v.SetDefault("server.http.write_timeout", "180s")
	v.SetDefault("server.http.idle_timeout", "120s")
	v.SetDefault("server.http.shutdown_timeout", "30s")

	// 数据库默认值
	v.SetDefault("database.postgres.enabled", true)
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.database", "np_blogger")
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 20)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", "30m")
	v.SetDefault("database.postgres.conn_max_idle_time", "5m")

	// Redis 默认值
	v.SetDefault("cache.redis.enabled", true)
	v.SetDefault("cache.redis.host", "localhost")
	v.SetDefault("cache.redis.port", 6379)
	v.SetDefault("cache.redis.db", 0)
	v.SetDefault("cache.redis.pool_size", 20)
	v.SetDefault("cache.redis.min_idle_conns", 2)
	v.SetDefault("cache.redis.dial_timeout", "5s")
	v.SetDefault("cache.redis.read_timeout", "3s")
	v.SetDefault("cache.redis.write_timeout", "3s")
	v.SetDefault("cache.settings_ttl", "30s")

	// 向量存储默认值
	v.SetDefault("vector.backend", "memory")
	v.SetDefault("vector.collection", "blog_posts")
	v.SetDefault("vector.content_collection", "blog_contents")
	v.SetDefault("vector.milvus.host", "localhost")
	v.SetDefault("vector.milvus.port", 19530)
	v.SetDefault("vector.milvus.collection_prefix", "np_blogger")
	v.SetDefault("vector.milvus.hnsw_m", 16)
	v.SetDefault("vector.milvus.hnsw_ef_construction", 200)
	v.SetDefault("vector.milvus.search_ef", 64)
	v.SetDefault("vector.milvus.max_text_length", 65535)
	v.SetDefault("vector.milvus.connect_timeout", "10s")

	// 模型默认值
	v.SetDefault("llm.default_provider", "openai")
	v.SetDefault("embedding.provider", "openai")
	v.SetDefault("embedding.model", "text-embedding-3-small")
	v.SetDefault("embedding.dimension", 768)
	v.SetDefault("embedding.timeout", "30s")

	// 生成流水线默认值
	v.SetDefault("generation.embed_timeout", "30s")
	v.SetDefault("generation.store_timeout", "5s")
	v.SetDefault("generation.retrieve_timeout", "5s")
	v.SetDefault("generation.generate_timeout", "120s")
	v.SetDefault("generation.default_max_references", 5)
	v.SetDefault("generation.reference_max_runes", 800)

	// 同步调度默认值
	v.SetDefault("sync.schedule", "@every 1m")
	v.SetDefault("sync.min_interval", "1h")
	v.SetDefault("sync.job_timeout", "5m")
	v.SetDefault("sync.adapter_timeout", "30s")
	v.SetDefault("sync.workers", 4)
	v.SetDefault("sync.dispatch", "pool")
	v.SetDefault("sync.lock.backend", "redis")
	v.SetDefault("sync.lock.ttl", "10m")
	v.SetDefault("sync.lock.key_prefix", "lock:sync")
	v.SetDefault("sync.retry.max_attempts", 3)
	v.SetDefault("sync.retry.initial_interval", "500ms")
	v.SetDefault("sync.retry.max_interval", "5s")
	v.SetDefault("sync.retry.multiplier", 2.0)

	// GitHub 默认值
	v.SetDefault("github.readme_max_bytes", 32768)

	// 消息队列默认值
	v.SetDefault("messaging.redis_stream.max_len", 10000)
	v.SetDefault("messaging.redis_stream.consumer_group_prefix", "np-blogger")
	v.SetDefault("messaging.redis_stream.block_timeout", "5s")
	v.SetDefault("messaging.redis_stream.claim_interval", "1m")
	v.SetDefault("messaging.redis_stream.retry_limit", 3)
	v.SetDefault("messaging.redis_stream.retry_backoff.initial", "1s")
	v.SetDefault("messaging.redis_stream.retry_backoff.max", "1m")
	v.SetDefault("messaging.redis_stream.retry_backoff.multiplier", 2.0)

	// 可观测性默认值
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")
	v.SetDefault("observability.tracing.enabled", false)
	v.SetDefault("observability.tracing.endpoint", "localhost:4317")
	v.SetDefault("observability.tracing.insecure", true)
	v.SetDefault("observability.tracing.sample_rate", 1.0)
	v.SetDefault("observability.metrics.enabled", true)
	v.SetDefault("observability.metrics.path", "/metrics")

	// 安全默认值
	v.SetDefault("security.rate_limit.enabled", false)
	v.SetDefault("security.rate_limit.requests_per_second", 10)
}
