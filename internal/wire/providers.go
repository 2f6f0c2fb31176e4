// Package wire 提供依赖注入配置
package wire

import (
	"context"
	"fmt"
	"net/http"
	"os"

	gogithub "github.com/google/go-github/v62/github"

	"np-blogger/internal/application/generation"
	"np-blogger/internal/application/retrieval"
	"np-blogger/internal/application/scheduler"
	"np-blogger/internal/config"
	"np-blogger/internal/domain/repository"
	infraembedding "np-blogger/internal/infrastructure/embedding"
	"np-blogger/internal/infrastructure/github"
	"np-blogger/internal/infrastructure/llm"
	"np-blogger/internal/infrastructure/messaging"
	"np-blogger/internal/infrastructure/persistence/memory"
	"np-blogger/internal/infrastructure/persistence/milvus"
	"np-blogger/internal/infrastructure/persistence/postgres"
	"np-blogger/internal/infrastructure/persistence/redis"
	"np-blogger/internal/infrastructure/publishing"
	"np-blogger/internal/interfaces/http/handler"
	"np-blogger/internal/interfaces/http/middleware"
	"np-blogger/pkg/logger"
)

// WorkerApp 同步 worker 依赖容器
type WorkerApp struct {
	Runner *scheduler.Runner
	// Consumer 仅在 sync.dispatch=stream 时非 nil
	Consumer *messaging.Consumer
}

// BootstrapLayer 初始化数据结构所需依赖
type BootstrapLayer struct {
	PgClient     *postgres.Client
	MilvusClient *milvus.Client
}

func noop() {}

// ProvidePostgresClient 提供 PostgreSQL 客户端，未启用时返回 nil
func ProvidePostgresClient(cfg *config.Config) (*postgres.Client, func(), error) {
	if !cfg.Database.Postgres.Enabled {
		return nil, noop, nil
	}
	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideRedisClient 提供 Redis 客户端，未启用时返回 nil
func ProvideRedisClient(cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, noop, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideMilvusClient 提供 Milvus 客户端，vector.backend=memory 时返回 nil
func ProvideMilvusClient(ctx context.Context, cfg *config.Config) (*milvus.Client, func(), error) {
	if cfg.Vector.Backend != "milvus" {
		return nil, noop, nil
	}
	client, err := milvus.NewClient(ctx, &cfg.Vector.Milvus)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideSettingsStore PostgreSQL 可用时持久化，否则使用进程内存储；Redis 可用时加读缓存
func ProvideSettingsStore(cfg *config.Config, pg *postgres.Client, rc *redis.Client) repository.SettingsStore {
	var store repository.SettingsStore
	if pg != nil {
		store = postgres.NewSettingsRepository(pg, postgres.NewTxManager(pg))
	} else {
		logger.Warn(context.Background(), "postgres disabled, settings are kept in memory")
		store = memory.NewSettingsStore()
	}
	if rc != nil && cfg.Cache.SettingsTTL > 0 {
		store = redis.NewCachedSettingsStore(store, redis.NewCache(rc), cfg.Cache.SettingsTTL)
	}
	return store
}

// ProvideBlogPostRepository 提供文章仓储
func ProvideBlogPostRepository(pg *postgres.Client) repository.BlogPostRepository {
	if pg == nil {
		return memory.NewBlogPostRepository()
	}
	return postgres.NewBlogPostRepository(pg)
}

// ProvideVectorStore 提供向量存储，连接随 Milvus 客户端一起关闭
func ProvideVectorStore(client *milvus.Client) retrieval.VectorStore {
	if client == nil {
		return memory.NewVectorStore()
	}
	return milvus.NewVectorStore(client)
}

// ProvideEmbedder 按 embedding.provider 选择实现
func ProvideEmbedder(ctx context.Context, cfg *config.Config) (generation.EmbeddingProvider, error) {
	if cfg.Embedding.Provider == "http" {
		client, err := infraembedding.NewHTTPClient(&cfg.Embedding)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	embedder, err := infraembedding.NewEinoEmbedder(ctx, &cfg.Embedding)
	if err != nil {
		return nil, err
	}
	return embedder, nil
}

// ProvideGenerationProvider 使用默认 LLM 提供商
func ProvideGenerationProvider(ctx context.Context, cfg *config.Config, factory *llm.EinoFactory) (generation.GenerationProvider, error) {
	generator, err := factory.Generator(ctx, cfg.LLM.DefaultProvider, cfg.Generation.ReferenceMaxRunes)
	if err != nil {
		return nil, err
	}
	return generator, nil
}

// ProvideOrchestrator 组装生成流水线
func ProvideOrchestrator(cfg *config.Config, embedder generation.EmbeddingProvider, generator generation.GenerationProvider, engine *retrieval.Engine) *generation.Orchestrator {
	return generation.NewOrchestrator(embedder, generator, engine,
		generation.WithTimeouts(generation.Timeouts{
			Embed:    cfg.Generation.EmbedTimeout,
			Store:    cfg.Generation.StoreTimeout,
			Retrieve: cfg.Generation.RetrieveTimeout,
			Generate: cfg.Generation.GenerateTimeout,
		}),
		generation.WithProviderRetry(generation.RetryPolicy{
			MaxAttempts:     cfg.Sync.Retry.MaxAttempts,
			InitialInterval: cfg.Sync.Retry.InitialInterval,
			MaxInterval:     cfg.Sync.Retry.MaxInterval,
			Multiplier:      cfg.Sync.Retry.Multiplier,
		}),
	)
}

// ProvideLocker 按 sync.lock.backend 选择锁实现。
// api-gateway 与 sync-worker 共享同一把 Redis 锁，手动与定时触发才能互斥。
func ProvideLocker(cfg *config.Config, rc *redis.Client) (scheduler.Locker, error) {
	if cfg.Sync.Lock.Backend != "redis" {
		return scheduler.NewMemoryLocker(), nil
	}
	if rc == nil {
		return nil, fmt.Errorf("sync.lock.backend=redis but redis client is not available")
	}
	return redis.NewLocker(rc, cfg.Sync.Lock.TTL), nil
}

// ProvideGitHubClient 提供 GitHub 客户端
func ProvideGitHubClient(cfg *config.Config) (*gogithub.Client, error) {
	token := cfg.GitHub.Token
	if token == "" {
		token = os.Getenv("GITHUB_TOKEN")
	}
	return github.NewClient(token, cfg.GitHub.BaseURL, cfg.GitHub.UploadURL)
}

// ProvideContentSource 提供仓库内容来源
func ProvideContentSource(cfg *config.Config, client *gogithub.Client) scheduler.ContentSource {
	return github.NewContentSource(client, cfg.GitHub.ReadmeMaxBytes)
}

// ProvidePublishingAdapters 提供已配置的发布平台
func ProvidePublishingAdapters(cfg *config.Config) ([]scheduler.PublishingAdapter, error) {
	client := &http.Client{Timeout: cfg.Sync.AdapterTimeout}
	return publishing.NewAdapters(&cfg.Publishing, &cfg.GitHub, client)
}

// ProvideScheduler 组装同步调度器
func ProvideScheduler(
	cfg *config.Config,
	settings repository.SettingsStore,
	source scheduler.ContentSource,
	orchestrator *generation.Orchestrator,
	locker scheduler.Locker,
	adapters []scheduler.PublishingAdapter,
	posts repository.BlogPostRepository,
) *scheduler.Scheduler {
	return scheduler.NewScheduler(settings, source, orchestrator, locker, adapters,
		scheduler.WithConfig(scheduler.Config{
			MinInterval:       cfg.Sync.MinInterval,
			JobTimeout:        cfg.Sync.JobTimeout,
			AdapterTimeout:    cfg.Sync.AdapterTimeout,
			Collection:        cfg.Vector.Collection,
			ContentCollection: cfg.Vector.ContentCollection,
			LockPrefix:        cfg.Sync.Lock.KeyPrefix,
		}),
		scheduler.WithBlogPosts(posts),
		scheduler.WithArchiver(orchestrator),
	)
}

// ProvideDispatcher stream 模式下定时任务写入 Redis Stream，由任意 worker 实例消费
func ProvideDispatcher(cfg *config.Config, sched *scheduler.Scheduler, rc *redis.Client) scheduler.Dispatcher {
	if cfg.Sync.Dispatch == "stream" && rc != nil {
		return messaging.NewStreamDispatcher(ProvideMessagingProducer(cfg, rc))
	}
	return scheduler.NewPoolDispatcher(sched, cfg.Sync.Workers)
}

// ProvideMessagingProducer 提供消息生产者
func ProvideMessagingProducer(cfg *config.Config, rc *redis.Client) *messaging.Producer {
	maxLen := cfg.Messaging.RedisStream.MaxLen
	if maxLen <= 0 {
		maxLen = 10000
	}
	return messaging.NewProducer(rc.Redis(), int64(maxLen))
}

// ProvideRunner 提供周期调度器
func ProvideRunner(cfg *config.Config, settings repository.SettingsStore, sched *scheduler.Scheduler, dispatcher scheduler.Dispatcher) *scheduler.Runner {
	return scheduler.NewRunner(cfg.Sync.Schedule, settings, sched, dispatcher)
}

// ProvideConsumer 提供同步触发消费者，非 stream 模式返回 nil
func ProvideConsumer(cfg *config.Config, rc *redis.Client, sched *scheduler.Scheduler) *messaging.Consumer {
	if cfg.Sync.Dispatch != "stream" || rc == nil {
		return nil
	}
	rs := cfg.Messaging.RedisStream
	consumer := messaging.NewConsumer(rc.Redis(), messaging.ConsumerConfig{
		Stream:        messaging.StreamSyncTrigger,
		Group:         messaging.ConsumerGroup(rs.ConsumerGroupPrefix + "-" + string(messaging.ConsumerGroupSyncWorker)),
		ConsumerName:  hostnameConsumerName(),
		BlockTimeout:  rs.BlockTimeout,
		ClaimInterval: rs.ClaimInterval,
		RetryLimit:    rs.RetryLimit,
		Backoff: messaging.BackoffConfig{
			Initial:    rs.RetryBackoff.Initial,
			Max:        rs.RetryBackoff.Max,
			Multiplier: rs.RetryBackoff.Multiplier,
		},
	})
	consumer.RegisterHandler(messaging.MessageTypeSyncTrigger, messaging.SyncTriggerHandler(sched))
	return consumer
}

func hostnameConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "sync-worker"
	}
	return fmt.Sprintf("%s-%d", host, os.Getpid())
}

// ProvideRateLimiter Redis 不可用时不限流
func ProvideRateLimiter(rc *redis.Client) middleware.RateLimiter {
	if rc == nil {
		return nil
	}
	return redis.NewRateLimiter(rc)
}

// ProvideHealthHandler 就绪检查：已启用的 PostgreSQL 与 Redis 为必需依赖，Milvus 失败只标记降级
func ProvideHealthHandler(cfg *config.Config, pg *postgres.Client, rc *redis.Client, mc *milvus.Client) *handler.HealthHandler {
	deps := make([]handler.Dependency, 0, 3)
	if pg != nil {
		deps = append(deps, handler.Dependency{Name: "postgres", Checker: pg, Required: true})
	}
	if rc != nil {
		deps = append(deps, handler.Dependency{Name: "redis", Checker: rc, Required: true})
	}
	if mc != nil {
		deps = append(deps, handler.Dependency{Name: "milvus", Checker: mc})
	} else {
		deps = append(deps, handler.Dependency{Name: "milvus"})
	}
	return handler.NewHealthHandler(cfg.App.Version, deps...)
}

// ProvideBlogHandler 提供文章处理器
func ProvideBlogHandler(cfg *config.Config, orchestrator *generation.Orchestrator, posts repository.BlogPostRepository) *handler.BlogHandler {
	return handler.NewBlogHandler(orchestrator, posts, cfg.Generation.DefaultMaxReferences)
}

// ProvideLLMConfig 提供 LLM 配置
func ProvideLLMConfig(cfg *config.Config) *config.LLMConfig {
	return &cfg.LLM
}
