//go:build wireinject
// +build wireinject

package wire

import (
	"context"

	"github.com/google/wire"

	"np-blogger/internal/application/retrieval"
	"np-blogger/internal/application/scheduler"
	"np-blogger/internal/config"
	"np-blogger/internal/infrastructure/llm"
	"np-blogger/internal/interfaces/http/handler"
	"np-blogger/internal/interfaces/http/router"
)

// InitializeApp 初始化 API 网关（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StorageSet,
		PipelineSet,
		SyncSet,
		RouterSet,
	)
	return nil, nil, nil
}

// InitializeWorker 初始化同步 worker
func InitializeWorker(ctx context.Context, cfg *config.Config) (*WorkerApp, func(), error) {
	wire.Build(
		StorageSet,
		PipelineSet,
		SyncSet,
		ProvideRunner,
		ProvideConsumer,
		wire.Struct(new(WorkerApp), "*"),
	)
	return nil, nil, nil
}

// InitializeBootstrap 仅初始化存储连接（用于 bootstrap）
func InitializeBootstrap(ctx context.Context, cfg *config.Config) (*BootstrapLayer, func(), error) {
	wire.Build(
		ProvidePostgresClient,
		ProvideMilvusClient,
		wire.Struct(new(BootstrapLayer), "*"),
	)
	return nil, nil, nil
}

// StorageSet 存储提供者集合
var StorageSet = wire.NewSet(
	ProvidePostgresClient,
	ProvideRedisClient,
	ProvideMilvusClient,
	ProvideSettingsStore,
	ProvideBlogPostRepository,
	ProvideVectorStore,
)

// PipelineSet 生成流水线提供者集合
var PipelineSet = wire.NewSet(
	retrieval.NewEngine,
	ProvideEmbedder,
	ProvideLLMConfig,
	llm.NewEinoFactory,
	ProvideGenerationProvider,
	ProvideOrchestrator,
)

// SyncSet 同步调度提供者集合
var SyncSet = wire.NewSet(
	ProvideLocker,
	ProvideGitHubClient,
	ProvideContentSource,
	ProvidePublishingAdapters,
	ProvideScheduler,
	ProvideDispatcher,
	wire.Bind(new(scheduler.Trigger), new(*scheduler.Scheduler)),
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideHealthHandler,
	ProvideBlogHandler,
	handler.NewSettingsHandler,
	handler.NewSyncHandler,
	ProvideRateLimiter,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
