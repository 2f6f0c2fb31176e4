// Package main 初始化数据库表结构与向量集合
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"np-blogger/internal/config"
	"np-blogger/internal/infrastructure/persistence/milvus"
	"np-blogger/internal/wire"
)

func main() {
	_ = godotenv.Load()

	fmt.Println("Starting system bootstrap...")

	// 1. 加载配置
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()

	// 2. 初始化存储连接
	layer, cleanup, err := wire.InitializeBootstrap(ctx, cfg)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}
	defer cleanup()

	// 3. 表结构
	if layer.PgClient != nil {
		if err := layer.PgClient.Migrate(ctx); err != nil {
			log.Fatalf("failed to migrate postgres: %v", err)
		}
		fmt.Println("Postgres schema migrated")
	} else {
		fmt.Println("Postgres disabled, skipping migration")
	}

	// 4. 向量集合
	if layer.MilvusClient == nil {
		fmt.Println("Vector backend is memory, skipping collection setup")
		fmt.Println("Bootstrap completed successfully!")
		return
	}
	repo := milvus.NewRepository(layer.MilvusClient)
	for _, name := range []string{cfg.Vector.Collection, cfg.Vector.ContentCollection} {
		dim, exists, err := repo.CollectionDim(ctx, name)
		if err != nil {
			log.Fatalf("failed to inspect collection %s: %v", name, err)
		}
		if exists && dim != cfg.Embedding.Dimension {
			log.Fatalf("collection %s has dimension %d, embedding.dimension is %d", name, dim, cfg.Embedding.Dimension)
		}
		if err := repo.EnsureCollection(ctx, name, cfg.Embedding.Dimension); err != nil {
			log.Fatalf("failed to ensure collection %s: %v", name, err)
		}
		fmt.Printf("Collection %s ready (dim=%d)\n", layer.MilvusClient.CollectionName(name), cfg.Embedding.Dimension)
	}

	fmt.Println("Bootstrap completed successfully!")
}
