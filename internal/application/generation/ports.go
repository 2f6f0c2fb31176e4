// Package generation 实现博客生成编排：嵌入、存储、检索、生成
package generation

import "context"

// EmbeddingProvider 文本向量化能力
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GenerationProvider 文本生成能力，references 为检索到的参考文本
type GenerationProvider interface {
	Generate(ctx context.Context, topic string, references []string) (string, error)
}

// Retriever 检索引擎能力，由 retrieval.Engine 实现
type Retriever interface {
	StoreEmbedding(ctx context.Context, collection, text string, vector []float32) (string, error)
	SearchSimilar(ctx context.Context, collection string, vector []float32, maxReferences int) ([]string, error)
}

// EmbeddingFunc 函数适配器
type EmbeddingFunc func(ctx context.Context, text string) ([]float32, error)

// Embed 实现 EmbeddingProvider
func (f EmbeddingFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}

// GenerationFunc 函数适配器
type GenerationFunc func(ctx context.Context, topic string, references []string) (string, error)

// Generate 实现 GenerationProvider
func (f GenerationFunc) Generate(ctx context.Context, topic string, references []string) (string, error) {
	return f(ctx, topic, references)
}
