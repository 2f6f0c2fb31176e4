package retrieval

import (
	"context"
	"time"
)

// VectorStore 定义应用层对“向量存储/检索”的最小依赖（port）。
// 由基础设施层提供具体实现（内存、Milvus）。
//
// 实现约束：
//   - 首个写入的向量确定集合维度，之后维度不一致返回 ErrInvalidVector
//   - Search 按分数降序，分数相同按写入顺序（先写入者优先）
//   - 空集合或未知集合返回空结果，不返回错误
//   - Close 之后的调用返回 ErrStoreClosed
type VectorStore interface {
	Store(ctx context.Context, collection, text string, vector []float32) (string, error)
	Search(ctx context.Context, collection string, query []float32, k int) ([]SimilarityResult, error)
	Close() error
}

// EmbeddingRecord 存储记录，写入后不可变
type EmbeddingRecord struct {
	ID         string
	Collection string
	Text       string
	Vector     []float32
	CreatedAt  time.Time
}

// SimilarityResult 单次查询结果，不持久化
type SimilarityResult struct {
	Text     string
	Score    float64
	SourceID string
}
