package retrieval

import (
	"context"

	apperrors "np-blogger/pkg/errors"
)

const (
	// dedupHeadroom 首轮为去重预留的额外召回数量
	dedupHeadroom = 4
	// maxSearchWidth 单次召回数量上限，重复文本多于此值时可能返回不足 maxReferences 条
	maxSearchWidth = 1024
)

// Engine 检索策略层：空文本拒绝、去重、截断
type Engine struct {
	store VectorStore
}

// NewEngine 创建检索引擎
func NewEngine(store VectorStore) *Engine {
	return &Engine{store: store}
}

// StoreEmbedding 写入一条向量记录，空文本返回 ErrEmptyText
func (e *Engine) StoreEmbedding(ctx context.Context, collection, text string, vector []float32) (string, error) {
	if text == "" {
		return "", apperrors.ErrEmptyText
	}
	if e == nil || e.store == nil {
		return "", apperrors.ErrStorageUnavailable.WithDetail("vector store not configured")
	}
	return e.store.Store(ctx, collection, text, vector)
}

// SearchSimilar 召回相似文本，按排名去重，最多返回 maxReferences 条。
// maxReferences 为 0 视为关闭检索，直接返回空结果。
func (e *Engine) SearchSimilar(ctx context.Context, collection string, vector []float32, maxReferences int) ([]string, error) {
	if maxReferences < 0 {
		return nil, apperrors.ErrSettingsInvalid.WithDetail("max_references must be >= 0")
	}
	if maxReferences == 0 {
		return []string{}, nil
	}
	if e == nil || e.store == nil {
		return nil, apperrors.ErrStorageUnavailable.WithDetail("vector store not configured")
	}

	// 去重后不足时加倍召回，直到凑满或存储已无更多结果
	k := min(maxReferences+dedupHeadroom, maxSearchWidth)
	for {
		results, err := e.store.Search(ctx, collection, vector, k)
		if err != nil {
			return nil, err
		}
		out := dedupe(results, maxReferences)
		if len(out) == maxReferences || len(results) < k || k >= maxSearchWidth {
			return out, nil
		}
		k = min(k*2, maxSearchWidth)
	}
}

// dedupe 按排名保留首次出现的文本，最多 limit 条
func dedupe(results []SimilarityResult, limit int) []string {
	out := make([]string, 0, limit)
	seen := make(map[string]struct{}, len(results))
	for _, r := range results {
		if _, ok := seen[r.Text]; ok {
			continue
		}
		seen[r.Text] = struct{}{}
		out = append(out, r.Text)
		if len(out) == limit {
			break
		}
	}
	return out
}
