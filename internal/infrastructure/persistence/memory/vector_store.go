// Package memory 提供进程内存储实现：向量存储（精确暴力检索）、仓库设置与文章记录
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"np-blogger/internal/application/retrieval"
	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/metrics"
)

const backend = "memory"

type collection struct {
	dim     int
	records []retrieval.EmbeddingRecord
}

// VectorStore 内存向量存储，按集合分区，只追加不去重
type VectorStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
	closed      bool
	now         func() time.Time
}

var _ retrieval.VectorStore = (*VectorStore)(nil)

// NewVectorStore 创建内存向量存储
func NewVectorStore() *VectorStore {
	return &VectorStore{
		collections: make(map[string]*collection),
		now:         time.Now,
	}
}

// Store 追加一条记录；集合的维度由首条向量确定
func (s *VectorStore) Store(ctx context.Context, name, text string, vector []float32) (id string, err error) {
	start := time.Now()
	defer func() { observe("store", start, err) }()

	if err := ctx.Err(); err != nil {
		return "", apperrors.ErrStorageUnavailable.WithError(err)
	}
	if len(vector) == 0 {
		return "", apperrors.ErrInvalidVector.WithDetail("vector is empty")
	}

	// 写入前复制，保证记录不可变
	vec := make([]float32, len(vector))
	copy(vec, vector)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", apperrors.ErrStoreClosed
	}
	c, ok := s.collections[name]
	if !ok {
		c = &collection{dim: len(vec)}
		s.collections[name] = c
	}
	if len(vec) != c.dim {
		return "", apperrors.ErrInvalidVector.WithDetail(dimMismatch(c.dim, len(vec)))
	}

	rec := retrieval.EmbeddingRecord{
		ID:         uuid.NewString(),
		Collection: name,
		Text:       text,
		Vector:     vec,
		CreatedAt:  s.now(),
	}
	c.records = append(c.records, rec)
	return rec.ID, nil
}

// Search 返回相似度最高的 k 条记录，分数相同按写入顺序
func (s *VectorStore) Search(ctx context.Context, name string, query []float32, k int) (out []retrieval.SimilarityResult, err error) {
	start := time.Now()
	defer func() { observe("search", start, err) }()

	if err := ctx.Err(); err != nil {
		return nil, apperrors.ErrStorageUnavailable.WithError(err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, apperrors.ErrStoreClosed
	}
	c, ok := s.collections[name]
	if !ok || len(c.records) == 0 || k <= 0 {
		return []retrieval.SimilarityResult{}, nil
	}
	if len(query) != c.dim {
		return nil, apperrors.ErrInvalidVector.WithDetail(dimMismatch(c.dim, len(query)))
	}

	scored := make([]retrieval.SimilarityResult, len(c.records))
	for i := range c.records {
		r := &c.records[i]
		scored[i] = retrieval.SimilarityResult{
			Text:     r.Text,
			Score:    retrieval.CosineSimilarity(r.Vector, query),
			SourceID: r.ID,
		}
	}
	// records 按写入顺序排列，稳定排序保证同分时先写入者在前
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if k < len(scored) {
		scored = scored[:k]
	}
	return scored, nil
}

// Count 返回集合内记录数
func (s *VectorStore) Count(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.records)
	}
	return 0
}

// Close 释放资源，之后所有调用返回 ErrStoreClosed
func (s *VectorStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.collections = nil
	return nil
}

func observe(op string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.VectorOpsTotal.WithLabelValues(backend, op, status).Inc()
	metrics.VectorOpDuration.WithLabelValues(backend, op).Observe(time.Since(start).Seconds())
}

func dimMismatch(want, got int) string {
	return fmt.Sprintf("dimension mismatch: collection has %d, got %d", want, got)
}
