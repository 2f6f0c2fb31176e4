package milvus

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"np-blogger/internal/application/retrieval"
	apperrors "np-blogger/pkg/errors"
	"np-blogger/pkg/metrics"
)

const backend = "milvus"

// collectionAPI Repository 的最小依赖，便于测试替换
type collectionAPI interface {
	CollectionDim(ctx context.Context, collection string) (int, bool, error)
	EnsureCollection(ctx context.Context, collection string, dim int) error
	Insert(ctx context.Context, collection string, dim int, rows []Row) error
	Search(ctx context.Context, collection string, query []float32, topK int) ([]*SearchResult, error)
}

// VectorStore 基于 Milvus 的 retrieval.VectorStore 实现
type VectorStore struct {
	repo   collectionAPI
	closer func() error

	mu   sync.Mutex
	dims map[string]int

	seq    atomic.Int64
	closed atomic.Bool
	now    func() time.Time
}

var _ retrieval.VectorStore = (*VectorStore)(nil)

// NewVectorStore 创建 Milvus 向量存储
func NewVectorStore(client *Client) *VectorStore {
	return newVectorStore(NewRepository(client), client.Close)
}

func newVectorStore(repo collectionAPI, closer func() error) *VectorStore {
	s := &VectorStore{
		repo:   repo,
		closer: closer,
		dims:   make(map[string]int),
		now:    time.Now,
	}
	s.seq.Store(time.Now().UnixNano())
	return s
}

// Store 写入一条记录；集合不存在时以本条向量的维度创建
func (s *VectorStore) Store(ctx context.Context, collection, text string, vector []float32) (id string, err error) {
	start := time.Now()
	defer func() { observe("store", start, err) }()

	if s.closed.Load() {
		return "", apperrors.ErrStoreClosed
	}
	if len(vector) == 0 {
		return "", apperrors.ErrInvalidVector.WithDetail("vector is empty")
	}

	dim, err := s.dimensionFor(ctx, collection, len(vector))
	if err != nil {
		return "", err
	}
	if dim != len(vector) {
		return "", apperrors.ErrInvalidVector.WithDetail(dimMismatch(dim, len(vector)))
	}

	vec := make([]float32, len(vector))
	copy(vec, vector)
	row := Row{
		ID:        uuid.NewString(),
		Vector:    vec,
		Text:      text,
		Seq:       s.seq.Add(1),
		CreatedAt: s.now().UnixMilli(),
	}
	if err := s.repo.Insert(ctx, collection, dim, []Row{row}); err != nil {
		return "", apperrors.ErrStorageUnavailable.WithError(err)
	}
	return row.ID, nil
}

// Search 检索相似记录；集合不存在返回空结果
func (s *VectorStore) Search(ctx context.Context, collection string, query []float32, k int) (out []retrieval.SimilarityResult, err error) {
	start := time.Now()
	defer func() { observe("search", start, err) }()

	if s.closed.Load() {
		return nil, apperrors.ErrStoreClosed
	}
	if k <= 0 {
		return []retrieval.SimilarityResult{}, nil
	}

	dim, exists, err := s.knownDimension(ctx, collection)
	if err != nil {
		return nil, err
	}
	if !exists {
		return []retrieval.SimilarityResult{}, nil
	}
	if dim != len(query) {
		return nil, apperrors.ErrInvalidVector.WithDetail(dimMismatch(dim, len(query)))
	}

	results, err := s.repo.Search(ctx, collection, query, k)
	if err != nil {
		return nil, apperrors.ErrStorageUnavailable.WithError(err)
	}
	out = make([]retrieval.SimilarityResult, 0, len(results))
	for _, r := range results {
		out = append(out, retrieval.SimilarityResult{
			Text:     r.TextContent,
			Score:    float64(r.Score),
			SourceID: r.ID,
		})
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// Close 关闭连接，之后所有调用返回 ErrStoreClosed
func (s *VectorStore) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	if s.closer != nil {
		return s.closer()
	}
	return nil
}

// knownDimension 查询集合维度（带缓存），不创建集合
func (s *VectorStore) knownDimension(ctx context.Context, collection string) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dim, ok := s.dims[collection]; ok {
		return dim, true, nil
	}
	dim, exists, err := s.repo.CollectionDim(ctx, collection)
	if err != nil {
		return 0, false, apperrors.ErrStorageUnavailable.WithError(err)
	}
	if exists && dim > 0 {
		s.dims[collection] = dim
	}
	return dim, exists, nil
}

// dimensionFor 返回集合维度，集合不存在时以 want 创建
func (s *VectorStore) dimensionFor(ctx context.Context, collection string, want int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dim, ok := s.dims[collection]; ok {
		return dim, nil
	}
	dim, exists, err := s.repo.CollectionDim(ctx, collection)
	if err != nil {
		return 0, apperrors.ErrStorageUnavailable.WithError(err)
	}
	if !exists {
		if err := s.repo.EnsureCollection(ctx, collection, want); err != nil {
			return 0, apperrors.ErrStorageUnavailable.WithError(err)
		}
		dim = want
	}
	s.dims[collection] = dim
	return dim, nil
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
