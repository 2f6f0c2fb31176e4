// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"context"
	"fmt"
	"sort"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Repository 向量检索仓储，集合名不含前缀
type Repository struct {
	client *Client
}

// NewRepository 创建向量检索仓储
func NewRepository(client *Client) *Repository {
	return &Repository{client: client}
}

// SearchResult 检索结果
type SearchResult struct {
	ID          string
	Score       float32
	TextContent string
	Seq         int64
}

func (r *Repository) ready() error {
	if r == nil || r.client == nil || r.client.milvus == nil {
		return fmt.Errorf("milvus client not configured")
	}
	return nil
}

// CollectionDim 返回集合的向量维度；集合不存在时 exists=false
func (r *Repository) CollectionDim(ctx context.Context, collection string) (dim int, exists bool, err error) {
	if err := r.ready(); err != nil {
		return 0, false, err
	}
	ctx, span := tracer.Start(ctx, "milvus.CollectionDim",
		trace.WithAttributes(attribute.String("collection", collection)))
	defer span.End()

	has, err := r.client.HasCollection(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return 0, false, fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		return 0, false, nil
	}
	coll, err := r.client.milvus.DescribeCollection(ctx, r.client.CollectionName(collection))
	if err != nil {
		span.RecordError(err)
		return 0, true, fmt.Errorf("failed to describe collection: %w", err)
	}
	return vectorDim(coll.Schema), true, nil
}

// EnsureCollection 确保集合存在（创建、建索引、加载）
func (r *Repository) EnsureCollection(ctx context.Context, collection string, dim int) error {
	if err := r.ready(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "milvus.EnsureCollection",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("dim", dim),
		))
	defer span.End()

	has, err := r.client.HasCollection(ctx, collection)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if !has {
		schema := EmbeddingSchema(r.client.CollectionName(collection), dim, r.client.config.MaxTextLength)
		if err := r.client.milvus.CreateCollection(ctx, schema, entity.DefaultShardNumber); err != nil {
			span.RecordError(err)
			return fmt.Errorf("failed to create collection: %w", err)
		}
		if err := r.createIndex(ctx, collection); err != nil {
			span.RecordError(err)
			return err
		}
	}

	if err := r.client.LoadCollection(ctx, collection); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to load collection: %w", err)
	}
	return nil
}

// createIndex 创建 HNSW 索引
func (r *Repository) createIndex(ctx context.Context, collection string) error {
	idx, err := entity.NewIndexHNSW(
		entity.COSINE,
		r.client.config.HNSWM,
		r.client.config.HNSWEfConstruction,
	)
	if err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}
	if err := r.client.milvus.CreateIndex(ctx, r.client.CollectionName(collection), FieldVector, idx, false); err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	return nil
}

// Insert 写入数据行
func (r *Repository) Insert(ctx context.Context, collection string, dim int, rows []Row) error {
	if err := r.ready(); err != nil {
		return err
	}
	ctx, span := tracer.Start(ctx, "milvus.Insert",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("count", len(rows)),
		))
	defer span.End()

	if len(rows) == 0 {
		return nil
	}

	ids := make([]string, len(rows))
	vectors := make([][]float32, len(rows))
	texts := make([]string, len(rows))
	seqs := make([]int64, len(rows))
	created := make([]int64, len(rows))
	for i, row := range rows {
		ids[i] = row.ID
		vectors[i] = row.Vector
		texts[i] = row.Text
		seqs[i] = row.Seq
		created[i] = row.CreatedAt
	}

	_, err := r.client.milvus.Insert(ctx, r.client.CollectionName(collection), "",
		entity.NewColumnVarChar(FieldID, ids),
		entity.NewColumnFloatVector(FieldVector, dim, vectors),
		entity.NewColumnVarChar(FieldText, texts),
		entity.NewColumnInt64(FieldSeq, seqs),
		entity.NewColumnInt64(FieldCreated, created),
	)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert rows: %w", err)
	}
	return nil
}

// Search 检索最相似的 topK 条，按分数降序、写入序号升序排列
func (r *Repository) Search(ctx context.Context, collection string, query []float32, topK int) ([]*SearchResult, error) {
	if err := r.ready(); err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "milvus.Search",
		trace.WithAttributes(
			attribute.String("collection", collection),
			attribute.Int("top_k", topK),
		))
	defer span.End()

	ef := r.client.config.SearchEf
	if ef < topK {
		ef = topK
	}
	sp, err := entity.NewIndexHNSWSearchParam(ef)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create search param: %w", err)
	}

	results, err := r.client.milvus.Search(ctx,
		r.client.CollectionName(collection),
		nil,
		"",
		[]string{FieldID, FieldText, FieldSeq},
		[]entity.Vector{entity.FloatVector(query)},
		FieldVector,
		entity.COSINE,
		topK,
		sp,
		client.WithSearchQueryConsistencyLevel(entity.ClStrong),
	)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	var out []*SearchResult
	for _, result := range results {
		idCol, _ := result.Fields.GetColumn(FieldID).(*entity.ColumnVarChar)
		textCol, _ := result.Fields.GetColumn(FieldText).(*entity.ColumnVarChar)
		seqCol, _ := result.Fields.GetColumn(FieldSeq).(*entity.ColumnInt64)
		for i := 0; i < result.ResultCount; i++ {
			sr := &SearchResult{Score: result.Scores[i]}
			if idCol != nil {
				sr.ID = idCol.Data()[i]
			}
			if textCol != nil {
				sr.TextContent = textCol.Data()[i]
			}
			if seqCol != nil {
				sr.Seq = seqCol.Data()[i]
			}
			out = append(out, sr)
		}
	}

	SortResults(out)
	span.SetAttributes(attribute.Int("result_count", len(out)))
	return out, nil
}

// SortResults 分数降序，同分按写入序号升序
func SortResults(results []*SearchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Seq < results[j].Seq
	})
}
