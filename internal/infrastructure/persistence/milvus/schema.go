// Package milvus 提供 Milvus 向量数据库访问层实现
package milvus

import (
	"strconv"

	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

// 字段名
const (
	FieldID      = "id"
	FieldVector  = "vector"
	FieldText    = "text_content"
	FieldSeq     = "seq"
	FieldCreated = "created_at"
)

// DefaultMaxTextLength VarChar 最大长度
const DefaultMaxTextLength = 65535

// EmbeddingSchema 文本向量集合 Schema，维度在创建时确定
func EmbeddingSchema(collectionName string, dim, maxTextLength int) *entity.Schema {
	if maxTextLength <= 0 {
		maxTextLength = DefaultMaxTextLength
	}
	return &entity.Schema{
		CollectionName: collectionName,
		Description:    "Blog text embeddings for similarity search",
		Fields: []*entity.Field{
			{
				Name:       FieldID,
				DataType:   entity.FieldTypeVarChar,
				PrimaryKey: true,
				AutoID:     false,
				TypeParams: map[string]string{
					"max_length": "64",
				},
			},
			{
				Name:     FieldVector,
				DataType: entity.FieldTypeFloatVector,
				TypeParams: map[string]string{
					"dim": strconv.Itoa(dim),
				},
			},
			{
				Name:     FieldText,
				DataType: entity.FieldTypeVarChar,
				TypeParams: map[string]string{
					"max_length": strconv.Itoa(maxTextLength),
				},
			},
			{
				// 写入序号（纳秒时间戳），同分时按写入顺序排序
				Name:     FieldSeq,
				DataType: entity.FieldTypeInt64,
			},
			{
				Name:     FieldCreated,
				DataType: entity.FieldTypeInt64,
			},
		},
	}
}

// vectorDim 从 Schema 中读取向量维度，未找到返回 0
func vectorDim(schema *entity.Schema) int {
	if schema == nil {
		return 0
	}
	for _, f := range schema.Fields {
		if f.Name != FieldVector {
			continue
		}
		dim, err := strconv.Atoi(f.TypeParams["dim"])
		if err != nil {
			return 0
		}
		return dim
	}
	return 0
}

// Row 待写入的一行数据
type Row struct {
	ID        string
	Vector    []float32
	Text      string
	Seq       int64
	CreatedAt int64
}
