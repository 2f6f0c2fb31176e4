package embedding

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"
	"github.com/viterin/vek/vek32"

	"np-blogger/internal/config"
	apperrors "np-blogger/pkg/errors"
)

// EinoEmbedder 将 Eino Embedder 适配为单文本 float32 接口
type EinoEmbedder struct {
	embedder  embedding.Embedder
	dimension int
}

// NewEinoEmbedder 创建基于 OpenAI 兼容接口的 Embedder
func NewEinoEmbedder(ctx context.Context, cfg *config.EmbeddingConfig) (*EinoEmbedder, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}

	e, err := openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.Endpoint,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create eino embedder: %w", err)
	}
	return WrapEinoEmbedder(e, cfg.Dimension), nil
}

// WrapEinoEmbedder 包装已有的 Eino Embedder
func WrapEinoEmbedder(e embedding.Embedder, dimension int) *EinoEmbedder {
	return &EinoEmbedder{embedder: e, dimension: dimension}
}

// Embed 向量化单段文本
func (e *EinoEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ErrEmptyText
	}
	vectors, err := e.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedding response: expected 1 vector, got %d", len(vectors))
	}
	return checkDimension(vek32.FromFloat64(vectors[0]), e.dimension)
}
