// Package embedding 提供文本向量化客户端
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"np-blogger/internal/config"
	apperrors "np-blogger/pkg/errors"
)

// HTTPClient 兼容 TEI /embed 接口的 HTTP 客户端
type HTTPClient struct {
	endpoint   string
	model      string
	dimension  int
	httpClient *http.Client
}

type embedRequest struct {
	Texts []string `json:"texts"`
	Model string   `json:"model,omitempty"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

// NewHTTPClient 创建 HTTP Embedding 客户端
func NewHTTPClient(cfg *config.EmbeddingConfig) (*HTTPClient, error) {
	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("embedding endpoint is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid embedding endpoint: %w", err)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/embed"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		endpoint:   u.String(),
		model:      cfg.Model,
		dimension:  cfg.Dimension,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// Embed 向量化单段文本
func (c *HTTPClient) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.ErrEmptyText
	}

	reqBody, err := json.Marshal(&embedRequest{Texts: []string{text}, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create embed request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding request failed: status=%d", httpResp.StatusCode)
	}

	var resp embedResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}
	if len(resp.Embeddings) != 1 {
		return nil, fmt.Errorf("embedding response: expected 1 vector, got %d", len(resp.Embeddings))
	}
	return checkDimension(resp.Embeddings[0], c.dimension)
}

func checkDimension(vec []float32, want int) ([]float32, error) {
	if len(vec) == 0 {
		return nil, fmt.Errorf("embedding response: empty vector")
	}
	if want > 0 && len(vec) != want {
		return nil, apperrors.ErrInvalidVector.WithDetail(fmt.Sprintf("embedding dimension %d, configured %d", len(vec), want))
	}
	return vec, nil
}
