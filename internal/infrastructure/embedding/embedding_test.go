package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"np-blogger/internal/config"
	apperrors "np-blogger/pkg/errors"
)

func TestClientEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embed", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"hello"}, req.Texts)
		_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{0.1, 0.2, 0.3}}})
	}))
	defer srv.Close()

	c, err := NewHTTPClient(&config.EmbeddingConfig{Endpoint: srv.URL, Dimension: 3})
	require.NoError(t, err)

	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
}

func TestClientEmbedErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		dim     int
	}{
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		}, 0},
		{"dimension mismatch", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{Embeddings: [][]float32{{1, 2}}})
		}, 3},
		{"no vectors", func(w http.ResponseWriter, _ *http.Request) {
			_ = json.NewEncoder(w).Encode(embedResponse{})
		}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			c, err := NewHTTPClient(&config.EmbeddingConfig{Endpoint: srv.URL, Dimension: tt.dim})
			require.NoError(t, err)
			_, err = c.Embed(context.Background(), "x")
			assert.Error(t, err)
		})
	}
}

func TestClientRejectsEmptyText(t *testing.T) {
	c, err := NewHTTPClient(&config.EmbeddingConfig{Endpoint: "http://localhost:1"})
	require.NoError(t, err)
	_, err = c.Embed(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrEmptyText)

	_, err = NewHTTPClient(&config.EmbeddingConfig{})
	assert.Error(t, err)
}

type stubEmbedder struct {
	vectors [][]float64
	err     error
}

func (s stubEmbedder) EmbedStrings(_ context.Context, _ []string, _ ...embedding.Option) ([][]float64, error) {
	return s.vectors, s.err
}

func TestEinoEmbedder(t *testing.T) {
	ctx := context.Background()

	vec, err := WrapEinoEmbedder(stubEmbedder{vectors: [][]float64{{0.5, 0.25}}}, 2).Embed(ctx, "topic")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25}, vec)

	_, err = WrapEinoEmbedder(stubEmbedder{vectors: [][]float64{{0.5}}}, 2).Embed(ctx, "topic")
	assert.ErrorIs(t, err, apperrors.ErrInvalidVector)

	_, err = WrapEinoEmbedder(stubEmbedder{err: errors.New("quota")}, 0).Embed(ctx, "topic")
	assert.EqualError(t, err, "quota")
}
