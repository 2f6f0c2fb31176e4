package generation

import (
	"context"

	apperrors "np-blogger/pkg/errors"
)

// Archive 将已生成的文章向量化后写入指定集合，供后续检索复用
func (o *Orchestrator) Archive(ctx context.Context, collection, content string) error {
	if o.embedder == nil || o.retriever == nil {
		return apperrors.ErrStorageUnavailable.WithDetail("archive requires embedder and vector store")
	}

	embedCtx, cancel := withTimeout(ctx, o.timeouts.Embed)
	vector, err := o.embedder.Embed(embedCtx, content)
	cancel()
	if err != nil {
		return providerError(embedCtx, err, apperrors.ErrEmbeddingProvider)
	}

	storeCtx, cancel := withTimeout(ctx, o.timeouts.Store)
	defer cancel()
	_, err = o.retriever.StoreEmbedding(storeCtx, collection, content, vector)
	return err
}
