package retriever

import (
	"context"
	"fmt"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// SemanticRetriever embeds the query and runs a nearest-neighbour search.
type SemanticRetriever struct {
	vectorStore port.VectorStore
	embedder    port.Embedder
}

var _ port.Retriever = (*SemanticRetriever)(nil)

func NewSemanticRetriever(vectorStore port.VectorStore, embedder port.Embedder) *SemanticRetriever {
	return &SemanticRetriever{
		vectorStore: vectorStore,
		embedder:    embedder,
	}
}

func (r *SemanticRetriever) Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error) {
	embeddings, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("embedding returned empty result")
	}

	results, err := r.vectorStore.Search(ctx, embeddings[0], k)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}
	return results, nil
}
