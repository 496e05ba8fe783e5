package port

import (
	"context"

	"docqa/internal/domain"
)

// Retriever defines the interface for searching the knowledge base.
type Retriever interface {
	// Search returns the top-k chunks for the query.
	Search(ctx context.Context, query string, k int) ([]domain.ScoredChunk, error)
}
