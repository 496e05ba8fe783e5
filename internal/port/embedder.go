package port

import (
	"context"

	"docqa/internal/domain"
)

// Embedder generates vector embeddings for text.
type Embedder interface {
	// Embed returns one vector per input text, all of Dimension() length.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the embedding vector dimension, or 0 if it is not
	// known until the first successful call.
	Dimension() int

	// ModelName returns the name of the embedding model.
	ModelName() string

	// Ping checks that the embedding service is reachable.
	Ping(ctx context.Context) error
}

// VectorStore persists chunk records and searches them by similarity.
type VectorStore interface {
	// Reset drops every record and prepares an empty store for a rebuild.
	// The manifest is not written until SetManifest.
	Reset(ctx context.Context, m domain.Manifest) error

	// Upsert adds or replaces records. A batch with any vector of the wrong
	// dimension is rejected as a whole.
	Upsert(ctx context.Context, records []domain.Record) error

	// Search returns the k records most similar to vector, best first.
	Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error)

	Count(ctx context.Context) (int, error)

	// Manifest returns the build manifest, or domain.ErrStoreNotBuilt.
	Manifest(ctx context.Context) (*domain.Manifest, error)

	SetManifest(ctx context.Context, m domain.Manifest) error

	Close() error
}
