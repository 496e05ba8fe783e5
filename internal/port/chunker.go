package port

import "docqa/internal/domain"

// Chunker splits a parsed document into chunks.
type Chunker interface {
	Split(doc domain.Document) []domain.Chunk
}
