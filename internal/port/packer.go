package port

import "docqa/internal/domain"

// Packer selects the scored chunks that fit a token budget.
type Packer interface {
	Pack(chunks []domain.ScoredChunk, budget int) ([]domain.ScoredChunk, int)
}
