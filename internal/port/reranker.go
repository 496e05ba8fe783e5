package port

import "docqa/internal/domain"

// DiversityReranker reorders retrieval candidates so that near-duplicate
// chunks do not crowd out other relevant passages.
type DiversityReranker interface {
	Rerank(candidates []domain.ScoredChunk, k int) []domain.ScoredChunk
}
