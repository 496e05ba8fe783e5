package retriever

import (
	"docqa/internal/adapter/analyzer"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// MMRReranker implements Maximal Marginal Relevance for result diversification.
type MMRReranker struct {
	lambda       float64
	dedupJaccard float64
	tokenizer    *analyzer.Tokenizer
}

var _ port.DiversityReranker = (*MMRReranker)(nil)

// NewMMRReranker creates a new MMR reranker. Candidates whose word overlap
// with an already selected chunk exceeds dedupJaccard are dropped.
func NewMMRReranker(lambda, dedupJaccard float64, tokenizer *analyzer.Tokenizer) *MMRReranker {
	return &MMRReranker{
		lambda:       lambda,
		dedupJaccard: dedupJaccard,
		tokenizer:    tokenizer,
	}
}

// Rerank applies MMR to diversify the results.
// MMR(c) = λ * relevance(c) - (1-λ) * max_similarity(c, selected)
func (r *MMRReranker) Rerank(candidates []domain.ScoredChunk, k int) []domain.ScoredChunk {
	if len(candidates) == 0 || k <= 0 {
		return nil
	}
	if k > len(candidates) {
		k = len(candidates)
	}

	// cosine scores may be negative, so normalise by range
	minScore, maxScore := candidates[0].Score, candidates[0].Score
	for _, c := range candidates {
		minScore = min(minScore, c.Score)
		maxScore = max(maxScore, c.Score)
	}
	span := maxScore - minScore

	tokens := make([][]string, len(candidates))
	for i, c := range candidates {
		tokens[i] = r.tokenizer.Tokenize(c.Chunk.Text)
	}

	selected := make([]int, 0, k)
	used := make([]bool, len(candidates))

	for len(selected) < k {
		bestIdx := -1
		bestMMR := -1e9

		for i, candidate := range candidates {
			if used[i] {
				continue
			}
			relevance := 1.0
			if span > 0 {
				relevance = (candidate.Score - minScore) / span
			}

			maxSim := 0.0
			for _, j := range selected {
				maxSim = max(maxSim, jaccardSimilarity(tokens[i], tokens[j]))
			}
			if maxSim > r.dedupJaccard {
				continue
			}

			mmr := r.lambda*relevance - (1-r.lambda)*maxSim
			if mmr > bestMMR {
				bestMMR = mmr
				bestIdx = i
			}
		}

		if bestIdx == -1 {
			break
		}
		selected = append(selected, bestIdx)
		used[bestIdx] = true
	}

	out := make([]domain.ScoredChunk, len(selected))
	for i, idx := range selected {
		out[i] = candidates[idx]
	}
	return out
}

// jaccardSimilarity computes the Jaccard similarity between two token sets.
func jaccardSimilarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1.0
	}
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	setA := make(map[string]struct{}, len(a))
	for _, t := range a {
		setA[t] = struct{}{}
	}

	setB := make(map[string]struct{}, len(b))
	for _, t := range b {
		setB[t] = struct{}{}
	}

	intersection := 0
	for t := range setA {
		if _, exists := setB[t]; exists {
			intersection++
		}
	}

	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
