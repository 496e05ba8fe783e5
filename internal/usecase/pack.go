package usecase

import (
	"sort"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// Packer fits retrieved chunks into the prompt's token budget.
type Packer struct {
	tokenizer port.Tokenizer
}

var _ port.Packer = (*Packer)(nil)

func NewPacker(tokenizer port.Tokenizer) *Packer {
	return &Packer{tokenizer: tokenizer}
}

// Pack greedily selects chunks by relevance per token until the budget is
// used, then merges overlapping chunks of the same document. The result is
// ordered by score and the second value is the estimated token count.
func (p *Packer) Pack(chunks []domain.ScoredChunk, budget int) ([]domain.ScoredChunk, int) {
	if len(chunks) == 0 || budget <= 0 {
		return nil, 0
	}

	type rankedChunk struct {
		chunk   domain.ScoredChunk
		utility float64
		tokens  int
	}

	ranked := make([]rankedChunk, 0, len(chunks))
	for _, c := range chunks {
		tokens := p.tokenizer.CountTokens(c.Chunk.Text)
		if tokens == 0 {
			tokens = 1
		}
		ranked = append(ranked, rankedChunk{
			chunk:   c,
			utility: c.Score / float64(tokens),
			tokens:  tokens,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].utility > ranked[j].utility
	})

	selected := make([]domain.ScoredChunk, 0, len(ranked))
	usedTokens := 0
	for _, rc := range ranked {
		if usedTokens+rc.tokens > budget {
			continue
		}
		selected = append(selected, rc.chunk)
		usedTokens += rc.tokens
	}

	merged := mergeAdjacentChunks(selected)

	usedTokens = 0
	for _, c := range merged {
		usedTokens += p.tokenizer.CountTokens(c.Chunk.Text)
	}
	return merged, usedTokens
}

// mergeAdjacentChunks joins chunks of one document whose rune ranges touch
// or overlap, dropping the shared overlap from the second text.
func mergeAdjacentChunks(chunks []domain.ScoredChunk) []domain.ScoredChunk {
	if len(chunks) <= 1 {
		return chunks
	}

	byDoc := make(map[string][]domain.ScoredChunk)
	var docOrder []string
	for _, c := range chunks {
		if _, ok := byDoc[c.Chunk.DocID]; !ok {
			docOrder = append(docOrder, c.Chunk.DocID)
		}
		byDoc[c.Chunk.DocID] = append(byDoc[c.Chunk.DocID], c)
	}

	result := make([]domain.ScoredChunk, 0, len(chunks))
	for _, docID := range docOrder {
		docChunks := byDoc[docID]
		sort.Slice(docChunks, func(i, j int) bool {
			return docChunks[i].Chunk.Start < docChunks[j].Chunk.Start
		})

		i := 0
		for i < len(docChunks) {
			merged := docChunks[i]
			j := i + 1
			for j < len(docChunks) {
				next := docChunks[j]
				if next.Chunk.Start > merged.Chunk.End {
					break
				}
				if next.Chunk.End > merged.Chunk.End {
					tail := []rune(next.Chunk.Text)
					skip := merged.Chunk.End - next.Chunk.Start
					if skip < len(tail) {
						merged.Chunk.Text += string(tail[skip:])
					}
					merged.Chunk.End = next.Chunk.End
				}
				merged.Score = max(merged.Score, next.Score)
				j++
			}
			result = append(result, merged)
			i = j
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Score > result[j].Score
	})
	return result
}
