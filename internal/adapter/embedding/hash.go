package embedding

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"

	"docqa/internal/adapter/analyzer"
	"docqa/internal/port"
)

const DefaultHashDimension = 256

// HashEmbedder is a deterministic offline embedder. Each content word is
// hashed into one signed bucket and the result is L2-normalised, so texts
// sharing vocabulary score high under cosine similarity.
type HashEmbedder struct {
	dimension int
	tokenizer *analyzer.Tokenizer
}

var _ port.Embedder = (*HashEmbedder)(nil)

func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension <= 0 {
		dimension = DefaultHashDimension
	}
	return &HashEmbedder{
		dimension: dimension,
		tokenizer: analyzer.NewTokenizer(),
	}
}

func (e *HashEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = e.vector(text)
	}
	return out, nil
}

func (e *HashEmbedder) vector(text string) []float32 {
	v := make([]float32, e.dimension)
	for _, tok := range e.tokenizer.Tokenize(text) {
		h := fnv.New64a()
		h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(e.dimension))
		if sum&(1<<63) != 0 {
			v[idx]--
		} else {
			v[idx]++
		}
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if norm == 0 {
		return v
	}
	inv := float32(1 / math.Sqrt(norm))
	for i := range v {
		v[i] *= inv
	}
	return v
}

func (e *HashEmbedder) Dimension() int { return e.dimension }

func (e *HashEmbedder) ModelName() string {
	return fmt.Sprintf("hash-%d", e.dimension)
}

func (e *HashEmbedder) Ping(context.Context) error { return nil }
