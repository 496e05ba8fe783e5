package usecase

import (
	"context"
	"log/slog"
	"time"

	"docqa/config"
	"docqa/internal/adapter/analyzer"
	"docqa/internal/adapter/cache"
	"docqa/internal/adapter/retriever"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// Retriever finds the chunks handed to the model for one question.
type Retriever struct {
	search      port.Retriever
	cache       *cache.QueryCache // nil when disabled
	mmrReranker port.DiversityReranker
	minScore    float64 // Filter results below this score (0 = disabled)
	embedder    port.Embedder
	logger      *slog.Logger
}

// NewRetriever wires semantic search over store with the optional cache
// and MMR reranker from the agent configuration.
func NewRetriever(cfg config.AgentConfig, store port.VectorStore, embedder port.Embedder, logger *slog.Logger) *Retriever {
	r := &Retriever{
		search:   retriever.NewSemanticRetriever(store, embedder),
		minScore: cfg.MinScore,
		embedder: embedder,
		logger:   logger,
	}
	if cfg.CacheSize > 0 {
		r.cache = cache.NewQueryCache(cfg.CacheSize, time.Duration(cfg.CacheTTLSecs)*time.Second)
		r.search = cache.NewCachedRetriever(r.search, r.cache)
	}
	if cfg.MMRLambda > 0 {
		r.mmrReranker = retriever.NewMMRReranker(cfg.MMRLambda, 0.9, analyzer.NewTokenizer())
	}
	return r
}

// EmbeddingModel is the model questions are embedded with.
func (r *Retriever) EmbeddingModel() string {
	return r.embedder.ModelName()
}

// SetGeneration drops cached results from an earlier build.
func (r *Retriever) SetGeneration(gen string) {
	if r.cache != nil {
		r.cache.SetGeneration(gen)
	}
}

// Retrieve searches for chunks matching the query.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]domain.ScoredChunk, error) {
	fetch := topK
	if r.mmrReranker != nil {
		fetch = topK * 2
	}

	candidates, err := r.search.Search(ctx, query, fetch)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	results := candidates
	if r.mmrReranker != nil {
		results = r.mmrReranker.Rerank(candidates, topK)
	} else if len(results) > topK {
		results = results[:topK]
	}

	if r.minScore != 0 {
		results = r.filterByThreshold(results)
	}

	r.logger.Debug("retrieved chunks", "candidates", len(candidates), "kept", len(results))
	return results, nil
}

// filterByThreshold removes results below the minimum score threshold.
func (r *Retriever) filterByThreshold(results []domain.ScoredChunk) []domain.ScoredChunk {
	filtered := make([]domain.ScoredChunk, 0, len(results))
	for _, res := range results {
		if res.Score >= r.minScore {
			filtered = append(filtered, res)
		}
	}
	return filtered
}
