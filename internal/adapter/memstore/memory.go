// Package memstore is an in-memory vector index. It serves as the
// "memory" backend and as the search index the file backends load into.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"docqa/internal/domain"
	"docqa/internal/port"
)

type MemoryStore struct {
	mu        sync.RWMutex
	records   map[string]domain.Record
	dimension int
	manifest  *domain.Manifest
}

var _ port.VectorStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]domain.Record),
	}
}

// Reset drops every record. The manifest dimension, if set, becomes the
// required vector length; otherwise the first upserted batch decides it.
func (s *MemoryStore) Reset(_ context.Context, m domain.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]domain.Record)
	s.dimension = m.Dimension
	s.manifest = nil
	return nil
}

// Check validates a batch against the store dimension without writing it.
func (s *MemoryStore) Check(records []domain.Record) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, err := s.check(records)
	return err
}

func (s *MemoryStore) check(records []domain.Record) (int, error) {
	dim := s.dimension
	for _, r := range records {
		if dim == 0 {
			dim = len(r.Vector)
		}
		if len(r.Vector) == 0 || len(r.Vector) != dim {
			return 0, fmt.Errorf("%w: chunk %s has %d values, expected %d",
				domain.ErrDimensionMismatch, r.Chunk.ID, len(r.Vector), dim)
		}
	}
	return dim, nil
}

func (s *MemoryStore) Upsert(_ context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	dim, err := s.check(records)
	if err != nil {
		return err
	}
	s.dimension = dim
	for _, r := range records {
		s.records[r.Chunk.ID] = r
	}
	return nil
}

// Search ranks every record by cosine similarity. Equal scores are ordered
// by chunk id so results are stable across rebuilds.
func (s *MemoryStore) Search(_ context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.dimension == 0 {
		return nil, domain.ErrStoreNotBuilt
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d values, store was built with %d",
			domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 || len(s.records) == 0 {
		return nil, nil
	}

	scores := make([]domain.ScoredChunk, 0, len(s.records))
	for _, r := range s.records {
		scores = append(scores, domain.ScoredChunk{
			Chunk: r.Chunk,
			Score: CosineSimilarity(vector, r.Vector),
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].Chunk.ID < scores[j].Chunk.ID
	})

	if k > len(scores) {
		k = len(scores)
	}
	return scores[:k], nil
}

func (s *MemoryStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

func (s *MemoryStore) Manifest(context.Context) (*domain.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.manifest == nil {
		return nil, domain.ErrStoreNotBuilt
	}
	m := *s.manifest
	return &m, nil
}

func (s *MemoryStore) SetManifest(_ context.Context, m domain.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dimension == 0 {
		s.dimension = m.Dimension
	}
	s.manifest = &m
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when either is a zero vector.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
