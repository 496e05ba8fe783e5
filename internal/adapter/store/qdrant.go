package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"docqa/config"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// manifestPointID is the fixed id of the manifest point in the sidecar
// collection.
var manifestPointID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("docqa/manifest")).String()

// QdrantStore keeps records in a Qdrant collection. The manifest lives in a
// one-point sidecar collection named "<collection>_manifest".
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	metaName   string
	logger     *slog.Logger

	mu        sync.Mutex
	dimension int
}

var _ port.VectorStore = (*QdrantStore)(nil)

func NewQdrantStore(ctx context.Context, cfg config.QdrantConfig, collection string, logger *slog.Logger) (*QdrantStore, error) {
	host, p := cfg.Host, cfg.Port
	if host == "" {
		host = "localhost"
	}
	if p == 0 {
		p = 6334
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   p,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, &domain.ServiceError{Service: "qdrant", Op: "connect", Err: err}
	}
	s := &QdrantStore{
		client:     client,
		collection: collection,
		metaName:   collection + "_manifest",
		logger:     logger,
	}
	if m, err := s.Manifest(ctx); err == nil {
		s.dimension = m.Dimension
	}
	return s, nil
}

// qdrantError wraps a failed call. Unreachable servers and timeouts match
// domain.ErrServiceUnavailable.
func qdrantError(op string, err error) error {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded:
		err = fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
	}
	return &domain.ServiceError{Service: "qdrant", Op: op, Err: err}
}

// pointID maps a chunk id to the UUID form Qdrant requires.
func pointID(chunkID string) *qdrant.PointId {
	return qdrant.NewIDUUID(uuid.NewSHA1(uuid.NameSpaceOID, []byte(chunkID)).String())
}

func (s *QdrantStore) createCollection(ctx context.Context, name string, size int) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return qdrantError("collection exists", err)
	}
	if exists {
		return nil
	}
	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: &qdrant.VectorsConfig{
			Config: &qdrant.VectorsConfig_Params{
				Params: &qdrant.VectorParams{
					Size:     uint64(size),
					Distance: qdrant.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return qdrantError("create collection "+name, err)
	}
	return nil
}

// Reset drops both collections. The data collection is recreated as soon as
// the vector size is known.
func (s *QdrantStore) Reset(ctx context.Context, m domain.Manifest) error {
	for _, name := range []string{s.collection, s.metaName} {
		exists, err := s.client.CollectionExists(ctx, name)
		if err != nil {
			return qdrantError("collection exists", err)
		}
		if !exists {
			continue
		}
		if err := s.client.DeleteCollection(ctx, name); err != nil {
			return qdrantError("delete collection "+name, err)
		}
	}

	s.mu.Lock()
	s.dimension = m.Dimension
	s.mu.Unlock()

	if m.Dimension > 0 {
		return s.createCollection(ctx, s.collection, m.Dimension)
	}
	return nil
}

func (s *QdrantStore) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}

	s.mu.Lock()
	dim := s.dimension
	s.mu.Unlock()
	created := dim != 0
	if dim == 0 {
		dim = len(records[0].Vector)
	}
	for _, r := range records {
		if len(r.Vector) == 0 || len(r.Vector) != dim {
			return fmt.Errorf("%w: chunk %s has %d values, expected %d",
				domain.ErrDimensionMismatch, r.Chunk.ID, len(r.Vector), dim)
		}
	}
	if !created {
		if err := s.createCollection(ctx, s.collection, dim); err != nil {
			return err
		}
		s.mu.Lock()
		s.dimension = dim
		s.mu.Unlock()
	}

	pts := make([]*qdrant.PointStruct, len(records))
	for i, r := range records {
		c := r.Chunk
		pts[i] = &qdrant.PointStruct{
			Id:      pointID(c.ID),
			Vectors: qdrant.NewVectors(r.Vector...),
			Payload: qdrant.NewValueMap(map[string]any{
				"chunk_id": c.ID,
				"doc_id":   c.DocID,
				"source":   c.Source,
				"type":     string(c.Type),
				"index":    int64(c.Index),
				"start":    int64(c.Start),
				"end":      int64(c.End),
				"text":     c.Text,
			}),
		}
	}

	wait := true
	_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         pts,
	})
	if err != nil {
		return qdrantError(fmt.Sprintf("upsert %d points", len(pts)), err)
	}
	return nil
}

func (s *QdrantStore) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	s.mu.Lock()
	dim := s.dimension
	s.mu.Unlock()

	if dim == 0 {
		return nil, domain.ErrStoreNotBuilt
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d values, store was built with %d",
			domain.ErrDimensionMismatch, len(vector), dim)
	}
	if k <= 0 {
		return nil, nil
	}

	limit := uint64(k)
	resp, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Limit:          &limit,
		Query:          qdrant.NewQuery(vector...),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, qdrantError("query "+s.collection, err)
	}

	out := make([]domain.ScoredChunk, 0, len(resp))
	for _, r := range resp {
		p := r.Payload
		out = append(out, domain.ScoredChunk{
			Chunk: domain.Chunk{
				ID:     p["chunk_id"].GetStringValue(),
				DocID:  p["doc_id"].GetStringValue(),
				Source: p["source"].GetStringValue(),
				Type:   domain.FileType(p["type"].GetStringValue()),
				Index:  int(p["index"].GetIntegerValue()),
				Start:  int(p["start"].GetIntegerValue()),
				End:    int(p["end"].GetIntegerValue()),
				Text:   p["text"].GetStringValue(),
			},
			Score: float64(r.Score),
		})
	}
	return out, nil
}

func (s *QdrantStore) Count(ctx context.Context) (int, error) {
	exists, err := s.client.CollectionExists(ctx, s.collection)
	if err != nil {
		return 0, qdrantError("collection exists", err)
	}
	if !exists {
		return 0, nil
	}
	exact := true
	n, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          &exact,
	})
	if err != nil {
		return 0, qdrantError("count "+s.collection, err)
	}
	return int(n), nil
}

func (s *QdrantStore) Manifest(ctx context.Context) (*domain.Manifest, error) {
	exists, err := s.client.CollectionExists(ctx, s.metaName)
	if err != nil {
		return nil, qdrantError("collection exists", err)
	}
	if !exists {
		return nil, domain.ErrStoreNotBuilt
	}

	points, err := s.client.Get(ctx, &qdrant.GetPoints{
		CollectionName: s.metaName,
		Ids:            []*qdrant.PointId{qdrant.NewIDUUID(manifestPointID)},
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, qdrantError("read manifest", err)
	}
	if len(points) == 0 {
		return nil, domain.ErrStoreNotBuilt
	}

	var m domain.Manifest
	if err := json.Unmarshal([]byte(points[0].Payload["manifest"].GetStringValue()), &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

func (s *QdrantStore) SetManifest(ctx context.Context, m domain.Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := s.createCollection(ctx, s.metaName, 1); err != nil {
		return err
	}

	wait := true
	_, err = s.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: s.metaName,
		Wait:           &wait,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(manifestPointID),
			Vectors: qdrant.NewVectors(1),
			Payload: qdrant.NewValueMap(map[string]any{"manifest": string(data)}),
		}},
	})
	if err != nil {
		return qdrantError("write manifest", err)
	}

	s.mu.Lock()
	if s.dimension == 0 {
		s.dimension = m.Dimension
	}
	s.mu.Unlock()
	return nil
}

func (s *QdrantStore) Close() error {
	return s.client.Close()
}
