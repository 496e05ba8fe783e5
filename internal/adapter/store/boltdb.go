package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.etcd.io/bbolt"

	"docqa/internal/adapter/memstore"
	"docqa/internal/domain"
	"docqa/internal/port"
)

var (
	bucketChunks  = []byte("chunks")
	bucketVectors = []byte("vectors")
	bucketMeta    = []byte("meta")
	keyManifest   = []byte("manifest")
)

// BoltStore persists records in bbolt and answers searches from an
// in-memory index loaded on open.
type BoltStore struct {
	db     *bbolt.DB
	index  *memstore.MemoryStore
	logger *slog.Logger
}

var _ port.VectorStore = (*BoltStore)(nil)

func NewBoltStore(ctx context.Context, path string, readOnly bool, logger *slog.Logger) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second, ReadOnly: readOnly})
	if err != nil {
		if errors.Is(err, bbolt.ErrTimeout) {
			return nil, fmt.Errorf("knowledge base %s is in use by another docqa process: %w", path, err)
		}
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	if !readOnly {
		err = db.Update(func(tx *bbolt.Tx) error {
			for _, b := range [][]byte{bucketChunks, bucketVectors, bucketMeta} {
				if _, err := tx.CreateBucketIfNotExists(b); err != nil {
					return fmt.Errorf("failed to create bucket %s: %w", b, err)
				}
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, err
		}
	}

	s := &BoltStore{db: db, index: memstore.NewMemoryStore(), logger: logger}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load vectors: %w", err)
	}
	return s, nil
}

// load mirrors the persisted records into the search index.
func (s *BoltStore) load(ctx context.Context) error {
	var manifest *domain.Manifest
	var records []domain.Record

	err := s.db.View(func(tx *bbolt.Tx) error {
		if meta := tx.Bucket(bucketMeta); meta != nil {
			if data := meta.Get(keyManifest); data != nil {
				var m domain.Manifest
				if err := json.Unmarshal(data, &m); err != nil {
					return fmt.Errorf("decode manifest: %w", err)
				}
				manifest = &m
			}
		}

		chunks, vectors := tx.Bucket(bucketChunks), tx.Bucket(bucketVectors)
		if chunks == nil || vectors == nil {
			return nil
		}
		return chunks.ForEach(func(k, v []byte) error {
			var c domain.Chunk
			if err := json.Unmarshal(v, &c); err != nil {
				s.logger.Warn("skipping corrupt chunk", "id", string(k), "error", err)
				return nil
			}
			vec, err := decodeVector(vectors.Get(k))
			if err != nil || len(vec) == 0 {
				s.logger.Warn("skipping chunk without vector", "id", string(k))
				return nil
			}
			records = append(records, domain.Record{Chunk: c, Vector: vec})
			return nil
		})
	})
	if err != nil {
		return err
	}

	reset := domain.Manifest{}
	if manifest != nil {
		reset.Dimension = manifest.Dimension
	}
	if err := s.index.Reset(ctx, reset); err != nil {
		return err
	}
	if err := s.index.Upsert(ctx, records); err != nil {
		// leave the index empty so a rebuild can still open the store
		s.logger.Warn("stored vectors are inconsistent, rebuild required", "error", err)
		if err := s.index.Reset(ctx, reset); err != nil {
			return err
		}
	}
	if manifest != nil {
		return s.index.SetManifest(ctx, *manifest)
	}
	return nil
}

// Reset empties every bucket, including the manifest.
func (s *BoltStore) Reset(ctx context.Context, m domain.Manifest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketChunks, bucketVectors, bucketMeta} {
			if err := tx.DeleteBucket(name); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("reset knowledge base: %w", err)
	}
	return s.index.Reset(ctx, m)
}

// Upsert writes the batch in a single transaction after checking every
// vector, so a bad batch leaves earlier records untouched.
func (s *BoltStore) Upsert(ctx context.Context, records []domain.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if err := s.index.Check(records); err != nil {
		return err
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		chunks, vectors := tx.Bucket(bucketChunks), tx.Bucket(bucketVectors)
		if chunks == nil || vectors == nil {
			return fmt.Errorf("knowledge base buckets not found")
		}
		for _, r := range records {
			data, err := json.Marshal(r.Chunk)
			if err != nil {
				return err
			}
			if err := chunks.Put([]byte(r.Chunk.ID), data); err != nil {
				return err
			}
			if err := vectors.Put([]byte(r.Chunk.ID), encodeVector(r.Vector)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return s.index.Upsert(ctx, records)
}

func (s *BoltStore) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	return s.index.Search(ctx, vector, k)
}

func (s *BoltStore) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

func (s *BoltStore) Manifest(ctx context.Context) (*domain.Manifest, error) {
	return s.index.Manifest(ctx)
}

func (s *BoltStore) SetManifest(ctx context.Context, m domain.Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketMeta)
		if err != nil {
			return err
		}
		return b.Put(keyManifest, data)
	})
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return s.index.SetManifest(ctx, m)
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
