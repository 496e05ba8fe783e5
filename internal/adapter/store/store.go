// Package store persists the knowledge base.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"

	"docqa/config"
	"docqa/internal/adapter/memstore"
	"docqa/internal/domain"
	"docqa/internal/port"
)

const (
	boltFile   = "kb.bolt"
	sqliteFile = "kb.sqlite"
)

// Options control how Open attaches to a store.
type Options struct {
	// ReadOnly opens file backends without write access so several query
	// processes can share them.
	ReadOnly bool
	Logger   *slog.Logger
}

// Open returns the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config, opts Options) (port.VectorStore, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Store.Backend {
	case "", "bolt":
		path := filepath.Join(cfg.Store.Path, boltFile)
		if err := prepare(path, opts.ReadOnly); err != nil {
			return nil, err
		}
		return NewBoltStore(ctx, path, opts.ReadOnly, logger)
	case "sqlite":
		path := filepath.Join(cfg.Store.Path, sqliteFile)
		if err := prepare(path, opts.ReadOnly); err != nil {
			return nil, err
		}
		return NewSQLiteStore(ctx, path, opts.ReadOnly, logger)
	case "qdrant":
		return NewQdrantStore(ctx, cfg.Store.Qdrant, cfg.Store.Collection, logger)
	case "memory":
		return memstore.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

// Exists reports whether a completed build is present. A store that was
// reset but never finished has no manifest and does not count.
func Exists(ctx context.Context, cfg *config.Config) (bool, error) {
	switch cfg.Store.Backend {
	case "", "bolt", "sqlite":
		file := boltFile
		if cfg.Store.Backend == "sqlite" {
			file = sqliteFile
		}
		if _, err := os.Stat(filepath.Join(cfg.Store.Path, file)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return false, nil
			}
			return false, err
		}
	case "memory":
		return false, nil
	}

	s, err := Open(ctx, cfg, Options{ReadOnly: true})
	if err != nil {
		return false, err
	}
	defer s.Close()

	if _, err := s.Manifest(ctx); err != nil {
		if errors.Is(err, domain.ErrStoreNotBuilt) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func prepare(path string, readOnly bool) error {
	if readOnly {
		if _, err := os.Stat(path); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return &domain.ConfigError{
					Err:  fmt.Errorf("%w: %s not found", domain.ErrStoreNotBuilt, path),
					Hint: domain.BuildHint,
				}
			}
			return err
		}
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// encodeVector stores float32 values little-endian, 4 bytes each.
func encodeVector(v []float32) []byte {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vector blob has %d bytes, not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v, nil
}
