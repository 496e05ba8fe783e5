package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"docqa/config"
	"docqa/internal/adapter/store"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// BuildResult contains the results of a knowledge base build.
type BuildResult struct {
	Files       int
	Skipped     int
	Failed      []FileError
	Unsupported []string
	Chunks      int
	Embedded    int
	Elapsed     time.Duration
	Manifest    *domain.Manifest
}

// BatchError is returned when a batch of chunks could not be embedded or
// stored. Batches before it remain in the store.
type BatchError struct {
	Batch    int
	Embedded int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("build stopped at batch %d after %d chunks: %v", e.Batch, e.Embedded, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

// Builder drives the loader and embedder into the vector store.
type Builder struct {
	cfg      *config.Config
	loader   *Loader
	embedder port.Embedder
	store    port.VectorStore
	logger   *slog.Logger
}

func NewBuilder(cfg *config.Config, loader *Loader, embedder port.Embedder, store port.VectorStore, logger *slog.Logger) *Builder {
	return &Builder{
		cfg:      cfg,
		loader:   loader,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Build rebuilds the knowledge base from dir. The store is emptied first
// and the manifest is written only after every batch succeeded, so an
// interrupted build leaves a store that reports itself as not built.
func (b *Builder) Build(ctx context.Context, dir string, progress ProgressFunc) (*BuildResult, error) {
	start := time.Now()
	result := &BuildResult{}

	if info, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("documents directory: %w", err)
	} else if !info.IsDir() {
		return nil, fmt.Errorf("documents directory %s is not a directory", dir)
	}

	manifest := store.NewManifest(b.cfg, b.embedder.ModelName(), b.embedder.Dimension())
	if err := b.store.Reset(ctx, manifest); err != nil {
		return nil, fmt.Errorf("failed to reset store: %w", err)
	}

	batchSize := b.cfg.Embedding.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	batch := make([]domain.Chunk, 0, batchSize)
	batchNo := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		batchNo++
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		vectors, err := b.embedder.Embed(ctx, texts)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch))
		}
		if err != nil {
			return &BatchError{Batch: batchNo, Embedded: result.Embedded, Err: err}
		}

		records := make([]domain.Record, len(batch))
		for i, c := range batch {
			records[i] = domain.Record{Chunk: c, Vector: vectors[i]}
		}
		if err := b.store.Upsert(ctx, records); err != nil {
			return &BatchError{Batch: batchNo, Embedded: result.Embedded, Err: err}
		}

		result.Embedded += len(batch)
		b.logger.Debug("batch stored", "batch", batchNo, "chunks", len(batch), "total", result.Embedded)
		batch = batch[:0]
		return nil
	}

	report, err := b.loader.Load(ctx, dir, func(c domain.Chunk) error {
		batch = append(batch, c)
		if len(batch) >= batchSize {
			return flush()
		}
		return nil
	}, WithProgress(progress))
	if err == nil {
		err = flush()
	}
	if report != nil {
		result.Files = report.Files
		result.Skipped = report.Skipped
		result.Failed = report.Failed
		result.Unsupported = report.Unsupported
		result.Chunks = report.Chunks
	}
	result.Elapsed = time.Since(start)
	if err != nil {
		return result, err
	}

	manifest.Dimension = b.embedder.Dimension()
	manifest.Documents = result.Files
	manifest.Chunks = result.Embedded
	manifest.BuiltAt = time.Now().UTC()
	if err := b.store.SetManifest(ctx, manifest); err != nil {
		return result, fmt.Errorf("failed to write manifest: %w", err)
	}
	result.Manifest = &manifest

	b.logger.Info("knowledge base built",
		"documents", result.Files,
		"chunks", result.Embedded,
		"skipped", result.Skipped,
		"failed", len(result.Failed),
		"elapsed", result.Elapsed.Round(time.Millisecond))
	return result, nil
}
