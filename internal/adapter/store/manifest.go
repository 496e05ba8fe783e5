package store

import (
	"fmt"
	"time"

	"docqa/config"
	"docqa/internal/domain"
)

// CurrentSchemaVersion is the current on-disk layout version.
// Increment this when making breaking changes to the storage format.
const CurrentSchemaVersion = 1

// NewManifest describes a build that is about to start. Counts and BuiltAt
// are filled in when the build completes.
func NewManifest(cfg *config.Config, embeddingModel string, dimension int) domain.Manifest {
	return domain.Manifest{
		SchemaVersion:  CurrentSchemaVersion,
		EmbeddingModel: embeddingModel,
		Dimension:      dimension,
		ChunkSize:      cfg.Documents.ChunkSize,
		ChunkOverlap:   cfg.Documents.ChunkOverlap,
		BuiltAt:        time.Now().UTC(),
	}
}

// CheckManifest reports why a store cannot serve queries for the given
// embedding model. All failures are configuration errors that a rebuild fixes.
func CheckManifest(m *domain.Manifest, embeddingModel string) error {
	if m == nil {
		return &domain.ConfigError{Err: domain.ErrStoreNotBuilt, Hint: domain.BuildHint}
	}
	if m.SchemaVersion != CurrentSchemaVersion {
		return &domain.ConfigError{
			Err:  fmt.Errorf("knowledge base schema v%d, this build reads v%d", m.SchemaVersion, CurrentSchemaVersion),
			Hint: "rebuild it with 'docqa build'",
		}
	}
	if m.Chunks == 0 {
		return &domain.ConfigError{Err: domain.ErrStoreEmpty, Hint: "add documents to the documents directory and run 'docqa build'"}
	}
	if m.EmbeddingModel != embeddingModel {
		return &domain.ConfigError{
			Err: fmt.Errorf("%w: knowledge base was built with %q, configured model is %q",
				domain.ErrModelMismatch, m.EmbeddingModel, embeddingModel),
			Hint: "rebuild it with 'docqa build' or restore the previous embedding model",
		}
	}
	return nil
}

// StaleSettings reports chunking settings that changed since the build.
// Queries still work but the store no longer reflects the configuration.
func StaleSettings(m *domain.Manifest, cfg *config.Config) (bool, string) {
	if m == nil {
		return false, ""
	}
	if m.ChunkSize != cfg.Documents.ChunkSize || m.ChunkOverlap != cfg.Documents.ChunkOverlap {
		return true, fmt.Sprintf("chunking changed from %d/%d to %d/%d since the last build",
			m.ChunkSize, m.ChunkOverlap, cfg.Documents.ChunkSize, cfg.Documents.ChunkOverlap)
	}
	return false, ""
}
