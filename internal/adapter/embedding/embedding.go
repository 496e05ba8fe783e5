// Package embedding provides text embedders for the knowledge base.
package embedding

import (
	"fmt"
	"log/slog"

	"docqa/config"
	"docqa/internal/port"
)

// New returns the embedder selected by cfg.Provider.
func New(cfg config.EmbeddingConfig, logger *slog.Logger) (port.Embedder, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaEmbedder(cfg, logger), nil
	case "hash":
		return NewHashEmbedder(cfg.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}
}
