package cli

import (
	"context"
	"fmt"

	"docqa/config"
	"docqa/internal/adapter/embedding"
	"docqa/internal/adapter/llm"
	"docqa/internal/adapter/store"
	"docqa/internal/port"
	"docqa/internal/usecase"
)

// app holds the components a query command works with.
type app struct {
	store     port.VectorStore
	embedder  port.Embedder
	llm       port.LLM
	retriever *usecase.Retriever
	agent     *usecase.Agent
}

func (a *app) Close() error {
	return a.store.Close()
}

// openApp wires the query side from cfg. The store is opened read-only so
// several query processes can share it.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	st, err := store.Open(ctx, cfg, store.Options{ReadOnly: true, Logger: log})
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, st)
}

// newApp wires the embedder, model and agent around an opened store. The
// store is closed if wiring fails.
func newApp(ctx context.Context, cfg *config.Config, st port.VectorStore) (*app, error) {
	emb, err := embedding.New(cfg.Embedding, log)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	model, err := llm.New(cfg.LLM, log)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("failed to create llm: %w", err)
	}

	r := usecase.NewRetriever(cfg.Agent, st, emb, log)
	agent, err := usecase.NewAgent(cfg, r, model, st, log)
	if err != nil {
		st.Close()
		return nil, err
	}

	if m, err := st.Manifest(ctx); err == nil {
		if stale, why := store.StaleSettings(m, cfg); stale {
			log.Warn("knowledge base is out of date with the configuration", "reason", why)
		}
	}

	return &app{
		store:     st,
		embedder:  emb,
		llm:       model,
		retriever: r,
		agent:     agent,
	}, nil
}
