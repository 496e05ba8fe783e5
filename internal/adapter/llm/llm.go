// Package llm provides language model clients.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"docqa/config"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// New returns the model selected by cfg.Provider.
func New(cfg config.LLMConfig, logger *slog.Logger) (port.LLM, error) {
	switch cfg.Provider {
	case "", "ollama":
		return NewOllamaLLM(cfg, logger), nil
	case "echo":
		return NewEchoLLM(), nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

func withRetry(ctx context.Context, maxRetries int, fn func(context.Context) error) error {
	if maxRetries <= 0 {
		return fn(ctx)
	}
	b := retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(time.Second))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, domain.ErrServiceUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}
