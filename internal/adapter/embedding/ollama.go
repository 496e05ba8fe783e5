package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"docqa/config"
	"docqa/internal/domain"
	"docqa/internal/port"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultTimeout = 30 * time.Second

	serviceName = "ollama embeddings"
)

// OllamaEmbedder calls a local Ollama server. It uses the batch /api/embed
// endpoint and falls back to the per-text /api/embeddings endpoint on
// servers that predate it.
type OllamaEmbedder struct {
	client     *http.Client
	baseURL    string
	model      string
	maxRetries int
	logger     *slog.Logger

	mu        sync.Mutex
	dimension int
	legacy    bool
}

var _ port.Embedder = (*OllamaEmbedder)(nil)

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type legacyEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type legacyEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("ollama error (status %d): %s", e.code, e.body)
}

func NewOllamaEmbedder(cfg config.EmbeddingConfig, logger *slog.Logger) *OllamaEmbedder {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaEmbedder{
		client:     &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      cfg.Model,
		maxRetries: cfg.MaxRetries,
		dimension:  cfg.Dimension,
		logger:     logger,
	}
}

func (e *OllamaEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vectors [][]float32
	err := withRetry(ctx, e.maxRetries, func(ctx context.Context) error {
		var err error
		vectors, err = e.embed(ctx, texts)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := e.checkVectors(texts, vectors); err != nil {
		return nil, err
	}
	return vectors, nil
}

func (e *OllamaEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	legacy := e.legacy
	e.mu.Unlock()

	if !legacy {
		vectors, err := e.embedBatch(ctx, texts)
		var se *statusError
		if !errors.As(err, &se) || se.code != http.StatusNotFound || isModelNotFound(se.body) {
			return vectors, err
		}
		e.logger.Debug("batch embedding endpoint not found, using legacy endpoint", "base_url", e.baseURL)
		e.mu.Lock()
		e.legacy = true
		e.mu.Unlock()
	}

	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.embedLegacy(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embed text %d: %w", i, err)
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (e *OllamaEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embedResponse
	if err := e.post(ctx, "/api/embed", embedRequest{Model: e.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	vectors := make([][]float32, len(resp.Embeddings))
	for i, emb := range resp.Embeddings {
		vectors[i] = toFloat32(emb)
	}
	return vectors, nil
}

func (e *OllamaEmbedder) embedLegacy(ctx context.Context, text string) ([]float32, error) {
	var resp legacyEmbedResponse
	if err := e.post(ctx, "/api/embeddings", legacyEmbedRequest{Model: e.model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	return toFloat32(resp.Embedding), nil
}

func (e *OllamaEmbedder) post(ctx context.Context, path string, body, out any) error {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return &domain.ServiceError{Service: serviceName, Op: "send request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(data))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// checkVectors rejects malformed responses and pins the dimension on first use.
func (e *OllamaEmbedder) checkVectors(texts []string, vectors [][]float32) error {
	if len(vectors) != len(texts) {
		return fmt.Errorf("ollama returned %d embeddings for %d inputs", len(vectors), len(texts))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i, v := range vectors {
		if len(v) == 0 {
			return fmt.Errorf("ollama returned an empty embedding for input %d", i)
		}
		if e.dimension == 0 {
			e.dimension = len(v)
		}
		if len(v) != e.dimension {
			return fmt.Errorf("%w: model %s returned %d values, expected %d",
				domain.ErrDimensionMismatch, e.model, len(v), e.dimension)
		}
	}
	return nil
}

func (e *OllamaEmbedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dimension
}

func (e *OllamaEmbedder) ModelName() string {
	return e.model
}

// Ping checks the /api/tags endpoint, which needs no model loaded.
func (e *OllamaEmbedder) Ping(ctx context.Context) error {
	return ping(ctx, e.client, e.baseURL)
}

func ping(ctx context.Context, client *http.Client, baseURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &domain.ServiceError{Service: serviceName, Op: "ping", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &statusError{code: resp.StatusCode, body: string(body)}
	}
	return nil
}

func isModelNotFound(body string) bool {
	body = strings.ToLower(body)
	return strings.Contains(body, "model") && strings.Contains(body, "not found")
}

// withRetry runs fn once, plus up to maxRetries more times while it fails
// with an unreachable service.
func withRetry(ctx context.Context, maxRetries int, fn func(context.Context) error) error {
	if maxRetries <= 0 {
		return fn(ctx)
	}
	b := retry.WithMaxRetries(uint64(maxRetries), retry.NewExponential(500*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, domain.ErrServiceUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
