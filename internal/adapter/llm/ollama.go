package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"docqa/config"
	"docqa/internal/domain"
	"docqa/internal/port"
)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultTimeout = 120 * time.Second

	serviceName = "ollama generation"
)

// OllamaLLM generates answers through the Ollama /api/chat endpoint.
type OllamaLLM struct {
	client       *http.Client
	baseURL      string
	model        string
	temperature  float64
	maxTokens    int
	maxRetries   int
	systemPrompt string
	logger       *slog.Logger
}

var _ port.LLM = (*OllamaLLM)(nil)

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatResponse struct {
	Message   chatMessage `json:"message"`
	Done      bool        `json:"done"`
	EvalCount int         `json:"eval_count"`
	Error     string      `json:"error,omitempty"`
}

func NewOllamaLLM(cfg config.LLMConfig, logger *slog.Logger) *OllamaLLM {
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
	return &OllamaLLM{
		client:       &http.Client{Timeout: timeout},
		baseURL:      strings.TrimRight(baseURL, "/"),
		model:        cfg.Model,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		maxRetries:   cfg.MaxRetries,
		systemPrompt: cfg.SystemPrompt,
		logger:       logger,
	}
}

// Generate sends the prompt as a system and a user message. A configured
// system prompt replaces the one in p.
func (l *OllamaLLM) Generate(ctx context.Context, p port.Prompt) (string, error) {
	system := p.System
	if l.systemPrompt != "" {
		system = l.systemPrompt
	}

	req := chatRequest{
		Model:  l.model,
		Stream: false,
		Options: options{
			Temperature: l.temperature,
			NumPredict:  l.maxTokens,
		},
	}
	if system != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: system})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: p.User})

	start := time.Now()
	var answer string
	err := withRetry(ctx, l.maxRetries, func(ctx context.Context) error {
		var err error
		answer, err = l.chat(ctx, req)
		return err
	})
	if err != nil {
		return "", err
	}
	l.logger.Debug("llm generated", "model", l.model, "elapsed", time.Since(start), "chars", len(answer))
	return answer, nil
}

func (l *OllamaLLM) chat(ctx context.Context, body chatRequest) (string, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/api/chat", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", &domain.ServiceError{Service: serviceName, Op: "send request", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if chatResp.Error != "" {
		return "", fmt.Errorf("ollama error: %s", chatResp.Error)
	}

	answer := strings.TrimSpace(chatResp.Message.Content)
	if answer == "" {
		return "", fmt.Errorf("ollama returned an empty answer")
	}
	return answer, nil
}

func (l *OllamaLLM) ModelName() string {
	return l.model
}

func (l *OllamaLLM) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return &domain.ServiceError{Service: serviceName, Op: "ping", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("ollama: API returned status %d: %s", resp.StatusCode, string(body))
	}
	return nil
}
