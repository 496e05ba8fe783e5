package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"docqa/config"
	"docqa/internal/adapter/analyzer"
	"docqa/internal/adapter/store"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// Agent answers one question at a time: it retrieves context for the
// question, assembles a prompt for the configured mode and asks the model.
type Agent struct {
	retriever    *Retriever
	llm          port.LLM
	store        port.VectorStore
	packer       port.Packer
	strategy     PromptStrategy
	topK         int
	tokenBudget  int
	historyTurns int
	logger       *slog.Logger
}

func NewAgent(cfg *config.Config, retriever *Retriever, llm port.LLM, store port.VectorStore, logger *slog.Logger) (*Agent, error) {
	mode, err := domain.ParseContextMode(cfg.Agent.ContextMode)
	if err != nil {
		return nil, err
	}
	return &Agent{
		retriever:    retriever,
		llm:          llm,
		store:        store,
		packer:       NewPacker(analyzer.NewTokenizer()),
		strategy:     StrategyFor(mode),
		topK:         cfg.Agent.TopK,
		tokenBudget:  cfg.Agent.TokenBudget,
		historyTurns: cfg.Agent.HistoryTurns,
		logger:       logger,
	}, nil
}

// Mode is the context mode the agent assembles prompts for.
func (a *Agent) Mode() domain.ContextMode {
	return a.strategy.Mode()
}

// Ask answers a single question without conversation history.
func (a *Agent) Ask(ctx context.Context, question string) (*domain.Turn, error) {
	return a.ask(ctx, question, nil)
}

// Ready reports whether the knowledge base can serve questions. The error
// is a *domain.ConfigError when it has to be (re)built first.
func (a *Agent) Ready(ctx context.Context) (*domain.Manifest, error) {
	m, err := a.store.Manifest(ctx)
	if errors.Is(err, domain.ErrStoreNotBuilt) {
		m, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read knowledge base manifest: %w", err)
	}
	if err := store.CheckManifest(m, a.retriever.EmbeddingModel()); err != nil {
		return nil, err
	}
	return m, nil
}

func (a *Agent) ask(ctx context.Context, question string, history []domain.Turn) (*domain.Turn, error) {
	start := time.Now()

	question = strings.TrimSpace(question)
	a.logger.Debug("receive question", "chars", len(question))
	if question == "" {
		return nil, domain.ErrEmptyQuestion
	}

	m, err := a.Ready(ctx)
	if err != nil {
		return nil, err
	}
	a.retriever.SetGeneration(m.BuiltAt.Format(time.RFC3339Nano))

	a.logger.Debug("embed question and retrieve", "top_k", a.topK)
	retrieved, err := a.retriever.Retrieve(ctx, question, a.topK)
	if err != nil {
		if errors.Is(err, domain.ErrDimensionMismatch) {
			return nil, &domain.ConfigError{
				Err:  err,
				Hint: "the embedding model changed since the last build; run 'docqa build' again",
			}
		}
		return nil, err
	}

	packed, used := a.packer.Pack(retrieved, a.tokenBudget)
	a.logger.Debug("assemble prompt",
		"mode", a.strategy.Mode(),
		"retrieved", len(retrieved),
		"packed", len(packed),
		"tokens", used)

	turn := &domain.Turn{
		Question: question,
		Context:  packed,
		Mode:     a.strategy.Mode(),
	}

	if len(packed) == 0 {
		if answer, ok := a.strategy.AnswerWithoutContext(); ok {
			a.logger.Debug("no context, skipping model")
			turn.Answer = answer
			turn.Elapsed = time.Since(start)
			return turn, nil
		}
	}

	if a.historyTurns > 0 && len(history) > a.historyTurns {
		history = history[len(history)-a.historyTurns:]
	} else if a.historyTurns == 0 {
		history = nil
	}

	prompt, err := a.strategy.Build(question, packed, history)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("invoke model", "model", a.llm.ModelName())
	llmStart := time.Now()
	answer, err := a.llm.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("model answered", "latency", time.Since(llmStart).Round(time.Millisecond))

	turn.Answer = strings.TrimSpace(answer)
	turn.Elapsed = time.Since(start)
	return turn, nil
}

// Session keeps the turns of one conversation for a front end. Only the
// last history_turns of them are shown to the model.
type Session struct {
	ID string

	agent    *Agent
	maxTurns int

	mu      sync.Mutex
	history []domain.Turn
}

// DefaultSessionTurns bounds the transcript a session keeps.
const DefaultSessionTurns = 50

func NewSession(id string, agent *Agent, maxTurns int) *Session {
	if maxTurns <= 0 {
		maxTurns = DefaultSessionTurns
	}
	return &Session{
		ID:       id,
		agent:    agent,
		maxTurns: maxTurns,
	}
}

// Ask answers question and records the turn.
func (s *Session) Ask(ctx context.Context, question string) (*domain.Turn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, err := s.agent.ask(ctx, question, s.history)
	if err != nil {
		return nil, err
	}
	s.history = append(s.history, *turn)
	if len(s.history) > s.maxTurns {
		s.history = s.history[len(s.history)-s.maxTurns:]
	}
	return turn, nil
}

func (s *Session) History() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Turn, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
}
