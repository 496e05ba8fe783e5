package usecase

import (
	"embed"
	"fmt"
	"strings"
	"text/template"

	"docqa/internal/domain"
	"docqa/internal/port"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompts").Funcs(template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}).ParseFS(templateFS, "templates/*.tmpl"))

// PromptStrategy assembles the model prompt for one context mode. The set
// of strategies is closed; use StrategyFor.
type PromptStrategy interface {
	Mode() domain.ContextMode
	// Build renders the prompt for question grounded on chunks.
	Build(question string, chunks []domain.ScoredChunk, history []domain.Turn) (port.Prompt, error)
	// AnswerWithoutContext returns the reply used instead of calling the
	// model when retrieval found nothing, if the mode has one.
	AnswerWithoutContext() (string, bool)

	sealed()
}

// StrategyFor returns the prompt strategy for mode.
func StrategyFor(mode domain.ContextMode) PromptStrategy {
	if mode == domain.ModeStrict {
		return strictStrategy{}
	}
	return regularStrategy{}
}

type strictStrategy struct{}

func (strictStrategy) Mode() domain.ContextMode { return domain.ModeStrict }

func (strictStrategy) Build(question string, chunks []domain.ScoredChunk, history []domain.Turn) (port.Prompt, error) {
	return render("strict.tmpl", question, chunks, history)
}

func (strictStrategy) AnswerWithoutContext() (string, bool) {
	return domain.DontKnowAnswer, true
}

func (strictStrategy) sealed() {}

type regularStrategy struct{}

func (regularStrategy) Mode() domain.ContextMode { return domain.ModeRegular }

func (regularStrategy) Build(question string, chunks []domain.ScoredChunk, history []domain.Turn) (port.Prompt, error) {
	return render("regular.tmpl", question, chunks, history)
}

func (regularStrategy) AnswerWithoutContext() (string, bool) { return "", false }

func (regularStrategy) sealed() {}

type promptData struct {
	Question string
	Chunks   []domain.ScoredChunk
	History  []domain.Turn
	DontKnow string
}

func render(system, question string, chunks []domain.ScoredChunk, history []domain.Turn) (port.Prompt, error) {
	data := promptData{
		Question: question,
		Chunks:   chunks,
		History:  history,
		DontKnow: domain.DontKnowAnswer,
	}

	var sys, user strings.Builder
	if err := templates.ExecuteTemplate(&sys, system, data); err != nil {
		return port.Prompt{}, fmt.Errorf("render system prompt: %w", err)
	}
	if err := templates.ExecuteTemplate(&user, "user.tmpl", data); err != nil {
		return port.Prompt{}, fmt.Errorf("render user prompt: %w", err)
	}
	return port.Prompt{
		System: strings.TrimSpace(sys.String()),
		User:   strings.TrimSpace(user.String()),
	}, nil
}
