package llm

import (
	"context"
	"fmt"
	"strings"

	"docqa/internal/adapter/analyzer"
	"docqa/internal/domain"
	"docqa/internal/port"
)

// Section headers the echo model looks for in the user prompt.
const (
	ContextHeader  = "Context:"
	QuestionHeader = "Question:"
)

// EchoLLM is an offline stand-in for a real model. It answers from the
// first context passage that shares a word with the question. When nothing
// matches it says it does not know if the system prompt demands that,
// and otherwise gives a generic reply.
type EchoLLM struct {
	tokenizer *analyzer.Tokenizer
}

var _ port.LLM = (*EchoLLM)(nil)

func NewEchoLLM() *EchoLLM {
	return &EchoLLM{tokenizer: analyzer.NewTokenizer()}
}

func (l *EchoLLM) Generate(ctx context.Context, p port.Prompt) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	passages, question := splitPrompt(p.User)
	if question == "" {
		question = strings.TrimSpace(p.User)
	}

	qTokens := make(map[string]bool)
	for _, tok := range l.tokenizer.Tokenize(question) {
		qTokens[tok] = true
	}

	for _, passage := range passages {
		for _, tok := range l.tokenizer.Tokenize(passage.text) {
			if qTokens[tok] {
				return fmt.Sprintf("According to %s: %s", passage.source, firstSentence(passage.text)), nil
			}
		}
	}

	if strings.Contains(p.System, "I don't know") {
		return domain.DontKnowAnswer, nil
	}
	return fmt.Sprintf("From general knowledge, here is what I can say about %q: the documents did not cover it.", question), nil
}

func (l *EchoLLM) ModelName() string { return "echo" }

func (l *EchoLLM) Ping(context.Context) error { return nil }

type passage struct {
	source string
	text   string
}

// splitPrompt reads "[n] source" headed passages between the context and
// question headers.
func splitPrompt(user string) ([]passage, string) {
	var passages []passage
	var question string
	inContext := false

	for _, line := range strings.Split(user, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, ContextHeader):
			inContext = true
		case strings.HasPrefix(trimmed, QuestionHeader):
			inContext = false
			question = strings.TrimSpace(strings.TrimPrefix(trimmed, QuestionHeader))
		case inContext && strings.HasPrefix(trimmed, "[") && strings.Contains(trimmed, "]"):
			passages = append(passages, passage{source: strings.TrimSpace(trimmed[strings.Index(trimmed, "]")+1:])})
		case inContext && len(passages) > 0:
			passages[len(passages)-1].text += line + "\n"
		}
	}
	return passages, question
}

func firstSentence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if i := strings.IndexAny(text, ".!?"); i >= 0 && i < 300 {
		return text[:i+1]
	}
	if r := []rune(text); len(r) > 300 {
		return string(r[:300]) + "..."
	}
	return text
}
