package port

import "context"

// Prompt is a fully assembled request for the language model.
type Prompt struct {
	System string
	User   string
}

// LLM represents a language model for text generation.
type LLM interface {
	// Generate returns the model's reply to the prompt.
	Generate(ctx context.Context, p Prompt) (string, error)

	// ModelName returns the name of the model.
	ModelName() string

	// Ping checks that the generation service is reachable.
	Ping(ctx context.Context) error
}
