package port

// Tokenizer turns text into comparable words and estimates how much of a
// model's context window it takes.
type Tokenizer interface {
	// Tokenize returns lower-cased content words.
	Tokenize(text string) []string
	// CountTokens estimates model tokens, not words.
	CountTokens(text string) int
}
