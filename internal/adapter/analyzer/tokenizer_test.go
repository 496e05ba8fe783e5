package analyzer

import (
	"testing"
)

func TestTokenizer_Tokenize(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("Running dogs are playing")
	want := []string{"running", "dogs", "playing"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %v, got %v", want, tokens)
	}
	for i := range want {
		if tokens[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], tokens[i])
		}
	}
}

func TestTokenizer_StopwordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("the quick brown fox")
	for _, token := range tokens {
		if token == "the" {
			t.Errorf("stopword 'the' should be removed, got %v", tokens)
		}
	}
}

func TestTokenizer_ShortWordRemoval(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("a I x go")
	if len(tokens) != 1 || tokens[0] != "go" {
		t.Errorf("expected only 'go', got %v", tokens)
	}
}

func TestTokenizer_Unicode(t *testing.T) {
	tok := NewTokenizer()

	tokens := tok.Tokenize("Größe café_au_lait")
	if len(tokens) != 2 {
		t.Fatalf("expected 2 tokens, got %v", tokens)
	}
	if tokens[0] != "größe" {
		t.Errorf("expected lower-cased 'größe', got %q", tokens[0])
	}
}

func TestTokenizer_CountTokens(t *testing.T) {
	tok := NewTokenizer()

	if n := tok.CountTokens(""); n != 0 {
		t.Errorf("expected 0 for empty text, got %d", n)
	}
	if n := tok.CountTokens("one two three four five six seven eight nine ten"); n != 13 {
		t.Errorf("expected 13 for ten words, got %d", n)
	}
	// punctuation-heavy text is counted by characters
	if n := tok.CountTokens("{}[]();;==>>"); n != 3 {
		t.Errorf("expected 3 for 12 symbols, got %d", n)
	}
}
