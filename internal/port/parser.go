package port

import (
	"context"

	"docqa/internal/domain"
)

// Parser extracts plain text from one kind of file.
type Parser interface {
	Parse(ctx context.Context, path string) (string, error)
	Type() domain.FileType
}

// ParserRegistry resolves the parser for a file path. ok is false for
// unsupported file types.
type ParserRegistry interface {
	Lookup(path string) (p Parser, ok bool)
}
