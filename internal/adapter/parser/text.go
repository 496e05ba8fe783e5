package parser

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"docqa/internal/domain"
	"docqa/internal/port"
)

const utf8BOM = "\ufeff"

// TextParser reads UTF-8 text files. Invalid byte sequences are replaced
// rather than rejected.
type TextParser struct {
	fileType domain.FileType
}

var _ port.Parser = (*TextParser)(nil)

func NewTextParser(ft domain.FileType) *TextParser {
	return &TextParser{fileType: ft}
}

func (p *TextParser) Type() domain.FileType { return p.fileType }

func (p *TextParser) Parse(ctx context.Context, path string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	s := strings.TrimPrefix(string(data), utf8BOM)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, string(utf8.RuneError))
	}
	return strings.ReplaceAll(s, "\r\n", "\n"), nil
}
