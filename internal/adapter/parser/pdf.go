package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// PDFParser extracts the plain text of each page, joining pages with a
// blank line.
type PDFParser struct{}

var _ port.Parser = (*PDFParser)(nil)

func NewPDFParser() *PDFParser {
	return &PDFParser{}
}

func (p *PDFParser) Type() domain.FileType { return domain.FileTypePDF }

func (p *PDFParser) Parse(ctx context.Context, path string) (text string, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parse pdf %s: %v", path, r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	pages := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf %s page %d: %w", path, i, err)
		}
		content = strings.TrimSpace(content)
		if content != "" {
			pages = append(pages, content)
		}
	}
	return strings.Join(pages, "\n\n"), nil
}
