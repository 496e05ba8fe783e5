// Package parser maps file extensions to text extractors.
package parser

import (
	"path/filepath"
	"sort"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// builtin lists every extension a parser exists for. Keys are lower-case.
var builtin = map[string]domain.FileType{
	".pdf":      domain.FileTypePDF,
	".txt":      domain.FileTypeText,
	".text":     domain.FileTypeText,
	".md":       domain.FileTypeMarkdown,
	".markdown": domain.FileTypeMarkdown,
	".py":       domain.FileTypeCode,
	".r":        domain.FileTypeCode,
	".sh":       domain.FileTypeCode,
	".go":       domain.FileTypeCode,
	".js":       domain.FileTypeCode,
	".ts":       domain.FileTypeCode,
	".java":     domain.FileTypeCode,
	".c":        domain.FileTypeCode,
	".h":        domain.FileTypeCode,
	".sql":      domain.FileTypeCode,
}

// Registry is an explicit extension to parser table. Extensions without an
// entry are unsupported and the caller skips them.
type Registry struct {
	parsers map[string]port.Parser
}

// NewRegistry enables the given extensions. Extensions no parser exists for
// are returned so the caller can warn about them.
func NewRegistry(extensions []string) (*Registry, []string) {
	r := &Registry{parsers: make(map[string]port.Parser)}
	var unknown []string

	pdf := NewPDFParser()
	texts := map[domain.FileType]*TextParser{}

	for _, ext := range extensions {
		key := strings.ToLower(ext)
		ft, ok := builtin[key]
		if !ok {
			unknown = append(unknown, ext)
			continue
		}
		if ft == domain.FileTypePDF {
			r.parsers[key] = pdf
			continue
		}
		tp, ok := texts[ft]
		if !ok {
			tp = NewTextParser(ft)
			texts[ft] = tp
		}
		r.parsers[key] = tp
	}
	return r, unknown
}

// Lookup returns the parser for path's extension, matching case-insensitively
// so both report.R and report.r resolve.
func (r *Registry) Lookup(path string) (port.Parser, bool) {
	ext := filepath.Ext(path)
	if ext == "" {
		return nil, false
	}
	p, ok := r.parsers[strings.ToLower(ext)]
	return p, ok
}

// Extensions returns the enabled extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.parsers))
	for ext := range r.parsers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
