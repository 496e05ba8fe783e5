package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// FileError records a file that could not be read or parsed.
type FileError struct {
	Path string
	Err  error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// LoadReport summarises one pass over the documents directory.
type LoadReport struct {
	Files       int // parsed successfully
	Skipped     int // unsupported type
	Failed      []FileError
	Chunks      int
	Unsupported []string
}

// ProgressFunc is called after each candidate file is handled.
type ProgressFunc func(done, total int, path string)

type LoadOption func(*loadOptions)

type loadOptions struct {
	progress ProgressFunc
}

// WithProgress reports per-file progress during Load.
func WithProgress(fn ProgressFunc) LoadOption {
	return func(o *loadOptions) { o.progress = fn }
}

// Loader turns a documents directory into a stream of chunks.
type Loader struct {
	walker   port.FileWalker
	registry port.ParserRegistry
	chunker  port.Chunker
	logger   *slog.Logger
}

func NewLoader(walker port.FileWalker, registry port.ParserRegistry, chunker port.Chunker, logger *slog.Logger) *Loader {
	return &Loader{
		walker:   walker,
		registry: registry,
		chunker:  chunker,
		logger:   logger,
	}
}

// Load walks dir and hands each chunk to yield, one file at a time, so the
// whole corpus is never held in memory. Unsupported files are skipped and
// unreadable ones are recorded in the report; neither stops the walk. An
// error from yield or ctx stops it.
func (l *Loader) Load(ctx context.Context, dir string, yield func(domain.Chunk) error, opts ...LoadOption) (*LoadReport, error) {
	var o loadOptions
	for _, opt := range opts {
		opt(&o)
	}

	files, err := l.walker.Walk(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}

	report := &LoadReport{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if o.progress != nil {
			o.progress(i, len(files), file.Path)
		}

		parser, ok := l.registry.Lookup(file.Path)
		if !ok {
			report.Skipped++
			report.Unsupported = append(report.Unsupported, file.Path)
			l.logger.Warn("skipping unsupported file type", "path", file.Path)
			continue
		}

		text, err := parser.Parse(ctx, file.Path)
		if err != nil {
			report.Failed = append(report.Failed, FileError{Path: file.Path, Err: err})
			l.logger.Warn("skipping unreadable file", "path", file.Path, "reason", err)
			continue
		}
		report.Files++

		if strings.TrimSpace(text) == "" {
			l.logger.Info("no text extracted", "path", file.Path)
			continue
		}

		doc := domain.Document{
			ID:      generateDocID(file.Path),
			Path:    file.Path,
			Type:    parser.Type(),
			Content: text,
			ModTime: time.Unix(file.ModTime, 0),
		}
		chunks := l.chunker.Split(doc)
		l.logger.Debug("loaded document", "path", file.Path, "type", doc.Type, "chunks", len(chunks))

		for _, c := range chunks {
			if err := yield(c); err != nil {
				return report, err
			}
			report.Chunks++
		}
	}
	if o.progress != nil {
		o.progress(len(files), len(files), "")
	}
	return report, nil
}

// generateDocID generates a unique document ID from the file path.
func generateDocID(path string) string {
	hash := sha256.Sum256([]byte(path))
	return hex.EncodeToString(hash[:8])
}
