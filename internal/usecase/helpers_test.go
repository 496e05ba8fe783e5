package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"docqa/config"
	"docqa/internal/adapter/chunker"
	"docqa/internal/adapter/fs"
	"docqa/internal/adapter/parser"
	"docqa/internal/logger"
	"docqa/internal/port"
)

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

// pdfDocument returns a one-page PDF that shows text in Helvetica.
func pdfDocument(text string) string {
	content := fmt.Sprintf("BT /F1 12 Tf 72 720 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 4 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.String()
}

func newTestLoader(t *testing.T, cfg *config.Config) *Loader {
	t.Helper()
	registry, _ := parser.NewRegistry(cfg.Documents.Extensions)
	ch, err := chunker.NewCharChunker(cfg.Documents.ChunkSize, cfg.Documents.ChunkOverlap)
	require.NoError(t, err)
	return NewLoader(fs.NewWalker(cfg.Documents.Excludes, logger.Discard()), registry, ch, logger.Discard())
}

// buildKnowledgeBase writes files into a fresh documents dir and builds st from it.
func buildKnowledgeBase(t *testing.T, cfg *config.Config, files map[string]string, emb port.Embedder, st port.VectorStore) *BuildResult {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, files)

	b := NewBuilder(cfg, newTestLoader(t, cfg), emb, st, logger.Discard())
	res, err := b.Build(context.Background(), dir, nil)
	require.NoError(t, err)
	return res
}
