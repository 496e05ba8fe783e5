package chunker

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"unicode"

	"docqa/internal/domain"
	"docqa/internal/port"
)

// DefaultSeparators are tried in order: paragraphs, lines, words, runes.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// CharChunker splits text into chunks of at most size runes. It prefers to
// cut at the first separator that yields small enough pieces, and
// consecutive chunks share up to overlap runes.
type CharChunker struct {
	size       int
	overlap    int
	separators []string
}

var _ port.Chunker = (*CharChunker)(nil)

func NewCharChunker(size, overlap int) (*CharChunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", size, overlap)
	}
	return &CharChunker{
		size:       size,
		overlap:    overlap,
		separators: DefaultSeparators,
	}, nil
}

type span struct{ start, end int }

func (s span) len() int { return s.end - s.start }

// Split chunks the document content. Whitespace-only documents produce no
// chunks. Start and End are rune offsets into doc.Content.
func (c *CharChunker) Split(doc domain.Document) []domain.Chunk {
	text := []rune(doc.Content)
	if len(text) == 0 {
		return nil
	}

	atoms := c.atoms(text, span{0, len(text)}, 0)

	var chunks []domain.Chunk
	emit := func(s span) {
		s = trim(text, s)
		if s.len() == 0 {
			return
		}
		if n := len(chunks); n > 0 && chunks[n-1].Start == s.start && chunks[n-1].End == s.end {
			return
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:     generateChunkID(doc.Path, idx),
			DocID:  doc.ID,
			Source: doc.Path,
			Type:   doc.Type,
			Index:  idx,
			Start:  s.start,
			End:    s.end,
			Text:   string(text[s.start:s.end]),
		})
	}

	var window []span
	total := 0
	for _, a := range atoms {
		n := a.len()
		if len(window) > 0 && total+n > c.size {
			emit(span{window[0].start, window[len(window)-1].end})
			for len(window) > 0 && (total > c.overlap || total+n > c.size) {
				total -= window[0].len()
				window = window[1:]
			}
		}
		window = append(window, a)
		total += n
	}
	if len(window) > 0 {
		emit(span{window[0].start, window[len(window)-1].end})
	}

	return chunks
}

// atoms breaks s into contiguous pieces of at most c.size runes, using the
// coarsest separator that still splits it.
func (c *CharChunker) atoms(text []rune, s span, level int) []span {
	if s.len() <= c.size {
		return []span{s}
	}
	if level >= len(c.separators) || c.separators[level] == "" {
		return hardCut(s, c.size)
	}

	pieces := splitAfter(text, s, []rune(c.separators[level]))
	if len(pieces) == 1 {
		return c.atoms(text, s, level+1)
	}

	out := make([]span, 0, len(pieces))
	for _, p := range pieces {
		if p.len() <= c.size {
			out = append(out, p)
			continue
		}
		out = append(out, c.atoms(text, p, level+1)...)
	}
	return out
}

// splitAfter cuts s after every occurrence of sep, so the separator stays
// with the preceding piece.
func splitAfter(text []rune, s span, sep []rune) []span {
	var out []span
	start := s.start
	for i := s.start; i+len(sep) <= s.end; {
		if matchAt(text, i, sep) {
			end := i + len(sep)
			out = append(out, span{start, end})
			start = end
			i = end
			continue
		}
		i++
	}
	if start < s.end {
		out = append(out, span{start, s.end})
	}
	return out
}

func matchAt(text []rune, i int, sep []rune) bool {
	for j, r := range sep {
		if text[i+j] != r {
			return false
		}
	}
	return true
}

func hardCut(s span, size int) []span {
	var out []span
	for start := s.start; start < s.end; start += size {
		out = append(out, span{start, min(start+size, s.end)})
	}
	return out
}

func trim(text []rune, s span) span {
	for s.start < s.end && unicode.IsSpace(text[s.start]) {
		s.start++
	}
	for s.end > s.start && unicode.IsSpace(text[s.end-1]) {
		s.end--
	}
	return s
}

// generateChunkID derives a stable id from the source path and chunk
// position, so rebuilding unchanged documents yields the same ids.
func generateChunkID(source string, index int) string {
	data := fmt.Sprintf("%s:%d", source, index)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:8])
}
