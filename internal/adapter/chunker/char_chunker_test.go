package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"docqa/internal/domain"
)

func newChunker(t *testing.T, size, overlap int) *CharChunker {
	t.Helper()
	c, err := NewCharChunker(size, overlap)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestCharChunker_ShortDocument(t *testing.T) {
	c := newChunker(t, 100, 20)

	doc := domain.Document{ID: "d1", Path: "/data/a.txt", Type: domain.FileTypeText, Content: "  hello world \n"}
	chunks := c.Split(doc)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	ch := chunks[0]
	if ch.Text != "hello world" {
		t.Errorf("expected trimmed text, got %q", ch.Text)
	}
	if ch.Start != 2 || ch.End != 13 {
		t.Errorf("expected offsets [2,13), got [%d,%d)", ch.Start, ch.End)
	}
	if ch.Source != "/data/a.txt" || ch.DocID != "d1" || ch.Type != domain.FileTypeText {
		t.Errorf("metadata not carried: %+v", ch)
	}
}

func TestCharChunker_EmptyDocument(t *testing.T) {
	c := newChunker(t, 100, 20)

	for _, content := range []string{"", "   ", "\n\n\t\n"} {
		if chunks := c.Split(domain.Document{Content: content}); len(chunks) != 0 {
			t.Errorf("expected no chunks for %q, got %d", content, len(chunks))
		}
	}
}

func TestCharChunker_SizeAndOverlap(t *testing.T) {
	size, overlap := 60, 15
	c := newChunker(t, size, overlap)

	var sb strings.Builder
	for i := 0; i < 40; i++ {
		sb.WriteString("lorem ipsum dolor sit amet ")
		if i%5 == 4 {
			sb.WriteString("\n\n")
		}
	}
	doc := domain.Document{ID: "d", Path: "p.txt", Content: sb.String()}
	chunks := c.Split(doc)

	if len(chunks) < 10 {
		t.Fatalf("expected many chunks, got %d", len(chunks))
	}
	runes := []rune(doc.Content)
	for i, ch := range chunks {
		if n := utf8.RuneCountInString(ch.Text); n > size {
			t.Errorf("chunk %d has %d runes, limit %d", i, n, size)
		}
		if string(runes[ch.Start:ch.End]) != ch.Text {
			t.Errorf("chunk %d offsets do not match text", i)
		}
		if ch.Index != i {
			t.Errorf("chunk %d has index %d", i, ch.Index)
		}
		if i > 0 {
			prev := chunks[i-1]
			if ch.Start < prev.Start {
				t.Errorf("chunk %d starts before previous chunk", i)
			}
			if shared := prev.End - ch.Start; shared > overlap {
				t.Errorf("chunks %d and %d share %d runes, overlap %d", i-1, i, shared, overlap)
			}
		}
	}
}

func TestCharChunker_PrefersParagraphs(t *testing.T) {
	c := newChunker(t, 40, 0)

	doc := domain.Document{Content: "first paragraph here\n\nsecond paragraph here"}
	chunks := c.Split(doc)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].Text != "first paragraph here" || chunks[1].Text != "second paragraph here" {
		t.Errorf("unexpected split: %q | %q", chunks[0].Text, chunks[1].Text)
	}
}

func TestCharChunker_HardCutsLongWords(t *testing.T) {
	c := newChunker(t, 10, 0)

	doc := domain.Document{Content: strings.Repeat("x", 25)}
	chunks := c.Split(doc)

	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if len(chunks[2].Text) != 5 {
		t.Errorf("expected 5 rune tail, got %q", chunks[2].Text)
	}
}

func TestCharChunker_MultibyteRunes(t *testing.T) {
	c := newChunker(t, 4, 0)

	doc := domain.Document{Content: "ääääöööö"}
	chunks := c.Split(doc)

	if len(chunks) != 2 || chunks[0].Text != "ääää" || chunks[1].Text != "öööö" {
		t.Errorf("unexpected rune split: %+v", chunks)
	}
}

func TestCharChunker_DeterministicIDs(t *testing.T) {
	c := newChunker(t, 20, 5)
	doc := domain.Document{Path: "/x/notes.md", Content: strings.Repeat("alpha beta gamma ", 10)}

	a := c.Split(doc)
	b := c.Split(doc)
	if len(a) != len(b) {
		t.Fatal("chunk counts differ between runs")
	}
	seen := map[string]bool{}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("chunk %d id changed between runs", i)
		}
		if seen[a[i].ID] {
			t.Errorf("duplicate chunk id %s", a[i].ID)
		}
		seen[a[i].ID] = true
	}
}

func TestNewCharChunker_Invalid(t *testing.T) {
	if _, err := NewCharChunker(0, 0); err == nil {
		t.Error("expected error for zero size")
	}
	if _, err := NewCharChunker(10, 10); err == nil {
		t.Error("expected error for overlap equal to size")
	}
}
