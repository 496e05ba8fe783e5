package domain

import (
	"strings"
	"time"
)

// FileType is the capability class of a source document.
type FileType string

const (
	FileTypePDF      FileType = "pdf"
	FileTypeText     FileType = "text"
	FileTypeMarkdown FileType = "markdown"
	FileTypeCode     FileType = "code"
)

type Document struct {
	ID      string
	Path    string
	Type    FileType
	Content string
	ModTime time.Time
}

// Chunk is a bounded substring of a document. Start and End are rune
// offsets into the document content.
type Chunk struct {
	ID     string   `json:"id"`
	DocID  string   `json:"doc_id"`
	Source string   `json:"source"`
	Type   FileType `json:"type"`
	Index  int      `json:"index"`
	Start  int      `json:"start"`
	End    int      `json:"end"`
	Text   string   `json:"text"`
}

type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Record is what the vector store persists for one chunk.
type Record struct {
	Chunk  Chunk
	Vector []float32
}

// Turn is one question/answer exchange. Turns are never persisted.
type Turn struct {
	Question string
	Context  []ScoredChunk
	Answer   string
	Mode     ContextMode
	Elapsed  time.Duration
}

// Sources returns the distinct chunk sources of the turn, in retrieval order.
func (t *Turn) Sources() []string {
	seen := make(map[string]bool, len(t.Context))
	var out []string
	for _, sc := range t.Context {
		if seen[sc.Chunk.Source] {
			continue
		}
		seen[sc.Chunk.Source] = true
		out = append(out, sc.Chunk.Source)
	}
	return out
}

// ContextMode selects how retrieved context is presented to the model.
type ContextMode int

const (
	// ModeRegular supplies context as a hint; general knowledge is allowed.
	ModeRegular ContextMode = iota
	// ModeStrict restricts answers to the retrieved context.
	ModeStrict
)

func (m ContextMode) String() string {
	switch m {
	case ModeStrict:
		return "STRICT"
	default:
		return "REGULAR"
	}
}

// ParseContextMode parses STRICT or REGULAR, ignoring case.
func ParseContextMode(s string) (ContextMode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STRICT":
		return ModeStrict, nil
	case "REGULAR":
		return ModeRegular, nil
	}
	return ModeRegular, &ConfigError{
		Err:  ErrUnknownContextMode,
		Hint: "context_mode must be STRICT or REGULAR, got " + s,
	}
}

// Manifest describes how a knowledge base was built. A store without one
// has not been built.
type Manifest struct {
	SchemaVersion  int       `json:"schema_version"`
	EmbeddingModel string    `json:"embedding_model"`
	Dimension      int       `json:"dimension"`
	ChunkSize      int       `json:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap"`
	Documents      int       `json:"documents"`
	Chunks         int       `json:"chunks"`
	BuiltAt        time.Time `json:"built_at"`
}

// DontKnowAnswer is the canonical reply when strict mode has nothing to
// answer from.
const DontKnowAnswer = "I don't know. The provided documents do not contain this information."
