package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/config"
	"docqa/internal/domain"
	"docqa/internal/port"
)

func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Store.Backend = backend
	cfg.Store.Path = filepath.Join(t.TempDir(), "db")
	return cfg
}

func record(id, source string, v ...float32) domain.Record {
	return domain.Record{
		Chunk:  domain.Chunk{ID: id, DocID: "doc-" + source, Source: source, Type: domain.FileTypeText, Text: "text of " + id},
		Vector: v,
	}
}

func build(t *testing.T, s port.VectorStore, model string) {
	t.Helper()
	ctx := context.Background()
	m := domain.Manifest{SchemaVersion: CurrentSchemaVersion, EmbeddingModel: model, Dimension: 3}
	require.NoError(t, s.Reset(ctx, m))
	require.NoError(t, s.Upsert(ctx, []domain.Record{
		record("a", "a.txt", 1, 0, 0),
		record("b", "b.md", 0, 1, 0),
		record("c", "c.py", 0.9, 0.1, 0),
	}))
	m.Chunks = 3
	m.Documents = 3
	require.NoError(t, s.SetManifest(ctx, m))
}

func TestFileBackends(t *testing.T) {
	for _, backend := range []string{"bolt", "sqlite"} {
		t.Run(backend, func(t *testing.T) {
			ctx := context.Background()
			cfg := testConfig(t, backend)

			exists, err := Exists(ctx, cfg)
			require.NoError(t, err)
			assert.False(t, exists, "nothing built yet")

			s, err := Open(ctx, cfg, Options{})
			require.NoError(t, err)
			build(t, s, "nomic-embed-text")

			results, err := s.Search(ctx, []float32{1, 0, 0}, 2)
			require.NoError(t, err)
			require.Len(t, results, 2)
			assert.Equal(t, "a", results[0].Chunk.ID)
			assert.Equal(t, "c", results[1].Chunk.ID)
			assert.Equal(t, "a.txt", results[0].Chunk.Source)
			require.NoError(t, s.Close())

			exists, err = Exists(ctx, cfg)
			require.NoError(t, err)
			assert.True(t, exists)

			// reopened stores answer from what was persisted
			s, err = Open(ctx, cfg, Options{ReadOnly: true})
			require.NoError(t, err)
			defer s.Close()

			n, err := s.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 3, n)

			m, err := s.Manifest(ctx)
			require.NoError(t, err)
			assert.Equal(t, "nomic-embed-text", m.EmbeddingModel)
			assert.Equal(t, 3, m.Dimension)

			again, err := s.Search(ctx, []float32{1, 0, 0}, 2)
			require.NoError(t, err)
			assert.Equal(t, results, again)
		})
	}
}

func TestDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "bolt")

	s, err := Open(ctx, cfg, Options{})
	require.NoError(t, err)
	defer s.Close()
	build(t, s, "nomic-embed-text")

	// a different embedding model produces vectors of another size
	_, err = s.Search(ctx, []float32{1, 0, 0, 0, 0}, 3)
	assert.True(t, errors.Is(err, domain.ErrDimensionMismatch), "got %v", err)

	err = s.Upsert(ctx, []domain.Record{record("d", "d.txt", 1, 1, 1), record("e", "e.txt", 1, 1)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n, "rejected batch must not be written")
}

func TestResetClearsManifest(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "bolt")

	s, err := Open(ctx, cfg, Options{})
	require.NoError(t, err)
	build(t, s, "m")

	require.NoError(t, s.Reset(ctx, domain.Manifest{Dimension: 3}))
	require.NoError(t, s.Upsert(ctx, []domain.Record{record("x", "x.txt", 1, 1, 1)}))
	require.NoError(t, s.Close())

	// interrupted rebuild: records but no manifest
	exists, err := Exists(ctx, cfg)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestOpenReadOnlyMissing(t *testing.T) {
	cfg := testConfig(t, "bolt")
	_, err := Open(context.Background(), cfg, Options{ReadOnly: true})
	require.Error(t, err)
	assert.True(t, domain.IsConfigError(err))
	assert.ErrorIs(t, err, domain.ErrStoreNotBuilt)
}

func TestSQLiteReadOnly(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "sqlite")

	s, err := Open(ctx, cfg, Options{})
	require.NoError(t, err)
	build(t, s, "nomic-embed-text")
	require.NoError(t, s.Close())

	ro, err := Open(ctx, cfg, Options{ReadOnly: true})
	require.NoError(t, err)
	assert.Error(t, ro.Reset(ctx, domain.Manifest{Dimension: 3}), "read-only store must not be wiped")
	assert.Error(t, ro.SetManifest(ctx, domain.Manifest{Dimension: 3}))
	require.NoError(t, ro.Close())

	s, err = Open(ctx, cfg, Options{ReadOnly: true})
	require.NoError(t, err)
	defer s.Close()
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	m, err := s.Manifest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "nomic-embed-text", m.EmbeddingModel)
}

func TestSQLiteReadOnlyWithoutTables(t *testing.T) {
	cfg := testConfig(t, "sqlite")
	require.NoError(t, os.MkdirAll(cfg.Store.Path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Store.Path, sqliteFile), nil, 0o644))

	_, err := Open(context.Background(), cfg, Options{ReadOnly: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreNotBuilt)
	assert.True(t, domain.IsConfigError(err))
}

func TestBoltLocked(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, "bolt")

	s, err := Open(ctx, cfg, Options{})
	require.NoError(t, err)
	defer s.Close()

	_, err = Open(ctx, cfg, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in use")
}

func TestCheckManifest(t *testing.T) {
	cfg := config.DefaultConfig()
	good := NewManifest(cfg, "nomic-embed-text", 768)
	good.Chunks = 10

	assert.NoError(t, CheckManifest(&good, "nomic-embed-text"))

	err := CheckManifest(nil, "nomic-embed-text")
	assert.ErrorIs(t, err, domain.ErrStoreNotBuilt)
	assert.True(t, domain.IsConfigError(err))

	empty := good
	empty.Chunks = 0
	assert.ErrorIs(t, CheckManifest(&empty, "nomic-embed-text"), domain.ErrStoreEmpty)

	err = CheckManifest(&good, "mxbai-embed-large")
	assert.ErrorIs(t, err, domain.ErrModelMismatch)
	assert.True(t, domain.IsConfigError(err))

	old := good
	old.SchemaVersion = 0
	assert.Error(t, CheckManifest(&old, "nomic-embed-text"))
}

func TestStaleSettings(t *testing.T) {
	cfg := config.DefaultConfig()
	m := NewManifest(cfg, "m", 3)

	stale, _ := StaleSettings(&m, cfg)
	assert.False(t, stale)

	cfg.Documents.ChunkSize = 500
	stale, reason := StaleSettings(&m, cfg)
	assert.True(t, stale)
	assert.Contains(t, reason, "500")
}

func TestVectorEncoding(t *testing.T) {
	v := []float32{0, -1.5, 3.25, 1e-7}
	got, err := decodeVector(encodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = decodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}
