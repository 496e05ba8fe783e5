package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	_ "modernc.org/sqlite"

	"docqa/internal/adapter/memstore"
	"docqa/internal/domain"
	"docqa/internal/port"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chunks (
	id        TEXT PRIMARY KEY,
	doc_id    TEXT NOT NULL,
	source    TEXT NOT NULL,
	type      TEXT NOT NULL,
	idx       INTEGER NOT NULL,
	start_off INTEGER NOT NULL,
	end_off   INTEGER NOT NULL,
	text      TEXT NOT NULL,
	vector    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_source ON chunks (source);
CREATE TABLE IF NOT EXISTS meta (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);
`

// SQLiteStore keeps records in a single SQLite file. Like BoltStore it
// searches an in-memory index loaded on open.
type SQLiteStore struct {
	db     *sql.DB
	index  *memstore.MemoryStore
	logger *slog.Logger
}

var _ port.VectorStore = (*SQLiteStore)(nil)

// NewSQLiteStore opens the database at path. A read-only store never
// creates tables and rejects writes.
func NewSQLiteStore(ctx context.Context, path string, readOnly bool, logger *slog.Logger) (*SQLiteStore, error) {
	dsn := path
	if readOnly {
		dsn = "file:" + (&url.URL{Path: path}).EscapedPath() + "?mode=ro"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 1000`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}
	if readOnly {
		var tables int
		err := db.QueryRowContext(ctx,
			`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name IN ('chunks', 'meta')`).Scan(&tables)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("inspect %s: %w", path, err)
		}
		if tables < 2 {
			db.Close()
			return nil, &domain.ConfigError{
				Err:  fmt.Errorf("%w: %s has no knowledge base tables", domain.ErrStoreNotBuilt, path),
				Hint: domain.BuildHint,
			}
		}
	} else if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	s := &SQLiteStore{db: db, index: memstore.NewMemoryStore(), logger: logger}
	if err := s.load(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("load vectors: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) load(ctx context.Context) error {
	manifest, err := s.readManifest(ctx)
	if err != nil && !errors.Is(err, domain.ErrStoreNotBuilt) {
		return err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, doc_id, source, type, idx, start_off, end_off, text, vector FROM chunks`)
	if err != nil {
		return err
	}
	defer rows.Close()

	var records []domain.Record
	for rows.Next() {
		var c domain.Chunk
		var blob []byte
		if err := rows.Scan(&c.ID, &c.DocID, &c.Source, &c.Type, &c.Index, &c.Start, &c.End, &c.Text, &blob); err != nil {
			return err
		}
		vec, err := decodeVector(blob)
		if err != nil || len(vec) == 0 {
			s.logger.Warn("skipping chunk without vector", "id", c.ID)
			continue
		}
		records = append(records, domain.Record{Chunk: c, Vector: vec})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	reset := domain.Manifest{}
	if manifest != nil {
		reset.Dimension = manifest.Dimension
	}
	if err := s.index.Reset(ctx, reset); err != nil {
		return err
	}
	if err := s.index.Upsert(ctx, records); err != nil {
		s.logger.Warn("stored vectors are inconsistent, rebuild required", "error", err)
		if err := s.index.Reset(ctx, reset); err != nil {
			return err
		}
	}
	if manifest != nil {
		return s.index.SetManifest(ctx, *manifest)
	}
	return nil
}

func (s *SQLiteStore) readManifest(ctx context.Context) (*domain.Manifest, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, string(keyManifest)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrStoreNotBuilt
	}
	if err != nil {
		return nil, err
	}
	var m domain.Manifest
	if err := json.Unmarshal([]byte(value), &m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	return &m, nil
}

func (s *SQLiteStore) Reset(ctx context.Context, m domain.Manifest) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, stmt := range []string{`DELETE FROM chunks`, `DELETE FROM meta`} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("reset knowledge base: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	return s.index.Reset(ctx, m)
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []domain.Record) error {
	if len(records) == 0 {
		return nil
	}
	if err := s.index.Check(records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT OR REPLACE INTO chunks
		(id, doc_id, source, type, idx, start_off, end_off, text, vector)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range records {
		c := r.Chunk
		if _, err := stmt.ExecContext(ctx, c.ID, c.DocID, c.Source, string(c.Type), c.Index, c.Start, c.End, c.Text, encodeVector(r.Vector)); err != nil {
			return fmt.Errorf("insert chunk %s: %w", c.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write batch: %w", err)
	}
	return s.index.Upsert(ctx, records)
}

func (s *SQLiteStore) Search(ctx context.Context, vector []float32, k int) ([]domain.ScoredChunk, error) {
	return s.index.Search(ctx, vector, k)
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	return s.index.Count(ctx)
}

func (s *SQLiteStore) Manifest(ctx context.Context) (*domain.Manifest, error) {
	return s.index.Manifest(ctx)
}

func (s *SQLiteStore) SetManifest(ctx context.Context, m domain.Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		string(keyManifest), string(data))
	if err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return s.index.SetManifest(ctx, m)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
