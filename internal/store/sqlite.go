package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"mythforge/internal/entity"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS entities (
	kind       TEXT NOT NULL,
	id         TEXT NOT NULL,
	body       TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now')),
	PRIMARY KEY (kind, id)
);
CREATE INDEX IF NOT EXISTS idx_entities_kind ON entities(kind);
`

// SQLite persists entities as JSON documents in a single-file database.
type SQLite struct {
	db  *sql.DB
	mu  sync.RWMutex
	log *zap.Logger
}

// NewSQLite opens (creating if needed) the database at path and applies
// the schema.
func NewSQLite(path string, log *zap.Logger) (*SQLite, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("store")

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		log.Debug("set busy_timeout failed", zap.Error(err))
	}
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		log.Debug("set journal_mode=WAL failed", zap.Error(err))
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: apply schema: %w", err)
	}

	log.Debug("opened sqlite store", zap.String("path", path))
	return &SQLite{db: db, log: log}, nil
}

func (s *SQLite) Load(ctx context.Context, kind entity.Kind, id string) (entity.Entity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var body string
	err := s.db.QueryRowContext(ctx,
		"SELECT body FROM entities WHERE kind = ? AND id = ?", string(kind), id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: load %s/%s: %w", kind, id, err)
	}

	e, err := entity.FromJSON([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("store: decode %s/%s: %w", kind, id, err)
	}
	return e, nil
}

func (s *SQLite) Save(ctx context.Context, kind entity.Kind, e entity.Entity) (string, error) {
	id, _ := e.GetString("id")
	if id == "" {
		id = uuid.NewString()
	}

	stored := e.Clone()
	stored.Set("id", id)
	body, err := stored.MarshalJSON()
	if err != nil {
		return "", fmt.Errorf("store: encode %s/%s: %w", kind, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO entities (kind, id, body, updated_at) VALUES (?, ?, ?, datetime('now'))
		ON CONFLICT (kind, id) DO UPDATE SET body = excluded.body, updated_at = excluded.updated_at`,
		string(kind), id, string(body))
	if err != nil {
		return "", fmt.Errorf("store: save %s/%s: %w", kind, id, err)
	}

	s.log.Debug("saved entity", zap.String("kind", string(kind)), zap.String("id", id))
	return id, nil
}

func (s *SQLite) Delete(ctx context.Context, kind entity.Kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM entities WHERE kind = ? AND id = ?", string(kind), id); err != nil {
		return fmt.Errorf("store: delete %s/%s: %w", kind, id, err)
	}
	return nil
}

func (s *SQLite) List(ctx context.Context, kind entity.Kind) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id FROM entities WHERE kind = ? ORDER BY id", string(kind))
	if err != nil {
		return nil, fmt.Errorf("store: list %s: %w", kind, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("store: list %s: %w", kind, err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *SQLite) Close() error { return s.db.Close() }
