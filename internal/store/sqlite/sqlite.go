// Package sqlite implements the store interfaces on a local SQLite database.
// One file holds analysis job records, the per-tile result cache, and AI
// usage logs; the tool runs beside a desktop editor, so a server database
// would be overkill.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// StoreImpl implements store.JobStore, store.CacheStore, and store.UsageStore.
type StoreImpl struct {
	db *sql.DB

	cacheTTLSeconds int
	cacheMaxEntries int
}

const schema = `
CREATE TABLE IF NOT EXISTS analysis_jobs (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	job_id       TEXT NOT NULL UNIQUE,
	tileset_path TEXT NOT NULL,
	task_type    TEXT NOT NULL,
	queue        TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	processed    INTEGER NOT NULL DEFAULT 0,
	total        INTEGER NOT NULL DEFAULT 0,
	results      TEXT,
	error        TEXT,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS tag_cache (
	key        TEXT PRIMARY KEY,
	tags       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS ai_usage_logs (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	timestamp     TIMESTAMP NOT NULL,
	provider_name TEXT NOT NULL,
	service_type  TEXT NOT NULL,
	model_name    TEXT NOT NULL,
	input_tokens  INTEGER NOT NULL DEFAULT 0,
	output_tokens INTEGER NOT NULL DEFAULT 0,
	cost          REAL NOT NULL DEFAULT 0,
	related_job_id TEXT
);
`

// NewStore opens (creating if needed) the SQLite database at path and
// ensures the schema exists. cacheTTLSeconds and cacheMaxEntries bound the
// tag cache; see PruneCache.
func NewStore(ctx context.Context, path string, cacheTTLSeconds, cacheMaxEntries int) (*StoreImpl, error) {
	if path == "" {
		return nil, errors.New("database path cannot be empty")
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite database at %s: %w", path, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to ping sqlite database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to create schema: %w", err)
	}
	return &StoreImpl{
		db:              db,
		cacheTTLSeconds: cacheTTLSeconds,
		cacheMaxEntries: cacheMaxEntries,
	}, nil
}

// Ping checks the database connection.
func (s *StoreImpl) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *StoreImpl) Close() error {
	return s.db.Close()
}
