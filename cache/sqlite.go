package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS cache (
	provider  TEXT    NOT NULL,
	key       TEXT    NOT NULL,
	timestamp INTEGER NOT NULL,
	payload   BLOB    NOT NULL,
	PRIMARY KEY (provider, key)
);`

// MemoryPath opens a private in-memory SQLite database.
const MemoryPath = ":memory:"

// SQLite is the default persisted backend: one table keyed by
// (provider, key) in a single database file.
type SQLite struct {
	path string
	db   *sql.DB
}

// NewSQLite opens (lazily) the database at path. The file and its parent
// directories are created by [SQLite.Init].
func NewSQLite(path string) (*SQLite, error) {
	dsn := path
	if path != MemoryPath {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One connection serializes writers and keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	return &SQLite{path: path, db: db}, nil
}

// Init creates the parent directory and the cache table if missing.
func (s *SQLite) Init(ctx context.Context) error {
	if s.path != MemoryPath {
		if dir := filepath.Dir(s.path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create cache dir %s: %w", dir, err)
			}
		}
	}
	if _, err := s.db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("create cache table: %w", err)
	}
	return nil
}

// Load returns the stored entry for (provider, key), fresh or not.
func (s *SQLite) Load(ctx context.Context, provider, key string) (Entry, bool, error) {
	e := Entry{Provider: provider, Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT timestamp, payload FROM cache WHERE provider = ? AND key = ?`,
		provider, key,
	).Scan(&e.Timestamp, &e.Payload)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("load %s/%s: %w", provider, key, err)
	}
	return e, true, nil
}

// Save upserts e. The ttl hint is unused: SQLite rows stay until replaced.
func (s *SQLite) Save(ctx context.Context, e Entry, _ time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cache (provider, key, timestamp, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(provider, key) DO UPDATE SET
			timestamp = excluded.timestamp,
			payload   = excluded.payload`,
		e.Provider, e.Key, e.Timestamp, e.Payload,
	)
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", e.Provider, e.Key, err)
	}
	return nil
}

// Ping checks the database connection.
func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
