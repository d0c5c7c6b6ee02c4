package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/safouanmatmati/ratingboard/internal/blob"
	"github.com/safouanmatmati/ratingboard/pkg/database"
)

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
    key        TEXT PRIMARY KEY,
    value      TEXT NOT NULL,
    updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%fZ','now'))
);
`

// Store implements blob.Store on a local SQLite database file.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and initializes the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (value string, err error) {
	query := `SELECT value FROM blobs WHERE key = ?`

	ctx, end := database.TraceStatement(ctx, database.SystemSQLite, "GetBlob", query)
	defer func() { end(err) }()

	if err = s.db.QueryRowContext(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", blob.ErrNotFound
		}
		return "", fmt.Errorf("select blob %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) (err error) {
	query := `
		INSERT INTO blobs (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = strftime('%Y-%m-%dT%H:%M:%fZ','now')`

	ctx, end := database.TraceStatement(ctx, database.SystemSQLite, "SetBlob", query)
	defer func() { end(err) }()

	if _, err = s.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert blob %s: %w", key, err)
	}
	return nil
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
