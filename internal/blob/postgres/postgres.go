package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/safouanmatmati/ratingboard/internal/blob"
	"github.com/safouanmatmati/ratingboard/pkg/database"
)

// Store implements blob.Store as one row per key in the blobs table.
type Store struct {
	pool database.DBTX
}

// NewStore creates a new PostgreSQL-backed blob store. The blobs table is
// created by the embedded migrations.
func NewStore(pool database.DBTX) *Store {
	return &Store{pool: pool}
}

// Get returns the value stored under key.
func (s *Store) Get(ctx context.Context, key string) (value string, err error) {
	query := `SELECT value FROM blobs WHERE key = $1`

	ctx, end := database.TraceQuery(ctx, "GetBlob", query)
	defer func() { end(err) }()

	if err = s.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", blob.ErrNotFound
		}
		return "", fmt.Errorf("select blob %s: %w", key, err)
	}
	return value, nil
}

// Set upserts value under key.
func (s *Store) Set(ctx context.Context, key, value string) (err error) {
	query := `
		INSERT INTO blobs (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`

	ctx, end := database.TraceQuery(ctx, "SetBlob", query)
	defer func() { end(err) }()

	if _, err = s.pool.Exec(ctx, query, key, value); err != nil {
		return fmt.Errorf("upsert blob %s: %w", key, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
