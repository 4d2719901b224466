package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore keeps the document in a single Postgres row and enforces the
// version token with a compare-and-swap update. Used when the deployment
// prefers its own database over a remote document service.
type PGStore struct {
	pool  *pgxpool.Pool
	docID string
}

// NewPGStore creates a Postgres-backed document store.
func NewPGStore(pool *pgxpool.Pool, docID string) *PGStore {
	return &PGStore{pool: pool, docID: docID}
}

// NewPool opens a pgx connection pool for the document store.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return pool, nil
}

// Migrate creates the documents table if it does not exist.
func (s *PGStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS documents (
			id      TEXT PRIMARY KEY,
			data    JSONB NOT NULL,
			version BIGINT NOT NULL DEFAULT 1
		)
	`)
	if err != nil {
		return fmt.Errorf("create documents table: %w", err)
	}
	return nil
}

// Read fetches the document row and its version.
func (s *PGStore) Read(ctx context.Context) ([]byte, string, error) {
	var data []byte
	var version int64

	err := s.pool.QueryRow(ctx,
		`SELECT data, version FROM documents WHERE id = $1`, s.docID,
	).Scan(&data, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, VersionNone, nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("select document: %w", err)
	}

	return data, strconv.FormatInt(version, 10), nil
}

// Write performs a compare-and-swap replace of the document row.
func (s *PGStore) Write(ctx context.Context, data []byte, version string) (string, error) {
	if version == VersionNone {
		tag, err := s.pool.Exec(ctx, `
			INSERT INTO documents (id, data, version) VALUES ($1, $2, 1)
			ON CONFLICT (id) DO NOTHING
		`, s.docID, data)
		if err != nil {
			return "", fmt.Errorf("insert document: %w", err)
		}
		if tag.RowsAffected() == 0 {
			// Someone created the row first.
			return "", ErrVersionConflict
		}
		return "1", nil
	}

	current, err := strconv.ParseInt(version, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid version token %q: %w", version, err)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE documents SET data = $1, version = version + 1
		WHERE id = $2 AND version = $3
	`, data, s.docID, current)
	if err != nil {
		return "", fmt.Errorf("update document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return "", ErrVersionConflict
	}

	return strconv.FormatInt(current+1, 10), nil
}
