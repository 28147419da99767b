package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores keys in a kv_store table, for deployments where several
// instances share one database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres establishes a connection pool and creates kv_store if needed.
func OpenPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, &Error{Op: "open", Cause: fmt.Errorf("failed to connect to database: %w", err)}
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, &Error{Op: "open", Cause: fmt.Errorf("failed to ping database: %w", err)}
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS kv_store (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	if err != nil {
		pool.Close()
		return nil, &Error{Op: "migrate", Cause: fmt.Errorf("failed to create kv_store table: %w", err)}
	}

	return &Postgres{pool: pool}, nil
}

// Get implements Storage.
func (p *Postgres) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.pool.QueryRow(ctx, `SELECT value FROM kv_store WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, &Error{Op: "get", Key: key, Cause: err}
	}
	return value, true, nil
}

// Set implements Storage.
func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.pool.Exec(ctx,
		`INSERT INTO kv_store (key, value)
		 VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		key, value,
	)
	if err != nil {
		return &Error{Op: "set", Key: key, Cause: err}
	}
	return nil
}

// Delete implements Storage.
func (p *Postgres) Delete(ctx context.Context, key string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM kv_store WHERE key = $1`, key); err != nil {
		return &Error{Op: "delete", Key: key, Cause: err}
	}
	return nil
}

// Close implements Storage.
func (p *Postgres) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}
