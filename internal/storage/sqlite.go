package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLite stores keys in a single-file database. It is the default backend and
// plays the role browser-local storage plays for the site itself.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database file at path.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, &Error{Op: "open", Cause: err}
	}
	// One writer at a time; sqlite serializes writes anyway.
	db.SetMaxOpenConns(1)

	createTable := `
	CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`
	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return nil, &Error{Op: "migrate", Cause: fmt.Errorf("failed to create kv table: %w", err)}
	}

	return &SQLite{db: db}, nil
}

// Get implements Storage.
func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, &Error{Op: "get", Key: key, Cause: err}
	}
	return value, true, nil
}

// Set implements Storage.
func (s *SQLite) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP
	`, key, value)
	if err != nil {
		return &Error{Op: "set", Key: key, Cause: err}
	}
	return nil
}

// Delete implements Storage.
func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
		return &Error{Op: "delete", Key: key, Cause: err}
	}
	return nil
}

// Close implements Storage.
func (s *SQLite) Close() error {
	return s.db.Close()
}
