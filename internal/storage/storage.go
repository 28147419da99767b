// Package storage provides the durable key-value store that mirrors the
// content document and the publish credential.
package storage

import (
	"context"
	"fmt"
)

// Drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Storage is a string key-value store. Get reports whether the key exists;
// a missing key is not an error. Delete of a missing key is a no-op.
type Storage interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keys holds the storage keys for one app prefix.
type Keys struct {
	Data  string
	Token string
	Repo  string
}

// NewKeys derives storage keys from the app prefix, e.g. "folio_data".
func NewKeys(app string) Keys {
	return Keys{
		Data:  app + "_data",
		Token: app + "_gh_token",
		Repo:  app + "_gh_repo",
	}
}

// Options selects and configures a backend.
type Options struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
}

// Error wraps a backend failure with the operation and key involved.
type Error struct {
	Op    string
	Key   string
	Cause error
}

func (e *Error) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("storage %s: %v", e.Op, e.Cause)
	}
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Open connects to the backend named by opts.Driver and prepares its schema.
func Open(ctx context.Context, opts Options) (Storage, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		path := opts.SQLitePath
		if path == "" {
			path = "folio.db"
		}
		s, err := OpenSQLite(ctx, path)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		if opts.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres storage requires a database URL")
		}
		p, err := OpenPostgres(ctx, opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return p, nil
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", opts.Driver)
	}
}
