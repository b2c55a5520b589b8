// Package storage persists opaque byte blobs under string keys.
//
// The library aggregate is stored as one JSON document under a well-known key, so every backend only needs
// whole-value Get/Set/Delete. Backends:
//   - [Memory] : process-local map, used by tests and ephemeral sessions
//   - [File] : one file per key, written atomically through a temp file
//   - [SQLite] : kv_store table created by the embedded migrations
//   - [Redis] : plain GET/SET of the blob
//   - [Postgres] : kv_store table through a pgx pool
//
// [WithQuota] wraps any backend with a capacity limit.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cervantesaxel/musicflow/internal/shared"
)

var (
	ErrKeyNotFound   = errors.New("key not found")
	ErrQuotaExceeded = errors.New("storage quota exceeded")
	ErrUnknownDriver = errors.New("unknown storage driver")
)

// Storage is a key-value store of byte blobs.
type Storage interface {
	// Get returns the value stored under key or [ErrKeyNotFound].
	Get(ctx context.Context, key string) ([]byte, error)
	// Set replaces the value stored under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	Close() error
}

// Drivers lists the accepted values of storage.driver.
var Drivers = []string{"memory", "file", "sqlite", "redis", "postgres"}

// Open builds the backend selected by cfg.Storage.Driver and applies the configured quota.
func Open(ctx context.Context, cfg *shared.Config) (Storage, error) {
	var (
		backend Storage
		err     error
	)

	switch cfg.Storage.Driver {
	case "memory":
		backend = NewMemory()
	case "file":
		backend, err = NewFile(cfg.Storage.File.Dir)
	case "sqlite":
		backend, err = OpenSQLite(ctx, cfg.Database)
	case "redis":
		backend, err = NewRedis(ctx, cfg.Redis)
	case "postgres":
		backend, err = NewPostgres(ctx, cfg.Postgres.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s storage: %w", cfg.Storage.Driver, err)
	}

	if cfg.Storage.QuotaBytes > 0 {
		backend = WithQuota(backend, cfg.Storage.QuotaBytes)
	}
	return backend, nil
}
