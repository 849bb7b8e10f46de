// Package store provides the persisted blob store underneath the place
// cache, the offline outbox and the scan history. Each consumer owns one
// storage key and overwrites its whole serialized state on every save;
// the last writer wins on conflicting concurrent updates.
package store

import (
	"context"
	"time"
)

// Store is a keyed blob store. Implementations must tolerate concurrent
// use from one process; cross-process coordination is best effort only.
type Store interface {
	// Load returns the blob stored under key, or found=false if absent.
	Load(ctx context.Context, key string) (blob []byte, found bool, err error)
	// Save overwrites the blob stored under key.
	Save(ctx context.Context, key string, blob []byte) error
	// Delete removes the blob stored under key, reporting whether it existed.
	Delete(ctx context.Context, key string) (bool, error)
	// Close releases any resources held by the store.
	Close() error
}

// DefaultQueryTimeout is the per-operation timeout for store backends
// that perform I/O (SQLite, Redis). Prevents indefinite hangs on slow or
// unresponsive storage.
const DefaultQueryTimeout = 5 * time.Second

// config holds the resolved configuration for a store implementation.
type config struct {
	queryTimeout time.Duration
	prefix       string
}

// Option configures a Store implementation.
type Option func(*config)

func applyOptions(opts []Option) config {
	cfg := config{queryTimeout: DefaultQueryTimeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithQueryTimeout sets the per-operation timeout for I/O-backed stores
// (SQLite, Redis). Defaults to DefaultQueryTimeout (5 seconds).
func WithQueryTimeout(d time.Duration) Option {
	return func(c *config) { c.queryTimeout = d }
}

// WithPrefix sets the key prefix for namespacing storage keys.
// Applies to the Redis backend. Defaults to empty (no prefix).
func WithPrefix(p string) Option {
	return func(c *config) { c.prefix = p }
}
