// ABOUTME: Cache abstraction shared by rate limiting and idempotency replay
// ABOUTME: Backends: in-process LRU with TTL, or the SQLite cache_entries table

package cache

import (
	"context"
	"fmt"
	"time"
)

// Cache stores expiring values and fixed-window counters.
type Cache interface {
	// Get returns the value for key if present and not expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key for ttl, replacing any previous value.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Incr increments the counter under key. A missing or expired counter
	// starts a new window of length window at 1. It returns the new count and
	// when the window resets.
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)

	// Delete removes key.
	Delete(ctx context.Context, key string) error

	// Close stops background cleanup.
	Close() error
}

// Backend names a Cache implementation
type Backend string

const (
	BackendMemory Backend = "memory"
	BackendSQLite Backend = "sqlite"
)

// Options selects and tunes a backend
type Options struct {
	Backend         Backend
	MaxEntries      int
	CleanupInterval time.Duration
}

// New builds the cache named by opts.Backend. kv is only used by the SQLite backend.
func New(opts Options, kv KV) (Cache, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(opts.MaxEntries, opts.CleanupInterval), nil
	case BackendSQLite:
		if kv == nil {
			return nil, fmt.Errorf("sqlite cache backend requires a store")
		}
		return NewSQL(kv, opts.CleanupInterval), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
