// ABOUTME: Cache backed by the store's cache_entries table
// ABOUTME: Survives restarts and can be shared by processes using the same database

package cache

import (
	"context"
	"log/slog"
	"time"
)

// KV is the store surface the SQL backend needs
type KV interface {
	CacheGet(ctx context.Context, key string, now time.Time) ([]byte, bool, error)
	CacheSet(ctx context.Context, key string, value []byte, expiresAt time.Time) error
	CacheIncr(ctx context.Context, key string, expiresAt, now time.Time) (int64, time.Time, error)
	CacheDelete(ctx context.Context, key string) error
	CachePurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// SQL implements Cache over a KV store
type SQL struct {
	kv       KV
	interval time.Duration
	now      func() time.Time
	logger   *slog.Logger
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSQL creates a store-backed cache and starts its purge loop
func NewSQL(kv KV, cleanupInterval time.Duration) *SQL {
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &SQL{
		kv:       kv,
		interval: cleanupInterval,
		now:      time.Now,
		logger:   slog.Default().With("component", "cache"),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	go s.cleanup(ctx)
	return s
}

func (s *SQL) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return s.kv.CacheGet(ctx, key, s.now())
}

func (s *SQL) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.kv.CacheSet(ctx, key, value, s.now().Add(ttl))
}

func (s *SQL) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	now := s.now()
	return s.kv.CacheIncr(ctx, key, now.Add(window), now)
}

func (s *SQL) Delete(ctx context.Context, key string) error {
	return s.kv.CacheDelete(ctx, key)
}

func (s *SQL) cleanup(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.kv.CachePurgeExpired(ctx, s.now())
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("cache purge failed", "error", err)
				}
				continue
			}
			if n > 0 {
				s.logger.Debug("purged expired cache entries", "count", n)
			}
		}
	}
}

// Close stops the purge loop and waits for it to exit. It is safe to call multiple times.
func (s *SQL) Close() error {
	s.cancel()
	<-s.done
	return nil
}
