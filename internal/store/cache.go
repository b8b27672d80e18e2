// ABOUTME: Expiring key/value and counter storage in the cache_entries table
// ABOUTME: Backs the shared cache when rate limits must survive restarts

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CacheGet returns the value for key if it has not expired at now
func (s *SQLiteStore) CacheGet(ctx context.Context, key string, now time.Time) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM cache_entries WHERE key = ? AND expires_at > ?`,
		key, toMillis(now),
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cache entry: %w", err)
	}
	return value, true, nil
}

// CacheSet stores value under key until expiresAt, replacing any previous entry
func (s *SQLiteStore) CacheSet(ctx context.Context, key string, value []byte, expiresAt time.Time) error {
	query := `
		INSERT INTO cache_entries (key, value, counter, expires_at)
		VALUES (?, ?, 0, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			counter = 0,
			expires_at = excluded.expires_at
	`
	if _, err := s.db.ExecContext(ctx, query, key, value, toMillis(expiresAt)); err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// CacheIncr increments the counter under key. An absent or expired counter
// restarts at 1 with the given expiry. Returns the new count and its expiry.
func (s *SQLiteStore) CacheIncr(ctx context.Context, key string, expiresAt, now time.Time) (int64, time.Time, error) {
	query := `
		INSERT INTO cache_entries (key, value, counter, expires_at)
		VALUES (?, NULL, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			counter = CASE WHEN cache_entries.expires_at <= ? THEN 1 ELSE cache_entries.counter + 1 END,
			expires_at = CASE WHEN cache_entries.expires_at <= ? THEN excluded.expires_at ELSE cache_entries.expires_at END
		RETURNING counter, expires_at
	`

	nowMs := toMillis(now)
	var count, exp int64
	err := s.db.QueryRowContext(ctx, query, key, toMillis(expiresAt), nowMs, nowMs).Scan(&count, &exp)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("incrementing cache counter: %w", err)
	}
	return count, fromMillis(exp), nil
}

// CacheDelete removes key
func (s *SQLiteStore) CacheDelete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE key = ?`, key); err != nil {
		return fmt.Errorf("deleting cache entry: %w", err)
	}
	return nil
}

// CachePurgeExpired removes entries that expired at or before now
func (s *SQLiteStore) CachePurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("purging cache entries: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return n, nil
}
