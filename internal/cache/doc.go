// Package cache provides the expiring key/value and counter store used by the
// HTTP rate limiter and idempotency replay. The memory backend is a single
// process LRU; the sqlite backend keeps entries in the main database.
package cache
