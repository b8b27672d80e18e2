// ABOUTME: Thread-safe in-process cache with per-entry TTL and LRU eviction
// ABOUTME: A background goroutine periodically drops expired entries

package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

const (
	defaultMaxEntries      = 100_000
	defaultCleanupInterval = time.Minute
)

// memoryEntry stores a value or counter with its expiry and list element.
type memoryEntry struct {
	key       string
	value     []byte
	counter   int64
	expiresAt time.Time
	element   *list.Element
}

// Memory is a size-limited TTL cache. The least recently used entry is
// evicted when the cache is full. Uses a doubly-linked list for O(1) eviction.
type Memory struct {
	mu       sync.Mutex
	entries  map[string]*memoryEntry
	order    *list.List // least recently used at front
	maxSize  int
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
	closed   bool
}

// NewMemory creates an in-process cache holding at most maxSize entries.
// Non-positive arguments fall back to defaults.
func NewMemory(maxSize int, cleanupInterval time.Duration) *Memory {
	if maxSize <= 0 {
		maxSize = defaultMaxEntries
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultCleanupInterval
	}
	m := &Memory{
		entries:  make(map[string]*memoryEntry),
		order:    list.New(),
		maxSize:  maxSize,
		interval: cleanupInterval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
	go m.cleanup()
	return m
}

// Get returns the value for key if present and not expired.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.liveLocked(key)
	if !ok {
		return nil, false, nil
	}
	m.order.MoveToBack(entry.element)
	return entry.value, true, nil
}

// Set stores value under key for ttl.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := m.putLocked(key)
	entry.value = value
	entry.counter = 0
	entry.expiresAt = m.now().Add(ttl)
	return nil
}

// Incr increments a fixed-window counter.
func (m *Memory) Incr(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.liveLocked(key); ok {
		entry.counter++
		m.order.MoveToBack(entry.element)
		return entry.counter, entry.expiresAt, nil
	}

	entry := m.putLocked(key)
	entry.value = nil
	entry.counter = 1
	entry.expiresAt = m.now().Add(window)
	return entry.counter, entry.expiresAt, nil
}

// Delete removes key.
func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry, ok := m.entries[key]; ok {
		m.order.Remove(entry.element)
		delete(m.entries, key)
	}
	return nil
}

// Len returns the number of stored entries, expired or not.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// liveLocked returns the entry for key if it has not expired. Must be called with mu held.
func (m *Memory) liveLocked(key string) (*memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return nil, false
	}
	if !m.now().Before(entry.expiresAt) {
		return nil, false
	}
	return entry, true
}

// putLocked returns the entry for key, creating it and evicting the least
// recently used entry if the cache is full. Must be called with mu held.
func (m *Memory) putLocked(key string) *memoryEntry {
	if entry, exists := m.entries[key]; exists {
		m.order.MoveToBack(entry.element)
		return entry
	}

	if len(m.entries) >= m.maxSize {
		m.evictOldest()
	}

	entry := &memoryEntry{key: key}
	entry.element = m.order.PushBack(entry)
	m.entries[key] = entry
	return entry
}

// evictOldest removes the least recently used entry. Must be called with mu held.
func (m *Memory) evictOldest() {
	front := m.order.Front()
	if front == nil {
		return
	}

	entry, _ := front.Value.(*memoryEntry)
	m.order.Remove(front)
	delete(m.entries, entry.key)
}

// cleanup runs in a background goroutine, periodically removing expired entries.
func (m *Memory) cleanup() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runCleanup()
		case <-m.done:
			return
		}
	}
}

// runCleanup removes all expired entries from the cache.
func (m *Memory) runCleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.entries {
		if !now.Before(entry.expiresAt) {
			m.order.Remove(entry.element)
			delete(m.entries, key)
		}
	}
}

// Close stops the background cleanup goroutine. It is safe to call multiple times.
func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.closed {
		close(m.done)
		m.closed = true
	}
	return nil
}
