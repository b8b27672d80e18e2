package council

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/2389/clawcouncil/internal/store"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	council *Council
	store   *store.SQLiteStore
	clock   *fakeClock
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "council.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	clock := newFakeClock()
	base := []Option{WithClock(clock), WithPicker(func(int) int { return 0 })}
	c := New(s, DefaultConfig(), append(base, opts...)...)

	return &testEnv{council: c, store: s, clock: clock}
}

// register creates an agent and returns its id
func (e *testEnv) register(t *testing.T, name string) string {
	t.Helper()
	reg, err := e.council.Register(context.Background(), name, name+" is a test agent")
	require.NoError(t, err)
	return reg.Agent.ID
}

func (e *testEnv) score(t *testing.T, agentID string) int64 {
	t.Helper()
	agent, err := e.store.GetAgent(context.Background(), agentID)
	require.NoError(t, err)
	return agent.Score
}

func (e *testEnv) feedOfType(t *testing.T, typ store.FeedType) []*store.FeedEntry {
	t.Helper()
	entries, err := e.store.ListFeed(context.Background(), 1000)
	require.NoError(t, err)

	var out []*store.FeedEntry
	for _, entry := range entries {
		if entry.Type == typ {
			out = append(out, entry)
		}
	}
	return out
}
