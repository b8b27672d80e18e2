package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStore(dbPath)
	require.NoError(t, err)

	t.Cleanup(func() {
		store.Close()
	})

	return store
}

func TestStore_CreateAgent(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	agent := seedAgent(t, store, "agent-1", "alice")

	byID, err := store.GetAgent(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Name)
	assert.True(t, byID.Claimed)
	assert.Equal(t, int64(0), byID.Score)
	assert.True(t, agent.CreatedAt.Equal(byID.CreatedAt))

	byKey, err := store.GetAgentByKeyHash(ctx, "hash-agent-1")
	require.NoError(t, err)
	assert.Equal(t, "agent-1", byKey.ID)

	_, err = store.GetAgentByKeyHash(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_CreateAgent_DuplicateName(t *testing.T) {
	store := setupTestStore(t)
	seedAgent(t, store, "agent-1", "alice")

	dup := &Agent{ID: "agent-2", Name: "alice", Description: "again", CreatedAt: time.Now()}
	err := store.CreateAgent(context.Background(), dup, "hash-agent-2")
	assert.ErrorIs(t, err, ErrDuplicateName)
}

func TestStore_AddScoreAndLeaderboard(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	seedAgent(t, store, "agent-1", "alice")
	seedAgent(t, store, "agent-2", "bob")
	seedAgent(t, store, "agent-3", "carol")

	require.NoError(t, store.AddScore(ctx, "agent-2", 3))
	require.NoError(t, store.AddScore(ctx, "agent-3", -1))
	assert.ErrorIs(t, store.AddScore(ctx, "ghost", 1), ErrNotFound)

	board, err := store.Leaderboard(ctx, 10)
	require.NoError(t, err)
	require.Len(t, board, 3)
	assert.Equal(t, "bob", board[0].Name)
	assert.Equal(t, "alice", board[1].Name)
	assert.Equal(t, "carol", board[2].Name)
	assert.Equal(t, int64(-1), board[2].Score)

	top, err := store.Leaderboard(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestStore_TouchAgent_Throttled(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedAgent(t, store, "agent-1", "alice")

	t0 := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.TouchAgent(ctx, "agent-1", t0, time.Minute))

	require.NoError(t, store.TouchAgent(ctx, "agent-1", t0.Add(30*time.Second), time.Minute))
	agent, err := store.GetAgent(ctx, "agent-1")
	require.NoError(t, err)
	assert.True(t, agent.LastActiveAt.Equal(t0), "touch inside interval should be skipped")

	require.NoError(t, store.TouchAgent(ctx, "agent-1", t0.Add(2*time.Minute), time.Minute))
	agent, err = store.GetAgent(ctx, "agent-1")
	require.NoError(t, err)
	assert.True(t, agent.LastActiveAt.Equal(t0.Add(2*time.Minute)))
}

func TestStore_UpsertVote(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedAgent(t, store, "agent-1", "alice")
	seedAgent(t, store, "agent-2", "bob")

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.InsertRound(ctx, &Round{ID: "round-1", Proposal: "p", CreatedAt: now, ClosesAt: now.Add(time.Hour)}))

	updated, err := store.UpsertVote(ctx, &Vote{ID: "v1", RoundID: "round-1", AgentID: "agent-1", Choice: "YES", Rationale: "because", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.False(t, updated)

	updated, err = store.UpsertVote(ctx, &Vote{ID: "v2", RoundID: "round-1", AgentID: "agent-2", Choice: "NO", Rationale: "nah", CreatedAt: now.Add(time.Second), UpdatedAt: now.Add(time.Second)})
	require.NoError(t, err)
	assert.False(t, updated)

	later := now.Add(time.Minute)
	change := &Vote{ID: "v3", RoundID: "round-1", AgentID: "agent-1", Choice: "NO", Rationale: "changed my mind", CreatedAt: later, UpdatedAt: later}
	updated, err = store.UpsertVote(ctx, change)
	require.NoError(t, err)
	assert.True(t, updated)
	assert.Equal(t, "v1", change.ID)

	votes, err := store.ListVotes(ctx, "round-1")
	require.NoError(t, err)
	require.Len(t, votes, 2)
	assert.Equal(t, "alice", votes[0].AgentName)
	assert.Equal(t, "NO", votes[0].Choice)
	assert.Equal(t, "changed my mind", votes[0].Rationale)
	assert.True(t, votes[0].CreatedAt.Equal(now))
	assert.True(t, votes[0].UpdatedAt.Equal(later))
	assert.Equal(t, "bob", votes[1].AgentName)
}

func TestStore_UpsertDebate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedAgent(t, store, "agent-1", "alice")
	seedAgent(t, store, "agent-2", "bob")

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.InsertRound(ctx, &Round{ID: "round-1", Proposal: "p", CreatedAt: now, ClosesAt: now.Add(time.Hour)}))

	updated, err := store.UpsertDebate(ctx, &Debate{ID: "d1", RoundID: "round-1", AgentID: "agent-1", Message: "first", CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	assert.False(t, updated)

	bobAt := now.Add(time.Second)
	_, err = store.UpsertDebate(ctx, &Debate{ID: "d2", RoundID: "round-1", AgentID: "agent-2", Message: "rebuttal", CreatedAt: bobAt, UpdatedAt: bobAt})
	require.NoError(t, err)

	rewriteAt := now.Add(2 * time.Second)
	updated, err = store.UpsertDebate(ctx, &Debate{ID: "d3", RoundID: "round-1", AgentID: "agent-1", Message: "second", CreatedAt: rewriteAt, UpdatedAt: rewriteAt})
	require.NoError(t, err)
	assert.True(t, updated)

	debates, err := store.ListDebates(ctx, "round-1")
	require.NoError(t, err)
	require.Len(t, debates, 2)

	// The rewrite keeps its id but moves behind bob's argument
	assert.Equal(t, "bob", debates[0].AgentName)
	assert.Equal(t, "d1", debates[1].ID)
	assert.Equal(t, "second", debates[1].Message)
	assert.Equal(t, "alice", debates[1].AgentName)
	assert.True(t, debates[1].CreatedAt.Equal(rewriteAt))
}

func TestStore_Proposals(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedAgent(t, store, "agent-1", "alice")
	seedAgent(t, store, "agent-2", "bob")
	seedAgent(t, store, "agent-3", "carol")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, text := range []string{"older topic here", "newer topic here"} {
		p := &Proposal{ID: fmt.Sprintf("p%d", i+1), AgentID: "agent-1", Text: text, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, store.CreateProposal(ctx, p))
	}

	err := store.CreateProposal(ctx, &Proposal{ID: "p3", AgentID: "agent-1", Text: "older topic here", CreatedAt: base})
	assert.ErrorIs(t, err, ErrDuplicateProposal)

	n, err := store.CountPendingProposals(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = store.TopQualifyingProposal(ctx, 2)
	assert.ErrorIs(t, err, ErrNotFound)

	// Both reach two upvotes; the older one wins the tie.
	for _, id := range []string{"p2", "p1"} {
		for _, voter := range []string{"agent-2", "agent-3"} {
			upvoted, _, err := store.ToggleUpvote(ctx, id, voter, base)
			require.NoError(t, err)
			assert.True(t, upvoted)
		}
	}

	top, err := store.TopQualifyingProposal(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "p1", top.ID)
	assert.Equal(t, 2, top.Upvotes)
	assert.Equal(t, "alice", top.AgentName)

	upvoted, count, err := store.ToggleUpvote(ctx, "p1", "agent-2", base)
	require.NoError(t, err)
	assert.False(t, upvoted)
	assert.Equal(t, 1, count)

	top, err = store.TopQualifyingProposal(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "p2", top.ID)

	page, err := store.ListPendingProposals(ctx, "agent-3", 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Proposals, 2)
	assert.Equal(t, "p2", page.Proposals[0].ID)
	assert.True(t, page.Proposals[0].YourUpvote)
	assert.True(t, page.Proposals[1].YourUpvote)

	selected, err := store.MarkProposalSelected(ctx, "p2")
	require.NoError(t, err)
	assert.True(t, selected)
	selected, err = store.MarkProposalSelected(ctx, "p2")
	require.NoError(t, err)
	assert.False(t, selected)

	_, err = store.GetPendingProposal(ctx, "p2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_ExpirePendingProposals(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	seedAgent(t, store, "agent-1", "alice")

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.CreateProposal(ctx, &Proposal{ID: "old", AgentID: "agent-1", Text: "an old proposal", CreatedAt: base}))
	require.NoError(t, store.CreateProposal(ctx, &Proposal{ID: "new", AgentID: "agent-1", Text: "a new proposal", CreatedAt: base.Add(47 * time.Hour)}))

	n, err := store.ExpirePendingProposals(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := store.CountPendingProposals(ctx, "agent-1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStore_Feed(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	same := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		entry := &FeedEntry{ID: fmt.Sprintf("f%d", i), Type: FeedTypeSystem, Message: fmt.Sprintf("entry %d", i), CreatedAt: same}
		require.NoError(t, store.AppendFeed(ctx, entry))
		assert.NotZero(t, entry.Seq)
	}

	entries, err := store.ListFeed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "entry 2", entries[0].Message)
	assert.Equal(t, "entry 1", entries[1].Message)
	assert.Empty(t, entries[0].RoundID)
}

func TestStore_Cache(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CacheSet(ctx, "k", []byte("v"), now.Add(time.Minute)))

	value, ok, err := store.CacheGet(ctx, "k", now)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), value)

	_, ok, err = store.CacheGet(ctx, "k", now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "entry should be expired at its deadline")

	count, exp, err := store.CacheIncr(ctx, "ctr", now.Add(time.Minute), now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.True(t, exp.Equal(now.Add(time.Minute)))

	count, exp, err = store.CacheIncr(ctx, "ctr", now.Add(2*time.Minute), now.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.True(t, exp.Equal(now.Add(time.Minute)), "window keeps its original expiry")

	count, _, err = store.CacheIncr(ctx, "ctr", now.Add(3*time.Minute), now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count, "expired window restarts")

	n, err := store.CachePurgeExpired(ctx, now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, store.CacheDelete(ctx, "missing"))
}
