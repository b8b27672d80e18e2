package council

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/clawcouncil/internal/store"
)

func TestOutcome_TieGoesToYes(t *testing.T) {
	tests := []struct {
		yes, no int
		want    Choice
	}{
		{0, 0, Yes},
		{1, 1, Yes},
		{2, 2, Yes},
		{3, 2, Yes},
		{2, 3, No},
		{0, 1, No},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Outcome(tt.yes, tt.no), "yes=%d no=%d", tt.yes, tt.no)
	}
}

func TestCloseRound_EndToEnd(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.register(t, "alice")
	bob := env.register(t, "bob")

	r1, err := env.council.EnsureOpenRound(ctx)
	require.NoError(t, err)

	_, err = env.council.CastVote(ctx, alice, r1.ID, "YES", "ship it")
	require.NoError(t, err)
	_, err = env.council.CastVote(ctx, bob, r1.ID, "NO", "too risky")
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	settlement, err := env.council.CloseRound(ctx, r1.ID)
	require.NoError(t, err)

	assert.Equal(t, Yes, settlement.Round.Outcome)
	assert.Equal(t, Tally{Yes: 1, No: 1}, settlement.Tally)
	assert.Equal(t, int64(3), env.score(t, alice))
	assert.Equal(t, int64(-1), env.score(t, bob))

	closes := env.feedOfType(t, store.FeedTypeClose)
	require.Len(t, closes, 1)
	assert.Equal(t, "Round closed - outcome: YES (1 YES / 1 NO). Scores: alice: +3, bob: -1", closes[0].Message)
	assert.Equal(t, r1.ID, closes[0].RoundID)

	row, err := env.store.GetRound(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, store.RoundStatusClosed, row.Status)
	assert.Equal(t, "YES", row.Outcome)
	require.NotNil(t, row.ClosedAt)
	assert.True(t, row.ClosedAt.Equal(env.clock.Now()))

	r2, err := env.council.CurrentRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, settlement.Next.ID, r2.ID)
	assert.NotEqual(t, r1.ID, r2.ID)
	assert.True(t, r2.ClosesAt.Equal(env.clock.Now().Add(time.Hour)))
}

func TestCloseRound_TwoTwoTieIsYes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	round, err := env.council.EnsureOpenRound(ctx)
	require.NoError(t, err)

	choices := map[string]string{"a": "YES", "b": "YES", "c": "NO", "d": "NO"}
	ids := map[string]string{}
	for _, name := range []string{"a", "b", "c", "d"} {
		ids[name] = env.register(t, name)
		_, err := env.council.CastVote(ctx, ids[name], round.ID, choices[name], "reason")
		require.NoError(t, err)
	}

	settlement, err := env.council.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, Yes, settlement.Round.Outcome)
	assert.Equal(t, int64(3), env.score(t, ids["a"]))
	assert.Equal(t, int64(-1), env.score(t, ids["d"]))
}

func TestCloseRound_NoVotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	round, err := env.council.EnsureOpenRound(ctx)
	require.NoError(t, err)

	settlement, err := env.council.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, Yes, settlement.Round.Outcome)
	assert.Empty(t, settlement.Changes)

	closes := env.feedOfType(t, store.FeedTypeClose)
	require.Len(t, closes, 1)
	assert.Equal(t, "Round closed with no votes - outcome: YES", closes[0].Message)
}

func TestCloseRound_ScoreConservation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	round, err := env.council.EnsureOpenRound(ctx)
	require.NoError(t, err)

	var agents []string
	for i, choice := range []string{"YES", "NO", "NO", "YES", "NO"} {
		id := env.register(t, fmt.Sprintf("agent-%d", i))
		agents = append(agents, id)
		_, err := env.council.CastVote(ctx, id, round.ID, choice, "because")
		require.NoError(t, err)
	}

	settlement, err := env.council.CloseRound(ctx, round.ID)
	require.NoError(t, err)
	assert.Equal(t, No, settlement.Round.Outcome)

	var wantTotal, gotTotal int64
	for _, ch := range settlement.Changes {
		wantTotal += ch.Delta
	}
	for _, id := range agents {
		gotTotal += env.score(t, id)
	}
	// 3 NO voters at +3, 2 YES voters at -1
	assert.Equal(t, int64(7), wantTotal)
	assert.Equal(t, wantTotal, gotTotal)
}

func TestCloseRound_ConcurrentClosersSettleOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	alice := env.register(t, "alice")
	round, err := env.council.EnsureOpenRound(ctx)
	require.NoError(t, err)
	_, err = env.council.CastVote(ctx, alice, round.ID, "YES", "yes")
	require.NoError(t, err)

	const closers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var wins, lost int
	for i := 0; i < closers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.council.CloseRound(ctx, round.ID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, ErrRoundClosed):
				lost++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, closers-1, lost)
	assert.Equal(t, int64(3), env.score(t, alice))
	assert.Len(t, env.feedOfType(t, store.FeedTypeClose), 1)
	assert.Len(t, env.feedOfType(t, store.FeedTypeProposal), 2)

	_, err = env.council.CurrentRound(ctx)
	require.NoError(t, err)
}

func TestCloseRound_Errors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.council.CloseRound(ctx, "missing")
	assert.ErrorIs(t, err, ErrRoundNotFound)
	assert.ErrorIs(t, err, ErrNotFound)

	round, err := env.council.EnsureOpenRound(ctx)
	require.NoError(t, err)
	_, err = env.council.CloseRound(ctx, round.ID)
	require.NoError(t, err)

	_, err = env.council.CloseRound(ctx, round.ID)
	assert.ErrorIs(t, err, ErrRoundClosed)
	assert.ErrorIs(t, err, ErrConflict)
}

// flakyStore fails the first n transactions
type flakyStore struct {
	store.Store
	mu       sync.Mutex
	failures int
}

func (f *flakyStore) WithTx(ctx context.Context, fn func(q store.Queries) error) error {
	f.mu.Lock()
	if f.failures > 0 {
		f.failures--
		f.mu.Unlock()
		return errors.New("database is locked")
	}
	f.mu.Unlock()
	return f.Store.WithTx(ctx, fn)
}

func TestSweepExpired(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	closed, err := env.council.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)

	first, err := env.council.CurrentRound(ctx)
	require.NoError(t, err)

	env.clock.Advance(59 * time.Minute)
	closed, err = env.council.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)

	env.clock.Advance(time.Minute)
	closed, err = env.council.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)

	next, err := env.council.CurrentRound(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID)
}

func TestSweepExpired_FailedCloseStaysOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	round, err := env.council.EnsureOpenRound(ctx)
	require.NoError(t, err)
	env.clock.Advance(2 * time.Hour)

	flaky := &flakyStore{Store: env.store, failures: 1}
	c := New(flaky, DefaultConfig(), WithClock(env.clock), WithPicker(func(int) int { return 0 }))

	closed, err := c.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, closed)

	still, err := c.CurrentRound(ctx)
	require.NoError(t, err)
	assert.Equal(t, round.ID, still.ID)

	closed, err = c.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, closed)
}
