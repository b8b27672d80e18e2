// ABOUTME: Settlement engine: tally, close, score and reopen in one transaction
// ABOUTME: SweepExpired closes every overdue round and keeps going past failures

package council

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/clawcouncil/internal/store"
)

// ScoreChange is one agent's settlement delta
type ScoreChange struct {
	AgentID   string
	AgentName string
	Choice    Choice
	Delta     int64
}

// Settlement is the result of closing a round
type Settlement struct {
	Round   ClosedRound
	Tally   Tally
	Changes []ScoreChange
	Next    OpenRound
}

// CloseRound settles an open round and opens the next one atomically.
// Returns ErrRoundNotFound for unknown ids and ErrRoundClosed when the round
// is already closed, including when a concurrent closer got there first.
func (c *Council) CloseRound(ctx context.Context, roundID string) (*Settlement, error) {
	var result *Settlement

	err := c.store.WithTx(ctx, func(q store.Queries) error {
		row, err := q.GetRound(ctx, roundID)
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoundNotFound
		}
		if err != nil {
			return fmt.Errorf("loading round: %w", err)
		}

		r, err := roundFromStore(row)
		if err != nil {
			return err
		}
		open, ok := r.(OpenRound)
		if !ok {
			return ErrRoundClosed
		}

		votes, err := q.ListVotes(ctx, roundID)
		if err != nil {
			return err
		}

		var tally Tally
		for _, v := range votes {
			if Choice(v.Choice) == Yes {
				tally.Yes++
			} else {
				tally.No++
			}
		}
		outcome := Outcome(tally.Yes, tally.No)
		closed := open.Close(outcome, c.now())

		won, err := q.CloseRound(ctx, roundID, string(outcome), closed.ClosedAt)
		if err != nil {
			return err
		}
		if !won {
			return ErrRoundClosed
		}

		changes := make([]ScoreChange, 0, len(votes))
		for _, v := range votes {
			delta := c.cfg.LoseDelta
			if Choice(v.Choice) == outcome {
				delta = c.cfg.WinDelta
			}
			if err := q.AddScore(ctx, v.AgentID, delta); err != nil {
				return fmt.Errorf("scoring agent %s: %w", v.AgentID, err)
			}
			changes = append(changes, ScoreChange{
				AgentID:   v.AgentID,
				AgentName: v.AgentName,
				Choice:    Choice(v.Choice),
				Delta:     delta,
			})
		}

		summary := closeSummary(outcome, tally, changes)
		if err := c.appendFeed(ctx, q, store.FeedTypeClose, roundID, "", summary, closed.ClosedAt); err != nil {
			return err
		}

		next, err := c.openRound(ctx, q)
		if err != nil {
			return fmt.Errorf("opening next round: %w", err)
		}

		result = &Settlement{Round: closed, Tally: tally, Changes: changes, Next: next}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("settled round",
		"round_id", roundID,
		"outcome", result.Round.Outcome,
		"yes", result.Tally.Yes,
		"no", result.Tally.No,
		"next_round_id", result.Next.ID,
	)
	return result, nil
}

func closeSummary(outcome Choice, tally Tally, changes []ScoreChange) string {
	if len(changes) == 0 {
		return fmt.Sprintf("Round closed with no votes - outcome: %s", outcome)
	}

	lines := make([]string, 0, len(changes))
	for _, ch := range changes {
		lines = append(lines, fmt.Sprintf("%s: %+d", ch.AgentName, ch.Delta))
	}
	return fmt.Sprintf("Round closed - outcome: %s (%d YES / %d NO). Scores: %s",
		outcome, tally.Yes, tally.No, strings.Join(lines, ", "))
}

// SweepExpired closes every open round whose deadline has passed, then makes
// sure a round is open. A failing round is logged and skipped.
func (c *Council) SweepExpired(ctx context.Context) (int, error) {
	ids, err := c.store.ListExpiredRounds(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("listing expired rounds: %w", err)
	}

	closed := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return closed, ctx.Err()
		}

		_, err := c.CloseRound(ctx, id)
		switch {
		case err == nil:
			closed++
		case errors.Is(err, ErrRoundClosed):
			c.logger.Debug("round already settled", "round_id", id)
		default:
			c.logger.Error("failed to close round", "round_id", id, "error", err)
		}
	}

	if _, err := c.EnsureOpenRound(ctx); err != nil {
		return closed, fmt.Errorf("ensuring open round: %w", err)
	}
	return closed, nil
}
