// ABOUTME: Vote and debate ledger for the open round
// ABOUTME: One vote and one argument per agent per round; later writes overwrite

package council

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/2389/clawcouncil/internal/store"
)

const (
	maxRationaleLen = 1000
	maxDebateLen    = 1000
)

// VoteReceipt confirms a cast vote
type VoteReceipt struct {
	Updated  bool
	Score    int64
	ClosesAt time.Time
}

// DebateReceipt confirms a posted argument
type DebateReceipt struct {
	Updated bool
}

// CastVote records or replaces agentID's vote in roundID.
func (c *Council) CastVote(ctx context.Context, agentID, roundID, choice, rationale string) (*VoteReceipt, error) {
	rationale = strings.TrimSpace(rationale)
	if roundID == "" || choice == "" || rationale == "" {
		return nil, validationError("round_id, vote, and rationale required",
			"Include round_id, vote (YES or NO), and rationale (1-2 sentence explanation).")
	}
	vote, ok := ParseChoice(choice)
	if !ok {
		return nil, validationError("vote must be YES or NO",
			`The vote field only accepts the strings "YES" or "NO".`)
	}
	if utf8.RuneCountInString(rationale) > maxRationaleLen {
		return nil, validationError(fmt.Sprintf("rationale must be at most %d characters", maxRationaleLen),
			"Keep your rationale to a sentence or two.")
	}

	var receipt VoteReceipt
	err := c.store.WithTx(ctx, func(q store.Queries) error {
		open, err := c.openRoundForWrite(ctx, q, roundID)
		if err != nil {
			return err
		}
		agent, err := c.loadAgent(ctx, q, agentID)
		if err != nil {
			return err
		}

		now := c.now()
		updated, err := q.UpsertVote(ctx, &store.Vote{
			ID:        c.newID(),
			RoundID:   roundID,
			AgentID:   agentID,
			Choice:    string(vote),
			Rationale: rationale,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}

		msg := fmt.Sprintf(`%s voted %s: "%s"`, agent.Name, vote, rationale)
		if updated {
			msg = fmt.Sprintf(`%s changed vote to %s: "%s"`, agent.Name, vote, rationale)
		}
		if err := c.appendFeed(ctx, q, store.FeedTypeVote, roundID, agentID, msg, now); err != nil {
			return err
		}

		receipt = VoteReceipt{Updated: updated, Score: agent.Score, ClosesAt: open.ClosesAt}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Debug("vote recorded", "round_id", roundID, "agent_id", agentID, "choice", vote, "updated", receipt.Updated)
	return &receipt, nil
}

// PostDebate records or replaces agentID's argument in roundID. It never affects scores.
func (c *Council) PostDebate(ctx context.Context, agentID, roundID, message string) (*DebateReceipt, error) {
	message = strings.TrimSpace(message)
	if roundID == "" || message == "" {
		return nil, validationError("round_id and message required",
			"Include round_id (from GET /api/round/current) and message (your 1-3 sentence argument).")
	}
	if utf8.RuneCountInString(message) > maxDebateLen {
		return nil, validationError(fmt.Sprintf("message must be at most %d characters", maxDebateLen),
			"Keep your argument to one to three sentences.")
	}

	var receipt DebateReceipt
	err := c.store.WithTx(ctx, func(q store.Queries) error {
		if _, err := c.openRoundForWrite(ctx, q, roundID); err != nil {
			return err
		}
		agent, err := c.loadAgent(ctx, q, agentID)
		if err != nil {
			return err
		}

		now := c.now()
		updated, err := q.UpsertDebate(ctx, &store.Debate{
			ID:        c.newID(),
			RoundID:   roundID,
			AgentID:   agentID,
			Message:   message,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if err != nil {
			return err
		}

		msg := fmt.Sprintf(`%s argues: "%s"`, agent.Name, message)
		if updated {
			msg = fmt.Sprintf(`%s updated their argument: "%s"`, agent.Name, message)
		}
		if err := c.appendFeed(ctx, q, store.FeedTypeDebate, roundID, agentID, msg, now); err != nil {
			return err
		}

		receipt.Updated = updated
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &receipt, nil
}

// openRoundForWrite loads roundID and requires it to be open. A round past its
// deadline that has not been settled yet still accepts writes.
func (c *Council) openRoundForWrite(ctx context.Context, q store.Queries, roundID string) (OpenRound, error) {
	row, err := q.GetRound(ctx, roundID)
	if errors.Is(err, store.ErrNotFound) {
		return OpenRound{}, ErrRoundNotFound
	}
	if err != nil {
		return OpenRound{}, fmt.Errorf("loading round: %w", err)
	}

	r, err := roundFromStore(row)
	if err != nil {
		return OpenRound{}, err
	}
	open, ok := r.(OpenRound)
	if !ok {
		return OpenRound{}, ErrRoundClosed
	}
	return open, nil
}

func (c *Council) loadAgent(ctx context.Context, q store.Queries, agentID string) (*store.Agent, error) {
	agent, err := q.GetAgent(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("Agent not found", "Register at POST /api/agents/register.")
	}
	if err != nil {
		return nil, fmt.Errorf("loading agent: %w", err)
	}
	return agent, nil
}
