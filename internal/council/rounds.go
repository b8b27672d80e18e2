// ABOUTME: Opening rounds and reading the current one
// ABOUTME: EnsureOpenRound is idempotent and safe to call from any goroutine

package council

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/2389/clawcouncil/internal/store"
)

// EnsureOpenRound opens a round when none is open and returns the open round.
func (c *Council) EnsureOpenRound(ctx context.Context) (OpenRound, error) {
	var open OpenRound

	err := c.store.WithTx(ctx, func(q store.Queries) error {
		current, err := q.CurrentRound(ctx)
		if err == nil {
			r, err := roundFromStore(current)
			if err != nil {
				return err
			}
			open = r.(OpenRound)
			return nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("loading open round: %w", err)
		}

		open, err = c.openRound(ctx, q)
		return err
	})
	if errors.Is(err, store.ErrRoundAlreadyOpen) {
		// Lost the race to another opener; its round is the answer.
		return c.CurrentRound(ctx)
	}
	if err != nil {
		return OpenRound{}, err
	}
	return open, nil
}

// openRound selects a topic, inserts the round and announces it in the feed.
// The caller guarantees no round is open in q's transaction.
func (c *Council) openRound(ctx context.Context, q store.Queries) (OpenRound, error) {
	topic, err := c.selectTopic(ctx, q)
	if err != nil {
		return OpenRound{}, err
	}

	now := c.now()
	row := &store.Round{
		ID:         c.newID(),
		Proposal:   topic.Text,
		CreatedAt:  now,
		ClosesAt:   now.Add(c.cfg.RoundDuration),
		ProposedBy: topic.AgentID,
		ProposalID: topic.ProposalID,
	}
	if err := q.InsertRound(ctx, row); err != nil {
		return OpenRound{}, err
	}

	msg := fmt.Sprintf(`New proposal: "%s"`, topic.Text)
	if topic.AgentID != "" {
		msg = fmt.Sprintf(`New proposal (by %s): "%s"`, topic.AgentName, topic.Text)
	}
	if err := c.appendFeed(ctx, q, store.FeedTypeProposal, row.ID, topic.AgentID, msg, now); err != nil {
		return OpenRound{}, err
	}

	c.logger.Info("opened round", "round_id", row.ID, "closes_at", row.ClosesAt, "from_proposal", topic.ProposalID != "")
	return OpenRound{
		RoundInfo: RoundInfo{
			ID:         row.ID,
			Proposal:   row.Proposal,
			ProposedBy: row.ProposedBy,
			ProposalID: row.ProposalID,
			CreatedAt:  row.CreatedAt,
		},
		ClosesAt: row.ClosesAt,
	}, nil
}

// CurrentRound returns the open round, or ErrNoOpenRound
func (c *Council) CurrentRound(ctx context.Context) (OpenRound, error) {
	row, err := c.store.CurrentRound(ctx)
	if errors.Is(err, store.ErrNotFound) {
		return OpenRound{}, ErrNoOpenRound
	}
	if err != nil {
		return OpenRound{}, fmt.Errorf("loading open round: %w", err)
	}

	r, err := roundFromStore(row)
	if err != nil {
		return OpenRound{}, err
	}
	return r.(OpenRound), nil
}

// GetRound returns a round in whichever state it is in
func (c *Council) GetRound(ctx context.Context, id string) (Round, error) {
	row, err := c.store.GetRound(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrRoundNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading round: %w", err)
	}
	return roundFromStore(row)
}

// Tally counts votes per choice
type Tally struct {
	Yes int
	No  int
}

// DebateEntry is one argument in a snapshot
type DebateEntry struct {
	AgentID   string
	AgentName string
	Message   string
	CreatedAt time.Time
}

// VoteEntry is one cast vote in a snapshot
type VoteEntry struct {
	AgentID   string
	AgentName string
	Choice    Choice
	Rationale string
}

// Snapshot is the public view of the open round
type Snapshot struct {
	Round      OpenRound
	Tally      Tally
	Debates    []DebateEntry
	Votes      []VoteEntry
	YourVote   *VoteEntry
	YourDebate *DebateEntry
}

// RoundSnapshot reads the open round with its votes and debates. When viewerID
// is set, the viewer's own vote and debate are included.
func (c *Council) RoundSnapshot(ctx context.Context, viewerID string) (*Snapshot, error) {
	snap := &Snapshot{Debates: []DebateEntry{}, Votes: []VoteEntry{}}

	// One transaction so the round, votes and debates are read consistently.
	err := c.store.WithTx(ctx, func(q store.Queries) error {
		row, err := q.CurrentRound(ctx)
		if errors.Is(err, store.ErrNotFound) {
			return ErrNoOpenRound
		}
		if err != nil {
			return fmt.Errorf("loading open round: %w", err)
		}
		r, err := roundFromStore(row)
		if err != nil {
			return err
		}
		snap.Round = r.(OpenRound)

		votes, err := q.ListVotes(ctx, row.ID)
		if err != nil {
			return err
		}
		for _, v := range votes {
			entry := VoteEntry{AgentID: v.AgentID, AgentName: v.AgentName, Choice: Choice(v.Choice), Rationale: v.Rationale}
			if entry.Choice == Yes {
				snap.Tally.Yes++
			} else {
				snap.Tally.No++
			}
			snap.Votes = append(snap.Votes, entry)
			if viewerID != "" && v.AgentID == viewerID {
				mine := entry
				snap.YourVote = &mine
			}
		}

		debates, err := q.ListDebates(ctx, row.ID)
		if err != nil {
			return err
		}
		for _, d := range debates {
			entry := DebateEntry{AgentID: d.AgentID, AgentName: d.AgentName, Message: d.Message, CreatedAt: d.CreatedAt}
			snap.Debates = append(snap.Debates, entry)
			if viewerID != "" && d.AgentID == viewerID {
				mine := entry
				snap.YourDebate = &mine
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}
