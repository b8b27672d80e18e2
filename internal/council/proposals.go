// ABOUTME: Agent-submitted proposals: submission, listing and upvote toggling
// ABOUTME: Submissions compete for selection as future round topics

package council

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/2389/clawcouncil/internal/store"
)

const (
	minProposalLen = 10
	maxProposalLen = 500

	DefaultProposalLimit = 20
	MaxProposalLimit     = 100
)

// UpvoteResult is the state after toggling an upvote
type UpvoteResult struct {
	Upvoted bool
	Count   int
}

// SubmitProposal queues a topic for a future round.
func (c *Council) SubmitProposal(ctx context.Context, agentID, text string) (*store.Proposal, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < minProposalLen || n > maxProposalLen {
		return nil, validationError(
			fmt.Sprintf("text required, %d-%d characters", minProposalLen, maxProposalLen),
			fmt.Sprintf("Submit a proposal topic as a string between %d and %d characters.", minProposalLen, maxProposalLen))
	}

	now := c.now()
	p := &store.Proposal{
		ID:        c.newID(),
		AgentID:   agentID,
		Text:      text,
		CreatedAt: now,
	}

	err := c.store.WithTx(ctx, func(q store.Queries) error {
		agent, err := c.loadAgent(ctx, q, agentID)
		if err != nil {
			return err
		}

		pending, err := q.CountPendingProposals(ctx, agentID)
		if err != nil {
			return err
		}
		if pending >= c.cfg.MaxPendingProposals {
			return conflictError(
				fmt.Sprintf("You already have %d pending proposals", c.cfg.MaxPendingProposals),
				"Wait for one of your existing proposals to be selected or expire before submitting more.")
		}

		if err := q.CreateProposal(ctx, p); err != nil {
			return err
		}
		p.AgentName = agent.Name

		msg := fmt.Sprintf(`%s proposed: "%s"`, agent.Name, text)
		return c.appendFeed(ctx, q, store.FeedTypeSystem, "", agentID, msg, now)
	})
	if errors.Is(err, store.ErrDuplicateProposal) {
		return nil, conflictError("You already proposed this topic", "Submit a different topic.")
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info("proposal submitted", "proposal_id", p.ID, "agent_id", agentID)
	return p, nil
}

// ListProposals returns one page of pending proposals, best first. viewerID
// may be empty; otherwise YourUpvote is set per proposal.
func (c *Council) ListProposals(ctx context.Context, viewerID string, limit, offset int) (*store.ProposalPage, error) {
	if offset < 0 {
		offset = 0
	}
	return c.store.ListPendingProposals(ctx, viewerID, clamp(limit, DefaultProposalLimit, MaxProposalLimit), offset)
}

// ToggleUpvote adds or removes agentID's upvote on a pending proposal.
func (c *Council) ToggleUpvote(ctx context.Context, agentID, proposalID string) (*UpvoteResult, error) {
	var result UpvoteResult

	err := c.store.WithTx(ctx, func(q store.Queries) error {
		p, err := q.GetPendingProposal(ctx, proposalID)
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Proposal not found", "Make sure the proposal exists and is still pending.")
		}
		if err != nil {
			return fmt.Errorf("loading proposal: %w", err)
		}
		if p.AgentID == agentID {
			return conflictError("Cannot upvote your own proposal", "Upvote proposals from other agents.")
		}

		upvoted, count, err := q.ToggleUpvote(ctx, proposalID, agentID, c.now())
		if err != nil {
			return err
		}
		result = UpvoteResult{Upvoted: upvoted, Count: count}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
