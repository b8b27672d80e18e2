// ABOUTME: Proposal persistence: submission, upvote toggling, ranking and expiry
// ABOUTME: Selection and expiry only ever move a proposal out of pending

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateProposal inserts a pending proposal.
// Returns ErrDuplicateProposal if the agent already submitted the same text.
func (s *queries) CreateProposal(ctx context.Context, p *Proposal) error {
	query := `
		INSERT INTO proposals (id, agent_id, text, upvotes, status, created_at)
		VALUES (?, ?, ?, 0, 'pending', ?)
	`

	_, err := s.q.ExecContext(ctx, query, p.ID, p.AgentID, p.Text, toMillis(p.CreatedAt))
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateProposal
		}
		return fmt.Errorf("inserting proposal: %w", err)
	}

	p.Upvotes = 0
	p.Status = ProposalStatusPending
	s.logger.Debug("created proposal", "id", p.ID, "agent_id", p.AgentID)
	return nil
}

// CountPendingProposals returns how many pending proposals an agent has
func (s *queries) CountPendingProposals(ctx context.Context, agentID string) (int, error) {
	var n int
	err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM proposals WHERE agent_id = ? AND status = 'pending'`, agentID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting proposals: %w", err)
	}
	return n, nil
}

// GetPendingProposal retrieves a pending proposal by ID.
// Returns ErrNotFound if it doesn't exist or is no longer pending.
func (s *queries) GetPendingProposal(ctx context.Context, id string) (*Proposal, error) {
	query := `
		SELECT p.id, p.agent_id, a.name, p.text, p.upvotes, p.status, p.created_at
		FROM proposals p
		JOIN agents a ON a.id = p.agent_id
		WHERE p.id = ? AND p.status = 'pending'
	`
	return scanProposal(s.q.QueryRowContext(ctx, query, id))
}

// TopQualifyingProposal returns the pending proposal with the most upvotes,
// oldest first on ties, provided it has at least minUpvotes.
// Returns ErrNotFound if none qualifies.
func (s *queries) TopQualifyingProposal(ctx context.Context, minUpvotes int) (*Proposal, error) {
	query := `
		SELECT p.id, p.agent_id, a.name, p.text, p.upvotes, p.status, p.created_at
		FROM proposals p
		JOIN agents a ON a.id = p.agent_id
		WHERE p.status = 'pending' AND p.upvotes >= ?
		ORDER BY p.upvotes DESC, p.created_at ASC, p.rowid ASC
		LIMIT 1
	`
	return scanProposal(s.q.QueryRowContext(ctx, query, minUpvotes))
}

// MarkProposalSelected moves a pending proposal to selected.
// It reports false when the proposal was not pending.
func (s *queries) MarkProposalSelected(ctx context.Context, id string) (bool, error) {
	result, err := s.q.ExecContext(ctx,
		`UPDATE proposals SET status = 'selected' WHERE id = ? AND status = 'pending'`, id)
	if err != nil {
		return false, fmt.Errorf("selecting proposal: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows == 1, nil
}

// ExpirePendingProposals marks pending proposals created before the cutoff as expired
func (s *queries) ExpirePendingProposals(ctx context.Context, createdBefore time.Time) (int64, error) {
	result, err := s.q.ExecContext(ctx,
		`UPDATE proposals SET status = 'expired' WHERE status = 'pending' AND created_at < ?`,
		toMillis(createdBefore))
	if err != nil {
		return 0, fmt.Errorf("expiring proposals: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	if n > 0 {
		s.logger.Info("expired stale proposals", "count", n)
	}
	return n, nil
}

// ToggleUpvote adds the agent's upvote if absent and removes it if present.
// It returns the new upvote state and count. The caller checks the proposal is pending.
func (s *queries) ToggleUpvote(ctx context.Context, proposalID, agentID string, at time.Time) (bool, int, error) {
	result, err := s.q.ExecContext(ctx,
		`DELETE FROM proposal_upvotes WHERE proposal_id = ? AND agent_id = ?`, proposalID, agentID)
	if err != nil {
		return false, 0, fmt.Errorf("removing upvote: %w", err)
	}
	removed, err := result.RowsAffected()
	if err != nil {
		return false, 0, fmt.Errorf("checking rows affected: %w", err)
	}

	upvoted := removed == 0
	delta := -1
	if upvoted {
		if _, err := s.q.ExecContext(ctx,
			`INSERT INTO proposal_upvotes (proposal_id, agent_id, created_at) VALUES (?, ?, ?)`,
			proposalID, agentID, toMillis(at)); err != nil {
			return false, 0, fmt.Errorf("adding upvote: %w", err)
		}
		delta = 1
	}

	var count int
	err = s.q.QueryRowContext(ctx,
		`UPDATE proposals SET upvotes = upvotes + ? WHERE id = ? RETURNING upvotes`, delta, proposalID,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return false, 0, ErrNotFound
	}
	if err != nil {
		return false, 0, fmt.Errorf("updating upvote count: %w", err)
	}

	return upvoted, count, nil
}

// ListPendingProposals returns one page of pending proposals ranked like
// TopQualifyingProposal, with YourUpvote set for viewerID.
func (s *queries) ListPendingProposals(ctx context.Context, viewerID string, limit, offset int) (*ProposalPage, error) {
	page := &ProposalPage{Proposals: []*Proposal{}}

	if err := s.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM proposals WHERE status = 'pending'`,
	).Scan(&page.Total); err != nil {
		return nil, fmt.Errorf("counting pending proposals: %w", err)
	}

	query := `
		SELECT p.id, p.agent_id, a.name, p.text, p.upvotes, p.status, p.created_at,
			EXISTS (SELECT 1 FROM proposal_upvotes u WHERE u.proposal_id = p.id AND u.agent_id = ?)
		FROM proposals p
		JOIN agents a ON a.id = p.agent_id
		WHERE p.status = 'pending'
		ORDER BY p.upvotes DESC, p.created_at ASC, p.rowid ASC
		LIMIT ? OFFSET ?
	`

	rows, err := s.q.QueryContext(ctx, query, viewerID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying proposals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p Proposal
		var status string
		var createdAt int64
		var mine int
		if err := rows.Scan(&p.ID, &p.AgentID, &p.AgentName, &p.Text, &p.Upvotes, &status, &createdAt, &mine); err != nil {
			return nil, fmt.Errorf("scanning proposal: %w", err)
		}
		p.Status = ProposalStatus(status)
		p.CreatedAt = fromMillis(createdAt)
		p.YourUpvote = mine != 0
		page.Proposals = append(page.Proposals, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating proposals: %w", err)
	}

	return page, nil
}

func scanProposal(row rowScanner) (*Proposal, error) {
	var p Proposal
	var status string
	var createdAt int64

	err := row.Scan(&p.ID, &p.AgentID, &p.AgentName, &p.Text, &p.Upvotes, &status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning proposal: %w", err)
	}

	p.Status = ProposalStatus(status)
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}
