// ABOUTME: Vote and debate persistence keyed by (round, agent)
// ABOUTME: A second write by the same agent overwrites the first and reports updated

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// UpsertVote records an agent's vote for a round. An existing vote keeps its ID
// and CreatedAt and takes the new choice, rationale and UpdatedAt.
func (s *queries) UpsertVote(ctx context.Context, vote *Vote) (bool, error) {
	existing, err := s.GetVote(ctx, vote.RoundID, vote.AgentID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return false, err
	}

	if existing != nil {
		query := `UPDATE votes SET choice = ?, rationale = ?, updated_at = ? WHERE id = ?`
		if _, err := s.q.ExecContext(ctx, query, vote.Choice, vote.Rationale, toMillis(vote.UpdatedAt), existing.ID); err != nil {
			return false, fmt.Errorf("updating vote: %w", err)
		}
		vote.ID = existing.ID
		vote.CreatedAt = existing.CreatedAt
		s.logger.Debug("updated vote", "round_id", vote.RoundID, "agent_id", vote.AgentID, "choice", vote.Choice)
		return true, nil
	}

	query := `
		INSERT INTO votes (id, round_id, agent_id, choice, rationale, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.q.ExecContext(ctx, query,
		vote.ID,
		vote.RoundID,
		vote.AgentID,
		vote.Choice,
		vote.Rationale,
		toMillis(vote.CreatedAt),
		toMillis(vote.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting vote: %w", err)
	}

	s.logger.Debug("cast vote", "round_id", vote.RoundID, "agent_id", vote.AgentID, "choice", vote.Choice)
	return false, nil
}

// GetVote retrieves one agent's vote in a round.
// Returns ErrNotFound if the agent has not voted.
func (s *queries) GetVote(ctx context.Context, roundID, agentID string) (*Vote, error) {
	query := `
		SELECT v.id, v.round_id, v.agent_id, a.name, v.choice, v.rationale, v.created_at, v.updated_at
		FROM votes v
		JOIN agents a ON a.id = v.agent_id
		WHERE v.round_id = ? AND v.agent_id = ?
	`
	return scanVote(s.q.QueryRowContext(ctx, query, roundID, agentID))
}

// ListVotes returns every vote in a round with agent names, in cast order.
func (s *queries) ListVotes(ctx context.Context, roundID string) ([]*Vote, error) {
	query := `
		SELECT v.id, v.round_id, v.agent_id, a.name, v.choice, v.rationale, v.created_at, v.updated_at
		FROM votes v
		JOIN agents a ON a.id = v.agent_id
		WHERE v.round_id = ?
		ORDER BY v.created_at ASC, v.rowid ASC
	`

	rows, err := s.q.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("querying votes: %w", err)
	}
	defer rows.Close()

	var votes []*Vote
	for rows.Next() {
		vote, err := scanVote(rows)
		if err != nil {
			return nil, err
		}
		votes = append(votes, vote)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating votes: %w", err)
	}

	return votes, nil
}

// UpsertDebate records an agent's argument for a round, overwriting any earlier
// one. An overwrite takes debate.CreatedAt, moving it to the end of the round's list.
func (s *queries) UpsertDebate(ctx context.Context, debate *Debate) (bool, error) {
	var existingID string
	err := s.q.QueryRowContext(ctx,
		`SELECT id FROM debates WHERE round_id = ? AND agent_id = ?`,
		debate.RoundID, debate.AgentID,
	).Scan(&existingID)

	switch {
	case err == nil:
		// A rewritten argument takes its new position in the chronological list
		query := `UPDATE debates SET message = ?, created_at = ?, updated_at = ? WHERE id = ?`
		_, err := s.q.ExecContext(ctx, query,
			debate.Message, toMillis(debate.CreatedAt), toMillis(debate.UpdatedAt), existingID)
		if err != nil {
			return false, fmt.Errorf("updating debate: %w", err)
		}
		debate.ID = existingID
		return true, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("looking up debate: %w", err)
	}

	query := `
		INSERT INTO debates (id, round_id, agent_id, message, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err = s.q.ExecContext(ctx, query,
		debate.ID,
		debate.RoundID,
		debate.AgentID,
		debate.Message,
		toMillis(debate.CreatedAt),
		toMillis(debate.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting debate: %w", err)
	}
	return false, nil
}

// ListDebates returns every argument in a round with agent names, oldest first.
func (s *queries) ListDebates(ctx context.Context, roundID string) ([]*Debate, error) {
	query := `
		SELECT d.id, d.round_id, d.agent_id, a.name, d.message, d.created_at, d.updated_at
		FROM debates d
		JOIN agents a ON a.id = d.agent_id
		WHERE d.round_id = ?
		ORDER BY d.created_at ASC, d.rowid ASC
	`

	rows, err := s.q.QueryContext(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("querying debates: %w", err)
	}
	defer rows.Close()

	var debates []*Debate
	for rows.Next() {
		var d Debate
		var createdAt, updatedAt int64
		if err := rows.Scan(&d.ID, &d.RoundID, &d.AgentID, &d.AgentName, &d.Message, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scanning debate: %w", err)
		}
		d.CreatedAt = fromMillis(createdAt)
		d.UpdatedAt = fromMillis(updatedAt)
		debates = append(debates, &d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating debates: %w", err)
	}

	return debates, nil
}

func scanVote(row rowScanner) (*Vote, error) {
	var v Vote
	var createdAt, updatedAt int64

	err := row.Scan(&v.ID, &v.RoundID, &v.AgentID, &v.AgentName, &v.Choice, &v.Rationale, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning vote: %w", err)
	}

	v.CreatedAt = fromMillis(createdAt)
	v.UpdatedAt = fromMillis(updatedAt)
	return &v, nil
}
