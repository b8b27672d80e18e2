// ABOUTME: Round persistence with a single-open-round guarantee
// ABOUTME: CloseRound is a compare-and-set so a round settles exactly once

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const roundColumns = `id, proposal, status, outcome, created_at, closes_at, closed_at, proposed_by, proposal_id`

// GetRound retrieves a round by ID.
// Returns ErrNotFound if the round doesn't exist.
func (s *queries) GetRound(ctx context.Context, id string) (*Round, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+roundColumns+` FROM rounds WHERE id = ?`, id)
	return scanRound(row)
}

// CurrentRound returns the open round.
// Returns ErrNotFound if no round is open.
func (s *queries) CurrentRound(ctx context.Context) (*Round, error) {
	query := `
		SELECT ` + roundColumns + `
		FROM rounds
		WHERE status = 'open'
		ORDER BY created_at DESC
		LIMIT 1
	`
	return scanRound(s.q.QueryRowContext(ctx, query))
}

// InsertRound persists a new open round.
// Returns ErrRoundAlreadyOpen if another round is already open.
func (s *queries) InsertRound(ctx context.Context, round *Round) error {
	query := `
		INSERT INTO rounds (id, proposal, status, outcome, created_at, closes_at, closed_at, proposed_by, proposal_id)
		VALUES (?, ?, 'open', NULL, ?, ?, NULL, ?, ?)
	`

	_, err := s.q.ExecContext(ctx, query,
		round.ID,
		round.Proposal,
		toMillis(round.CreatedAt),
		toMillis(round.ClosesAt),
		nullString(round.ProposedBy),
		nullString(round.ProposalID),
	)
	if err != nil {
		if isConstraintViolation(err) && strings.Contains(err.Error(), "rounds.status") {
			return ErrRoundAlreadyOpen
		}
		return fmt.Errorf("inserting round: %w", err)
	}

	round.Status = RoundStatusOpen
	round.Outcome = ""
	round.ClosedAt = nil

	s.logger.Debug("inserted round", "id", round.ID)
	return nil
}

// CloseRound transitions an open round to closed. It reports false without
// error when the round was not open, so only one caller ever wins.
func (s *queries) CloseRound(ctx context.Context, id, outcome string, closedAt time.Time) (bool, error) {
	query := `
		UPDATE rounds
		SET status = 'closed', outcome = ?, closed_at = ?
		WHERE id = ? AND status = 'open'
	`

	result, err := s.q.ExecContext(ctx, query, outcome, toMillis(closedAt), id)
	if err != nil {
		return false, fmt.Errorf("closing round: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows == 1, nil
}

// ListExpiredRounds returns the IDs of open rounds whose deadline is at or before now
func (s *queries) ListExpiredRounds(ctx context.Context, now time.Time) ([]string, error) {
	query := `
		SELECT id FROM rounds
		WHERE status = 'open' AND closes_at <= ?
		ORDER BY closes_at ASC
	`

	rows, err := s.q.QueryContext(ctx, query, toMillis(now))
	if err != nil {
		return nil, fmt.Errorf("querying expired rounds: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning round id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating rounds: %w", err)
	}

	return ids, nil
}

func scanRound(row rowScanner) (*Round, error) {
	var round Round
	var status string
	var outcome, proposedBy, proposalID sql.NullString
	var createdAt, closesAt int64
	var closedAt sql.NullInt64

	err := row.Scan(
		&round.ID,
		&round.Proposal,
		&status,
		&outcome,
		&createdAt,
		&closesAt,
		&closedAt,
		&proposedBy,
		&proposalID,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning round: %w", err)
	}

	round.Status = RoundStatus(status)
	round.Outcome = outcome.String
	round.CreatedAt = fromMillis(createdAt)
	round.ClosesAt = fromMillis(closesAt)
	round.ClosedAt = fromNullMillis(closedAt)
	round.ProposedBy = proposedBy.String
	round.ProposalID = proposalID.String
	return &round, nil
}
