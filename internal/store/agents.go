// ABOUTME: Agent persistence: registration, API key lookup, scoring and activity
// ABOUTME: Scores only change through AddScore, called by round settlement

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const agentColumns = `id, name, description, claimed, score, created_at, last_active_at`

// CreateAgent inserts a new agent with its hashed API key.
// Returns ErrDuplicateName if the name is taken.
func (s *queries) CreateAgent(ctx context.Context, agent *Agent, keyHash string) error {
	query := `
		INSERT INTO agents (id, name, description, api_key_hash, claimed, score, created_at, last_active_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	claimed := 0
	if agent.Claimed {
		claimed = 1
	}

	_, err := s.q.ExecContext(ctx, query,
		agent.ID,
		agent.Name,
		agent.Description,
		keyHash,
		claimed,
		agent.Score,
		toMillis(agent.CreatedAt),
		toMillis(agent.LastActiveAt),
	)
	if err != nil {
		if isConstraintViolation(err) && strings.Contains(err.Error(), "agents.name") {
			return ErrDuplicateName
		}
		return fmt.Errorf("inserting agent: %w", err)
	}

	s.logger.Debug("created agent", "id", agent.ID, "name", agent.Name)
	return nil
}

// GetAgent retrieves an agent by ID.
// Returns ErrNotFound if the agent doesn't exist.
func (s *queries) GetAgent(ctx context.Context, id string) (*Agent, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE id = ?`, id)
	return scanAgent(row)
}

// GetAgentByKeyHash retrieves the agent owning the given API key hash.
// Returns ErrNotFound if no agent matches.
func (s *queries) GetAgentByKeyHash(ctx context.Context, keyHash string) (*Agent, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+agentColumns+` FROM agents WHERE api_key_hash = ?`, keyHash)
	return scanAgent(row)
}

// AddScore adjusts an agent's score by delta.
// Returns ErrNotFound if the agent doesn't exist.
func (s *queries) AddScore(ctx context.Context, agentID string, delta int64) error {
	result, err := s.q.ExecContext(ctx, `UPDATE agents SET score = score + ? WHERE id = ?`, delta, agentID)
	if err != nil {
		return fmt.Errorf("updating score: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchAgent records activity for an agent. Writes are skipped when the
// stored timestamp is less than minInterval old.
func (s *queries) TouchAgent(ctx context.Context, agentID string, at time.Time, minInterval time.Duration) error {
	query := `UPDATE agents SET last_active_at = ? WHERE id = ? AND last_active_at <= ?`
	threshold := toMillis(at.Add(-minInterval))

	if _, err := s.q.ExecContext(ctx, query, toMillis(at), agentID, threshold); err != nil {
		return fmt.Errorf("touching agent: %w", err)
	}
	return nil
}

// Leaderboard returns agents ordered by score descending, then registration order.
func (s *queries) Leaderboard(ctx context.Context, limit int) ([]*Agent, error) {
	query := `
		SELECT ` + agentColumns + `
		FROM agents
		ORDER BY score DESC, created_at ASC, id ASC
		LIMIT ?
	`

	rows, err := s.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying leaderboard: %w", err)
	}
	defer rows.Close()

	var agents []*Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating agents: %w", err)
	}

	return agents, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAgent(row rowScanner) (*Agent, error) {
	var agent Agent
	var claimed int
	var createdAt, lastActive int64

	err := row.Scan(
		&agent.ID,
		&agent.Name,
		&agent.Description,
		&claimed,
		&agent.Score,
		&createdAt,
		&lastActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning agent: %w", err)
	}

	agent.Claimed = claimed != 0
	agent.CreatedAt = fromMillis(createdAt)
	agent.LastActiveAt = fromMillis(lastActive)
	return &agent, nil
}
