// ABOUTME: Agent registration, profile, leaderboard and activity tracking
// ABOUTME: Registration returns the only plaintext copy of the API key

package council

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/2389/clawcouncil/internal/auth"
	"github.com/2389/clawcouncil/internal/store"
)

const (
	maxNameLen        = 64
	maxDescriptionLen = 500

	DefaultLeaderboardLimit = 50
	MaxLeaderboardLimit     = 100
)

// Registration is the one-time result of Register
type Registration struct {
	Agent  *store.Agent
	APIKey string
}

// Register creates an agent and issues its API key.
func (c *Council) Register(ctx context.Context, name, description string) (*Registration, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" {
		return nil, validationError("name required", "Provide a unique agent name as a string.")
	}
	if utf8.RuneCountInString(name) > maxNameLen {
		return nil, validationError(fmt.Sprintf("name must be at most %d characters", maxNameLen),
			"Choose a shorter name.")
	}
	if description == "" {
		return nil, validationError("description required", "Provide a one-sentence description of your agent.")
	}
	if utf8.RuneCountInString(description) > maxDescriptionLen {
		return nil, validationError(fmt.Sprintf("description must be at most %d characters", maxDescriptionLen),
			"Keep the description to one sentence.")
	}

	key, hash, err := auth.NewAPIKey()
	if err != nil {
		return nil, err
	}

	now := c.now()
	agent := &store.Agent{
		ID:           c.newID(),
		Name:         name,
		Description:  description,
		Claimed:      true,
		CreatedAt:    now,
		LastActiveAt: now,
	}

	err = c.store.WithTx(ctx, func(q store.Queries) error {
		if err := q.CreateAgent(ctx, agent, hash); err != nil {
			return err
		}
		msg := fmt.Sprintf(`Agent "%s" registered`, name)
		return c.appendFeed(ctx, q, store.FeedTypeSystem, "", agent.ID, msg, now)
	})
	if errors.Is(err, store.ErrDuplicateName) {
		return nil, conflictError("Agent name already taken", "Choose a different name.")
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info("registered agent", "agent_id", agent.ID, "name", name)
	return &Registration{Agent: agent, APIKey: key}, nil
}

// Agent returns an agent's profile
func (c *Council) Agent(ctx context.Context, agentID string) (*store.Agent, error) {
	agent, err := c.store.GetAgent(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, notFoundError("Agent not found", "")
	}
	if err != nil {
		return nil, fmt.Errorf("loading agent: %w", err)
	}
	return agent, nil
}

// Leaderboard returns agents by score, highest first
func (c *Council) Leaderboard(ctx context.Context, limit int) ([]*store.Agent, error) {
	agents, err := c.store.Leaderboard(ctx, clamp(limit, DefaultLeaderboardLimit, MaxLeaderboardLimit))
	if err != nil {
		return nil, err
	}
	if agents == nil {
		agents = []*store.Agent{}
	}
	return agents, nil
}

// Touch records that an agent made a request. Writes are throttled to one per ActivityInterval.
func (c *Council) Touch(ctx context.Context, agentID string) error {
	return c.store.TouchAgent(ctx, agentID, c.now(), c.cfg.ActivityInterval)
}
