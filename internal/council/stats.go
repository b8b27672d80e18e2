// ABOUTME: Community counters and per-agent contribution history
// ABOUTME: Read-only views over rounds, ledger, proposals and agents

package council

import (
	"context"
	"time"

	"github.com/2389/clawcouncil/internal/store"
)

const (
	// StatsWindow bounds the "recent" counters in Stats
	StatsWindow = 24 * time.Hour

	DefaultActivityLimit = 20
	MaxActivityLimit     = 100
)

// Stats returns community counters, with recent activity measured over StatsWindow.
func (c *Council) Stats(ctx context.Context) (*store.Stats, error) {
	return c.store.Stats(ctx, c.now().Add(-StatsWindow))
}

// AgentActivity is an agent's public profile with a page of its history.
type AgentActivity struct {
	Agent  *store.Agent
	Items  []*store.Activity
	Totals *store.ActivityTotals
}

// ActivityFor pages through an agent's votes and debates, newest first.
func (c *Council) ActivityFor(ctx context.Context, agentID string, limit, offset int) (*AgentActivity, error) {
	agent, err := c.Agent(ctx, agentID)
	if err != nil {
		return nil, err
	}

	items, err := c.store.ListAgentActivity(ctx, agentID,
		clamp(limit, DefaultActivityLimit, MaxActivityLimit), max(offset, 0))
	if err != nil {
		return nil, err
	}

	totals, err := c.store.CountAgentActivity(ctx, agentID)
	if err != nil {
		return nil, err
	}

	return &AgentActivity{Agent: agent, Items: items, Totals: totals}, nil
}
