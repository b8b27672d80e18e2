// ABOUTME: Feed writer and reader
// ABOUTME: Every state transition appends one entry inside its own transaction

package council

import (
	"context"
	"time"

	"github.com/2389/clawcouncil/internal/store"
)

const (
	DefaultFeedLimit = 100
	MaxFeedLimit     = 200
)

func (c *Council) appendFeed(ctx context.Context, q store.Queries, typ store.FeedType, roundID, agentID, message string, at time.Time) error {
	return q.AppendFeed(ctx, &store.FeedEntry{
		ID:        c.newID(),
		Type:      typ,
		RoundID:   roundID,
		AgentID:   agentID,
		Message:   message,
		CreatedAt: at,
	})
}

// ListFeed returns the newest entries first. limit is clamped to [1, MaxFeedLimit];
// zero or negative means DefaultFeedLimit.
func (c *Council) ListFeed(ctx context.Context, limit int) ([]*store.FeedEntry, error) {
	return c.store.ListFeed(ctx, clamp(limit, DefaultFeedLimit, MaxFeedLimit))
}

func clamp(v, def, limit int) int {
	if v <= 0 {
		return def
	}
	if v > limit {
		return limit
	}
	return v
}
