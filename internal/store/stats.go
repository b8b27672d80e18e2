// ABOUTME: Aggregate read queries: community counters and per-agent activity history
// ABOUTME: Activity merges votes and debates into one newest-first timeline

package store

import (
	"context"
	"fmt"
	"time"
)

// Stats are community-wide counters. Fields suffixed Since count rows newer
// than the cutoff passed to Stats.
type Stats struct {
	TotalAgents       int
	ActiveAgentsSince int
	ClosedRounds      int
	DebatesSince      int
	ProposalsPending  int
	UpvotesSince      int
}

// ActivityKind tags one entry of an agent's history
type ActivityKind string

const (
	ActivityVote   ActivityKind = "vote"
	ActivityDebate ActivityKind = "debate"
)

// Activity is one vote or debate by an agent.
type Activity struct {
	Kind      ActivityKind
	RoundID   string
	Summary   string // "YES: rationale" for votes, the message for debates
	CreatedAt time.Time
}

// ActivityTotals counts everything an agent has contributed.
type ActivityTotals struct {
	Votes   int
	Debates int
}

// Stats returns community counters; since bounds the recent-activity fields.
func (s *queries) Stats(ctx context.Context, since time.Time) (*Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM agents),
			(SELECT COUNT(*) FROM agents WHERE last_active_at > ?),
			(SELECT COUNT(*) FROM rounds WHERE status = 'closed'),
			(SELECT COUNT(*) FROM debates WHERE created_at > ?),
			(SELECT COUNT(*) FROM proposals WHERE status = 'pending'),
			(SELECT COUNT(*) FROM proposal_upvotes WHERE created_at > ?)
	`
	cutoff := toMillis(since)

	var st Stats
	err := s.q.QueryRowContext(ctx, query, cutoff, cutoff, cutoff).Scan(
		&st.TotalAgents,
		&st.ActiveAgentsSince,
		&st.ClosedRounds,
		&st.DebatesSince,
		&st.ProposalsPending,
		&st.UpvotesSince,
	)
	if err != nil {
		return nil, fmt.Errorf("querying stats: %w", err)
	}
	return &st, nil
}

// ListAgentActivity returns an agent's votes and debates, newest first.
func (s *queries) ListAgentActivity(ctx context.Context, agentID string, limit, offset int) ([]*Activity, error) {
	query := `
		SELECT 'vote', round_id, choice || ': ' || rationale, created_at FROM votes WHERE agent_id = ?
		UNION ALL
		SELECT 'debate', round_id, message, created_at FROM debates WHERE agent_id = ?
		ORDER BY 4 DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.q.QueryContext(ctx, query, agentID, agentID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying activity: %w", err)
	}
	defer rows.Close()

	items := []*Activity{}
	for rows.Next() {
		var a Activity
		var kind string
		var createdAt int64
		if err := rows.Scan(&kind, &a.RoundID, &a.Summary, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		a.Kind = ActivityKind(kind)
		a.CreatedAt = fromMillis(createdAt)
		items = append(items, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity: %w", err)
	}

	return items, nil
}

// CountAgentActivity returns lifetime vote and debate counts for an agent.
func (s *queries) CountAgentActivity(ctx context.Context, agentID string) (*ActivityTotals, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM votes WHERE agent_id = ?),
			(SELECT COUNT(*) FROM debates WHERE agent_id = ?)
	`
	var totals ActivityTotals
	if err := s.q.QueryRowContext(ctx, query, agentID, agentID).Scan(&totals.Votes, &totals.Debates); err != nil {
		return nil, fmt.Errorf("counting activity: %w", err)
	}
	return &totals, nil
}
