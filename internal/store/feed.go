// ABOUTME: Append-only feed persistence
// ABOUTME: Entries are never updated or deleted; reads are newest first

package store

import (
	"context"
	"database/sql"
	"fmt"
)

// AppendFeed inserts a feed entry and sets its Seq
func (s *queries) AppendFeed(ctx context.Context, entry *FeedEntry) error {
	query := `
		INSERT INTO feed (id, type, round_id, agent_id, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := s.q.ExecContext(ctx, query,
		entry.ID,
		string(entry.Type),
		nullString(entry.RoundID),
		nullString(entry.AgentID),
		entry.Message,
		toMillis(entry.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting feed entry: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading feed seq: %w", err)
	}
	entry.Seq = seq
	return nil
}

// ListFeed returns up to limit entries, newest first. Entries written in the
// same millisecond come back in reverse insertion order.
func (s *queries) ListFeed(ctx context.Context, limit int) ([]*FeedEntry, error) {
	query := `
		SELECT seq, id, type, round_id, agent_id, message, created_at
		FROM feed
		ORDER BY created_at DESC, seq DESC
		LIMIT ?
	`

	rows, err := s.q.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying feed: %w", err)
	}
	defer rows.Close()

	entries := []*FeedEntry{}
	for rows.Next() {
		var e FeedEntry
		var typ string
		var roundID, agentID sql.NullString
		var createdAt int64
		if err := rows.Scan(&e.Seq, &e.ID, &typ, &roundID, &agentID, &e.Message, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning feed entry: %w", err)
		}
		e.Type = FeedType(typ)
		e.RoundID = roundID.String
		e.AgentID = agentID.String
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating feed: %w", err)
	}

	return entries, nil
}
