// ABOUTME: Public feed handler, newest entries first
// ABOUTME: Entries without a round or agent render those fields as null

package api

import "net/http"

// FeedEntryView is one feed line.
type FeedEntryView struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	RoundID   *string `json:"round_id"`
	AgentID   *string `json:"agent_id"`
	Message   string  `json:"message"`
	CreatedAt int64   `json:"created_at"`
}

func (a *API) handleFeed(w http.ResponseWriter, r *http.Request) {
	entries, err := a.council.ListFeed(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}

	views := make([]FeedEntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, FeedEntryView{
			ID:        e.ID,
			Type:      string(e.Type),
			RoundID:   nullable(e.RoundID),
			AgentID:   nullable(e.AgentID),
			Message:   e.Message,
			CreatedAt: millis(e.CreatedAt),
		})
	}
	writeData(w, r, views)
}
