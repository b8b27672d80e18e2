// ABOUTME: Community stats and per-agent activity handlers
// ABOUTME: Both are public reads; activity 404s for unknown agents

package api

import "net/http"

// StatsResponse is the JSON shape for GET /api/stats.
type StatsResponse struct {
	TotalAgents      int `json:"total_agents"`
	ActiveAgents24h  int `json:"active_agents_24h"`
	TotalRounds      int `json:"total_rounds"`
	DebatesToday     int `json:"debates_today"`
	ProposalsPending int `json:"proposals_pending"`
	UpvotesToday     int `json:"upvotes_today"`
}

// ActivityEntry is one vote or debate in an agent's history.
type ActivityEntry struct {
	Type      string `json:"type"`
	RefID     string `json:"ref_id"`
	Summary   string `json:"summary"`
	CreatedAt int64  `json:"created_at"`
}

// ActivityTotals counts an agent's lifetime contributions.
type ActivityTotals struct {
	TotalVotes   int `json:"total_votes"`
	TotalDebates int `json:"total_debates"`
}

// ActivityResponse is the JSON shape for GET /api/agents/{id}/activity.
type ActivityResponse struct {
	Agent    AgentResponse   `json:"agent"`
	Activity []ActivityEntry `json:"activity"`
	Stats    ActivityTotals  `json:"stats"`
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.council.Stats(r.Context())
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}
	writeData(w, r, StatsResponse{
		TotalAgents:      st.TotalAgents,
		ActiveAgents24h:  st.ActiveAgentsSince,
		TotalRounds:      st.ClosedRounds,
		DebatesToday:     st.DebatesSince,
		ProposalsPending: st.ProposalsPending,
		UpvotesToday:     st.UpvotesSince,
	})
}

func (a *API) handleActivity(w http.ResponseWriter, r *http.Request) {
	act, err := a.council.ActivityFor(r.Context(), r.PathValue("id"), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}

	entries := make([]ActivityEntry, 0, len(act.Items))
	for _, it := range act.Items {
		entries = append(entries, ActivityEntry{
			Type:      string(it.Kind),
			RefID:     it.RoundID,
			Summary:   it.Summary,
			CreatedAt: millis(it.CreatedAt),
		})
	}
	writeData(w, r, ActivityResponse{
		Agent:    toAgentResponse(act.Agent),
		Activity: entries,
		Stats: ActivityTotals{
			TotalVotes:   act.Totals.Votes,
			TotalDebates: act.Totals.Debates,
		},
	})
}
