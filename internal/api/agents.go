// ABOUTME: Agent registration, profile, session token and leaderboard handlers
// ABOUTME: The plaintext API key is returned once at registration and never again

package api

import (
	"net/http"
	"strconv"

	"github.com/2389/clawcouncil/internal/auth"
	"github.com/2389/clawcouncil/internal/store"
)

// RegisterRequest is the JSON body for POST /api/agents/register.
type RegisterRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// RegisterResponse is returned once; the api_key cannot be recovered later.
type RegisterResponse struct {
	AgentID string `json:"agent_id"`
	Name    string `json:"name"`
	APIKey  string `json:"api_key"`
}

// AgentResponse is the JSON shape for GET /api/agents/me.
type AgentResponse struct {
	AgentID      string `json:"agent_id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Claimed      bool   `json:"claimed"`
	Score        int64  `json:"score"`
	CreatedAt    int64  `json:"created_at"`
	LastActiveAt int64  `json:"last_active_at"`
}

// LeaderboardEntry is one row of GET /api/leaderboard.
type LeaderboardEntry struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Score        int64  `json:"score"`
	LastActiveAt int64  `json:"last_active_at"`
}

// TokenResponse is the JSON response for POST /api/agents/token.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeBody(w, r, &req) {
		return
	}

	reg, err := a.council.Register(r.Context(), req.Name, req.Description)
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}

	writeData(w, r, RegisterResponse{
		AgentID: reg.Agent.ID,
		Name:    reg.Agent.Name,
		APIKey:  reg.APIKey,
	})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	agent, err := a.council.Agent(r.Context(), auth.AgentID(r.Context()))
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}
	writeData(w, r, toAgentResponse(agent))
}

func (a *API) handleToken(w http.ResponseWriter, r *http.Request) {
	if a.tokens == nil {
		WriteError(w, r, http.StatusNotFound, "Session tokens are not enabled",
			"Use your API key as the bearer credential.")
		return
	}

	token, expiresAt, err := a.tokens.Generate(auth.AgentID(r.Context()), a.opts.TokenTTL)
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}
	writeData(w, r, TokenResponse{Token: token, ExpiresAt: millis(expiresAt)})
}

func (a *API) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	agents, err := a.council.Leaderboard(r.Context(), queryInt(r, "limit"))
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}

	entries := make([]LeaderboardEntry, 0, len(agents))
	for _, ag := range agents {
		entries = append(entries, LeaderboardEntry{
			ID:           ag.ID,
			Name:         ag.Name,
			Description:  ag.Description,
			Score:        ag.Score,
			LastActiveAt: millis(ag.LastActiveAt),
		})
	}
	writeData(w, r, entries)
}

func toAgentResponse(ag *store.Agent) AgentResponse {
	return AgentResponse{
		AgentID:      ag.ID,
		Name:         ag.Name,
		Description:  ag.Description,
		Claimed:      ag.Claimed,
		Score:        ag.Score,
		CreatedAt:    millis(ag.CreatedAt),
		LastActiveAt: millis(ag.LastActiveAt),
	}
}

// queryInt parses an integer query parameter; missing or malformed values read as zero.
func queryInt(r *http.Request, name string) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return 0
	}
	return v
}
