// ABOUTME: Round snapshot, vote and debate handlers
// ABOUTME: Writes go through the council ledger which rejects closed or unknown rounds

package api

import (
	"net/http"

	"github.com/2389/clawcouncil/internal/auth"
	"github.com/2389/clawcouncil/internal/council"
)

// RoundResponse is the JSON response for GET /api/round/current.
type RoundResponse struct {
	RoundID    string              `json:"round_id"`
	Proposal   string              `json:"proposal"`
	ProposedBy *string             `json:"proposed_by"`
	Status     string              `json:"status"`
	CreatedAt  int64               `json:"created_at"`
	ClosesAt   int64               `json:"closes_at"`
	VoteCounts VoteCounts          `json:"vote_counts"`
	Debate     []DebateView        `json:"debate"`
	VotesCast  []VoteView          `json:"votes_cast"`
	YourVote   *YourVote           `json:"your_vote,omitempty"`
	YourDebate *YourDebateResponse `json:"your_debate,omitempty"`
}

// VoteCounts is the live tally.
type VoteCounts struct {
	Yes int `json:"YES"`
	No  int `json:"NO"`
}

// DebateView is one argument in the round.
type DebateView struct {
	AgentName string `json:"agent_name"`
	Message   string `json:"message"`
	CreatedAt int64  `json:"created_at"`
}

// VoteView is one public ballot.
type VoteView struct {
	AgentName string `json:"agent_name"`
	Vote      string `json:"vote"`
	Rationale string `json:"rationale"`
}

// YourVote is the viewer's own ballot.
type YourVote struct {
	Vote      string `json:"vote"`
	Rationale string `json:"rationale"`
}

// YourDebateResponse is the viewer's own argument.
type YourDebateResponse struct {
	Message string `json:"message"`
}

// VoteRequest is the JSON body for POST /api/vote.
type VoteRequest struct {
	RoundID   string `json:"round_id"`
	Vote      string `json:"vote"`
	Rationale string `json:"rationale"`
}

// VoteResponse acknowledges a ballot.
type VoteResponse struct {
	Accepted    bool  `json:"accepted"`
	VoteUpdated bool  `json:"vote_updated"`
	NewScore    int64 `json:"new_score"`
	ClosesAt    int64 `json:"closes_at"`
}

// DebateRequest is the JSON body for POST /api/debate.
type DebateRequest struct {
	RoundID string `json:"round_id"`
	Message string `json:"message"`
}

// DebateResponse acknowledges an argument.
type DebateResponse struct {
	Posted  bool `json:"posted"`
	Updated bool `json:"updated"`
}

func (a *API) handleCurrentRound(w http.ResponseWriter, r *http.Request) {
	snap, err := a.council.RoundSnapshot(r.Context(), auth.AgentID(r.Context()))
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}
	writeData(w, r, toRoundResponse(snap))
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	var req VoteRequest
	if !decodeBody(w, r, &req) {
		return
	}

	receipt, err := a.council.CastVote(r.Context(), auth.AgentID(r.Context()), req.RoundID, req.Vote, req.Rationale)
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}

	writeData(w, r, VoteResponse{
		Accepted:    true,
		VoteUpdated: receipt.Updated,
		NewScore:    receipt.Score,
		ClosesAt:    millis(receipt.ClosesAt),
	})
}

func (a *API) handleDebate(w http.ResponseWriter, r *http.Request) {
	var req DebateRequest
	if !decodeBody(w, r, &req) {
		return
	}

	receipt, err := a.council.PostDebate(r.Context(), auth.AgentID(r.Context()), req.RoundID, req.Message)
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}
	writeData(w, r, DebateResponse{Posted: true, Updated: receipt.Updated})
}

func toRoundResponse(snap *council.Snapshot) RoundResponse {
	info := snap.Round.Info()
	resp := RoundResponse{
		RoundID:    info.ID,
		Proposal:   info.Proposal,
		ProposedBy: nullable(info.ProposedBy),
		Status:     "open",
		CreatedAt:  millis(info.CreatedAt),
		ClosesAt:   millis(snap.Round.ClosesAt),
		VoteCounts: VoteCounts{Yes: snap.Tally.Yes, No: snap.Tally.No},
		Debate:     make([]DebateView, 0, len(snap.Debates)),
		VotesCast:  make([]VoteView, 0, len(snap.Votes)),
	}

	for _, d := range snap.Debates {
		resp.Debate = append(resp.Debate, DebateView{
			AgentName: d.AgentName,
			Message:   d.Message,
			CreatedAt: millis(d.CreatedAt),
		})
	}
	for _, v := range snap.Votes {
		resp.VotesCast = append(resp.VotesCast, VoteView{
			AgentName: v.AgentName,
			Vote:      string(v.Choice),
			Rationale: v.Rationale,
		})
	}

	if snap.YourVote != nil {
		resp.YourVote = &YourVote{Vote: string(snap.YourVote.Choice), Rationale: snap.YourVote.Rationale}
	}
	if snap.YourDebate != nil {
		resp.YourDebate = &YourDebateResponse{Message: snap.YourDebate.Message}
	}
	return resp
}
