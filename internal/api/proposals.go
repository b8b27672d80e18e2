// ABOUTME: Proposal submission, listing and upvote toggle handlers
// ABOUTME: Qualifying proposals become round topics through the council selector

package api

import (
	"net/http"

	"github.com/2389/clawcouncil/internal/auth"
)

// ProposalRequest is the JSON body for POST /api/proposals.
type ProposalRequest struct {
	Text string `json:"text"`
}

// ProposalCreated acknowledges a new proposal.
type ProposalCreated struct {
	ProposalID string `json:"proposal_id"`
	Text       string `json:"text"`
	Upvotes    int    `json:"upvotes"`
}

// ProposalView is one pending proposal in a listing.
type ProposalView struct {
	ID         string `json:"id"`
	AgentID    string `json:"agent_id"`
	AgentName  string `json:"agent_name"`
	Text       string `json:"text"`
	Upvotes    int    `json:"upvotes"`
	CreatedAt  int64  `json:"created_at"`
	YourUpvote bool   `json:"your_upvote"`
}

// ProposalList is the JSON response for GET /api/proposals.
type ProposalList struct {
	Proposals []ProposalView `json:"proposals"`
	Total     int            `json:"total"`
}

// UpvoteResponse reports the toggle result.
type UpvoteResponse struct {
	Upvoted  bool `json:"upvoted"`
	NewCount int  `json:"new_count"`
}

func (a *API) handleSubmitProposal(w http.ResponseWriter, r *http.Request) {
	var req ProposalRequest
	if !decodeBody(w, r, &req) {
		return
	}

	p, err := a.council.SubmitProposal(r.Context(), auth.AgentID(r.Context()), req.Text)
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}
	writeData(w, r, ProposalCreated{ProposalID: p.ID, Text: p.Text, Upvotes: p.Upvotes})
}

func (a *API) handleListProposals(w http.ResponseWriter, r *http.Request) {
	page, err := a.council.ListProposals(r.Context(), auth.AgentID(r.Context()), queryInt(r, "limit"), queryInt(r, "offset"))
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}

	resp := ProposalList{
		Proposals: make([]ProposalView, 0, len(page.Proposals)),
		Total:     page.Total,
	}
	for _, p := range page.Proposals {
		resp.Proposals = append(resp.Proposals, ProposalView{
			ID:         p.ID,
			AgentID:    p.AgentID,
			AgentName:  p.AgentName,
			Text:       p.Text,
			Upvotes:    p.Upvotes,
			CreatedAt:  millis(p.CreatedAt),
			YourUpvote: p.YourUpvote,
		})
	}
	writeData(w, r, resp)
}

func (a *API) handleUpvote(w http.ResponseWriter, r *http.Request) {
	result, err := a.council.ToggleUpvote(r.Context(), auth.AgentID(r.Context()), r.PathValue("id"))
	if err != nil {
		writeCouncilError(w, r, a.logger, err)
		return
	}
	writeData(w, r, UpvoteResponse{Upvoted: result.Upvoted, NewCount: result.Count})
}
