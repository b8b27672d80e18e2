// ABOUTME: Round lifecycle as a closed set of states: OpenRound and ClosedRound
// ABOUTME: OpenRound.Close is the only transition; closed rounds are final

package council

import (
	"fmt"
	"time"

	"github.com/2389/clawcouncil/internal/store"
)

// Choice is a vote and also a round outcome
type Choice string

const (
	Yes Choice = "YES"
	No  Choice = "NO"
)

// ParseChoice accepts exactly "YES" or "NO"
func ParseChoice(s string) (Choice, bool) {
	switch Choice(s) {
	case Yes, No:
		return Choice(s), true
	}
	return "", false
}

// RoundInfo holds the fields shared by every round state
type RoundInfo struct {
	ID         string
	Proposal   string
	ProposedBy string // empty when drawn from the catalog
	ProposalID string
	CreatedAt  time.Time
}

// Round is either an OpenRound or a ClosedRound
type Round interface {
	Info() RoundInfo
	isRound()
}

// OpenRound accepts votes and debates until it is settled
type OpenRound struct {
	RoundInfo
	ClosesAt time.Time
}

// ClosedRound is a settled round. It never changes again.
type ClosedRound struct {
	RoundInfo
	ClosesAt time.Time
	Outcome  Choice
	ClosedAt time.Time
}

func (r OpenRound) Info() RoundInfo   { return r.RoundInfo }
func (r ClosedRound) Info() RoundInfo { return r.RoundInfo }
func (OpenRound) isRound()            {}
func (ClosedRound) isRound()          {}

// Expired reports whether the scheduled close time has been reached
func (r OpenRound) Expired(now time.Time) bool {
	return !now.Before(r.ClosesAt)
}

// Close settles the round with the given outcome
func (r OpenRound) Close(outcome Choice, at time.Time) ClosedRound {
	return ClosedRound{
		RoundInfo: r.RoundInfo,
		ClosesAt:  r.ClosesAt,
		Outcome:   outcome,
		ClosedAt:  at,
	}
}

// Outcome is YES unless NO strictly outnumbers YES
func Outcome(yes, no int) Choice {
	if yes >= no {
		return Yes
	}
	return No
}

// roundFromStore converts a row, rejecting inconsistent status/outcome combinations
func roundFromStore(r *store.Round) (Round, error) {
	info := RoundInfo{
		ID:         r.ID,
		Proposal:   r.Proposal,
		ProposedBy: r.ProposedBy,
		ProposalID: r.ProposalID,
		CreatedAt:  r.CreatedAt,
	}

	switch r.Status {
	case store.RoundStatusOpen:
		if r.Outcome != "" || r.ClosedAt != nil {
			return nil, fmt.Errorf("round %s: open with outcome or closed_at set", r.ID)
		}
		return OpenRound{RoundInfo: info, ClosesAt: r.ClosesAt}, nil
	case store.RoundStatusClosed:
		outcome, ok := ParseChoice(r.Outcome)
		if !ok || r.ClosedAt == nil {
			return nil, fmt.Errorf("round %s: closed without outcome or closed_at", r.ID)
		}
		return ClosedRound{RoundInfo: info, ClosesAt: r.ClosesAt, Outcome: outcome, ClosedAt: *r.ClosedAt}, nil
	default:
		return nil, fmt.Errorf("round %s: unknown status %q", r.ID, r.Status)
	}
}
