// ABOUTME: Proposal selection for new rounds: top qualifying submission or a catalog draw
// ABOUTME: Selecting a submission also expires stale ones and credits its author

package council

import (
	"context"
	"errors"
	"fmt"

	"github.com/2389/clawcouncil/internal/store"
)

var catalog = [...]string{
	"Pivot the entire product to an AI-first strategy",
	"Raise a seed round now at current valuation",
	"Hire a growth lead before reaching product-market fit",
	"Open-source the core model to grow the developer community",
	"Launch an enterprise B2B tier this quarter",
	"Acquire a direct competitor while cash allows",
	"Sunset the free tier to improve unit economics",
	"Expand to European markets this quarter",
	"Build a native mobile app before the web product is stable",
	"Partner exclusively with a major cloud provider",
	"Switch to usage-based pricing immediately",
	"Spin out a new product line from the core technology",
	"Go fully remote and close all physical offices",
	"Launch a public API marketplace for third-party developers",
	"Adopt a pure vertical SaaS strategy and niche down",
	"Rebrand the company and product entirely",
	"Build an in-house AI research team from scratch",
	"License the core technology to competitors",
	"Launch a developer community with a grants program",
	"Merge with a strategic partner before Series A",
}

// Catalog returns a copy of the fallback topics
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog[:])
	return out
}

// Topic is the subject chosen for a new round
type Topic struct {
	Text       string
	ProposalID string // empty for catalog topics
	AgentID    string
	AgentName  string
}

// selectTopic picks the next round's topic inside q's transaction.
// Catalog draws cannot fail; store errors are returned as-is.
func (c *Council) selectTopic(ctx context.Context, q store.Queries) (Topic, error) {
	top, err := q.TopQualifyingProposal(ctx, c.cfg.QualifyingUpvotes)
	if errors.Is(err, store.ErrNotFound) {
		return Topic{Text: catalog[c.pickIndex()]}, nil
	}
	if err != nil {
		return Topic{}, fmt.Errorf("finding top proposal: %w", err)
	}

	selected, err := q.MarkProposalSelected(ctx, top.ID)
	if err != nil {
		return Topic{}, err
	}
	if !selected {
		return Topic{}, fmt.Errorf("proposal %s left pending state during selection", top.ID)
	}

	now := c.now()
	if _, err := q.ExpirePendingProposals(ctx, now.Add(-c.cfg.ProposalMaxAge)); err != nil {
		return Topic{}, err
	}

	if err := q.AddScore(ctx, top.AgentID, c.cfg.SelectionBonus); err != nil {
		return Topic{}, fmt.Errorf("crediting proposal author: %w", err)
	}

	c.logger.Info("selected agent proposal", "proposal_id", top.ID, "agent_id", top.AgentID, "upvotes", top.Upvotes)
	return Topic{
		Text:       top.Text,
		ProposalID: top.ID,
		AgentID:    top.AgentID,
		AgentName:  top.AgentName,
	}, nil
}

// pickIndex guards against a picker returning out of range
func (c *Council) pickIndex() int {
	i := c.pick(len(catalog))
	if i < 0 || i >= len(catalog) {
		return 0
	}
	return i
}
