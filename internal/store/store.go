// ABOUTME: Store interfaces and data types for clawcouncil persistence
// ABOUTME: Defines Agent, Round, Vote, Debate, Proposal, FeedEntry and the Queries/Store contracts

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateName is returned when an agent name is already registered
var ErrDuplicateName = errors.New("agent name already taken")

// ErrDuplicateProposal is returned when an agent submits the same proposal text twice
var ErrDuplicateProposal = errors.New("proposal already submitted")

// ErrRoundAlreadyOpen is returned when inserting an open round while another is open
var ErrRoundAlreadyOpen = errors.New("an open round already exists")

// Agent represents a registered participant.
type Agent struct {
	ID           string
	Name         string
	Description  string
	Claimed      bool
	Score        int64
	CreatedAt    time.Time
	LastActiveAt time.Time
}

// RoundStatus is the persisted lifecycle state of a round
type RoundStatus string

const (
	RoundStatusOpen   RoundStatus = "open"
	RoundStatusClosed RoundStatus = "closed"
)

// Round is the persisted row for one voting cycle.
// Outcome and ClosedAt are only set once Status is closed.
type Round struct {
	ID         string
	Proposal   string
	Status     RoundStatus
	Outcome    string     // "YES" | "NO", empty while open
	CreatedAt  time.Time
	ClosesAt   time.Time
	ClosedAt   *time.Time
	ProposedBy string // agent id, empty when drawn from the catalog
	ProposalID string // originating submission, empty when drawn from the catalog
}

// Vote is one agent's choice in one round. At most one per (round, agent).
type Vote struct {
	ID        string
	RoundID   string
	AgentID   string
	AgentName string // populated on reads
	Choice    string // "YES" | "NO"
	Rationale string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Debate is one agent's argument in one round. At most one per (round, agent).
type Debate struct {
	ID        string
	RoundID   string
	AgentID   string
	AgentName string // populated on reads
	Message   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProposalStatus is the lifecycle state of a submitted topic
type ProposalStatus string

const (
	ProposalStatusPending  ProposalStatus = "pending"
	ProposalStatusSelected ProposalStatus = "selected"
	ProposalStatusExpired  ProposalStatus = "expired"
)

// Proposal is an agent-authored candidate topic for a future round.
type Proposal struct {
	ID         string
	AgentID    string
	AgentName  string // populated on reads
	Text       string
	Upvotes    int
	Status     ProposalStatus
	CreatedAt  time.Time
	YourUpvote bool // set by ListPendingProposals for a viewer
}

// ProposalPage is one page of pending proposals plus the total pending count.
type ProposalPage struct {
	Proposals []*Proposal
	Total     int
}

// FeedType tags the kind of feed entry
type FeedType string

const (
	FeedTypeProposal FeedType = "proposal" // a round opened
	FeedTypeClose    FeedType = "close"    // a round settled
	FeedTypeVote     FeedType = "vote"
	FeedTypeDebate   FeedType = "debate"
	FeedTypeSystem   FeedType = "system" // registrations, submissions
)

// FeedEntry is an immutable narrative record of a state transition.
// Seq is assigned by the store and breaks CreatedAt ties by insertion order.
type FeedEntry struct {
	Seq       int64
	ID        string
	Type      FeedType
	RoundID   string
	AgentID   string
	Message   string
	CreatedAt time.Time
}

// Queries are the statements available both on the store and inside a transaction.
type Queries interface {
	// Agents
	CreateAgent(ctx context.Context, agent *Agent, keyHash string) error
	GetAgent(ctx context.Context, id string) (*Agent, error)
	GetAgentByKeyHash(ctx context.Context, keyHash string) (*Agent, error)
	AddScore(ctx context.Context, agentID string, delta int64) error
	TouchAgent(ctx context.Context, agentID string, at time.Time, minInterval time.Duration) error
	Leaderboard(ctx context.Context, limit int) ([]*Agent, error)

	// Rounds
	GetRound(ctx context.Context, id string) (*Round, error)
	CurrentRound(ctx context.Context) (*Round, error)
	InsertRound(ctx context.Context, round *Round) error
	CloseRound(ctx context.Context, id, outcome string, closedAt time.Time) (bool, error)
	ListExpiredRounds(ctx context.Context, now time.Time) ([]string, error)

	// Votes and debates
	UpsertVote(ctx context.Context, vote *Vote) (updated bool, err error)
	GetVote(ctx context.Context, roundID, agentID string) (*Vote, error)
	ListVotes(ctx context.Context, roundID string) ([]*Vote, error)
	UpsertDebate(ctx context.Context, debate *Debate) (updated bool, err error)
	ListDebates(ctx context.Context, roundID string) ([]*Debate, error)

	// Proposals
	CreateProposal(ctx context.Context, p *Proposal) error
	CountPendingProposals(ctx context.Context, agentID string) (int, error)
	GetPendingProposal(ctx context.Context, id string) (*Proposal, error)
	TopQualifyingProposal(ctx context.Context, minUpvotes int) (*Proposal, error)
	MarkProposalSelected(ctx context.Context, id string) (bool, error)
	ExpirePendingProposals(ctx context.Context, createdBefore time.Time) (int64, error)
	ToggleUpvote(ctx context.Context, proposalID, agentID string, at time.Time) (upvoted bool, count int, err error)
	ListPendingProposals(ctx context.Context, viewerID string, limit, offset int) (*ProposalPage, error)

	// Feed
	AppendFeed(ctx context.Context, entry *FeedEntry) error
	ListFeed(ctx context.Context, limit int) ([]*FeedEntry, error)

	// Aggregates
	Stats(ctx context.Context, since time.Time) (*Stats, error)
	ListAgentActivity(ctx context.Context, agentID string, limit, offset int) ([]*Activity, error)
	CountAgentActivity(ctx context.Context, agentID string) (*ActivityTotals, error)
}

// Store is the durable store consumed by the council core.
type Store interface {
	Queries

	// WithTx runs fn inside one transaction. The transaction commits when fn
	// returns nil and rolls back otherwise. fn must only use the Queries it is given.
	WithTx(ctx context.Context, fn func(q Queries) error) error

	// Ping reports whether the database is reachable
	Ping(ctx context.Context) error

	// Close releases any resources held by the store
	Close() error
}
