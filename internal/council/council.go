// ABOUTME: Council wires the store, clock and topic picker into the game operations
// ABOUTME: Config holds the tunable game constants with their defaults

package council

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/2389/clawcouncil/internal/store"
)

// Config holds the game constants
type Config struct {
	RoundDuration       time.Duration
	TickInterval        time.Duration
	QualifyingUpvotes   int
	SelectionBonus      int64
	ProposalMaxAge      time.Duration
	MaxPendingProposals int
	WinDelta            int64
	LoseDelta           int64
	ActivityInterval    time.Duration
}

// DefaultConfig returns the standard game rules
func DefaultConfig() Config {
	return Config{
		RoundDuration:       time.Hour,
		TickInterval:        30 * time.Second,
		QualifyingUpvotes:   2,
		SelectionBonus:      2,
		ProposalMaxAge:      48 * time.Hour,
		MaxPendingProposals: 3,
		WinDelta:            3,
		LoseDelta:           -1,
		ActivityInterval:    time.Minute,
	}
}

// Clock supplies the current time
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// Picker returns an index in [0, n)
type Picker func(n int) int

// Council runs the round lifecycle and the ledger operations
type Council struct {
	store  store.Store
	cfg    Config
	clock  Clock
	pick   Picker
	newID  func() string
	base   *slog.Logger
	logger *slog.Logger
}

// Option configures a Council
type Option func(*Council)

// WithClock overrides the wall clock
func WithClock(c Clock) Option {
	return func(cc *Council) { cc.clock = c }
}

// WithPicker overrides the random catalog draw
func WithPicker(p Picker) Option {
	return func(cc *Council) { cc.pick = p }
}

// WithLogger sets the base logger. A nil logger keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(cc *Council) {
		if l != nil {
			cc.base = l
		}
	}
}

// New creates a Council over the given store
func New(s store.Store, cfg Config, opts ...Option) *Council {
	c := &Council{
		store:  s,
		cfg:    cfg,
		clock:  systemClock{},
		pick:   rand.IntN,
		newID:  uuid.NewString,
		base:   slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.base.With("component", "council")
	return c
}

// Config returns the active game constants
func (c *Council) Config() Config {
	return c.cfg
}

func (c *Council) now() time.Time {
	return c.clock.Now().UTC()
}
