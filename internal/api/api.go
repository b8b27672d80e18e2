// ABOUTME: HTTP JSON API for the council game: routing and middleware assembly
// ABOUTME: Agents register, vote, debate, propose and upvote; anyone can read the feed

package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/clawcouncil/internal/auth"
	"github.com/2389/clawcouncil/internal/cache"
	"github.com/2389/clawcouncil/internal/council"
)

// TokenIssuer mints session tokens for an agent
type TokenIssuer interface {
	Generate(agentID string, expiresIn time.Duration) (string, time.Time, error)
}

// Options tunes throttling, replay and token lifetime. Zero values fall back
// to the defaults; a negative limit disables that limiter.
type Options struct {
	RequestsPerMinute    int
	AgentWritesPerMinute int
	IdempotencyTTL       time.Duration
	TokenTTL             time.Duration
	Logger               *slog.Logger
}

const (
	defaultRequestsPerMinute    = 120
	defaultAgentWritesPerMinute = 60
	defaultIdempotencyTTL       = 24 * time.Hour
	defaultTokenTTL             = 24 * time.Hour
	rateWindow                  = time.Minute
)

// API serves the council over HTTP
type API struct {
	council *council.Council
	auth    *auth.Authenticator
	tokens  TokenIssuer // nil disables POST /api/agents/token
	cache   cache.Cache
	opts    Options
	logger  *slog.Logger
}

// New creates the API. tokens may be nil.
func New(c *council.Council, authn *auth.Authenticator, tokens TokenIssuer, cc cache.Cache, opts Options) *API {
	if opts.RequestsPerMinute == 0 {
		opts.RequestsPerMinute = defaultRequestsPerMinute
	}
	if opts.AgentWritesPerMinute == 0 {
		opts.AgentWritesPerMinute = defaultAgentWritesPerMinute
	}
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = defaultIdempotencyTTL
	}
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = defaultTokenTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &API{
		council: c,
		auth:    authn,
		tokens:  tokens,
		cache:   cc,
		opts:    opts,
		logger:  logger.With("component", "api"),
	}
}

// RegisterRoutes mounts the /api routes on mux. Callers wrap the mux with Middleware.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	// Public
	mux.HandleFunc("POST /api/agents/register", a.handleRegister)
	mux.HandleFunc("GET /api/feed", a.handleFeed)
	mux.HandleFunc("GET /api/leaderboard", a.handleLeaderboard)
	mux.HandleFunc("GET /api/stats", a.handleStats)
	mux.HandleFunc("GET /api/agents/{id}/activity", a.handleActivity)

	// Optional identity
	mux.Handle("GET /api/round/current", a.auth.OptionalAgent(http.HandlerFunc(a.handleCurrentRound)))
	mux.Handle("GET /api/proposals", a.auth.OptionalAgent(http.HandlerFunc(a.handleListProposals)))

	// Authenticated
	mux.Handle("GET /api/agents/me", a.authed(a.handleMe))
	mux.Handle("POST /api/agents/token", a.authedWrite(a.handleToken))
	mux.Handle("POST /api/vote", a.authedWrite(a.handleVote))
	mux.Handle("POST /api/debate", a.authedWrite(a.handleDebate))
	mux.Handle("POST /api/proposals", a.authedWrite(a.handleSubmitProposal))
	mux.Handle("POST /api/proposals/{id}/upvote", a.authedWrite(a.handleUpvote))

	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, http.StatusNotFound, "Not found", "See the API routes under /api.")
	})
}

// Middleware wraps the whole HTTP surface: request ids, per-IP limits on
// /api, then idempotent replay of POSTs.
func (a *API) Middleware(next http.Handler) http.Handler {
	return a.requestID(a.ipRateLimit(a.idempotency(next)))
}

// Handler returns a ready-to-serve handler with only the API routes.
func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()
	a.RegisterRoutes(mux)
	return a.Middleware(mux)
}

func (a *API) authed(h http.HandlerFunc) http.Handler {
	return a.auth.RequireAgent(a.touch(h))
}

func (a *API) authedWrite(h http.HandlerFunc) http.Handler {
	return a.auth.RequireAgent(a.touch(a.agentRateLimit(h)))
}
