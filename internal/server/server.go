// ABOUTME: Server orchestrator that wires store, cache, auth, council and HTTP
// ABOUTME: Runs the HTTP listener and the round scheduler together and shuts both down cleanly

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/2389/clawcouncil/internal/api"
	"github.com/2389/clawcouncil/internal/auth"
	"github.com/2389/clawcouncil/internal/cache"
	"github.com/2389/clawcouncil/internal/config"
	"github.com/2389/clawcouncil/internal/council"
	"github.com/2389/clawcouncil/internal/store"
)

// Server orchestrates the clawcouncil components.
type Server struct {
	config     *config.Config
	store      *store.SQLiteStore
	cache      cache.Cache
	council    *council.Council
	scheduler  *council.Scheduler
	httpServer *http.Server
	logger     *slog.Logger
}

// New creates a Server from configuration. The database is opened and
// migrated here; nothing listens until Run.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	s, err := store.NewSQLiteStoreWithOptions(cfg.Database.Path, store.Options{BusyTimeout: cfg.Database.BusyTimeout})
	if err != nil {
		return nil, fmt.Errorf("creating store: %w", err)
	}

	srv, err := newWithStore(cfg, s, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	return srv, nil
}

func newWithStore(cfg *config.Config, s *store.SQLiteStore, logger *slog.Logger) (*Server, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cc, err := cache.New(cache.Options{
		Backend:         cache.Backend(cfg.Cache.Backend),
		MaxEntries:      cfg.Cache.MaxEntries,
		CleanupInterval: cfg.Cache.CleanupInterval,
	}, s)
	if err != nil {
		return nil, fmt.Errorf("creating cache: %w", err)
	}

	c := council.New(s, CouncilConfig(cfg.Game), council.WithLogger(logger))

	// JWT session tokens are optional; API keys always work
	var (
		verifier auth.TokenVerifier
		issuer   api.TokenIssuer
	)
	if cfg.Auth.JWTSecret != "" {
		jv, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
		if err != nil {
			_ = cc.Close()
			return nil, fmt.Errorf("creating JWT verifier: %w", err)
		}
		verifier, issuer = jv, jv
		logger.Info("session tokens enabled")
	}

	authn := auth.NewAuthenticator(s, verifier, api.WriteError)
	handler := api.New(c, authn, issuer, cc, api.Options{
		RequestsPerMinute:    limitOrDisabled(cfg.Limits.RequestsPerMinute),
		AgentWritesPerMinute: limitOrDisabled(cfg.Limits.AgentWritesPerMinute),
		IdempotencyTTL:       cfg.Limits.IdempotencyTTL,
		TokenTTL:             cfg.Auth.TokenTTL,
		Logger:               logger,
	})

	srv := &Server{
		config:    cfg,
		store:     s,
		cache:     cc,
		council:   c,
		scheduler: council.NewScheduler(c),
		logger:    logger.With("component", "server"),
	}

	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", srv.handleHealth)
	mux.HandleFunc("GET /health/ready", srv.handleReady)

	handler.RegisterRoutes(mux)

	srv.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           handler.Middleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return srv, nil
}

// limitOrDisabled maps a configured zero to the API's "disabled" marker.
func limitOrDisabled(n int) int {
	if n == 0 {
		return -1
	}
	return n
}

// CouncilConfig translates the game section into council rules.
func CouncilConfig(g config.GameConfig) council.Config {
	return council.Config{
		RoundDuration:       g.RoundDuration,
		TickInterval:        g.TickInterval,
		QualifyingUpvotes:   g.QualifyingUpvotes,
		SelectionBonus:      g.SelectionBonus,
		ProposalMaxAge:      g.ProposalMaxAge,
		MaxPendingProposals: g.MaxPendingProposals,
		WinDelta:            g.WinDelta,
		LoseDelta:           g.LoseDelta,
		ActivityInterval:    g.ActivityInterval,
	}
}

// Council exposes the game for CLI maintenance commands.
func (s *Server) Council() *council.Council {
	return s.council
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run serves HTTP on the configured address and drives the scheduler until
// ctx is canceled or either fails, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Server.HTTPAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", "http_addr", ln.Addr().String())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return s.scheduler.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()
		s.logger.Info("context canceled, initiating shutdown")
		return s.gracefulShutdown()
	})

	return g.Wait()
}

// gracefulShutdown stops accepting requests with a fresh context, since the
// run context is already canceled.
func (s *Server) gracefulShutdown() error {
	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// Close releases the cache and the database. Call after Run returns.
func (s *Server) Close() error {
	var errs []error
	if err := s.cache.Close(); err != nil {
		errs = append(errs, fmt.Errorf("cache close: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store close: %w", err))
	}
	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the process is serving.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when the database answers and a round is open.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}

	round, err := s.council.CurrentRound(r.Context())
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("no open round"))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (round %s closes %s)", round.ID, round.ClosesAt.Format(time.RFC3339))
}
