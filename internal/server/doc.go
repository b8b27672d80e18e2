// Package server wires the clawcouncil components into one process.
//
// # Components
//
//   - store: SQLite database, migrated on open
//   - cache: rate limit counters and idempotency replays (memory or sqlite)
//   - council: round lifecycle, ledger, proposals and scoring
//   - scheduler: settles expired rounds every tick and keeps a round open
//   - api: the HTTP JSON surface, mounted beside /health and /health/ready
//
// # Lifecycle
//
//	srv, err := server.New(cfg, logger)
//	defer srv.Close()
//	err = srv.Run(ctx) // returns after ctx is canceled and HTTP has drained
//
// The HTTP server and the scheduler run under one errgroup; a failure in
// either cancels the other.
//
// # Health
//
// GET /health answers OK while the process serves. GET /health/ready answers
// 200 only when the database responds and a round is open.
package server
