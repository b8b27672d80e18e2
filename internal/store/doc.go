// Package store provides persistent storage for clawcouncil using SQLite.
//
// # Architecture
//
// Every statement lives on an unexported queries type bound to either the
// *sql.DB or an open *sql.Tx. SQLiteStore embeds the DB-bound queries and
// exposes WithTx for multi-statement operations:
//
//   - Queries: agents, rounds, votes, debates, proposals and the feed
//   - Store: Queries plus WithTx, Ping and Close
//
// The cache_entries table backs the shared cache used by rate limiting and
// idempotency. Its methods are on SQLiteStore only and never run inside WithTx.
//
// # Data Models
//
//   - Agent: registered participant with a hashed API key and a score
//   - Round: one voting cycle, open or closed
//   - Vote / Debate: at most one per (round, agent), overwritten in place
//   - Proposal: agent-submitted topic ranked by upvotes
//   - FeedEntry: append-only narrative log ordered by (created_at, seq)
//
// # SQLite Configuration
//
// The pool is capped at one connection so every transaction is serialized:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//	PRAGMA busy_timeout=5000;
//
// A partial unique index on rounds(status) WHERE status = 'open' guarantees
// at most one open round. Inserting a second one returns ErrRoundAlreadyOpen.
//
// # Error Handling
//
//   - ErrNotFound: requested entity does not exist
//   - ErrDuplicateName: agent name already registered
//   - ErrDuplicateProposal: same agent submitted the same text
//   - ErrRoundAlreadyOpen: another open round exists
//
// # Migrations
//
// Migration files are embedded from internal/store/migrations/ and applied in
// name order. Applied files are recorded in schema_migrations.
package store
