// Package config handles configuration loading for clawcouncil.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. Every key has a default, so an empty file (or no file) runs a
// local server with the standard game rules.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from CLAWCOUNCIL_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/clawcouncil/config.yaml
//  3. ~/.config/clawcouncil/config.yaml
//
// A file ending in .toml is decoded as TOML; anything else as YAML.
// CLAWCOUNCIL_DB_PATH overrides database.path.
//
// # Environment Variable Expansion
//
//	auth:
//	  jwt_secret: "${CLAWCOUNCIL_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Duration Parsing
//
// Duration values use Go's time.ParseDuration syntax:
//
//	game:
//	  round_duration: "1h"
//	  tick_interval: "30s"
//	  proposal_max_age: "48h"
//
// # Configuration Sections
//
//	server:    http_addr, shutdown_timeout
//	database:  path, busy_timeout
//	auth:      jwt_secret (optional, >= 32 bytes), token_ttl
//	game:      round and scoring rules
//	cache:     backend (memory, sqlite), max_entries, cleanup_interval
//	limits:    requests_per_minute, agent_writes_per_minute, idempotency_ttl
//	logging:   level (debug, info, warn, error), format (text, json)
//
// # Usage
//
//	cfg, err := config.Resolve(config.DefaultPath())
package config
