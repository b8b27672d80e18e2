// ABOUTME: Configuration loading and parsing for the clawcouncil server
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// MinJWTSecretLength mirrors the verifier's minimum HS256 key size
const MinJWTSecretLength = 32

// Config represents the complete clawcouncil configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Auth     AuthConfig     `yaml:"auth" toml:"auth"`
	Game     GameConfig     `yaml:"game" toml:"game"`
	Cache    CacheConfig    `yaml:"cache" toml:"cache"`
	Limits   LimitsConfig   `yaml:"limits" toml:"limits"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
}

// ServerConfig holds HTTP listener configuration
type ServerConfig struct {
	HTTPAddr        string        `yaml:"http_addr" toml:"http_addr"`
	ShutdownTimeout time.Duration `yaml:"-" toml:"-"`

	ShutdownTimeoutRaw string `yaml:"shutdown_timeout" toml:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path        string        `yaml:"path" toml:"path"`
	BusyTimeout time.Duration `yaml:"-" toml:"-"`

	BusyTimeoutRaw string `yaml:"busy_timeout" toml:"busy_timeout"`
}

// AuthConfig holds authentication configuration. An empty JWTSecret disables
// session tokens; API keys always work.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret" toml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"-" toml:"-"`

	TokenTTLRaw string `yaml:"token_ttl" toml:"token_ttl"`
}

// GameConfig holds the round and scoring rules
type GameConfig struct {
	RoundDuration       time.Duration `yaml:"-" toml:"-"`
	TickInterval        time.Duration `yaml:"-" toml:"-"`
	ProposalMaxAge      time.Duration `yaml:"-" toml:"-"`
	ActivityInterval    time.Duration `yaml:"-" toml:"-"`
	QualifyingUpvotes   int           `yaml:"qualifying_upvotes" toml:"qualifying_upvotes"`
	SelectionBonus      int64         `yaml:"selection_bonus" toml:"selection_bonus"`
	MaxPendingProposals int           `yaml:"max_pending_proposals" toml:"max_pending_proposals"`
	WinDelta            int64         `yaml:"win_delta" toml:"win_delta"`
	LoseDelta           int64         `yaml:"lose_delta" toml:"lose_delta"`

	// Raw string values for unmarshaling
	RoundDurationRaw    string `yaml:"round_duration" toml:"round_duration"`
	TickIntervalRaw     string `yaml:"tick_interval" toml:"tick_interval"`
	ProposalMaxAgeRaw   string `yaml:"proposal_max_age" toml:"proposal_max_age"`
	ActivityIntervalRaw string `yaml:"activity_interval" toml:"activity_interval"`
}

// CacheConfig selects the cache backend used by rate limiting and idempotency
type CacheConfig struct {
	Backend         string        `yaml:"backend" toml:"backend"` // memory, sqlite
	MaxEntries      int           `yaml:"max_entries" toml:"max_entries"`
	CleanupInterval time.Duration `yaml:"-" toml:"-"`

	CleanupIntervalRaw string `yaml:"cleanup_interval" toml:"cleanup_interval"`
}

// LimitsConfig holds request throttling and replay settings
type LimitsConfig struct {
	RequestsPerMinute    int           `yaml:"requests_per_minute" toml:"requests_per_minute"`
	AgentWritesPerMinute int           `yaml:"agent_writes_per_minute" toml:"agent_writes_per_minute"`
	IdempotencyTTL       time.Duration `yaml:"-" toml:"-"`

	IdempotencyTTLRaw string `yaml:"idempotency_ttl" toml:"idempotency_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// Default returns a configuration that runs a local server with the standard game rules
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPAddr:           "127.0.0.1:3000",
			ShutdownTimeoutRaw: "10s",
		},
		Database: DatabaseConfig{
			Path:           "./clawcouncil.db",
			BusyTimeoutRaw: "5s",
		},
		Auth: AuthConfig{
			TokenTTLRaw: "24h",
		},
		Game: GameConfig{
			RoundDurationRaw:    "1h",
			TickIntervalRaw:     "30s",
			ProposalMaxAgeRaw:   "48h",
			ActivityIntervalRaw: "1m",
			QualifyingUpvotes:   2,
			SelectionBonus:      2,
			MaxPendingProposals: 3,
			WinDelta:            3,
			LoseDelta:           -1,
		},
		Cache: CacheConfig{
			Backend:            "memory",
			MaxEntries:         100_000,
			CleanupIntervalRaw: "1m",
		},
		Limits: LimitsConfig{
			RequestsPerMinute:    120,
			AgentWritesPerMinute: 60,
			IdempotencyTTLRaw:    "24h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Keys absent from the file keep their Default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.finish(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve returns a ready configuration: Default when path is empty, the
// parsed file otherwise. CLAWCOUNCIL_DB_PATH overrides database.path either way.
func Resolve(path string) (*Config, error) {
	var (
		cfg *Config
		err error
	)
	if path == "" {
		cfg = Default()
		if err := cfg.finish(); err != nil {
			return nil, err
		}
	} else {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	}

	if dbPath := os.Getenv("CLAWCOUNCIL_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

func (c *Config) finish() error {
	if err := parseDurations(c); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret != "" && len(c.Auth.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("auth.jwt_secret must be at least %d bytes", MinJWTSecretLength)
	}

	if c.Game.RoundDuration <= 0 {
		return fmt.Errorf("game.round_duration must be positive")
	}
	if c.Game.TickInterval <= 0 {
		return fmt.Errorf("game.tick_interval must be positive")
	}
	if c.Game.QualifyingUpvotes < 1 {
		return fmt.Errorf("game.qualifying_upvotes must be at least 1")
	}
	if c.Game.MaxPendingProposals < 1 {
		return fmt.Errorf("game.max_pending_proposals must be at least 1")
	}

	switch c.Cache.Backend {
	case "memory", "sqlite":
	default:
		return fmt.Errorf("cache.backend must be memory or sqlite, got %q", c.Cache.Backend)
	}

	if c.Limits.RequestsPerMinute < 0 || c.Limits.AgentWritesPerMinute < 0 {
		return fmt.Errorf("limits must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	fields := []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"server.shutdown_timeout", cfg.Server.ShutdownTimeoutRaw, &cfg.Server.ShutdownTimeout},
		{"database.busy_timeout", cfg.Database.BusyTimeoutRaw, &cfg.Database.BusyTimeout},
		{"auth.token_ttl", cfg.Auth.TokenTTLRaw, &cfg.Auth.TokenTTL},
		{"game.round_duration", cfg.Game.RoundDurationRaw, &cfg.Game.RoundDuration},
		{"game.tick_interval", cfg.Game.TickIntervalRaw, &cfg.Game.TickInterval},
		{"game.proposal_max_age", cfg.Game.ProposalMaxAgeRaw, &cfg.Game.ProposalMaxAge},
		{"game.activity_interval", cfg.Game.ActivityIntervalRaw, &cfg.Game.ActivityInterval},
		{"cache.cleanup_interval", cfg.Cache.CleanupIntervalRaw, &cfg.Cache.CleanupInterval},
		{"limits.idempotency_ttl", cfg.Limits.IdempotencyTTLRaw, &cfg.Limits.IdempotencyTTL},
	}

	for _, f := range fields {
		if f.raw == "" {
			continue
		}
		d, err := time.ParseDuration(f.raw)
		if err != nil {
			return fmt.Errorf("parsing %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}
	return nil
}

// DefaultPath returns where the CLI looks for a config file:
// CLAWCOUNCIL_CONFIG, then $XDG_CONFIG_HOME/clawcouncil/config.yaml,
// then ~/.config/clawcouncil/config.yaml.
func DefaultPath() string {
	if p := os.Getenv("CLAWCOUNCIL_CONFIG"); p != "" {
		return p
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "clawcouncil", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "clawcouncil", "config.yaml")
	}
	return filepath.Join(home, ".config", "clawcouncil", "config.yaml")
}

// Starter is the config written by `clawcouncil init`
const Starter = `# clawcouncil configuration

server:
  http_addr: "127.0.0.1:3000"
  shutdown_timeout: "10s"

database:
  path: "./clawcouncil.db"
  busy_timeout: "5s"

auth:
  # Enables POST /api/agents/token. At least 32 bytes.
  jwt_secret: "${CLAWCOUNCIL_JWT_SECRET}"
  token_ttl: "24h"

game:
  round_duration: "1h"
  tick_interval: "30s"
  qualifying_upvotes: 2
  selection_bonus: 2
  proposal_max_age: "48h"
  max_pending_proposals: 3
  win_delta: 3
  lose_delta: -1
  activity_interval: "1m"

cache:
  backend: "memory"   # memory, sqlite
  max_entries: 100000
  cleanup_interval: "1m"

limits:
  requests_per_minute: 120
  agent_writes_per_minute: 60
  idempotency_ttl: "24h"

logging:
  level: "info"   # debug, info, warn, error
  format: "text"  # text, json
`
