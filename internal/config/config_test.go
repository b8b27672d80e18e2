// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults, and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  http_addr: "0.0.0.0:8080"

database:
  path: "./test.db"

game:
  round_duration: "15m"
  tick_interval: "5s"
  qualifying_upvotes: 3
  win_delta: 5

cache:
  backend: "sqlite"

limits:
  requests_per_minute: 30

logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "0.0.0.0:8080" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:8080")
	}
	if cfg.Database.Path != "./test.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./test.db")
	}
	if cfg.Game.RoundDuration != 15*time.Minute {
		t.Errorf("Game.RoundDuration = %v, want %v", cfg.Game.RoundDuration, 15*time.Minute)
	}
	if cfg.Game.TickInterval != 5*time.Second {
		t.Errorf("Game.TickInterval = %v, want %v", cfg.Game.TickInterval, 5*time.Second)
	}
	if cfg.Game.QualifyingUpvotes != 3 {
		t.Errorf("Game.QualifyingUpvotes = %d, want 3", cfg.Game.QualifyingUpvotes)
	}
	if cfg.Game.WinDelta != 5 {
		t.Errorf("Game.WinDelta = %d, want 5", cfg.Game.WinDelta)
	}
	if cfg.Cache.Backend != "sqlite" {
		t.Errorf("Cache.Backend = %q, want sqlite", cfg.Cache.Backend)
	}
	if cfg.Limits.RequestsPerMinute != 30 {
		t.Errorf("Limits.RequestsPerMinute = %d, want 30", cfg.Limits.RequestsPerMinute)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v, want debug/json", cfg.Logging)
	}

	// Unset keys keep their defaults
	if cfg.Game.LoseDelta != -1 {
		t.Errorf("Game.LoseDelta = %d, want -1", cfg.Game.LoseDelta)
	}
	if cfg.Game.ProposalMaxAge != 48*time.Hour {
		t.Errorf("Game.ProposalMaxAge = %v, want 48h", cfg.Game.ProposalMaxAge)
	}
	if cfg.Limits.IdempotencyTTL != 24*time.Hour {
		t.Errorf("Limits.IdempotencyTTL = %v, want 24h", cfg.Limits.IdempotencyTTL)
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[server]
http_addr = "127.0.0.1:9000"

[database]
path = "/tmp/council.db"

[game]
round_duration = "2h"
lose_delta = -2

[logging]
level = "warn"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.HTTPAddr != "127.0.0.1:9000" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "127.0.0.1:9000")
	}
	if cfg.Database.Path != "/tmp/council.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "/tmp/council.db")
	}
	if cfg.Game.RoundDuration != 2*time.Hour {
		t.Errorf("Game.RoundDuration = %v, want 2h", cfg.Game.RoundDuration)
	}
	if cfg.Game.LoseDelta != -2 {
		t.Errorf("Game.LoseDelta = %d, want -2", cfg.Game.LoseDelta)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Logging.Level = %q, want warn", cfg.Logging.Level)
	}
	if cfg.Game.TickInterval != 30*time.Second {
		t.Errorf("Game.TickInterval = %v, want 30s", cfg.Game.TickInterval)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	secret := strings.Repeat("s", 40)
	t.Setenv("TEST_CLAWCOUNCIL_SECRET", secret)
	t.Setenv("TEST_CLAWCOUNCIL_ADDR", "0.0.0.0:4000")

	path := writeConfig(t, "config.yaml", `
server:
  http_addr: "${TEST_CLAWCOUNCIL_ADDR}"
auth:
  jwt_secret: "${TEST_CLAWCOUNCIL_SECRET}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != secret {
		t.Errorf("Auth.JWTSecret = %q, want expanded value", cfg.Auth.JWTSecret)
	}
	if cfg.Server.HTTPAddr != "0.0.0.0:4000" {
		t.Errorf("Server.HTTPAddr = %q, want %q", cfg.Server.HTTPAddr, "0.0.0.0:4000")
	}
}

func TestLoad_UnsetEnvVarBecomesEmpty(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
auth:
  jwt_secret: "${TEST_CLAWCOUNCIL_DEFINITELY_UNSET}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Auth.JWTSecret != "" {
		t.Errorf("Auth.JWTSecret = %q, want empty", cfg.Auth.JWTSecret)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantErr string
	}{
		{
			name:    "invalid duration",
			file:    "config.yaml",
			content: "game:\n  round_duration: \"soon\"\n",
			wantErr: "game.round_duration",
		},
		{
			name:    "short jwt secret",
			file:    "config.yaml",
			content: "auth:\n  jwt_secret: \"short\"\n",
			wantErr: "auth.jwt_secret",
		},
		{
			name:    "unknown cache backend",
			file:    "config.yaml",
			content: "cache:\n  backend: \"redis\"\n",
			wantErr: "cache.backend",
		},
		{
			name:    "bad log format",
			file:    "config.yaml",
			content: "logging:\n  format: \"xml\"\n",
			wantErr: "logging.format",
		},
		{
			name:    "empty database path",
			file:    "config.yaml",
			content: "database:\n  path: \"\"\n",
			wantErr: "database.path",
		},
		{
			name:    "malformed yaml",
			file:    "config.yaml",
			content: "server: [unclosed\n",
			wantErr: "parsing config file",
		},
		{
			name:    "malformed toml",
			file:    "config.toml",
			content: "[server\nhttp_addr = 1\n",
			wantErr: "parsing config file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.file, tt.content))
			if err == nil {
				t.Fatal("Load() expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %v, want it to mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Load() expected error for missing file")
	}
}

func TestResolve_DefaultsAndDBOverride(t *testing.T) {
	t.Setenv("CLAWCOUNCIL_DB_PATH", "/data/override.db")

	cfg, err := Resolve("")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if cfg.Database.Path != "/data/override.db" {
		t.Errorf("Database.Path = %q, want override", cfg.Database.Path)
	}
	if cfg.Game.RoundDuration != time.Hour {
		t.Errorf("Game.RoundDuration = %v, want 1h", cfg.Game.RoundDuration)
	}
	if cfg.Limits.RequestsPerMinute != 120 || cfg.Limits.AgentWritesPerMinute != 60 {
		t.Errorf("Limits = %+v, want 120/60", cfg.Limits)
	}
}

func TestStarterConfigLoads(t *testing.T) {
	t.Setenv("CLAWCOUNCIL_JWT_SECRET", "")

	cfg, err := Load(writeConfig(t, "config.yaml", Starter))
	if err != nil {
		t.Fatalf("Load(Starter) error = %v", err)
	}
	if cfg.Game.WinDelta != 3 || cfg.Game.LoseDelta != -1 {
		t.Errorf("Game deltas = %d/%d, want 3/-1", cfg.Game.WinDelta, cfg.Game.LoseDelta)
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("CLAWCOUNCIL_CONFIG", "/etc/clawcouncil.yaml")
	if got := DefaultPath(); got != "/etc/clawcouncil.yaml" {
		t.Errorf("DefaultPath() = %q, want env value", got)
	}

	t.Setenv("CLAWCOUNCIL_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := DefaultPath(); got != filepath.Join("/xdg", "clawcouncil", "config.yaml") {
		t.Errorf("DefaultPath() = %q, want XDG path", got)
	}
}
