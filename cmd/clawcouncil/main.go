// ABOUTME: Entry point for the clawcouncil server and its maintenance commands
// ABOUTME: serve runs the game; init writes a config; health and sweep talk to a deployment

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/clawcouncil/internal/config"
	"github.com/2389/clawcouncil/internal/council"
	"github.com/2389/clawcouncil/internal/server"
	"github.com/2389/clawcouncil/internal/store"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

const banner = `
       _                                        _ _
   ___| | __ ___      _____ ___  _   _ _ __   ___(_) |
  / __| |/ _' \ \ /\ / / __/ _ \| | | | '_ \ / __| | |
 | (__| | (_| |\ V  V / (_| (_) | |_| | | | | (__| | |
  \___|_|\__,_| \_/\_/ \___\___/ \__,_|_| |_|\___|_|_|
`

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: clawcouncil <command>")
		fmt.Println()
		fmt.Println("Commands:")
		fmt.Println("  serve          Start the council server")
		fmt.Println("  init           Create a new config file interactively")
		fmt.Println("  health         Check server readiness")
		fmt.Println("  sweep          Settle every expired round now and ensure one is open")
		fmt.Println("  topics         List the built-in topic catalog")
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "health":
		err = runHealth(ctx)
	case "sweep":
		err = runSweep(ctx)
	case "topics":
		runTopics()
	case "version":
		fmt.Println(version)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the config file when one exists at the resolved path and
// falls back to defaults otherwise. An explicit CLAWCOUNCIL_CONFIG must exist.
func loadConfig() (*config.Config, string, error) {
	path := config.DefaultPath()
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && os.Getenv("CLAWCOUNCIL_CONFIG") == "" {
		cfg, err := config.Resolve("")
		return cfg, "(defaults)", err
	}
	cfg, err := config.Resolve(path)
	if err != nil {
		return nil, path, fmt.Errorf("loading config: %w", err)
	}
	return cfg, path, nil
}

func runServe(ctx context.Context) error {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Database:  %s\n", cfg.Database.Path)
	green.Print("    ▶ ")
	fmt.Printf("Rounds:    %s (tick %s)\n", cfg.Game.RoundDuration, cfg.Game.TickInterval)
	green.Print("    ▶ ")
	fmt.Printf("Cache:     %s\n", cfg.Cache.Backend)
	if cfg.Auth.JWTSecret == "" {
		yellow.Print("    ! ")
		fmt.Println("Session tokens disabled (auth.jwt_secret not set)")
	}
	fmt.Println()

	logger.Info("starting clawcouncil",
		"config", configPath,
		"http_addr", cfg.Server.HTTPAddr,
		"database", cfg.Database.Path,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer func() {
		if err := srv.Close(); err != nil {
			logger.Error("closing server", "error", err)
		}
	}()

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}

	url := fmt.Sprintf("http://%s/health/ready", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("not ready: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println(string(body))
	return nil
}

// runSweep settles overdue rounds against the database directly, for use
// when the server has been down past a deadline.
func runSweep(ctx context.Context) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg.Logging)

	s, err := store.NewSQLiteStoreWithOptions(cfg.Database.Path, store.Options{BusyTimeout: cfg.Database.BusyTimeout})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	c := council.New(s, server.CouncilConfig(cfg.Game), council.WithLogger(logger))

	closed, err := c.SweepExpired(ctx)
	if err != nil {
		return fmt.Errorf("sweeping rounds: %w", err)
	}

	round, err := c.CurrentRound(ctx)
	if err != nil {
		return fmt.Errorf("reading current round: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Printf("  ✓ Settled %d round(s)\n", closed)
	fmt.Printf("  Open round: %s\n", round.ID)
	fmt.Printf("  Proposal:   %s\n", round.Proposal)
	fmt.Printf("  Closes:     %s\n", round.ClosesAt.Local().Format(time.RFC1123))
	return nil
}

func runTopics() {
	cyan := color.New(color.FgCyan)
	for i, topic := range council.Catalog() {
		cyan.Printf("  %2d ", i+1)
		fmt.Println(topic)
	}
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("clawcouncil configuration setup")
	fmt.Println("===============================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if !isYes(overwrite) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", "127.0.0.1:3000")

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", defaultDBPath())

	fmt.Println("\n--- Authentication ---")
	var jwtSecret string
	if isYes(prompt(reader, "Enable session tokens (generates a JWT secret)?", "yes")) {
		secretBytes := make([]byte, 32)
		if _, err := rand.Read(secretBytes); err != nil {
			return fmt.Errorf("generating JWT secret: %w", err)
		}
		jwtSecret = hex.EncodeToString(secretBytes)
	}

	fmt.Println("\n--- Game ---")
	roundDuration := prompt(reader, "Round duration", "1h")
	if _, err := time.ParseDuration(roundDuration); err != nil {
		return fmt.Errorf("invalid round duration %q: %w", roundDuration, err)
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	content := config.Starter
	content = strings.Replace(content, `http_addr: "127.0.0.1:3000"`, fmt.Sprintf("http_addr: %q", httpAddr), 1)
	content = strings.Replace(content, `path: "./clawcouncil.db"`, fmt.Sprintf("path: %q", dbPath), 1)
	content = strings.Replace(content, `jwt_secret: "${CLAWCOUNCIL_JWT_SECRET}"`, fmt.Sprintf("jwt_secret: %q", jwtSecret), 1)
	content = strings.Replace(content, `round_duration: "1h"`, fmt.Sprintf("round_duration: %q", roundDuration), 1)
	content = strings.Replace(content, `level: "info"`, fmt.Sprintf("level: %q", logLevel), 1)
	content = strings.Replace(content, `format: "text"`, fmt.Sprintf("format: %q", logFormat), 1)

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	// 0600: the file may hold the JWT secret
	if err := os.WriteFile(outputFile, []byte(content), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	if _, err := config.Load(outputFile); err != nil {
		return fmt.Errorf("generated config does not load: %w", err)
	}

	dataDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", dataDir)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  CLAWCOUNCIL_CONFIG=%s clawcouncil serve\n", outputFile)

	return nil
}

// defaultDBPath returns $XDG_DATA_HOME/clawcouncil/clawcouncil.db or the ~/.local/share equivalent.
func defaultDBPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "clawcouncil.db"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "clawcouncil", "clawcouncil.db")
}

func isYes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
