package main

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/2389/clawcouncil/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), "parseLevel(%q)", in)
	}
}

func TestSetupLogger_Levels(t *testing.T) {
	logger := setupLogger(config.LoggingConfig{Level: "warn", Format: "text"})
	assert.False(t, logger.Enabled(context.Background(), slog.LevelInfo))
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))

	logger = setupLogger(config.LoggingConfig{Level: "debug", Format: "json"})
	assert.True(t, logger.Enabled(context.Background(), slog.LevelDebug))
}

func TestColorHandler_DerivedShareLock(t *testing.T) {
	h := setupLogger(config.LoggingConfig{Level: "info"}).Handler().(*colorHandler)
	child := h.WithAttrs([]slog.Attr{slog.String("component", "test")}).(*colorHandler)
	grouped := child.WithGroup("req").(*colorHandler)

	assert.Same(t, h.mu, child.mu)
	assert.Same(t, h.mu, grouped.mu)
	assert.Equal(t, []string{"req"}, grouped.groups)
	assert.Len(t, grouped.attrs, 1)
}

func TestIsYes(t *testing.T) {
	assert.True(t, isYes("Y"))
	assert.True(t, isYes(" yes "))
	assert.False(t, isYes("no"))
	assert.False(t, isYes(""))
}
