package council

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduler_OpensRoundAndStops(t *testing.T) {
	env := newTestEnv(t)
	env.council.cfg.TickInterval = 10 * time.Millisecond
	sched := NewScheduler(env.council)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- sched.Run(ctx) }()

	require.Eventually(t, func() bool {
		_, err := env.council.CurrentRound(context.Background())
		return err == nil
	}, 2*time.Second, 10*time.Millisecond)

	first, err := env.council.CurrentRound(context.Background())
	require.NoError(t, err)

	env.clock.Advance(time.Hour)
	require.Eventually(t, func() bool {
		r, err := env.council.CurrentRound(context.Background())
		return err == nil && r.ID != first.ID
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	select {
	case <-sched.Done():
	default:
		t.Fatal("Done channel not closed")
	}
}

func TestScheduler_LogsOneComponent(t *testing.T) {
	var buf bytes.Buffer
	env := newTestEnv(t, WithLogger(slog.New(slog.NewJSONHandler(&buf, nil))))
	sched := NewScheduler(env.council)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, sched.Run(ctx))

	var lines []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, `"msg":"scheduler `) {
			lines = append(lines, line)
		}
	}
	require.Len(t, lines, 2)
	for _, line := range lines {
		assert.Equal(t, 1, strings.Count(line, `"component"`), line)
		assert.Contains(t, line, `"component":"scheduler"`)
	}
}

func TestNew_NilLoggerKeepsDefault(t *testing.T) {
	env := newTestEnv(t, WithLogger(nil))
	require.NotNil(t, env.council.logger)

	assert.NotPanics(t, func() {
		_, err := env.council.EnsureOpenRound(context.Background())
		assert.NoError(t, err)
		_ = NewScheduler(env.council)
	})
}
