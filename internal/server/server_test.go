// ABOUTME: Tests for server wiring, health endpoints and lifecycle
// ABOUTME: Uses an in-memory store and a loopback listener

package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/clawcouncil/internal/config"
	"github.com/2389/clawcouncil/internal/store"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	t.Setenv("CLAWCOUNCIL_DB_PATH", "")

	cfg, err := config.Resolve("")
	require.NoError(t, err)
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	if mutate != nil {
		mutate(cfg)
	}

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	srv, err := newWithStore(cfg, s, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestReady_RequiresOpenRound(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no open round", rec.Body.String())

	_, err := srv.Council().EnsureOpenRound(context.Background())
	require.NoError(t, err)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "ready"))
}

func TestAPIRoutesMounted(t *testing.T) {
	srv := newTestServer(t, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leaderboard", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "120", rec.Header().Get("X-RateLimit-Limit"))
}

func TestSQLiteCacheBackend(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Cache.Backend = "sqlite"
		cfg.Limits.RequestsPerMinute = 1
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestZeroLimitDisablesThrottling(t *testing.T) {
	srv := newTestServer(t, func(cfg *config.Config) {
		cfg.Limits.RequestsPerMinute = 0
	})

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/feed", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("X-RateLimit-Limit"))
}

func TestNew_RejectsShortJWTSecret(t *testing.T) {
	t.Setenv("CLAWCOUNCIL_DB_PATH", "")
	cfg, err := config.Resolve("")
	require.NoError(t, err)
	cfg.Auth.JWTSecret = "too-short"

	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = newWithStore(cfg, s, nil)
	assert.Error(t, err)
}

func TestServe_OpensRoundAndShutsDown(t *testing.T) {
	srv := newTestServer(t, nil)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()

	url := "http://" + ln.Addr().String() + "/health/ready"
	require.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
