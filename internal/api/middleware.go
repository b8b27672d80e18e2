// ABOUTME: Request id, fixed-window rate limiting, idempotent replay and activity touch
// ABOUTME: Limiter counters and replay records live in the injected cache

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389/clawcouncil/internal/auth"
)

const maxRequestIDLen = 128

// requestID echoes X-Request-Id or assigns a fresh one.
func (a *API) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if id == "" || len(id) > maxRequestIDLen {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// ipRateLimit throttles every /api request per client address.
func (a *API) ipRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/api/") || a.opts.RequestsPerMinute < 0 {
			next.ServeHTTP(w, r)
			return
		}
		if a.allow(w, r, "rl:ip:"+clientIP(r), a.opts.RequestsPerMinute) {
			next.ServeHTTP(w, r)
		}
	})
}

// agentRateLimit throttles authenticated writes per agent. It must run after
// authentication.
func (a *API) agentRateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agentID := auth.AgentID(r.Context())
		if agentID == "" || a.opts.AgentWritesPerMinute < 0 {
			next.ServeHTTP(w, r)
			return
		}
		if a.allow(w, r, "rl:agent:"+agentID, a.opts.AgentWritesPerMinute) {
			next.ServeHTTP(w, r)
		}
	})
}

// allow counts the request against key and writes the limit headers. When the
// limit is exceeded it writes a 429 and returns false. Cache failures let the
// request through.
func (a *API) allow(w http.ResponseWriter, r *http.Request, key string, limit int) bool {
	count, resetAt, err := a.cache.Incr(r.Context(), key, rateWindow)
	if err != nil {
		a.logger.Warn("rate limit counter unavailable", "key", key, "error", err)
		return true
	}

	remaining := max(int64(limit)-count, 0)
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(limit))
	h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(int64(math.Ceil(float64(resetAt.UnixMilli())/1000)), 10))

	if count <= int64(limit) {
		return true
	}

	retryAfter := max(int64(math.Ceil(time.Until(resetAt).Seconds())), 1)
	h.Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	WriteError(w, r, http.StatusTooManyRequests, "Too many requests",
		fmt.Sprintf("Rate limit: %d requests per %ds. Retry after %ds.", limit, int(rateWindow.Seconds()), retryAfter))
	return false
}

// clientIP returns the host part of the peer address.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// replay is a stored response for an idempotency key
type replay struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// idempotency replays the stored response for a repeated POST carrying the
// same X-Idempotency-Key from the same caller.
func (a *API) idempotency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
		if r.Method != http.MethodPost || key == "" {
			next.ServeHTTP(w, r)
			return
		}

		scope, err := idempotencyScope(r)
		if err != nil {
			WriteError(w, r, http.StatusBadRequest, "invalid request body", "Bodies are limited to 64KB.")
			return
		}
		cacheKey := "idem:" + scope + ":" + key

		if raw, ok, err := a.cache.Get(r.Context(), cacheKey); err != nil {
			a.logger.Warn("idempotency lookup failed", "error", err)
		} else if ok {
			var stored replay
			if err := json.Unmarshal(raw, &stored); err == nil {
				w.Header().Set("X-Idempotent-Replayed", "true")
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(stored.Status)
				_, _ = w.Write(stored.Body)
				return
			}
		}

		rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if rec.status >= http.StatusInternalServerError || rec.status == http.StatusTooManyRequests || rec.body.Len() == 0 {
			return
		}
		raw, err := json.Marshal(replay{Status: rec.status, Body: bytes.TrimSpace(rec.body.Bytes())})
		if err != nil {
			return
		}
		if err := a.cache.Set(r.Context(), cacheKey, raw, a.opts.IdempotencyTTL); err != nil {
			a.logger.Warn("idempotency store failed", "error", err)
		}
	})
}

// idempotencyScope partitions replay records by caller. A credential is its
// own scope. Anonymous callers are scoped by peer address and by the exact
// request, so one client's reply never reaches another.
func idempotencyScope(r *http.Request) (string, error) {
	if credential := r.Header.Get("Authorization"); credential != "" {
		return auth.HashAPIKey(credential)[:16], nil
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return "", fmt.Errorf("body exceeds %d bytes", maxBodyBytes)
	}
	_ = r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(body))

	digest := auth.HashAPIKey(clientIP(r) + "\n" + r.Method + " " + r.URL.Path + "\n" + string(body))
	return "anon:" + digest[:16], nil
}

// recordingWriter tees the response so it can be stored for replay.
type recordingWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func (rw *recordingWriter) WriteHeader(status int) {
	if !rw.wroteHeader {
		rw.status = status
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(status)
}

func (rw *recordingWriter) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	rw.body.Write(b)
	return rw.ResponseWriter.Write(b)
}

// touch records agent activity. Failures are logged, never surfaced.
func (a *API) touch(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if agentID := auth.AgentID(r.Context()); agentID != "" {
			if err := a.council.Touch(r.Context(), agentID); err != nil {
				a.logger.Warn("touching agent failed", "agent_id", agentID, "error", err)
			}
		}
		next.ServeHTTP(w, r)
	})
}
