// ABOUTME: JSON envelope rendering and council error to HTTP status mapping
// ABOUTME: Every response carries success, data or error+hint, and the request id

package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/2389/clawcouncil/internal/council"
)

const maxBodyBytes = 64 << 10

// envelope is the body of every API response.
type envelope struct {
	Success   bool   `json:"success"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
	Hint      string `json:"hint,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request by the request id middleware.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, r *http.Request, data any) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, RequestID: RequestID(r.Context())})
}

// WriteError renders a failure envelope. Its signature matches auth.ErrorWriter.
func WriteError(w http.ResponseWriter, r *http.Request, status int, message, hint string) {
	writeJSON(w, status, envelope{
		Success:   false,
		Error:     message,
		Hint:      hint,
		RequestID: RequestID(r.Context()),
	})
}

// statusForKind maps a rejection kind to its HTTP status.
func statusForKind(k council.Kind) int {
	switch k {
	case council.KindValidation:
		return http.StatusBadRequest
	case council.KindNotFound:
		return http.StatusNotFound
	case council.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeCouncilError renders a council rejection with its message and hint.
// Anything else is logged and hidden behind a generic 500.
func writeCouncilError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if ce, ok := council.AsError(err); ok {
		WriteError(w, r, statusForKind(ce.Kind), ce.Message, ce.Hint)
		return
	}
	if errors.Is(err, context.Canceled) {
		return
	}
	logger.Error("request failed",
		"error", err,
		"method", r.Method,
		"path", r.URL.Path,
		"request_id", RequestID(r.Context()),
	)
	WriteError(w, r, http.StatusInternalServerError, "internal error", "Try again shortly.")
}

// decodeBody reads a JSON object into dst. An empty body leaves dst zeroed so
// the operation's own validation reports what is missing.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	WriteError(w, r, http.StatusBadRequest, "invalid JSON body", "Send a JSON object with Content-Type: application/json.")
	return false
}

// millis renders a timestamp as epoch milliseconds.
func millis(t time.Time) int64 {
	return t.UnixMilli()
}

// nullable turns an empty string into a JSON null.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
