// ABOUTME: HTTP middleware resolving a bearer credential to an agent
// ABOUTME: Accepts cc_ API keys (hash lookup) or HS256 JWTs whose sub is an agent id

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/2389/clawcouncil/internal/store"
)

// ErrUnauthenticated is returned when a credential does not resolve to an agent
var ErrUnauthenticated = errors.New("invalid credentials")

// AgentLookup is the slice of the store needed to resolve credentials
type AgentLookup interface {
	GetAgent(ctx context.Context, id string) (*store.Agent, error)
	GetAgentByKeyHash(ctx context.Context, keyHash string) (*store.Agent, error)
}

// ErrorWriter renders an authentication failure
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, message, hint string)

// Authenticator is the identity oracle: credential in, agent out.
type Authenticator struct {
	agents   AgentLookup
	verifier TokenVerifier // nil disables JWT credentials
	onError  ErrorWriter
	logger   *slog.Logger
}

// NewAuthenticator creates an Authenticator. verifier may be nil.
func NewAuthenticator(agents AgentLookup, verifier TokenVerifier, onError ErrorWriter) *Authenticator {
	if onError == nil {
		onError = writeJSONError
	}
	return &Authenticator{
		agents:   agents,
		verifier: verifier,
		onError:  onError,
		logger:   slog.Default().With("component", "auth"),
	}
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Authenticate resolves a credential to an AuthContext
func (a *Authenticator) Authenticate(ctx context.Context, credential string) (*AuthContext, error) {
	if IsAPIKey(credential) {
		agent, err := a.agents.GetAgentByKeyHash(ctx, HashAPIKey(credential))
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrUnauthenticated
		}
		if err != nil {
			return nil, fmt.Errorf("looking up api key: %w", err)
		}
		return &AuthContext{AgentID: agent.ID, AgentName: agent.Name, Method: MethodAPIKey}, nil
	}

	if a.verifier == nil {
		return nil, ErrUnauthenticated
	}
	agentID, err := a.verifier.Verify(credential)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	agent, err := a.agents.GetAgent(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrUnauthenticated
	}
	if err != nil {
		return nil, fmt.Errorf("looking up token subject: %w", err)
	}
	return &AuthContext{AgentID: agent.ID, AgentName: agent.Name, Method: MethodJWT}, nil
}

// RequireAgent rejects requests without a valid credential and attaches the
// AuthContext for the rest.
func (a *Authenticator) RequireAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
		if errMsg != "" {
			a.onError(w, r, http.StatusUnauthorized, "Unauthorized: "+errMsg,
				"Include 'Authorization: Bearer YOUR_API_KEY' header.")
			return
		}

		authCtx, err := a.Authenticate(r.Context(), token)
		if errors.Is(err, ErrUnauthenticated) {
			a.onError(w, r, http.StatusUnauthorized, "Invalid API key",
				"Register at POST /api/agents/register to get a valid API key.")
			return
		}
		if err != nil {
			a.logger.Error("authentication failed", "error", err)
			a.onError(w, r, http.StatusInternalServerError, "internal error", "")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
	})
}

// OptionalAgent attaches an AuthContext when a valid credential is present and
// otherwise continues as anonymous.
func (a *Authenticator) OptionalAgent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
		if errMsg != "" {
			next.ServeHTTP(w, r)
			return
		}

		authCtx, err := a.Authenticate(r.Context(), token)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
	})
}

func writeJSONError(w http.ResponseWriter, _ *http.Request, status int, message, _ string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"success":false,"error":%q}`, message)
}
