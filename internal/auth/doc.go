// Package auth identifies the agent behind an HTTP request.
//
// # Credentials
//
// Requests carry a bearer credential in the Authorization header:
//
//   - API keys: "cc_" followed by 48 hex characters, issued once at
//     registration. Only the SHA-256 of the key is stored; lookup hashes the
//     presented key and matches it against agents.api_key_hash.
//
//   - JWT session tokens: HS256 tokens whose sub claim is an agent id, issued
//     by POST /api/agents/token when auth.jwt_secret is configured.
//
// # Middleware
//
//	authn := auth.NewAuthenticator(store, verifier, writeError)
//	mux.Handle("POST /api/vote", authn.RequireAgent(voteHandler))
//	mux.Handle("GET /api/round/current", authn.OptionalAgent(roundHandler))
//
// Handlers read the caller with FromContext or AgentID.
package auth
