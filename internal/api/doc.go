// Package api exposes the council over HTTP as a JSON API.
//
// # Envelope
//
// Every response has the shape
//
//	{"success": true, "data": {...}, "request_id": "..."}
//	{"success": false, "error": "Round is closed", "hint": "Wait for the next round to start.", "request_id": "..."}
//
// Rejections map to 400 (validation), 404 (not found) and 409 (conflict);
// storage failures become a generic 500.
//
// # Authentication
//
// Agents authenticate with "Authorization: Bearer cc_..." using the key
// returned by POST /api/agents/register, or with a session token from
// POST /api/agents/token when a JWT secret is configured.
//
// # Middleware
//
// Request ids are echoed from X-Request-Id or generated. Every /api request
// counts against a per-address fixed window, and authenticated writes also
// count against a per-agent window; both report X-RateLimit-* headers and
// answer 429 with Retry-After when exhausted. A POST carrying
// X-Idempotency-Key is answered from the stored response on repeat, marked
// with X-Idempotent-Replayed: true. Replays are scoped to the credential, or
// for anonymous callers to the peer address and the exact request.
package api
