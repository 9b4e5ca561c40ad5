// Package httpapi serves the sessionauth engine over HTTP with a chi router.
//
// Routes: POST /signup, /login, /verify-2fa, /logout and /verify-token,
// plus GET /me (session required), /healthz and /metrics. Session tokens are
// carried in the "jwt" cookie; /logout and /me also accept a bearer header.
//
// Request bodies are JSON. A body that does not decode or lacks a field is
// rejected with 422; fields that decode but fail format rules yield 400.
// Error bodies are {"error": "..."} and never include internal causes.
package httpapi
