// Package middleware exposes HTTP middleware that guards routes behind a live
// sessionauth session.
//
// [RequireSession] reads the token from the "jwt" cookie or the Authorization
// bearer header, calls Engine.VerifyToken, and injects the verified claims
// into the request context.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly (delegates to Engine).
//   - Access stores (Engine handles I/O).
//   - Make authorization decisions beyond pass/reject from Engine.VerifyToken.
package middleware
