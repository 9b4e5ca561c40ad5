// Package sessionauth issues, challenges and revokes authenticated sessions
// for an email/password user base, with an optional emailed one-time code
// as a second factor.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// sessionauth is the public surface. It exposes [Engine], [Builder], [Config], the error
// kinds and value types (LoginResult, Claims, MetricsSnapshot). Flow orchestration, store
// backends and audit dispatch live under internal/; storage contracts live in package store
// so any backend can be plugged in.
//
// # Error contract
//
// Every failure is a [*Error] whose Kind is one of the Err* kinds in this package. The
// underlying cause is attached for errors.Is and logging but never appears in Error(),
// and unknown email and wrong password produce identical errors.
//
// # What this package must NOT do
//
//   - Log or return plaintext passwords, 2FA codes or tokens; emails are logged redacted.
//   - Hold per-request state between calls.
//   - Import any sub-package that re-imports sessionauth (no import cycles).
package sessionauth
