// Package flows contains the orchestrators behind every Engine operation.
//
// Each flow function (RunSignup, RunLogin, RunVerifyChallenge, RunLogout,
// RunVerifyToken) accepts a Deps value and returns results without side
// effects beyond those dependencies. The root engine builds Deps once and
// delegates through Service.
//
// # Architecture boundaries
//
// Flows coordinate the user directory, challenge store, revocation store, token
// manager and notifier. They do NOT own any of these resources; ownership
// stays with the Engine. Host error kinds, metric IDs and audit event names
// arrive through Deps so this package never imports the root package.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Import sessionauth (to avoid import cycles).
//   - Log or return passwords, 2FA codes or raw tokens.
package flows
