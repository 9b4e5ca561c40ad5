// Package stores provides the in-memory and Redis backends for the store
// capabilities: user directory (memory only), 2FA challenges and token
// revocations.
//
// # Design
//
// Memory backends guard a map with a sync.RWMutex: lookups take the read
// lock, mutations the write lock, and expiry is checked on read. Prune plus
// StartPruning keep the maps from outgrowing live records.
//
// Redis backends rely on native key TTLs. Challenge records are stored in a
// versioned binary encoding under "two_fa_code:<email>"; revocations are
// stored under "banned_token:<sha256(token)>". Backend failures are wrapped
// with store.ErrUnavailable.
//
// # What this package must NOT do
//
//   - Import the root sessionauth package.
//   - Log or expose codes, passwords or raw tokens.
//   - Make authentication decisions; comparing challenges is the engine's job.
package stores
