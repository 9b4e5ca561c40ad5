// Package store defines the storage capabilities the session engine depends
// on, and the sentinel errors every backend must report.
//
// Backends live elsewhere: in-memory and Redis implementations in
// internal/stores, PostgreSQL in internal/stores/postgres. Any type that
// satisfies these interfaces can be passed to the engine builder.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/sessionauth/identity"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrChallengeNotFound  = errors.New("challenge not found")
	// ErrUnavailable wraps backend I/O failures.
	ErrUnavailable = errors.New("store backend unavailable")
)

// User is a directory record. PasswordHash is an encoded hash, never plaintext.
type User struct {
	Email         identity.Email
	PasswordHash  string
	RequiresTwoFA bool
}

// NewUser is the signup input: the directory hashes Password on Insert.
type NewUser struct {
	Email         identity.Email
	Password      identity.Password
	RequiresTwoFA bool
}

// UserDirectory stores user records keyed by email.
type UserDirectory interface {
	// Insert fails with ErrUserExists when the email is taken.
	Insert(ctx context.Context, user NewUser) error
	// Get fails with ErrUserNotFound.
	Get(ctx context.Context, email identity.Email) (User, error)
	// Validate fails with ErrUserNotFound or ErrInvalidCredentials.
	Validate(ctx context.Context, email identity.Email, password identity.Password) error
}

// ChallengeStore holds at most one live 2FA challenge per email.
type ChallengeStore interface {
	// Put replaces any existing challenge for email.
	Put(ctx context.Context, email identity.Email, id identity.ChallengeID, code identity.TwoFACode) error
	// Get fails with ErrChallengeNotFound when absent or expired.
	Get(ctx context.Context, email identity.Email) (identity.ChallengeID, identity.TwoFACode, error)
	// Remove deletes the challenge for email only while it still carries id,
	// and reports whether this call deleted it. At most one concurrent caller
	// observes true for a given challenge.
	Remove(ctx context.Context, email identity.Email, id identity.ChallengeID) (bool, error)
}

// RevocationStore remembers revoked tokens until their natural expiry.
type RevocationStore interface {
	// Ban is idempotent. A non-positive ttl is a no-op.
	Ban(ctx context.Context, token string, ttl time.Duration) error
	// IsBanned has no side effects.
	IsBanned(ctx context.Context, token string) (bool, error)
}
