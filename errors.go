package sessionauth

import (
	"errors"

	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/store"
)

// Error kinds returned by Engine operations. Compare with errors.Is.
var (
	// ErrInvalidInput reports an email or password that fails format rules.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict reports a signup for an email that is already registered.
	ErrConflict = errors.New("user already exists")
	// ErrIncorrectCredentials covers unknown email, wrong password and failed
	// 2FA challenges alike.
	ErrIncorrectCredentials = errors.New("incorrect credentials")
	// ErrMissingToken reports a logout without a token.
	ErrMissingToken = errors.New("missing token")
	// ErrInvalidToken reports a revoked, expired or malformed token.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRevoked is the cause attached to ErrInvalidToken for banned tokens.
	ErrRevoked = errors.New("token revoked")
	// ErrMalformedInput reports a blank token submitted for verification.
	ErrMalformedInput = errors.New("malformed input")
	// ErrUnexpected covers storage, notifier and signing failures.
	ErrUnexpected = errors.New("unexpected error")
	// ErrEngineNotReady is returned by a zero or nil Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// Store and token sentinels, re-exported so callers can match causes
// without importing the sub-packages.
var (
	ErrUserExists         = store.ErrUserExists
	ErrUserNotFound       = store.ErrUserNotFound
	ErrInvalidCredentials = store.ErrInvalidCredentials
	ErrChallengeNotFound  = store.ErrChallengeNotFound
	ErrStoreUnavailable   = store.ErrUnavailable
	ErrTokenExpired       = jwt.ErrExpired
	ErrTokenMalformed     = jwt.ErrMalformed
)

// Error pairs an error kind with the operation and the underlying cause.
// errors.Is matches both Kind and Cause; Error renders only the kind, so
// causes never leak into responses built from err.Error().
type Error struct {
	Kind  error
	Op    string
	Cause error
}

func (e *Error) Error() string {
	if e == nil || e.Kind == nil {
		return ErrUnexpected.Error()
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	if e.Cause == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Cause}
}

func newError(kind error, op string, cause error) error {
	return &Error{Kind: kind, Op: op, Cause: cause}
}

// Kind returns the engine error kind carried by err, or nil when err was
// not produced by an Engine operation.
func Kind(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if errors.Is(err, ErrEngineNotReady) {
		return ErrEngineNotReady
	}
	return nil
}
