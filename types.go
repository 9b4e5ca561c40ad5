package sessionauth

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/MrEthical07/sessionauth/identity"
	internalaudit "github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/store"
)

// LoginStatus tells the caller which half of a login result is populated.
type LoginStatus uint8

const (
	// StatusSessionIssued means Token and ExpiresAt are set.
	StatusSessionIssued LoginStatus = iota + 1
	// StatusChallengeIssued means a 2FA code was mailed and ChallengeID is set.
	StatusChallengeIssued
)

func (s LoginStatus) String() string {
	switch s {
	case StatusSessionIssued:
		return "session_issued"
	case StatusChallengeIssued:
		return "challenge_issued"
	default:
		return "unknown"
	}
}

// LoginResult is returned by [Engine.Login] and [Engine.VerifyChallenge].
// The 2FA code itself is never part of a result.
type LoginResult struct {
	Status      LoginStatus
	Token       string
	ExpiresAt   time.Time
	ChallengeID identity.ChallengeID
}

// Claims are the verified claims of a live session token.
type Claims = jwt.Claims

// Notifier delivers out-of-band messages such as the 2FA code mail.
type Notifier interface {
	Send(ctx context.Context, to identity.Email, subject, body string) error
}

// Storage capabilities accepted by the [Builder].
type (
	UserDirectory   = store.UserDirectory
	ChallengeStore  = store.ChallengeStore
	RevocationStore = store.RevocationStore
)

// AuditEvent is a structured audit record emitted by the engine.
type AuditEvent = internalaudit.Event

// AuditSink receives [AuditEvent] values from the engine's audit dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink is an [AuditSink] that silently discards all events.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink is a buffered channel-based [AuditSink].
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink is an [AuditSink] that writes JSON-encoded events to an
// [io.Writer].
type JSONWriterSink = internalaudit.JSONWriterSink

// LogSink is an [AuditSink] that writes events through slog.
type LogSink = internalaudit.LogSink

// Audit event types.
const (
	AuditSignup        = internalaudit.EventSignup
	AuditLoginSuccess  = internalaudit.EventLoginSuccess
	AuditLoginFailure  = internalaudit.EventLoginFailure
	AuditMFARequired   = internalaudit.EventMFARequired
	AuditMFASuccess    = internalaudit.EventMFASuccess
	AuditMFAFailure    = internalaudit.EventMFAFailure
	AuditLogout        = internalaudit.EventLogout
	AuditTokenRejected = internalaudit.EventTokenRejected
)

// NewChannelSink creates a [ChannelSink] with the given buffer capacity.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink creates a [JSONWriterSink] that writes to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogSink creates a [LogSink]; a nil logger means slog.Default().
func NewLogSink(logger *slog.Logger) *LogSink {
	return internalaudit.NewLogSink(logger)
}
