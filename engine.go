package sessionauth

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrEthical07/sessionauth/identity"
	internalaudit "github.com/MrEthical07/sessionauth/internal/audit"
	"github.com/MrEthical07/sessionauth/internal/flows"
	"github.com/MrEthical07/sessionauth/jwt"
)

// Engine runs the session lifecycle: signup, login with optional emailed
// 2FA, logout and token verification. Engine methods are safe for
// concurrent use once built by [Builder.Build]; the engine itself keeps no
// per-request state.
type Engine struct {
	config      Config
	users       UserDirectory
	challenges  ChallengeStore
	revocations RevocationStore
	notifier    Notifier
	tokens      *jwt.Manager
	logger      *slog.Logger
	audit       *internalaudit.Dispatcher
	metrics     *Metrics
	flow        flows.Service
	now         func() time.Time

	stopPruning func()
}

// Close stops background pruning and flushes buffered audit events. Stores
// passed in by the caller are not closed.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.stopPruning != nil {
		e.stopPruning()
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were dropped on a full buffer.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil {
		return (*Metrics)(nil).Snapshot()
	}
	return e.metrics.Snapshot()
}

// Signup registers email with password. It fails with ErrInvalidInput,
// ErrConflict or ErrUnexpected.
func (e *Engine) Signup(ctx context.Context, email, password string, requiresTwoFA bool) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.Signup(ctx, email, password, requiresTwoFA)
}

// Login checks credentials. Users without 2FA receive a session token;
// users with 2FA are mailed a code and receive a ChallengeID to complete
// with [Engine.VerifyChallenge]. Unknown email and wrong password both fail
// with ErrIncorrectCredentials.
func (e *Engine) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flow.Login(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return toLoginResult(res), nil
}

// VerifyChallenge completes a 2FA login. A challenge can be completed once;
// a newer login for the same email supersedes it.
func (e *Engine) VerifyChallenge(ctx context.Context, email, challengeID, code string) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flow.VerifyChallenge(ctx, email, challengeID, code)
	if err != nil {
		return nil, err
	}
	return toLoginResult(res), nil
}

// Logout revokes token until it would have expired. It fails with
// ErrMissingToken, ErrInvalidToken or ErrUnexpected.
func (e *Engine) Logout(ctx context.Context, token string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.flow.Logout(ctx, token)
}

// VerifyToken returns the claims of a live token. Every rejection is
// ErrInvalidToken; the cause (ErrRevoked, ErrTokenExpired,
// ErrTokenMalformed or a store failure) is attached for errors.Is.
func (e *Engine) VerifyToken(ctx context.Context, token string) (*Claims, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	res, err := e.flow.VerifyToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return res.Claims, nil
}

func (e *Engine) ready() bool {
	return e != nil && e.flow.Initialized()
}

func toLoginResult(res *flows.LoginResult) *LoginResult {
	if res.ChallengeIssued() {
		return &LoginResult{Status: StatusChallengeIssued, ChallengeID: res.ChallengeID}
	}
	out := &LoginResult{Status: StatusSessionIssued, Token: res.Token}
	if res.Claims != nil {
		out.ExpiresAt = res.Claims.Expiry()
	}
	return out
}

func (e *Engine) flowDeps() flows.Deps {
	return flows.Deps{
		Users:            e.users,
		Challenges:       e.challenges,
		Revocations:      e.revocations,
		IssueToken:       e.tokens.Issue,
		ParseToken:       e.tokens.Parse,
		Notify:           e.notifier.Send,
		Now:              e.now,
		ChallengeSubject: e.config.Challenge.MailSubject,

		Fail:      newError,
		LogError:  e.logError,
		MetricInc: func(id int) { e.metrics.Inc(MetricID(id)) },
		Observe:   func(id int, d time.Duration) { e.metrics.Observe(MetricID(id), d) },
		EmitAudit: e.emitAudit,

		Metrics: flows.Metrics{
			SignupSuccess:      int(MetricSignupSuccess),
			SignupConflict:     int(MetricSignupConflict),
			LoginSuccess:       int(MetricLoginSuccess),
			LoginFailure:       int(MetricLoginFailure),
			ChallengeIssued:    int(MetricChallengeIssued),
			ChallengeVerified:  int(MetricChallengeVerified),
			ChallengeFailed:    int(MetricChallengeFailed),
			Logout:             int(MetricLogout),
			TokenValid:         int(MetricTokenValid),
			TokenInvalid:       int(MetricTokenInvalid),
			UnexpectedError:    int(MetricUnexpectedError),
			VerifyTokenLatency: int(MetricVerifyTokenLatency),
		},
		Events: flows.Events{
			Signup:        AuditSignup,
			LoginSuccess:  AuditLoginSuccess,
			LoginFailure:  AuditLoginFailure,
			MFARequired:   AuditMFARequired,
			MFASuccess:    AuditMFASuccess,
			MFAFailure:    AuditMFAFailure,
			Logout:        AuditLogout,
			TokenRejected: AuditTokenRejected,
		},
		Errors: flows.Errors{
			InvalidInput:         ErrInvalidInput,
			Conflict:             ErrConflict,
			IncorrectCredentials: ErrIncorrectCredentials,
			MissingToken:         ErrMissingToken,
			InvalidToken:         ErrInvalidToken,
			Revoked:              ErrRevoked,
			MalformedInput:       ErrMalformedInput,
			Unexpected:           ErrUnexpected,
		},
	}
}

func (e *Engine) logError(ctx context.Context, op string, err error) {
	e.logger.ErrorContext(ctx, "operation failed", "op", op, "error", err)
}

func (e *Engine) emitAudit(ctx context.Context, event string, subject identity.Email, success bool, err error) {
	e.audit.Record(ctx, event, subject, success, err)
}
