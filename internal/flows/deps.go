package flows

import (
	"context"
	"time"

	"github.com/MrEthical07/sessionauth/identity"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/store"
)

// Metrics carries the host metric IDs the flows increment.
type Metrics struct {
	SignupSuccess      int
	SignupConflict     int
	LoginSuccess       int
	LoginFailure       int
	ChallengeIssued    int
	ChallengeVerified  int
	ChallengeFailed    int
	Logout             int
	TokenValid         int
	TokenInvalid       int
	UnexpectedError    int
	VerifyTokenLatency int
}

// Events carries the audit event names the flows emit.
type Events struct {
	Signup        string
	LoginSuccess  string
	LoginFailure  string
	MFARequired   string
	MFASuccess    string
	MFAFailure    string
	Logout        string
	TokenRejected string
}

// Errors carries host-level error kinds. Fail wraps one of them together
// with the underlying cause.
type Errors struct {
	InvalidInput         error
	Conflict             error
	IncorrectCredentials error
	MissingToken         error
	InvalidToken         error
	Revoked              error
	MalformedInput       error
	Unexpected           error
}

// Deps is the dependency set the root engine builds once and hands to every
// flow. Store fields are required; func fields default to no-ops.
type Deps struct {
	Users       store.UserDirectory
	Challenges  store.ChallengeStore
	Revocations store.RevocationStore

	IssueToken func(subject string) (string, *jwt.Claims, error)
	ParseToken func(token string) (*jwt.Claims, error)
	Notify     func(ctx context.Context, to identity.Email, subject, body string) error

	NewChallengeID   func() (identity.ChallengeID, error)
	NewTwoFACode     func() (identity.TwoFACode, error)
	Now              func() time.Time
	ChallengeSubject string

	Fail      func(kind error, op string, cause error) error
	LogError  func(ctx context.Context, op string, err error)
	MetricInc func(int)
	Observe   func(int, time.Duration)
	EmitAudit func(ctx context.Context, event string, subject identity.Email, success bool, err error)

	Metrics Metrics
	Events  Events
	Errors  Errors
}

func (d Deps) withDefaults() Deps {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.NewChallengeID == nil {
		d.NewChallengeID = identity.NewChallengeID
	}
	if d.NewTwoFACode == nil {
		d.NewTwoFACode = identity.NewTwoFACode
	}
	if d.ChallengeSubject == "" {
		d.ChallengeSubject = DefaultChallengeSubject
	}
	if d.Fail == nil {
		d.Fail = func(kind error, _ string, _ error) error { return kind }
	}
	if d.LogError == nil {
		d.LogError = func(context.Context, string, error) {}
	}
	if d.MetricInc == nil {
		d.MetricInc = func(int) {}
	}
	if d.Observe == nil {
		d.Observe = func(int, time.Duration) {}
	}
	if d.EmitAudit == nil {
		d.EmitAudit = func(context.Context, string, identity.Email, bool, error) {}
	}
	return d
}

// unexpected logs a server-side failure and wraps it as an Unexpected kind.
func (d Deps) unexpected(ctx context.Context, op string, err error) error {
	d.LogError(ctx, op, err)
	d.MetricInc(d.Metrics.UnexpectedError)
	return d.Fail(d.Errors.Unexpected, op, err)
}
