package flows

import (
	"context"
	"crypto/subtle"
	"errors"

	"github.com/MrEthical07/sessionauth/identity"
	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/store"
)

const (
	opLogin           = "login"
	opVerifyChallenge = "verify_challenge"

	// DefaultChallengeSubject is the subject line of the 2FA mail.
	DefaultChallengeSubject = "2FA Code"
)

// LoginResult is the flow-local login response shape. Exactly one of Token
// or ChallengeID is set.
type LoginResult struct {
	Token       string
	Claims      *jwt.Claims
	ChallengeID identity.ChallengeID
}

// ChallengeIssued reports whether a second factor is pending.
func (r *LoginResult) ChallengeIssued() bool {
	return r != nil && !r.ChallengeID.IsZero()
}

// ChallengeBody renders the 2FA mail body for code.
func ChallengeBody(code identity.TwoFACode) string {
	return "Your login code is: " + code.String()
}

// RunLogin verifies credentials and either issues a session token or starts
// a 2FA challenge. Unknown email and wrong password fail identically.
func RunLogin(ctx context.Context, rawEmail, rawPassword string, d Deps) (*LoginResult, error) {
	email, err := identity.NewEmail(rawEmail)
	if err != nil {
		return nil, d.Fail(d.Errors.InvalidInput, opLogin, err)
	}
	password, err := identity.NewPassword(rawPassword)
	if err != nil {
		return nil, d.Fail(d.Errors.InvalidInput, opLogin, err)
	}

	if err := d.Users.Validate(ctx, email, password); err != nil {
		if isCredentialMiss(err) {
			d.MetricInc(d.Metrics.LoginFailure)
			d.EmitAudit(ctx, d.Events.LoginFailure, email, false, d.Errors.IncorrectCredentials)
			// No cause: callers must not tell a missing user from a bad password.
			return nil, d.Fail(d.Errors.IncorrectCredentials, opLogin, nil)
		}
		return nil, d.unexpected(ctx, opLogin, err)
	}

	user, err := d.Users.Get(ctx, email)
	if err != nil {
		if isCredentialMiss(err) {
			d.MetricInc(d.Metrics.LoginFailure)
			return nil, d.Fail(d.Errors.IncorrectCredentials, opLogin, nil)
		}
		return nil, d.unexpected(ctx, opLogin, err)
	}

	if !user.RequiresTwoFA {
		return issueSession(ctx, opLogin, email, d)
	}
	return startChallenge(ctx, email, d)
}

func startChallenge(ctx context.Context, email identity.Email, d Deps) (*LoginResult, error) {
	id, err := d.NewChallengeID()
	if err != nil {
		return nil, d.unexpected(ctx, opLogin, err)
	}
	code, err := d.NewTwoFACode()
	if err != nil {
		return nil, d.unexpected(ctx, opLogin, err)
	}

	if err := d.Challenges.Put(ctx, email, id, code); err != nil {
		return nil, d.unexpected(ctx, opLogin, err)
	}
	if err := d.Notify(ctx, email, d.ChallengeSubject, ChallengeBody(code)); err != nil {
		return nil, d.unexpected(ctx, opLogin, err)
	}

	d.MetricInc(d.Metrics.ChallengeIssued)
	d.EmitAudit(ctx, d.Events.MFARequired, email, true, nil)
	return &LoginResult{ChallengeID: id}, nil
}

// RunVerifyChallenge completes a pending 2FA login. The record is consumed
// only on success.
func RunVerifyChallenge(ctx context.Context, rawEmail, rawChallengeID, rawCode string, d Deps) (*LoginResult, error) {
	email, err := identity.NewEmail(rawEmail)
	if err != nil {
		return nil, d.Fail(d.Errors.InvalidInput, opVerifyChallenge, err)
	}
	challengeID, err := identity.ParseChallengeID(rawChallengeID)
	if err != nil {
		return nil, d.Fail(d.Errors.InvalidInput, opVerifyChallenge, err)
	}
	code, err := identity.ParseTwoFACode(rawCode)
	if err != nil {
		return nil, d.Fail(d.Errors.InvalidInput, opVerifyChallenge, err)
	}

	storedID, storedCode, err := d.Challenges.Get(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrChallengeNotFound) {
			d.MetricInc(d.Metrics.ChallengeFailed)
			d.EmitAudit(ctx, d.Events.MFAFailure, email, false, d.Errors.IncorrectCredentials)
			return nil, d.Fail(d.Errors.IncorrectCredentials, opVerifyChallenge, nil)
		}
		return nil, d.unexpected(ctx, opVerifyChallenge, err)
	}

	idMatch := subtle.ConstantTimeCompare([]byte(storedID.String()), []byte(challengeID.String()))
	codeMatch := subtle.ConstantTimeCompare([]byte(storedCode.String()), []byte(code.String()))
	if idMatch&codeMatch != 1 {
		d.MetricInc(d.Metrics.ChallengeFailed)
		d.EmitAudit(ctx, d.Events.MFAFailure, email, false, d.Errors.IncorrectCredentials)
		return nil, d.Fail(d.Errors.IncorrectCredentials, opVerifyChallenge, nil)
	}

	token, claims, err := d.IssueToken(email.String())
	if err != nil {
		return nil, d.unexpected(ctx, opVerifyChallenge, err)
	}
	// A token that cannot be paired with consuming the challenge is dropped.
	deleted, err := d.Challenges.Remove(ctx, email, storedID)
	if err != nil {
		return nil, d.unexpected(ctx, opVerifyChallenge, err)
	}
	if !deleted {
		d.MetricInc(d.Metrics.ChallengeFailed)
		d.EmitAudit(ctx, d.Events.MFAFailure, email, false, d.Errors.IncorrectCredentials)
		return nil, d.Fail(d.Errors.IncorrectCredentials, opVerifyChallenge, nil)
	}

	res := sessionIssued(ctx, email, token, claims, d)
	d.MetricInc(d.Metrics.ChallengeVerified)
	d.EmitAudit(ctx, d.Events.MFASuccess, email, true, nil)
	return res, nil
}

func issueSession(ctx context.Context, op string, email identity.Email, d Deps) (*LoginResult, error) {
	token, claims, err := d.IssueToken(email.String())
	if err != nil {
		return nil, d.unexpected(ctx, op, err)
	}
	return sessionIssued(ctx, email, token, claims, d), nil
}

func sessionIssued(ctx context.Context, email identity.Email, token string, claims *jwt.Claims, d Deps) *LoginResult {
	d.MetricInc(d.Metrics.LoginSuccess)
	d.EmitAudit(ctx, d.Events.LoginSuccess, email, true, nil)
	return &LoginResult{Token: token, Claims: claims}
}

func isCredentialMiss(err error) bool {
	return errors.Is(err, store.ErrUserNotFound) || errors.Is(err, store.ErrInvalidCredentials)
}
