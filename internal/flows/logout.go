package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/MrEthical07/sessionauth/identity"
	"github.com/MrEthical07/sessionauth/jwt"
)

const (
	opLogout      = "logout"
	opVerifyToken = "verify_token"
)

// VerifyResult carries the claims of a live token.
type VerifyResult struct {
	Claims *jwt.Claims
}

// RunLogout revokes token for the rest of its lifetime.
func RunLogout(ctx context.Context, token string, d Deps) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return d.Fail(d.Errors.MissingToken, opLogout, nil)
	}

	claims, err := verify(ctx, token, d)
	if err != nil {
		d.noteRejection(ctx, opLogout, err)
		return d.Fail(d.Errors.InvalidToken, opLogout, err)
	}

	ttl := claims.Expiry().Sub(d.Now())
	if err := d.Revocations.Ban(ctx, token, ttl); err != nil {
		return d.unexpected(ctx, opLogout, err)
	}

	d.MetricInc(d.Metrics.Logout)
	d.EmitAudit(ctx, d.Events.Logout, subjectOf(claims), true, nil)
	return nil
}

// RunVerifyToken reports whether token is live: not revoked, correctly
// signed and unexpired.
func RunVerifyToken(ctx context.Context, token string, d Deps) (*VerifyResult, error) {
	start := d.Now()
	defer func() {
		d.Observe(d.Metrics.VerifyTokenLatency, d.Now().Sub(start))
	}()

	token = strings.TrimSpace(token)
	if token == "" {
		return nil, d.Fail(d.Errors.MalformedInput, opVerifyToken, nil)
	}

	claims, err := verify(ctx, token, d)
	if err != nil {
		d.noteRejection(ctx, opVerifyToken, err)
		return nil, d.Fail(d.Errors.InvalidToken, opVerifyToken, err)
	}

	d.MetricInc(d.Metrics.TokenValid)
	return &VerifyResult{Claims: claims}, nil
}

// verify checks revocation before the signature, so a banned token is
// rejected as revoked even if it has since expired or been tampered with.
// A revocation lookup failure rejects the token.
func verify(ctx context.Context, token string, d Deps) (*jwt.Claims, error) {
	banned, err := d.Revocations.IsBanned(ctx, token)
	if err != nil {
		return nil, err
	}
	if banned {
		return nil, d.Errors.Revoked
	}
	return d.ParseToken(token)
}

func (d Deps) noteRejection(ctx context.Context, op string, err error) {
	if !isTokenFault(err, d) {
		d.LogError(ctx, op, err)
		d.MetricInc(d.Metrics.UnexpectedError)
	}
	d.MetricInc(d.Metrics.TokenInvalid)
	d.EmitAudit(ctx, d.Events.TokenRejected, identity.Email{}, false, err)
}

func isTokenFault(err error, d Deps) bool {
	return errors.Is(err, d.Errors.Revoked) ||
		errors.Is(err, jwt.ErrExpired) ||
		errors.Is(err, jwt.ErrMalformed)
}

func subjectOf(claims *jwt.Claims) identity.Email {
	email, err := identity.NewEmail(claims.Email())
	if err != nil {
		return identity.Email{}
	}
	return email
}
