package flows

import (
	"context"
	"errors"

	"github.com/MrEthical07/sessionauth/identity"
	"github.com/MrEthical07/sessionauth/store"
)

const opSignup = "signup"

// RunSignup validates the credentials and inserts a new directory record.
func RunSignup(ctx context.Context, rawEmail, rawPassword string, requiresTwoFA bool, d Deps) error {
	email, err := identity.NewEmail(rawEmail)
	if err != nil {
		return d.Fail(d.Errors.InvalidInput, opSignup, err)
	}
	password, err := identity.NewPassword(rawPassword)
	if err != nil {
		return d.Fail(d.Errors.InvalidInput, opSignup, err)
	}

	err = d.Users.Insert(ctx, store.NewUser{
		Email:         email,
		Password:      password,
		RequiresTwoFA: requiresTwoFA,
	})
	switch {
	case err == nil:
		d.MetricInc(d.Metrics.SignupSuccess)
		d.EmitAudit(ctx, d.Events.Signup, email, true, nil)
		return nil
	case errors.Is(err, store.ErrUserExists):
		d.MetricInc(d.Metrics.SignupConflict)
		d.EmitAudit(ctx, d.Events.Signup, email, false, d.Errors.Conflict)
		return d.Fail(d.Errors.Conflict, opSignup, err)
	default:
		d.EmitAudit(ctx, d.Events.Signup, email, false, d.Errors.Unexpected)
		return d.unexpected(ctx, opSignup, err)
	}
}
