package flows

import "context"

// Service is the flow runner built once by the root engine.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps.withDefaults()}
}

// Initialized reports whether the service has been wired with its stores
// and token functions.
func (s Service) Initialized() bool {
	d := s.deps
	return d.Users != nil && d.Challenges != nil && d.Revocations != nil &&
		d.IssueToken != nil && d.ParseToken != nil && d.Notify != nil
}

func (s Service) Signup(ctx context.Context, email, password string, requiresTwoFA bool) error {
	return RunSignup(ctx, email, password, requiresTwoFA, s.deps)
}

func (s Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	return RunLogin(ctx, email, password, s.deps)
}

func (s Service) VerifyChallenge(ctx context.Context, email, challengeID, code string) (*LoginResult, error) {
	return RunVerifyChallenge(ctx, email, challengeID, code, s.deps)
}

func (s Service) Logout(ctx context.Context, token string) error {
	return RunLogout(ctx, token, s.deps)
}

func (s Service) VerifyToken(ctx context.Context, token string) (*VerifyResult, error) {
	return RunVerifyToken(ctx, token, s.deps)
}
