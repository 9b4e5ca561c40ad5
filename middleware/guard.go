package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/MrEthical07/sessionauth"
)

// CookieName is the session cookie set by the HTTP API.
const CookieName = "jwt"

type claimsContextKey struct{}

// TokenVerifier is satisfied by *sessionauth.Engine.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*sessionauth.Claims, error)
}

func ClaimsFromContext(ctx context.Context) (*sessionauth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey{}).(*sessionauth.Claims)
	return claims, ok
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *sessionauth.Claims) context.Context {
	return context.WithValue(ctx, claimsContextKey{}, claims)
}

// RequireSession rejects requests without a live session token with 401 and
// injects the verified claims into the request context otherwise.
func RequireSession(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := TokenFromRequest(r)
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := verifier.VerifyToken(r.Context(), token)
			if err != nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// TokenFromRequest reads the session cookie, falling back to an
// Authorization bearer header.
func TokenFromRequest(r *http.Request) (string, bool) {
	if c, err := r.Cookie(CookieName); err == nil && strings.TrimSpace(c.Value) != "" {
		return c.Value, true
	}
	return bearerToken(r.Header.Get("Authorization"))
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}
