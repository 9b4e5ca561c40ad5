// Package jwt issues and verifies signed, time-bound session tokens.
//
// Tokens are HS256 JWTs whose subject is the normalized account email and
// whose exp is an absolute deadline; there is no refresh. Revocation is not
// known here: callers check their revocation store before Parse.
package jwt
