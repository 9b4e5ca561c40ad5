// Package identity holds the validated value types that cross every boundary
// of the session engine: Email, Password, ChallengeID and TwoFACode.
//
// A value of any of these types has passed its format check at construction,
// so flows and stores never re-validate shape. Email, Password and TwoFACode
// implement slog.LogValuer and never print their plaintext through slog.
package identity
