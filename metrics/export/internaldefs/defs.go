package internaldefs

import (
	"github.com/MrEthical07/sessionauth"
)

// CounterDef names one engine counter for exporters.
type CounterDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

// HistogramDef names one engine histogram for exporters.
type HistogramDef struct {
	ID   sessionauth.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: sessionauth.MetricSignupSuccess, Name: "sessionauth_signup_success_total", Help: "Accounts created."},
	{ID: sessionauth.MetricSignupConflict, Name: "sessionauth_signup_conflict_total", Help: "Signups rejected because the email was taken."},
	{ID: sessionauth.MetricLoginSuccess, Name: "sessionauth_login_success_total", Help: "Logins that issued a session token."},
	{ID: sessionauth.MetricLoginFailure, Name: "sessionauth_login_failure_total", Help: "Logins rejected for incorrect credentials."},
	{ID: sessionauth.MetricChallengeIssued, Name: "sessionauth_challenge_issued_total", Help: "2FA challenges mailed."},
	{ID: sessionauth.MetricChallengeVerified, Name: "sessionauth_challenge_verified_total", Help: "2FA challenges completed."},
	{ID: sessionauth.MetricChallengeFailed, Name: "sessionauth_challenge_failed_total", Help: "2FA challenge attempts rejected."},
	{ID: sessionauth.MetricLogout, Name: "sessionauth_logout_total", Help: "Tokens revoked by logout."},
	{ID: sessionauth.MetricTokenValid, Name: "sessionauth_token_valid_total", Help: "Token verifications that succeeded."},
	{ID: sessionauth.MetricTokenInvalid, Name: "sessionauth_token_invalid_total", Help: "Token verifications that failed."},
	{ID: sessionauth.MetricUnexpectedError, Name: "sessionauth_unexpected_error_total", Help: "Operations failed by storage, notifier or signing errors."},
}

var HistogramDefs = []HistogramDef{
	{ID: sessionauth.MetricVerifyTokenLatency, Name: "sessionauth_verify_token_latency_seconds", Help: "VerifyToken latency."},
}

// UpperBounds returns the finite bucket bounds in seconds.
func UpperBounds() []float64 {
	out := make([]float64, len(sessionauth.HistogramBounds))
	for i, b := range sessionauth.HistogramBounds {
		out[i] = b.Seconds()
	}
	return out
}

// NormalizeBuckets copies raw into a fixed-size array, zero-filling missing
// buckets and dropping extras.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals; the last
// element is the total observation count.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
