package identity

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	// MinPasswordLength is the minimum trimmed length accepted by NewPassword.
	MinPasswordLength = 8
	// TwoFACodeLength is the number of digits in a one-time login code.
	TwoFACodeLength = 6
)

var (
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrInvalidChallengeID = errors.New("invalid challenge id")
	ErrInvalidTwoFACode   = errors.New("invalid 2fa code")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

var twoFACodeMax = big.NewInt(1_000_000)

// Email is a validated, normalized address. The zero value is not valid.
//
// Email implements [slog.LogValuer] so structured logs only ever carry a
// masked form of the address.
type Email struct {
	value string
}

// NewEmail trims and lower-cases raw and checks it against the address grammar.
func NewEmail(raw string) (Email, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return Email{}, ErrInvalidEmail
	}
	if err := validate.Var(normalized, "required,email"); err != nil {
		return Email{}, fmt.Errorf("%w: %v", ErrInvalidEmail, err)
	}
	return Email{value: normalized}, nil
}

// MustEmail is NewEmail for literals known to be valid. It panics otherwise.
func MustEmail(raw string) Email {
	e, err := NewEmail(raw)
	if err != nil {
		panic(err)
	}
	return e
}

// String returns the normalized address used as the storage key.
func (e Email) String() string {
	return e.value
}

// IsZero reports whether e was never constructed.
func (e Email) IsZero() bool {
	return e.value == ""
}

// Redacted masks the local part, keeping its first rune and the domain.
func (e Email) Redacted() string {
	at := strings.LastIndexByte(e.value, '@')
	if at <= 0 {
		return "***"
	}
	local := []rune(e.value[:at])
	return string(local[0]) + "***" + e.value[at:]
}

func (e Email) LogValue() slog.Value {
	return slog.StringValue(e.Redacted())
}

// Password holds a plaintext candidate password until it is hashed.
type Password struct {
	value string
}

// NewPassword accepts raw when its trimmed length is at least MinPasswordLength.
// The untrimmed value is kept; trimming only applies to the length rule.
func NewPassword(raw string) (Password, error) {
	if len(strings.TrimSpace(raw)) < MinPasswordLength {
		return Password{}, ErrInvalidPassword
	}
	return Password{value: raw}, nil
}

// Reveal returns the plaintext. Callers pass it straight to the hasher.
func (p Password) Reveal() string {
	return p.value
}

func (p Password) String() string {
	return "[REDACTED]"
}

func (p Password) LogValue() slog.Value {
	return slog.StringValue("[REDACTED]")
}

// ChallengeID identifies one 2FA login attempt.
type ChallengeID struct {
	id uuid.UUID
}

// NewChallengeID mints a random (v4) challenge id.
func NewChallengeID() (ChallengeID, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return ChallengeID{}, err
	}
	return ChallengeID{id: id}, nil
}

// ParseChallengeID accepts the canonical textual UUID forms understood by uuid.Parse.
func ParseChallengeID(raw string) (ChallengeID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ChallengeID{}, fmt.Errorf("%w: %v", ErrInvalidChallengeID, err)
	}
	return ChallengeID{id: id}, nil
}

func (c ChallengeID) String() string {
	return c.id.String()
}

func (c ChallengeID) IsZero() bool {
	return c.id == uuid.Nil
}

// TwoFACode is a six digit one-time code.
type TwoFACode struct {
	value string
}

// NewTwoFACode draws a uniformly distributed code from crypto/rand.
func NewTwoFACode() (TwoFACode, error) {
	n, err := rand.Int(rand.Reader, twoFACodeMax)
	if err != nil {
		return TwoFACode{}, err
	}
	return TwoFACode{value: fmt.Sprintf("%06d", n.Int64())}, nil
}

// ParseTwoFACode accepts exactly TwoFACodeLength ASCII digits.
func ParseTwoFACode(raw string) (TwoFACode, error) {
	if len(raw) != TwoFACodeLength {
		return TwoFACode{}, ErrInvalidTwoFACode
	}
	for i := 0; i < len(raw); i++ {
		if raw[i] < '0' || raw[i] > '9' {
			return TwoFACode{}, ErrInvalidTwoFACode
		}
	}
	return TwoFACode{value: raw}, nil
}

func (c TwoFACode) String() string {
	return c.value
}

func (c TwoFACode) LogValue() slog.Value {
	return slog.StringValue("******")
}
