package sessionauth

import (
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth/jwt"
	"github.com/MrEthical07/sessionauth/password"
)

// Config is the engine configuration. Start from [DefaultConfig] and set
// at least JWT.Secret.
type Config struct {
	JWT        JWTConfig
	Challenge  ChallengeConfig
	Revocation RevocationConfig
	Password   PasswordConfig
	Audit      AuditConfig
	Metrics    MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures session token signing. Secret is process
// configuration read at startup; it must be at least 32 bytes.
type JWTConfig struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Leeway time.Duration
}

/*
====================================
CHALLENGE CONFIG
====================================
*/

// ChallengeConfig configures pending 2FA challenges.
type ChallengeConfig struct {
	TTL         time.Duration
	RedisPrefix string
	MailSubject string
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig configures the revoked-token set. PruneInterval applies
// to the in-memory backend only.
type RevocationConfig struct {
	RedisPrefix   string
	PruneInterval time.Duration
}

// PasswordConfig holds argon2id cost parameters.
type PasswordConfig struct {
	Memory           uint32 // in KiB
	Time             uint32
	Parallelism      uint8
	SaltLength       uint32
	KeyLength        uint32
	MaxPasswordBytes int
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULT CONFIG
====================================
*/

// DefaultConfig returns a configuration with every field but JWT.Secret set.
func DefaultConfig() Config {
	pw := password.DefaultConfig()
	return Config{
		JWT: JWTConfig{
			TTL:    jwt.DefaultTTL,
			Issuer: "sessionauth",
		},
		Challenge: ChallengeConfig{
			TTL:         10 * time.Minute,
			RedisPrefix: "two_fa_code",
			MailSubject: "2FA Code",
		},
		Revocation: RevocationConfig{
			RedisPrefix:   "banned_token",
			PruneInterval: time.Minute,
		},
		Password: PasswordConfig{
			Memory:           pw.Memory,
			Time:             pw.Time,
			Parallelism:      pw.Parallelism,
			SaltLength:       pw.SaltLength,
			KeyLength:        pw.KeyLength,
			MaxPasswordBytes: password.DefaultMaxPasswordBytes,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	// JWT
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.TTL <= 0 {
		return errors.New("JWT TTL must be > 0")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > time.Minute {
		return errors.New("JWT Leeway must be within [0, 1m]")
	}

	// Challenge
	if c.Challenge.TTL <= 0 {
		return errors.New("Challenge TTL must be > 0")
	}
	if strings.TrimSpace(c.Challenge.RedisPrefix) == "" {
		return errors.New("Challenge RedisPrefix must not be blank")
	}
	if strings.TrimSpace(c.Challenge.MailSubject) == "" {
		return errors.New("Challenge MailSubject must not be blank")
	}

	// Revocation
	if strings.TrimSpace(c.Revocation.RedisPrefix) == "" {
		return errors.New("Revocation RedisPrefix must not be blank")
	}
	if c.Revocation.PruneInterval < 0 {
		return errors.New("Revocation PruneInterval must be >= 0")
	}

	// Password
	if c.Password.MaxPasswordBytes < 0 {
		return errors.New("Password MaxPasswordBytes must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	return nil
}

func (c *Config) hasherConfig() password.Config {
	return password.Config{
		Memory:           c.Password.Memory,
		Time:             c.Password.Time,
		Parallelism:      c.Password.Parallelism,
		SaltLength:       c.Password.SaltLength,
		KeyLength:        c.Password.KeyLength,
		MaxPasswordBytes: c.Password.MaxPasswordBytes,
	}
}
