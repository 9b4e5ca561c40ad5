// Package appconfig loads the authsvc process configuration from a YAML file
// with environment overrides for secrets and connection strings.
package appconfig

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/MrEthical07/sessionauth"
	"github.com/MrEthical07/sessionauth/notify"
	"gopkg.in/yaml.v2"
)

// Environment variables that override file values.
const (
	EnvJWTSecret    = "JWT_SECRET"
	EnvDatabaseURL  = "DATABASE_URL"
	EnvRedisAddr    = "REDIS_ADDR"
	EnvSMTPPassword = "SMTP_PASSWORD"
	EnvSenderEmail  = "SENDER_EMAIL"
)

var ErrMissingJWTSecret = errors.New("jwt secret is required (set " + EnvJWTSecret + ")")

type Config struct {
	HTTP     HTTP              `yaml:"http"`
	Log      Log               `yaml:"log"`
	Auth     Auth              `yaml:"auth"`
	Redis    Redis             `yaml:"redis"`
	Postgres Postgres          `yaml:"postgres"`
	SMTP     notify.SMTPConfig `yaml:"smtp"`
}

type HTTP struct {
	Addr            string        `yaml:"addr"`
	CORSOrigins     []string      `yaml:"cors_origins"`
	SecureCookies   bool          `yaml:"secure_cookies"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type Log struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Auth struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	Issuer       string        `yaml:"issuer"`
	ChallengeTTL time.Duration `yaml:"challenge_ttl"`
	Audit        bool          `yaml:"audit"`
}

type Redis struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		HTTP: HTTP{
			Addr:            ":3000",
			CORSOrigins:     []string{"http://localhost:8000"},
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Log: Log{Level: "info"},
		Auth: Auth{
			TokenTTL:     10 * time.Minute,
			Issuer:       "sessionauth",
			ChallengeTTL: 10 * time.Minute,
		},
		SMTP: notify.SMTPConfig{Port: 587},
	}
}

// Load reads path over [Default], applies environment overrides and checks
// required fields. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.UnmarshalStrict(raw, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// MustLoad is Load that panics on error.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic("can't load config: " + err.Error())
	}
	return cfg
}

func applyEnv(cfg *Config) {
	override := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
			*dst = v
		}
	}
	override(&cfg.Auth.JWTSecret, EnvJWTSecret)
	override(&cfg.Postgres.DSN, EnvDatabaseURL)
	override(&cfg.Redis.Addr, EnvRedisAddr)
	override(&cfg.SMTP.Password, EnvSMTPPassword)
	override(&cfg.SMTP.From, EnvSenderEmail)
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return ErrMissingJWTSecret
	}
	if c.HTTP.Addr == "" {
		return errors.New("http addr is required")
	}
	if c.SMTPEnabled() && c.SMTP.Port <= 0 {
		return errors.New("smtp port must be > 0")
	}
	return nil
}

// SMTPEnabled reports whether a mail relay is configured.
func (c *Config) SMTPEnabled() bool {
	return strings.TrimSpace(c.SMTP.Host) != ""
}

// Engine maps the auth section onto a sessionauth configuration. The result
// is still validated by the engine builder.
func (c *Config) Engine() sessionauth.Config {
	ec := sessionauth.DefaultConfig()
	ec.JWT.Secret = []byte(c.Auth.JWTSecret)
	if c.Auth.TokenTTL > 0 {
		ec.JWT.TTL = c.Auth.TokenTTL
	}
	if c.Auth.Issuer != "" {
		ec.JWT.Issuer = c.Auth.Issuer
	}
	if c.Auth.ChallengeTTL > 0 {
		ec.Challenge.TTL = c.Auth.ChallengeTTL
	}
	ec.Audit.Enabled = c.Auth.Audit
	return ec
}
