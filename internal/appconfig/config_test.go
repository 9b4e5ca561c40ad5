package appconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "authsvc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	path := writeConfig(t, `
http:
  addr: ":8080"
  cors_origins: ["https://app.example.com"]
log:
  level: debug
  json: true
auth:
  jwt_secret: "`+testSecret+`"
  token_ttl: 5m
  challenge_ttl: 2m
redis:
  addr: "localhost:6379"
smtp:
  host: smtp.example.com
  port: 465
  username: mailer
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, cfg.HTTP.CORSOrigins)
	assert.Equal(t, 15*time.Second, cfg.HTTP.ShutdownTimeout, "unset fields keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, 5*time.Minute, cfg.Auth.TokenTTL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.True(t, cfg.SMTPEnabled())
	assert.Equal(t, 465, cfg.SMTP.Port)

	ec := cfg.Engine()
	assert.Equal(t, []byte(testSecret), ec.JWT.Secret)
	assert.Equal(t, 5*time.Minute, ec.JWT.TTL)
	assert.Equal(t, 2*time.Minute, ec.Challenge.TTL)
	require.NoError(t, ec.Validate())
}

func TestLoadEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
auth:
  jwt_secret: from-file
postgres:
  dsn: postgres://file
`)
	t.Setenv(EnvJWTSecret, testSecret)
	t.Setenv(EnvDatabaseURL, "postgres://env")
	t.Setenv(EnvRedisAddr, "redis:6379")
	t.Setenv(EnvSMTPPassword, "hunter2")
	t.Setenv(EnvSenderEmail, "noreply@example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, testSecret, cfg.Auth.JWTSecret)
	assert.Equal(t, "postgres://env", cfg.Postgres.DSN)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, "hunter2", cfg.SMTP.Password)
	assert.Equal(t, "noreply@example.com", cfg.SMTP.From)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvJWTSecret, testSecret)
	t.Setenv(EnvRedisAddr, "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.HTTP.Addr)
	assert.False(t, cfg.SMTPEnabled())
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")

	_, err := Load(writeConfig(t, "log:\n  level: info\n"))
	assert.ErrorIs(t, err, ErrMissingJWTSecret)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	t.Setenv(EnvJWTSecret, testSecret)

	_, err := Load(writeConfig(t, "htp:\n  addr: \":1\"\n"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestMustLoadPanics(t *testing.T) {
	t.Setenv(EnvJWTSecret, "")
	assert.Panics(t, func() { MustLoad("") })
}

func TestExampleConfigLoads(t *testing.T) {
	t.Setenv(EnvJWTSecret, testSecret)

	cfg, err := Load(filepath.Join("..", "..", "configs", "authsvc.example.yaml"))
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.HTTP.Addr)
	assert.False(t, cfg.SMTPEnabled())
	engineCfg := cfg.Engine()
	require.NoError(t, engineCfg.Validate())
}
