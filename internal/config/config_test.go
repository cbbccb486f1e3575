package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidateForServerMode(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	assert.NoError(t, cfg.Validate())
}

func TestDefaultsRequireTokenForApplyModes(t *testing.T) {
	for _, mode := range []string{"apply", "full"} {
		cfg := Defaults()
		cfg.Mode = mode
		err := cfg.Validate()
		require.Error(t, err, mode)
		assert.Contains(t, err.Error(), "api_token")

		cfg.Marketplace.ApiToken = "secret"
		assert.NoError(t, cfg.Validate(), mode)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "turbo"
	cfg.LogLevel = "loud"
	cfg.Redis.Addr = ""
	cfg.Rules.BulkConcurrency = 0
	cfg.Archive.Enabled = true
	cfg.Archive.RetentionDays = 0

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "turbo"`)
	assert.Contains(t, msg, `unknown log_level "loud"`)
	assert.Contains(t, msg, "redis: addr")
	assert.Contains(t, msg, "bulk_concurrency")
	assert.Contains(t, msg, "archive: s3 must be enabled")
	assert.Contains(t, msg, "retention_days")
}

func TestValidateEncryptedTokenNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "full"
	cfg.Marketplace.EncryptedTokenPath = "/etc/pricer/token.enc"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token_password")

	cfg.Marketplace.TokenPassword = "hunter2"
	assert.NoError(t, cfg.Validate())
}

func TestDSNSkipsHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "server"
	cfg.Postgres.DSN = "postgres://user:pass@db:5432/pricer"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""

	assert.NoError(t, cfg.Validate())
}

func TestLoadAppliesFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(strings.TrimSpace(`
mode = "server"
log_level = "debug"

[postgres]
host = "db.internal"

[engine]
observation_ttl = "30m"

[rules]
bulk_concurrency = 16
`)), 0o600))

	t.Setenv("PRICER_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("PRICER_SERVER_PORT", "9100")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
	assert.Equal(t, "30m0s", cfg.Engine.ObservationTTL.Duration.String())
	assert.Equal(t, 16, cfg.Rules.BulkConcurrency)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 9100, cfg.Server.Port)

	// Untouched fields keep their defaults.
	assert.Equal(t, 5432, cfg.Postgres.Port)
	assert.Equal(t, 24, cfg.Rules.HistoryWindowHours)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func TestRedactedConfigHidesSecrets(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Password = "pg-secret"
	cfg.Redis.Password = "redis-secret"
	cfg.Marketplace.ApiToken = "wb-token"
	cfg.Server.ApiKey = "api-key"
	cfg.Notify.TelegramToken = "tg-token"

	out := RedactedConfig(&cfg)

	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.Marketplace.ApiToken)
	assert.Equal(t, "***", out.Server.ApiKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)

	// Empty secrets stay empty rather than becoming placeholders.
	assert.Empty(t, out.S3.AccessKey)

	// The original is untouched.
	assert.Equal(t, "pg-secret", cfg.Postgres.Password)
}
