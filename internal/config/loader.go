package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies PRICER_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known PRICER_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e.
// not empty). This lets operators inject secrets at deploy time without
// touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "PRICER_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "PRICER_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "PRICER_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "PRICER_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "PRICER_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "PRICER_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "PRICER_POSTGRES_SSLMODE")
	setInt(&cfg.Postgres.PoolMaxConns, "PRICER_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "PRICER_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "PRICER_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "PRICER_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "PRICER_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "PRICER_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "PRICER_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "PRICER_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "PRICER_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "PRICER_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "PRICER_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "PRICER_S3_REGION")
	setStr(&cfg.S3.Bucket, "PRICER_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "PRICER_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "PRICER_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "PRICER_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "PRICER_S3_FORCE_PATH_STYLE")

	// ── Marketplace ──
	setStr(&cfg.Marketplace.BaseURL, "PRICER_MARKETPLACE_BASE_URL")
	setStr(&cfg.Marketplace.SellerID, "PRICER_MARKETPLACE_SELLER_ID")
	setStr(&cfg.Marketplace.ApiToken, "PRICER_MARKETPLACE_API_TOKEN")
	setStr(&cfg.Marketplace.EncryptedTokenPath, "PRICER_MARKETPLACE_ENCRYPTED_TOKEN_PATH")
	setStr(&cfg.Marketplace.TokenPassword, "PRICER_MARKETPLACE_TOKEN_PASSWORD")

	// ── Engine ──
	setDuration(&cfg.Engine.ObservationTTL, "PRICER_ENGINE_OBSERVATION_TTL")

	// ── Rules ──
	setInt(&cfg.Rules.BulkConcurrency, "PRICER_RULES_BULK_CONCURRENCY")
	setInt(&cfg.Rules.HistoryWindowHours, "PRICER_RULES_HISTORY_WINDOW_HOURS")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "PRICER_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "PRICER_ARCHIVE_RETENTION_DAYS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "PRICER_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "PRICER_SERVER_PORT")
	setStr(&cfg.Server.ApiKey, "PRICER_SERVER_API_KEY")
	setStringSlice(&cfg.Server.CORSOrigins, "PRICER_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "PRICER_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "PRICER_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "PRICER_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "PRICER_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.Mode, "PRICER_MODE")
	setStr(&cfg.LogLevel, "PRICER_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
