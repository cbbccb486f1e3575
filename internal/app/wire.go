package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/yDiLity/WB-price-sub000/internal/blob/s3"
	"github.com/yDiLity/WB-price-sub000/internal/cache/redis"
	"github.com/yDiLity/WB-price-sub000/internal/config"
	"github.com/yDiLity/WB-price-sub000/internal/crypto"
	"github.com/yDiLity/WB-price-sub000/internal/domain"
	"github.com/yDiLity/WB-price-sub000/internal/marketplace"
	"github.com/yDiLity/WB-price-sub000/internal/notify"
	"github.com/yDiLity/WB-price-sub000/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// modes need to operate. It is constructed by Wire and torn down by the
// returned cleanup function.
type Dependencies struct {
	// Stores
	ProductStore    domain.ProductStore
	StrategyStore   domain.StrategyStore
	RuleStore       domain.RuleStore
	CompetitorStore domain.CompetitorStore
	LedgerStore     domain.LedgerStore
	AuditStore      domain.AuditStore

	// Caches
	ObservationCache domain.ObservationCache
	HistoryCache     domain.HistoryCache

	// Blob storage
	BlobWriter domain.BlobWriter
	Archiver   domain.LedgerArchiver

	// Notifications
	Notifier *notify.Notifier

	// Marketplace is the price-update client for the explicit apply step.
	// Nil in server mode; ApplyChange then writes the local store only.
	Marketplace domain.PriceUpdater

	// Connectivity handles used by the health endpoint.
	Postgres *postgres.Client
	Redis    *redis.Client
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Postgres = pgClient
	deps.ProductStore = postgres.NewProductStore(pool)
	deps.StrategyStore = postgres.NewStrategyStore(pool)
	deps.RuleStore = postgres.NewRuleStore(pool)
	deps.CompetitorStore = postgres.NewCompetitorStore(pool)
	deps.LedgerStore = postgres.NewLedgerStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.ObservationCache = redis.NewObservationCache(redisClient, cfg.Engine.ObservationTTL.Duration)
	deps.HistoryCache = redis.NewHistoryCache(redisClient)

	// --- S3 blob storage (optional, for ledger archives) ---
	if cfg.S3.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		deps.Archiver = s3blob.NewArchiver(
			deps.BlobWriter,
			postgres.NewLedgerStore(pool),
			deps.AuditStore,
		)
	}

	// --- Marketplace client (apply path only) ---
	if cfg.Mode == "apply" || cfg.Mode == "full" {
		token, err := crypto.LoadToken(crypto.TokenConfig{
			RawToken:           cfg.Marketplace.ApiToken,
			EncryptedTokenPath: cfg.Marketplace.EncryptedTokenPath,
			TokenPassword:      cfg.Marketplace.TokenPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: marketplace token: %w", err)
		}
		deps.Marketplace = marketplace.New(marketplace.Config{
			BaseURL:  cfg.Marketplace.BaseURL,
			SellerID: cfg.Marketplace.SellerID,
			Token:    token,
		})
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
