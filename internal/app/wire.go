package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	s3blob "github.com/alanyoungcy/arbot/internal/blob/s3"
	"github.com/alanyoungcy/arbot/internal/cache/redis"
	"github.com/alanyoungcy/arbot/internal/config"
	"github.com/alanyoungcy/arbot/internal/crypto"
	"github.com/alanyoungcy/arbot/internal/domain"
	"github.com/alanyoungcy/arbot/internal/notify"
	"github.com/alanyoungcy/arbot/internal/store/postgres"
	"github.com/alanyoungcy/arbot/internal/venue/polymarket"
	"github.com/alanyoungcy/arbot/internal/venue/sim"
)

// Dependencies bundles every domain-level dependency the application modes
// need. It is constructed by Wire and torn down by the returned cleanup
// function.
type Dependencies struct {
	// Venue access. In sim mode this is the paper-trading wrapper around the
	// live data client.
	Venue domain.VenueClient

	// Stores, nil for modes that run without Postgres.
	TradeStore domain.TradeRecordStore
	OppStore   domain.OpportunityStore

	// Redis-backed infrastructure, always present.
	Books   domain.OrderbookCache
	Markets domain.MarketCache
	Limiter domain.RateLimiter
	Locks   domain.LockManager
	Bus     domain.SignalBus

	// Archiver is non-nil only when S3 archival is enabled and Postgres is
	// wired.
	Archiver *s3blob.Archiver

	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that persist records. Monitor mode is
// intentionally stateless so it can run against production infrastructure
// without write access.
func needsPostgres(mode string) bool {
	switch mode {
	case "live", "sim", "server":
		return true
	default:
		return false
	}
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that must
// be called on shutdown.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Redis: caches, limiter, locks, signal bus ---
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

	deps.Books = redis.NewOrderbookCache(redisClient, cfg.Scanner.BookCacheTTL.Duration)
	deps.Markets = redis.NewMarketCache(redisClient)
	deps.Locks = redis.NewLockManager(redisClient)
	deps.Bus = redis.NewSignalBus(redisClient)
	deps.Limiter = redis.NewRateLimiter(redisClient).WithWaitLimit(cfg.Venue.RateLimitPerSecond)

	// --- PostgreSQL (only for modes that persist records) ---
	if needsPostgres(mode) {
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
		deps.TradeStore = postgres.NewTradeRecordStore(pool)
		deps.OppStore = postgres.NewOpportunityStore(pool)
	}

	// --- Venue client ---
	venueClient, err := buildVenue(ctx, cfg, mode, deps.Limiter, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Venue = venueClient

	// --- S3 archival ---
	if cfg.S3.Enabled && deps.TradeStore != nil && deps.OppStore != nil {
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

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			deps.TradeStore,
			deps.OppStore,
			logger,
		)
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

// buildVenue assembles the venue client for the given mode. Live mode signs
// orders with the configured wallet; every other mode gets a read-only client,
// which sim mode wraps in the paper-trading simulator.
func buildVenue(ctx context.Context, cfg *config.Config, mode string, limiter domain.RateLimiter, logger *slog.Logger) (domain.VenueClient, error) {
	gamma := polymarket.NewGammaClient(cfg.Venue.GammaHost)

	if cfg.Venue.RateLimitPerSecond <= 0 {
		limiter = nil
	}

	if mode == "live" {
		key, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			return nil, fmt.Errorf("wire: load wallet key: %w", err)
		}
		signer, err := crypto.NewSigner(key, cfg.Venue.ChainID)
		if err != nil {
			return nil, fmt.Errorf("wire: create signer: %w", err)
		}
		clob := polymarket.NewClobClient(cfg.Venue.ClobHost, signer, nil)
		if err := clob.DeriveAPIKey(ctx); err != nil {
			return nil, fmt.Errorf("wire: derive venue API key: %w", err)
		}
		return polymarket.NewClient(gamma, clob, limiter, logger), nil
	}

	// Read-only client: no signer, no API credentials.
	clob := polymarket.NewClobClient(cfg.Venue.ClobHost, nil, nil)
	data := polymarket.NewClient(gamma, clob, limiter, logger)

	if mode == "sim" {
		return sim.NewClient(data, cfg.Capital.TotalCapital, logger), nil
	}
	return data, nil
}

// startArchiver runs periodic archival of aged records to S3 until the
// context is cancelled. One pass runs at startup so restarts do not postpone
// retention indefinitely.
func startArchiver(ctx context.Context, archiver *s3blob.Archiver, cfg config.S3Config, logger *slog.Logger) error {
	interval := cfg.ArchiveInterval.Duration
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	retention := time.Duration(cfg.RetentionDays) * 24 * time.Hour

	runOnce := func() {
		before := time.Now().UTC().Add(-retention)
		archived, err := archiver.Run(ctx, before)
		if err != nil {
			logger.ErrorContext(ctx, "archive pass failed", slog.String("error", err.Error()))
			return
		}
		if archived > 0 {
			logger.InfoContext(ctx, "archive pass complete",
				slog.Int64("records", archived),
				slog.Time("before", before),
			)
		}
	}

	runOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			runOnce()
		}
	}
}
