package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/brojonat/memofeed/service/config"
	"github.com/brojonat/memofeed/service/db"
	"github.com/brojonat/memofeed/service/feed"
	"github.com/brojonat/memofeed/service/identity"
	"github.com/brojonat/memofeed/service/metrics"
	"github.com/brojonat/memofeed/service/nats"
	"github.com/brojonat/memofeed/service/server"
	"github.com/brojonat/memofeed/service/xrpl"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"feed_account", cfg.FeedAccount,
		"feed_source", cfg.FeedSource,
	)

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	// Optional database: overrides and the transaction archive
	var store *db.Store
	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		store = db.NewStore(dbPool, m)
		if err := store.Migrate(ctx); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")
	}

	// Ledger client
	ledger := xrpl.NewClient(xrpl.NewRPCClient(cfg.XRPLRPCURL), xrpl.ClientOptions{
		Endpoint:  endpointLabel(cfg.XRPLRPCURL),
		PageLimit: cfg.LedgerPageLimit,
		MaxPages:  cfg.LedgerMaxPages,
		Timeout:   cfg.LedgerTimeout,
	}, m, logger)
	logger.Info("initialized ledger RPC client", "url", cfg.XRPLRPCURL)

	var source feed.Source = ledger
	if cfg.FeedSource == config.SourceArchive {
		source = store
	}

	overrides, err := loadOverrides(ctx, cfg, store)
	if err != nil {
		logger.Error("failed to load overrides", "error", err)
		os.Exit(1)
	}

	// Optional identity cache. A NATS outage degrades to uncached lookups.
	var cache identity.Cache
	if cfg.NATSURL != "" {
		identityCache, err := nats.NewIdentityCache(cfg.NATSURL, cfg.IdentityCacheTTL, logger)
		if err != nil {
			logger.Warn("identity cache disabled", "error", err)
		} else {
			defer identityCache.Close()
			cache = identityCache
		}
	}

	bithomp := identity.NewBithompClient(cfg.BithompURL, cfg.BithompAPIKey, nil, logger)
	enricher := identity.NewEnricher(bithomp, identity.EmailHashFunc(ledger.AccountEmailHash), cache, identity.Options{
		FeedAvatarSize:    cfg.FeedAvatarSize,
		ProfileAvatarSize: cfg.ProfileAvatarSize,
	}, m, logger)

	classifier := feed.NewClassifier(overrides, feed.ClassifierOptions{BlacklistLikes: cfg.BlacklistLikes})
	provider := feed.NewScanProvider(source, cfg.FeedAccount, classifier, m)
	svc := feed.NewService(provider, enricher, m, logger)

	// Initialize HTTP server
	httpServer := server.New(cfg.ServerAddr, svc, m, logger)

	logger.Info("server initialized, all dependencies ready",
		"database", store != nil,
		"identity_cache", cache != nil,
	)

	// Start HTTP server in background
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	// Wait for shutdown signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		// Graceful shutdown with timeout
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// loadOverrides merges the configured override hashes with those stored in
// the database. Stored overrides are read once at startup.
func loadOverrides(ctx context.Context, cfg *config.Config, store *db.Store) (*feed.Overrides, error) {
	blacklist := append([]string(nil), cfg.OverrideBlacklist...)
	whitelist := append([]string(nil), cfg.OverrideWhitelist...)

	if store != nil {
		storedBlack, storedWhite, err := store.OverrideHashes(ctx)
		if err != nil {
			return nil, err
		}
		blacklist = append(blacklist, storedBlack...)
		whitelist = append(whitelist, storedWhite...)
	}

	return feed.NewOverrides(blacklist, whitelist), nil
}

// endpointLabel reduces an RPC URL to its host for metric labels.
func endpointLabel(rpcURL string) string {
	u, err := url.Parse(rpcURL)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
