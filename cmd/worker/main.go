package main

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brojonat/memofeed/service/config"
	"github.com/brojonat/memofeed/service/db"
	"github.com/brojonat/memofeed/service/metrics"
	"github.com/brojonat/memofeed/service/temporal"
	"github.com/brojonat/memofeed/service/xrpl"
)

func main() {
	// Load and validate configuration from environment
	cfg := config.MustLoad()

	// Setup structured logging
	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting temporal worker",
		"temporal_host", cfg.TemporalHost,
		"namespace", cfg.TemporalNamespace,
		"task_queue", cfg.TemporalTaskQueue,
		"feed_account", cfg.FeedAccount,
		"sync_interval", cfg.SyncInterval,
		"log_level", cfg.LogLevel,
	)

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required to run the archive worker")
		os.Exit(1)
	}

	// Setup context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize Prometheus metrics collector
	metricsCollector := metrics.NewMetrics(nil) // nil uses default registry

	// Initialize database connection pool
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

	store := db.NewStore(dbPool, metricsCollector)
	if err := store.Migrate(ctx); err != nil {
		logger.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}
	logger.Info("connected to database")

	// Start metrics HTTP server
	metricsServer := &http.Server{
		Addr:    cfg.MetricsAddr,
		Handler: promhttp.Handler(),
	}
	go func() {
		logger.Info("starting metrics HTTP server", "addr", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown metrics server", "error", err)
		}
	}()

	// Ledger client. Sync runs are bounded by the activity timeout, and each
	// run resumes from the archive checkpoint, so no page cap is applied.
	ledger := xrpl.NewClient(xrpl.NewRPCClient(cfg.XRPLRPCURL), xrpl.ClientOptions{
		Endpoint:  endpointLabel(cfg.XRPLRPCURL),
		PageLimit: cfg.LedgerPageLimit,
	}, metricsCollector, logger)
	logger.Info("initialized ledger RPC client", "url", cfg.XRPLRPCURL)

	worker, err := temporal.NewWorker(temporal.WorkerConfig{
		TemporalHost:      cfg.TemporalHost,
		TemporalNamespace: cfg.TemporalNamespace,
		TaskQueue:         cfg.TemporalTaskQueue,
		Store:             store,
		Ledger:            ledger,
		Metrics:           metricsCollector,
		Logger:            logger,
	})
	if err != nil {
		logger.Error("failed to create temporal worker", "error", err)
		os.Exit(1)
	}

	if err := worker.Start(); err != nil {
		logger.Error("temporal worker error", "error", err)
		os.Exit(1)
	}

	// Keep the feed account's schedule in line with SYNC_INTERVAL.
	// Zero leaves scheduling to the memofeed CLI.
	if cfg.SyncInterval > 0 {
		if err := ensureSchedule(ctx, cfg, logger); err != nil {
			logger.Error("failed to ensure sync schedule", "error", err)
			worker.Stop()
			os.Exit(1)
		}
	}

	logger.Info("temporal worker initialized, all dependencies ready")

	// Wait for shutdown signal
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	sig := <-shutdown
	logger.Info("shutdown signal received", "signal", sig.String())

	worker.Stop()
	logger.Info("shutdown complete")
}

// ensureSchedule creates or updates the sync schedule of the feed account.
func ensureSchedule(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	temporalClient, err := temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, logger)
	if err != nil {
		return err
	}
	defer temporalClient.Close()

	return temporalClient.UpsertFeedSchedule(ctx, cfg.FeedAccount, cfg.SyncInterval)
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
