package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Feed record sources.
const (
	SourceLedger  = "ledger"
	SourceArchive = "archive"
)

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Ledger configuration
	XRPLRPCURL      string
	FeedAccount     string
	LedgerPageLimit int
	LedgerMaxPages  int
	LedgerTimeout   time.Duration

	// Identity configuration
	BithompURL        string
	BithompAPIKey     string
	FeedAvatarSize    int
	ProfileAvatarSize int

	// Curator overrides
	OverrideBlacklist []string
	OverrideWhitelist []string
	BlacklistLikes    bool

	// Database configuration (optional)
	DatabaseURL string
	FeedSource  string

	// NATS configuration (optional)
	NATSURL          string
	IdentityCacheTTL time.Duration

	// Temporal configuration (archive sync worker)
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string
	SyncInterval      time.Duration
	MetricsAddr       string
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Ledger configuration
	cfg.XRPLRPCURL = os.Getenv("XRPL_RPC_URL")
	if cfg.XRPLRPCURL == "" {
		errs = append(errs, fmt.Errorf("XRPL_RPC_URL is required"))
	}

	cfg.FeedAccount = os.Getenv("FEED_ACCOUNT")
	if cfg.FeedAccount == "" {
		errs = append(errs, fmt.Errorf("FEED_ACCOUNT is required"))
	}

	var err error
	if cfg.LedgerPageLimit, err = parseInt("LEDGER_PAGE_LIMIT", 200); err != nil {
		errs = append(errs, err)
	}
	if cfg.LedgerMaxPages, err = parseInt("LEDGER_MAX_PAGES", 50); err != nil {
		errs = append(errs, err)
	}
	if cfg.LedgerTimeout, err = parseDuration("LEDGER_TIMEOUT", "20s"); err != nil {
		errs = append(errs, err)
	}

	// Identity configuration
	cfg.BithompURL = getEnvOrDefault("BITHOMP_URL", "https://bithomp.com/api/v2")
	cfg.BithompAPIKey = os.Getenv("BITHOMP_API_KEY")
	if cfg.FeedAvatarSize, err = parseInt("FEED_AVATAR_SIZE", 40); err != nil {
		errs = append(errs, err)
	}
	if cfg.ProfileAvatarSize, err = parseInt("PROFILE_AVATAR_SIZE", 80); err != nil {
		errs = append(errs, err)
	}

	// Curator overrides
	cfg.OverrideBlacklist = parseList("OVERRIDE_BLACKLIST")
	cfg.OverrideWhitelist = parseList("OVERRIDE_WHITELIST")
	if cfg.BlacklistLikes, err = parseBool("BLACKLIST_LIKES", false); err != nil {
		errs = append(errs, err)
	}

	// Database configuration
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.FeedSource = strings.ToLower(getEnvOrDefault("FEED_SOURCE", SourceLedger))

	// NATS configuration
	cfg.NATSURL = os.Getenv("NATS_URL")
	if cfg.IdentityCacheTTL, err = parseDuration("IDENTITY_CACHE_TTL", "1h"); err != nil {
		errs = append(errs, err)
	}

	// Temporal configuration
	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "memofeed-archive-sync")
	if cfg.SyncInterval, err = parseDuration("SYNC_INTERVAL", "1m"); err != nil {
		errs = append(errs, err)
	}
	cfg.MetricsAddr = getEnvOrDefault("METRICS_ADDR", ":9091")

	if len(errs) == 0 {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.XRPLRPCURL == "" {
		errs = append(errs, fmt.Errorf("XRPLRPCURL is required"))
	}

	if c.FeedAccount == "" {
		errs = append(errs, fmt.Errorf("FeedAccount is required"))
	}

	if c.LedgerPageLimit < 1 || c.LedgerPageLimit > 400 {
		errs = append(errs, fmt.Errorf("LedgerPageLimit must be between 1 and 400"))
	}

	if c.LedgerMaxPages < 0 {
		errs = append(errs, fmt.Errorf("LedgerMaxPages cannot be negative"))
	}

	if c.LedgerTimeout < time.Second {
		errs = append(errs, fmt.Errorf("LedgerTimeout must be at least 1 second"))
	}

	if c.FeedAvatarSize < 1 || c.ProfileAvatarSize < 1 {
		errs = append(errs, fmt.Errorf("avatar sizes must be positive"))
	}

	switch c.FeedSource {
	case SourceLedger:
	case SourceArchive:
		if c.DatabaseURL == "" {
			errs = append(errs, fmt.Errorf("FeedSource %q requires DatabaseURL", SourceArchive))
		}
	default:
		errs = append(errs, fmt.Errorf("FeedSource must be %q or %q, got %q", SourceLedger, SourceArchive, c.FeedSource))
	}

	if c.NATSURL != "" && c.IdentityCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("IdentityCacheTTL must be positive"))
	}

	if c.TemporalHost == "" {
		errs = append(errs, fmt.Errorf("TemporalHost is required"))
	}

	if c.TemporalNamespace == "" {
		errs = append(errs, fmt.Errorf("TemporalNamespace is required"))
	}

	if c.TemporalTaskQueue == "" {
		errs = append(errs, fmt.Errorf("TemporalTaskQueue is required"))
	}

	if c.SyncInterval < 0 {
		errs = append(errs, fmt.Errorf("SyncInterval cannot be negative"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}

// parseBool parses a boolean from an environment variable or uses a default.
func parseBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: invalid boolean %q: %w", key, value, err)
	}
	return result, nil
}

// parseList splits a comma-separated environment variable, dropping blanks.
func parseList(key string) []string {
	var out []string
	for _, item := range strings.Split(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
