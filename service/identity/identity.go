// Package identity resolves ledger accounts to display identities.
//
// A display identity is an optional username plus a Gravatar URL. The avatar
// hash is the account's registered email hash when one exists, otherwise the
// MD5 of the address itself, so every account gets a stable avatar.
// Lookups are best effort: failures degrade to an absent username or the
// fallback hash and are never returned to the caller.
package identity

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/brojonat/memofeed/service/metrics"
)

// Default avatar sizes in pixels.
const (
	DefaultFeedAvatarSize    = 40
	DefaultProfileAvatarSize = 80
)

// Identity is the display identity of an account.
type Identity struct {
	Account     string  `json:"account"`
	Username    *string `json:"username,omitempty"`
	GravatarURL string  `json:"gravatarURL"`
}

// UsernameResolver looks up a registered username. An empty result means none.
type UsernameResolver interface {
	ResolveUsername(ctx context.Context, address string) (string, error)
}

// EmailHashResolver looks up an account's email hash. An empty result means none.
type EmailHashResolver interface {
	ResolveEmailHash(ctx context.Context, address string) (string, error)
}

// EmailHashFunc adapts a function to EmailHashResolver.
type EmailHashFunc func(ctx context.Context, address string) (string, error)

// ResolveEmailHash calls f.
func (f EmailHashFunc) ResolveEmailHash(ctx context.Context, address string) (string, error) {
	return f(ctx, address)
}

// CachedIdentity is the resolved lookup state stored in a Cache.
type CachedIdentity struct {
	Username  string `json:"username,omitempty"`
	EmailHash string `json:"email_hash,omitempty"`
}

// Cache stores resolved lookups. Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, account string) (*CachedIdentity, error)
	Put(ctx context.Context, account string, entry CachedIdentity) error
}

// Options configures avatar sizes.
type Options struct {
	FeedAvatarSize    int
	ProfileAvatarSize int
}

// Enricher resolves accounts to identities.
type Enricher struct {
	usernames UsernameResolver
	emails    EmailHashResolver
	cache     Cache
	opts      Options
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// NewEnricher creates an Enricher. Any resolver or the cache may be nil.
func NewEnricher(usernames UsernameResolver, emails EmailHashResolver, cache Cache, opts Options, m *metrics.Metrics, logger *slog.Logger) *Enricher {
	if opts.FeedAvatarSize <= 0 {
		opts.FeedAvatarSize = DefaultFeedAvatarSize
	}
	if opts.ProfileAvatarSize <= 0 {
		opts.ProfileAvatarSize = DefaultProfileAvatarSize
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Enricher{
		usernames: usernames,
		emails:    emails,
		cache:     cache,
		opts:      opts,
		metrics:   m,
		logger:    logger,
	}
}

// Feed resolves account with the compact feed avatar size.
func (e *Enricher) Feed(ctx context.Context, account string) Identity {
	return e.Resolve(ctx, account, e.opts.FeedAvatarSize)
}

// Profile resolves account with the larger profile avatar size.
func (e *Enricher) Profile(ctx context.Context, account string) Identity {
	return e.Resolve(ctx, account, e.opts.ProfileAvatarSize)
}

// Resolve returns the identity of account with an avatar of the given size.
// It never fails.
func (e *Enricher) Resolve(ctx context.Context, account string, size int) Identity {
	entry := e.lookup(ctx, account)

	id := Identity{Account: account}
	if entry.Username != "" {
		username := entry.Username
		id.Username = &username
	}

	hash := strings.ToLower(entry.EmailHash)
	if hash == "" {
		hash = FallbackHash(account)
	}
	id.GravatarURL = GravatarURL(hash, size)

	return id
}

// lookup consults the cache, then the resolvers. Results are cached only when
// both resolvers answered without error.
func (e *Enricher) lookup(ctx context.Context, account string) CachedIdentity {
	if e.cache != nil {
		cached, err := e.cache.Get(ctx, account)
		switch {
		case err != nil:
			e.metrics.RecordIdentityCache("error")
			e.logger.WarnContext(ctx, "identity cache read failed", "account", account, "error", err)
		case cached != nil:
			e.metrics.RecordIdentityCache("hit")
			return *cached
		default:
			e.metrics.RecordIdentityCache("miss")
		}
	}

	var (
		entry    CachedIdentity
		degraded bool
	)

	if e.usernames != nil {
		username, err := e.timed(ctx, "username", account, e.usernames.ResolveUsername)
		if err != nil {
			degraded = true
		}
		entry.Username = username
	}

	if e.emails != nil {
		hash, err := e.timed(ctx, "email_hash", account, e.emails.ResolveEmailHash)
		if err != nil {
			degraded = true
		}
		entry.EmailHash = hash
	}

	if e.cache != nil && !degraded {
		if err := e.cache.Put(ctx, account, entry); err != nil {
			e.logger.WarnContext(ctx, "identity cache write failed", "account", account, "error", err)
		}
	}

	return entry
}

// timed runs one lookup, records its outcome and logs failures.
// A failed lookup yields an empty value.
func (e *Enricher) timed(ctx context.Context, source, account string, fn func(context.Context, string) (string, error)) (string, error) {
	start := time.Now()
	value, err := fn(ctx, account)
	duration := time.Since(start).Seconds()

	switch {
	case err != nil:
		e.metrics.RecordIdentityLookup(source, "error", duration)
		e.logger.WarnContext(ctx, "identity lookup failed",
			"source", source,
			"account", account,
			"error", err,
		)
		return "", err
	case value == "":
		e.metrics.RecordIdentityLookup(source, "absent", duration)
	default:
		e.metrics.RecordIdentityLookup(source, "found", duration)
	}
	return value, nil
}

// FallbackHash returns the MD5 hex digest of the raw address.
func FallbackHash(account string) string {
	sum := md5.Sum([]byte(account))
	return hex.EncodeToString(sum[:])
}

// GravatarURL returns the avatar URL for an email hash.
func GravatarURL(hash string, size int) string {
	return fmt.Sprintf("https://www.gravatar.com/avatar/%s?s=%d&d=retro", hash, size)
}
