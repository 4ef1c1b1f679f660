package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/brojonat/memofeed/service/identity"
)

const (
	// BucketName is the JetStream key-value bucket holding resolved identities.
	BucketName = "IDENTITIES"

	// DefaultTTL is how long a resolved identity is served from the bucket.
	DefaultTTL = time.Hour
)

// keyValue is the subset of jetstream.KeyValue the cache uses.
type keyValue interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// IdentityCache stores resolved identities in a JetStream key-value bucket,
// keyed by account address. Entries expire after the bucket TTL.
type IdentityCache struct {
	nc     *nats.Conn
	kv     keyValue
	logger *slog.Logger
}

// NewIdentityCache connects to NATS and ensures the identity bucket exists.
func NewIdentityCache(natsURL string, ttl time.Duration, logger *slog.Logger) (*IdentityCache, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	nc, err := nats.Connect(natsURL,
		nats.Name("memofeed-identity-cache"),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(1*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      BucketName,
		Description: "Resolved usernames and email hashes by account",
		TTL:         ttl,
		History:     1,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure key-value bucket exists: %w", err)
	}

	logger.Info("NATS identity cache initialized",
		"url", natsURL,
		"bucket", BucketName,
		"ttl", ttl,
	)

	return &IdentityCache{nc: nc, kv: kv, logger: logger}, nil
}

// Get returns the cached identity of account, or nil on a miss.
func (c *IdentityCache) Get(ctx context.Context, account string) (*identity.CachedIdentity, error) {
	entry, err := c.kv.Get(ctx, account)
	if errors.Is(err, jetstream.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read identity %s: %w", account, err)
	}

	var cached identity.CachedIdentity
	if err := json.Unmarshal(entry.Value(), &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity %s: %w", account, err)
	}
	return &cached, nil
}

// Put stores the resolved identity of account.
func (c *IdentityCache) Put(ctx context.Context, account string, entry identity.CachedIdentity) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}

	if _, err := c.kv.Put(ctx, account, data); err != nil {
		return fmt.Errorf("failed to store identity %s: %w", account, err)
	}

	c.logger.Debug("cached identity", "account", account)
	return nil
}

// Close closes the connection to NATS.
func (c *IdentityCache) Close() error {
	if c.nc != nil {
		c.nc.Close()
		c.logger.Info("NATS identity cache closed")
	}
	return nil
}
