package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brojonat/memofeed/service/metrics"
	"github.com/brojonat/memofeed/service/xrpl"
)

// Schema creates the tables used by the store. It is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS overrides (
	hash       TEXT        NOT NULL,
	list       TEXT        NOT NULL CHECK (list IN ('blacklist', 'whitelist')),
	note       TEXT        NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (hash, list)
);

CREATE TABLE IF NOT EXISTS transactions (
	hash         TEXT        PRIMARY KEY,
	feed_account TEXT        NOT NULL,
	ledger_index BIGINT      NOT NULL,
	ledger_date  BIGINT      NOT NULL,
	raw          JSONB       NOT NULL,
	synced_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS transactions_feed_account_idx
	ON transactions (feed_account, ledger_index DESC, ledger_date DESC);
`

// OverrideList names one of the curator lists.
type OverrideList string

const (
	Blacklist OverrideList = "blacklist"
	Whitelist OverrideList = "whitelist"
)

// ErrInvalidList is returned for a list name other than blacklist or whitelist.
var ErrInvalidList = errors.New("invalid override list")

// ParseOverrideList validates a list name.
func ParseOverrideList(s string) (OverrideList, error) {
	switch OverrideList(strings.ToLower(s)) {
	case Blacklist:
		return Blacklist, nil
	case Whitelist:
		return Whitelist, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidList, s)
	}
}

// Override is a curator decision about one transaction hash.
type Override struct {
	Hash      string       `json:"hash"`
	List      OverrideList `json:"list"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

// Store provides database operations for the service: curator overrides and
// the archive of feed account transactions.
type Store struct {
	pool    *pgxpool.Pool
	metrics *metrics.Metrics
}

// NewStore creates a new Store with the given database connection pool.
// If metrics is nil, no metrics will be recorded.
func NewStore(pool *pgxpool.Pool, m *metrics.Metrics) *Store {
	return &Store{
		pool:    pool,
		metrics: m,
	}
}

// Migrate applies Schema.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// AddOverride places hash on list. Adding an existing entry updates its note.
func (s *Store) AddOverride(ctx context.Context, hash string, list OverrideList, note string) (override *Override, err error) {
	defer s.observe("insert", "overrides", time.Now(), &err)

	override = &Override{}
	err = s.pool.QueryRow(ctx, `
		INSERT INTO overrides (hash, list, note)
		VALUES ($1, $2, $3)
		ON CONFLICT (hash, list) DO UPDATE SET note = EXCLUDED.note
		RETURNING hash, list, note, created_at`,
		strings.ToUpper(strings.TrimSpace(hash)), string(list), note,
	).Scan(&override.Hash, &override.List, &override.Note, &override.CreatedAt)
	if err != nil {
		return nil, err
	}
	return override, nil
}

// RemoveOverride removes hash from list. Removing a missing entry is not an error.
func (s *Store) RemoveOverride(ctx context.Context, hash string, list OverrideList) (err error) {
	defer s.observe("delete", "overrides", time.Now(), &err)

	_, err = s.pool.Exec(ctx,
		`DELETE FROM overrides WHERE hash = $1 AND list = $2`,
		strings.ToUpper(strings.TrimSpace(hash)), string(list),
	)
	return err
}

// ListOverrides returns every override ordered by creation time.
func (s *Store) ListOverrides(ctx context.Context) (overrides []*Override, err error) {
	defer s.observe("select", "overrides", time.Now(), &err)

	rows, err := s.pool.Query(ctx,
		`SELECT hash, list, note, created_at FROM overrides ORDER BY created_at, hash`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	overrides = make([]*Override, 0)
	for rows.Next() {
		o := &Override{}
		if err := rows.Scan(&o.Hash, &o.List, &o.Note, &o.CreatedAt); err != nil {
			return nil, err
		}
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// OverrideHashes splits the stored overrides into blacklist and whitelist hashes.
func (s *Store) OverrideHashes(ctx context.Context) (blacklist, whitelist []string, err error) {
	overrides, err := s.ListOverrides(ctx)
	if err != nil {
		return nil, nil, err
	}
	for _, o := range overrides {
		switch o.List {
		case Blacklist:
			blacklist = append(blacklist, o.Hash)
		case Whitelist:
			whitelist = append(whitelist, o.Hash)
		}
	}
	return blacklist, whitelist, nil
}

// UpsertTransactions archives the history of feedAccount. Records already
// present are replaced. It returns the number of records written.
func (s *Store) UpsertTransactions(ctx context.Context, feedAccount string, txns []*xrpl.Transaction) (written int, err error) {
	defer s.observe("upsert", "transactions", time.Now(), &err)

	if len(txns) == 0 {
		return 0, nil
	}

	batch := &pgx.Batch{}
	for _, txn := range txns {
		raw, err := json.Marshal(txn)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal transaction %s: %w", txn.Hash, err)
		}
		batch.Queue(`
			INSERT INTO transactions (hash, feed_account, ledger_index, ledger_date, raw)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (hash) DO UPDATE SET
				feed_account = EXCLUDED.feed_account,
				ledger_index = EXCLUDED.ledger_index,
				ledger_date = EXCLUDED.ledger_date,
				raw = EXCLUDED.raw,
				synced_at = now()`,
			txn.Hash, feedAccount, int64(txn.LedgerIndex), txn.Date, raw,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for range txns {
		if _, err := results.Exec(); err != nil {
			return written, fmt.Errorf("failed to upsert transaction: %w", err)
		}
		written++
	}
	return written, nil
}

// AccountTransactions returns the archived history of account, newest first.
// It satisfies the feed record source contract.
func (s *Store) AccountTransactions(ctx context.Context, account string) (txns []*xrpl.Transaction, err error) {
	defer s.observe("select", "transactions", time.Now(), &err)

	rows, err := s.pool.Query(ctx, `
		SELECT raw FROM transactions
		WHERE feed_account = $1
		ORDER BY ledger_index DESC, ledger_date DESC, hash`,
		account,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txns = make([]*xrpl.Transaction, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		txn := &xrpl.Transaction{}
		if err := json.Unmarshal(raw, txn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal archived transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.metrics.RecordTransactionsFetched(account, "archive", len(txns))
	return txns, nil
}

// CountTransactions returns the number of archived records of account.
func (s *Store) CountTransactions(ctx context.Context, account string) (count int64, err error) {
	defer s.observe("count", "transactions", time.Now(), &err)

	err = s.pool.QueryRow(ctx,
		`SELECT count(*) FROM transactions WHERE feed_account = $1`, account,
	).Scan(&count)
	return count, err
}

// LatestLedgerIndex returns the highest ledger index archived for account,
// or zero when nothing is archived yet.
func (s *Store) LatestLedgerIndex(ctx context.Context, account string) (index uint32, err error) {
	defer s.observe("select", "transactions", time.Now(), &err)

	var latest int64
	err = s.pool.QueryRow(ctx,
		`SELECT COALESCE(max(ledger_index), 0) FROM transactions WHERE feed_account = $1`, account,
	).Scan(&latest)
	if err != nil {
		return 0, err
	}
	return uint32(latest), nil
}

func (s *Store) observe(operation, table string, start time.Time, err *error) {
	s.metrics.RecordDBQuery(operation, table, time.Since(start).Seconds(), *err)
}
