package temporal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/brojonat/memofeed/service/metrics"
	"github.com/brojonat/memofeed/service/xrpl"
)

// SyncFeedInput contains the input parameters for syncing a feed account.
type SyncFeedInput struct {
	Account string `json:"account"`
}

// SyncFeedResult contains the result of one archive sync.
type SyncFeedResult struct {
	Account      string    `json:"account"`
	SyncTime     time.Time `json:"sync_time"`
	FromLedger   uint32    `json:"from_ledger"`
	Fetched      int       `json:"fetched"`
	Written      int       `json:"written"`
	NewestLedger uint32    `json:"newest_ledger,omitempty"`
	Error        *string   `json:"error,omitempty"`
}

// GetArchiveCheckpointInput contains parameters for the GetArchiveCheckpoint activity.
type GetArchiveCheckpointInput struct {
	Account string `json:"account"`
}

// GetArchiveCheckpointResult contains the newest archived ledger of an account.
// Zero means the archive holds nothing yet.
type GetArchiveCheckpointResult struct {
	LatestLedger uint32 `json:"latest_ledger"`
}

// ArchiveLedgerHistoryInput contains parameters for the ArchiveLedgerHistory activity.
type ArchiveLedgerHistoryInput struct {
	Account   string `json:"account"`
	MinLedger uint32 `json:"min_ledger"`
}

// ArchiveLedgerHistoryResult contains the result of archiving ledger history.
type ArchiveLedgerHistoryResult struct {
	Fetched      int    `json:"fetched"`
	Written      int    `json:"written"`
	NewestLedger uint32 `json:"newest_ledger,omitempty"`
}

// StoreInterface defines the archive operations needed by activities.
// This allows for easy mocking in tests.
type StoreInterface interface {
	LatestLedgerIndex(ctx context.Context, account string) (uint32, error)
	UpsertTransactions(ctx context.Context, feedAccount string, txns []*xrpl.Transaction) (int, error)
}

// LedgerClientInterface defines the ledger reads needed by activities.
// This allows for easy mocking in tests.
type LedgerClientInterface interface {
	AccountTransactionsSince(ctx context.Context, account string, minLedger uint32) ([]*xrpl.Transaction, error)
}

// Activities holds the dependencies needed by Temporal activities.
type Activities struct {
	store   StoreInterface
	ledger  LedgerClientInterface
	metrics *metrics.Metrics
	logger  *slog.Logger
}

// NewActivities creates a new Activities instance with explicit dependencies.
// If metrics is nil, no metrics will be recorded.
func NewActivities(store StoreInterface, ledger LedgerClientInterface, m *metrics.Metrics, logger *slog.Logger) *Activities {
	if logger == nil {
		logger = slog.Default()
	}
	return &Activities{
		store:   store,
		ledger:  ledger,
		metrics: m,
		logger:  logger,
	}
}

// GetArchiveCheckpoint returns the newest ledger index already archived for
// the account. The sync resumes from that ledger.
func (a *Activities) GetArchiveCheckpoint(ctx context.Context, input GetArchiveCheckpointInput) (*GetArchiveCheckpointResult, error) {
	start := time.Now()
	defer func() {
		a.metrics.RecordActivityDuration("GetArchiveCheckpoint", input.Account, time.Since(start).Seconds())
	}()

	latest, err := a.store.LatestLedgerIndex(ctx, input.Account)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to read archive checkpoint",
			"account", input.Account,
			"error", err,
		)
		return nil, fmt.Errorf("failed to read archive checkpoint: %w", err)
	}

	a.logger.DebugContext(ctx, "read archive checkpoint",
		"account", input.Account,
		"latest_ledger", latest,
	)

	return &GetArchiveCheckpointResult{LatestLedger: latest}, nil
}

// ArchiveLedgerHistory fetches the account history from MinLedger onwards
// and upserts it into the archive. The ledger at MinLedger is fetched again,
// so records in a partially archived ledger are not lost. Records go
// straight from the node to the database and never pass through workflow
// history.
func (a *Activities) ArchiveLedgerHistory(ctx context.Context, input ArchiveLedgerHistoryInput) (*ArchiveLedgerHistoryResult, error) {
	start := time.Now()
	defer func() {
		a.metrics.RecordActivityDuration("ArchiveLedgerHistory", input.Account, time.Since(start).Seconds())
	}()

	a.logger.DebugContext(ctx, "archiving ledger history",
		"account", input.Account,
		"min_ledger", input.MinLedger,
	)

	txns, err := a.ledger.AccountTransactionsSince(ctx, input.Account, input.MinLedger)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to fetch ledger history",
			"account", input.Account,
			"min_ledger", input.MinLedger,
			"error", err,
		)
		return nil, fmt.Errorf("failed to fetch ledger history: %w", err)
	}
	a.metrics.RecordSyncRecords(input.Account, "fetched", len(txns))

	result := &ArchiveLedgerHistoryResult{Fetched: len(txns)}
	for _, txn := range txns {
		if txn.LedgerIndex > result.NewestLedger {
			result.NewestLedger = txn.LedgerIndex
		}
	}

	if len(txns) == 0 {
		a.logger.DebugContext(ctx, "no new ledger history", "account", input.Account)
		return result, nil
	}

	written, err := a.store.UpsertTransactions(ctx, input.Account, txns)
	if err != nil {
		a.logger.ErrorContext(ctx, "failed to archive transactions",
			"account", input.Account,
			"count", len(txns),
			"error", err,
		)
		return nil, fmt.Errorf("failed to archive transactions: %w", err)
	}
	result.Written = written
	a.metrics.RecordSyncRecords(input.Account, "written", written)

	a.logger.InfoContext(ctx, "archived ledger history",
		"account", input.Account,
		"fetched", result.Fetched,
		"written", result.Written,
		"newest_ledger", result.NewestLedger,
	)

	return result, nil
}
