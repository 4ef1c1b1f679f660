package temporal

import (
	"fmt"
	"time"

	temporalsdk "go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

var a *Activities // for type-safe activity invocation

// SyncFeedWorkflow copies new ledger history of a feed account into the
// archive. It is triggered by a Temporal schedule at a configured interval.
//
// The workflow performs these steps:
// 1. Read the newest archived ledger (GetArchiveCheckpoint activity)
// 2. Fetch history from that ledger on and upsert it (ArchiveLedgerHistory activity)
// 3. Return a summary of what was archived
func SyncFeedWorkflow(ctx workflow.Context, input SyncFeedInput) (*SyncFeedResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("SyncFeedWorkflow started", "account", input.Account)

	result := &SyncFeedResult{
		Account:  input.Account,
		SyncTime: workflow.Now(ctx),
	}

	activityOptions := workflow.ActivityOptions{
		StartToCloseTimeout: 300 * time.Second,
		RetryPolicy: &temporalsdk.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, activityOptions)

	// Step 1: find where the archive left off
	var checkpoint *GetArchiveCheckpointResult
	err := workflow.ExecuteActivity(ctx, a.GetArchiveCheckpoint, GetArchiveCheckpointInput{Account: input.Account}).Get(ctx, &checkpoint)
	if err != nil {
		errMsg := fmt.Sprintf("failed to get archive checkpoint: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to get archive checkpoint: %w", err)
	}
	result.FromLedger = checkpoint.LatestLedger

	logger.Debug("resuming archive", "account", input.Account, "from_ledger", checkpoint.LatestLedger)

	// Step 2: fetch and archive everything from that ledger on
	var archived *ArchiveLedgerHistoryResult
	err = workflow.ExecuteActivity(ctx, a.ArchiveLedgerHistory, ArchiveLedgerHistoryInput{
		Account:   input.Account,
		MinLedger: checkpoint.LatestLedger,
	}).Get(ctx, &archived)
	if err != nil {
		logger.Error("failed to archive ledger history", "account", input.Account, "error", err)
		errMsg := fmt.Sprintf("failed to archive ledger history: %v", err)
		result.Error = &errMsg
		return result, fmt.Errorf("failed to archive ledger history: %w", err)
	}

	result.Fetched = archived.Fetched
	result.Written = archived.Written
	result.NewestLedger = archived.NewestLedger

	logger.Info("SyncFeedWorkflow completed successfully",
		"account", input.Account,
		"from_ledger", result.FromLedger,
		"fetched", result.Fetched,
		"written", result.Written,
		"newest_ledger", result.NewestLedger,
	)

	return result, nil
}
