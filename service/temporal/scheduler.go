package temporal

import (
	"context"
	"time"
)

// Scheduler manages Temporal schedules for archive syncing.
// Each feed account gets its own schedule that triggers the SyncFeedWorkflow.
type Scheduler interface {
	// UpsertFeedSchedule creates the schedule for a feed account, or updates
	// its interval when it already exists.
	UpsertFeedSchedule(ctx context.Context, account string, interval time.Duration) error

	// DeleteFeedSchedule deletes the schedule for a feed account.
	// This stops the account from being synced.
	DeleteFeedSchedule(ctx context.Context, account string) error
}

// ScheduleID returns the Temporal schedule ID for a feed account.
func ScheduleID(account string) string {
	return "sync-feed-" + account
}
