package temporal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"
)

const testAccount = "rPEPPER7kfTD9w2To4CQk6UCfuHM9c6GDY"

func newWorkflowEnv(t *testing.T) (*testsuite.TestWorkflowEnvironment, *Activities) {
	t.Helper()

	testSuite := &testsuite.WorkflowTestSuite{}
	env := testSuite.NewTestWorkflowEnvironment()

	// Register activities first (before mocking)
	activities := &Activities{}
	env.RegisterActivity(activities.GetArchiveCheckpoint)
	env.RegisterActivity(activities.ArchiveLedgerHistory)

	return env, activities
}

func TestSyncFeedWorkflow(t *testing.T) {
	tests := []struct {
		name           string
		mockActivities func(env *testsuite.TestWorkflowEnvironment, activities *Activities)
		expectedError  string
		validateResult func(*testing.T, *SyncFeedResult)
	}{
		{
			name: "resumes from the archive checkpoint",
			mockActivities: func(env *testsuite.TestWorkflowEnvironment, activities *Activities) {
				env.OnActivity(activities.GetArchiveCheckpoint, mock.Anything, GetArchiveCheckpointInput{Account: testAccount}).
					Return(&GetArchiveCheckpointResult{LatestLedger: 500}, nil)
				env.OnActivity(activities.ArchiveLedgerHistory, mock.Anything, ArchiveLedgerHistoryInput{Account: testAccount, MinLedger: 500}).
					Return(&ArchiveLedgerHistoryResult{Fetched: 3, Written: 3, NewestLedger: 512}, nil)
			},
			validateResult: func(t *testing.T, result *SyncFeedResult) {
				assert.Equal(t, testAccount, result.Account)
				assert.Equal(t, uint32(500), result.FromLedger)
				assert.Equal(t, 3, result.Fetched)
				assert.Equal(t, 3, result.Written)
				assert.Equal(t, uint32(512), result.NewestLedger)
				assert.Nil(t, result.Error)
			},
		},
		{
			name: "empty archive syncs the whole history",
			mockActivities: func(env *testsuite.TestWorkflowEnvironment, activities *Activities) {
				env.OnActivity(activities.GetArchiveCheckpoint, mock.Anything, mock.Anything).
					Return(&GetArchiveCheckpointResult{}, nil)
				env.OnActivity(activities.ArchiveLedgerHistory, mock.Anything, ArchiveLedgerHistoryInput{Account: testAccount}).
					Return(&ArchiveLedgerHistoryResult{}, nil)
			},
			validateResult: func(t *testing.T, result *SyncFeedResult) {
				assert.Zero(t, result.FromLedger)
				assert.Zero(t, result.Fetched)
				assert.Zero(t, result.Written)
			},
		},
		{
			name: "checkpoint fails",
			mockActivities: func(env *testsuite.TestWorkflowEnvironment, activities *Activities) {
				env.OnActivity(activities.GetArchiveCheckpoint, mock.Anything, mock.Anything).
					Return(nil, errors.New("database error"))
				// ArchiveLedgerHistory should NOT be called
			},
			expectedError: "failed to get archive checkpoint",
		},
		{
			name: "archive fails",
			mockActivities: func(env *testsuite.TestWorkflowEnvironment, activities *Activities) {
				env.OnActivity(activities.GetArchiveCheckpoint, mock.Anything, mock.Anything).
					Return(&GetArchiveCheckpointResult{LatestLedger: 10}, nil)
				env.OnActivity(activities.ArchiveLedgerHistory, mock.Anything, mock.Anything).
					Return(nil, errors.New("ledger RPC error"))
			},
			expectedError: "failed to archive ledger history",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, activities := newWorkflowEnv(t)
			tt.mockActivities(env, activities)

			env.ExecuteWorkflow(SyncFeedWorkflow, SyncFeedInput{Account: testAccount})
			require.True(t, env.IsWorkflowCompleted())

			if tt.expectedError != "" {
				err := env.GetWorkflowError()
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.expectedError)
				return
			}

			require.NoError(t, env.GetWorkflowError())

			var result SyncFeedResult
			require.NoError(t, env.GetWorkflowResult(&result))
			tt.validateResult(t, &result)
		})
	}
}

func TestSyncFeedWorkflow_ActivityRetries(t *testing.T) {
	env, activities := newWorkflowEnv(t)

	env.OnActivity(activities.GetArchiveCheckpoint, mock.Anything, mock.Anything).
		Return(&GetArchiveCheckpointResult{LatestLedger: 7}, nil)

	// Fail twice then succeed
	callCount := 0
	env.OnActivity(activities.ArchiveLedgerHistory, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		callCount++
		if callCount < 3 {
			panic("transient error") // Temporal retries on panics
		}
	}).Return(&ArchiveLedgerHistoryResult{Fetched: 1, Written: 1, NewestLedger: 8}, nil)

	env.ExecuteWorkflow(SyncFeedWorkflow, SyncFeedInput{Account: testAccount})

	require.NoError(t, env.GetWorkflowError())

	var result SyncFeedResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, 1, result.Written)
	assert.Equal(t, 3, callCount)
}
