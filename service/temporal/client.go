package temporal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
)

// Client is a production implementation of Scheduler that talks to Temporal.
type Client struct {
	client    client.Client
	schedules client.ScheduleClient
	taskQueue string
	logger    *slog.Logger
}

var _ Scheduler = (*Client)(nil)

// NewClient creates a new Temporal client.
func NewClient(host, namespace, taskQueue string, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("connecting to temporal",
		"host", host,
		"namespace", namespace,
		"task_queue", taskQueue,
	)

	c, err := client.Dial(client.Options{
		HostPort:  host,
		Namespace: namespace,
		Logger:    newTemporalLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Temporal: %w", err)
	}

	logger.Info("connected to temporal successfully")

	return &Client{
		client:    c,
		schedules: c.ScheduleClient(),
		taskQueue: taskQueue,
		logger:    logger,
	}, nil
}

// CreateFeedSchedule creates a new schedule that syncs account every interval.
func (c *Client) CreateFeedSchedule(ctx context.Context, account string, interval time.Duration) error {
	id := ScheduleID(account)

	c.logger.Debug("creating feed schedule",
		"account", account,
		"schedule_id", id,
		"interval", interval,
	)

	_, err := c.schedules.Create(ctx, client.ScheduleOptions{
		ID: id,
		Spec: client.ScheduleSpec{
			Intervals: []client.ScheduleIntervalSpec{
				{Every: interval},
			},
		},
		Action: &client.ScheduleWorkflowAction{
			ID:        "sync-feed-" + account,
			Workflow:  SyncFeedWorkflow,
			TaskQueue: c.taskQueue,
			Args:      []interface{}{SyncFeedInput{Account: account}},
		},
		// A slow sync must not pile up behind itself.
		Overlap: enumspb.SCHEDULE_OVERLAP_POLICY_SKIP,
		Memo: map[string]interface{}{
			"account":    account,
			"created_by": "memofeed",
		},
	})
	if err != nil {
		c.logger.Error("failed to create schedule",
			"account", account,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to create schedule %q: %w", id, err)
	}

	c.logger.Info("feed schedule created",
		"account", account,
		"schedule_id", id,
		"interval", interval,
	)
	return nil
}

// UpsertFeedSchedule creates or updates the schedule for account.
// If the schedule already exists, only its interval is changed.
func (c *Client) UpsertFeedSchedule(ctx context.Context, account string, interval time.Duration) error {
	id := ScheduleID(account)
	handle := c.schedules.GetHandle(ctx, id)

	if _, err := handle.Describe(ctx); err != nil {
		var notFound *serviceerror.NotFound
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to describe schedule %q: %w", id, err)
		}
		c.logger.Debug("schedule not found, creating new one", "schedule_id", id)
		return c.CreateFeedSchedule(ctx, account, interval)
	}

	err := handle.Update(ctx, client.ScheduleUpdateOptions{
		DoUpdate: func(input client.ScheduleUpdateInput) (*client.ScheduleUpdate, error) {
			schedule := input.Description.Schedule
			if schedule.Spec == nil {
				schedule.Spec = &client.ScheduleSpec{}
			}
			schedule.Spec.Intervals = []client.ScheduleIntervalSpec{
				{Every: interval},
			}
			return &client.ScheduleUpdate{Schedule: &schedule}, nil
		},
	})
	if err != nil {
		c.logger.Error("failed to update schedule",
			"account", account,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to update schedule %q: %w", id, err)
	}

	c.logger.Info("feed schedule updated",
		"account", account,
		"schedule_id", id,
		"interval", interval,
	)
	return nil
}

// DescribeFeedSchedule returns the current state of the schedule for account.
func (c *Client) DescribeFeedSchedule(ctx context.Context, account string) (*client.ScheduleDescription, error) {
	id := ScheduleID(account)
	desc, err := c.schedules.GetHandle(ctx, id).Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to describe schedule %q: %w", id, err)
	}
	return desc, nil
}

// DeleteFeedSchedule deletes the schedule for account.
func (c *Client) DeleteFeedSchedule(ctx context.Context, account string) error {
	id := ScheduleID(account)

	if err := c.schedules.GetHandle(ctx, id).Delete(ctx); err != nil {
		c.logger.Error("failed to delete schedule",
			"account", account,
			"schedule_id", id,
			"error", err,
		)
		return fmt.Errorf("failed to delete schedule %q: %w", id, err)
	}

	c.logger.Info("feed schedule deleted",
		"account", account,
		"schedule_id", id,
	)
	return nil
}

// SyncNow runs SyncFeedWorkflow for account once and waits for its result.
func (c *Client) SyncNow(ctx context.Context, account string) (*SyncFeedResult, error) {
	run, err := c.client.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        fmt.Sprintf("sync-feed-%s-manual-%d", account, time.Now().Unix()),
		TaskQueue: c.taskQueue,
	}, SyncFeedWorkflow, SyncFeedInput{Account: account})
	if err != nil {
		return nil, fmt.Errorf("failed to start sync workflow: %w", err)
	}

	c.logger.Debug("started sync workflow",
		"workflow_id", run.GetID(),
		"run_id", run.GetRunID(),
	)

	var result SyncFeedResult
	if err := run.Get(ctx, &result); err != nil {
		return nil, fmt.Errorf("sync workflow failed: %w", err)
	}
	return &result, nil
}

// TaskQueue returns the configured task queue for this client.
func (c *Client) TaskQueue() string {
	return c.taskQueue
}

// Close closes the Temporal client connection.
func (c *Client) Close() {
	c.logger.Info("closing temporal client")
	if c.client != nil {
		c.client.Close()
	}
}

// temporalLogger adapts slog.Logger to Temporal's logger interface.
type temporalLogger struct {
	logger *slog.Logger
}

func newTemporalLogger(logger *slog.Logger) *temporalLogger {
	return &temporalLogger{logger: logger}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) {
	l.logger.Debug(msg, keyvals...)
}

func (l *temporalLogger) Info(msg string, keyvals ...interface{}) {
	l.logger.Info(msg, keyvals...)
}

func (l *temporalLogger) Warn(msg string, keyvals ...interface{}) {
	l.logger.Warn(msg, keyvals...)
}

func (l *temporalLogger) Error(msg string, keyvals ...interface{}) {
	l.logger.Error(msg, keyvals...)
}
