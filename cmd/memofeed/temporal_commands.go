package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/memofeed/service/temporal"
)

func accountFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "account",
		Aliases:  []string{"a"},
		Usage:    "Feed account to sync",
		EnvVars:  []string{"FEED_ACCOUNT"},
		Required: true,
	}
}

func createScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create or update the archive sync schedule of a feed account",
		Flags: []cli.Flag{
			accountFlag(),
			&cli.DurationFlag{
				Name:    "interval",
				Aliases: []string{"i"},
				Usage:   "Sync interval",
				EnvVars: []string{"SYNC_INTERVAL"},
				Value:   time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			interval := c.Duration("interval")
			if interval <= 0 {
				return fmt.Errorf("interval must be positive, got %s", interval)
			}

			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			account := c.String("account")
			if err := temporalClient.UpsertFeedSchedule(context.Background(), account, interval); err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "schedule %s syncs every %s\n", temporal.ScheduleID(account), interval)
			return nil
		},
	}
}

func describeScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:    "describe",
		Aliases: []string{"desc"},
		Usage:   "Describe the archive sync schedule of a feed account",
		Flags:   []cli.Flag{accountFlag()},
		Action: func(c *cli.Context) error {
			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			account := c.String("account")
			desc, err := temporalClient.DescribeFeedSchedule(context.Background(), account)
			if err != nil {
				return err
			}

			summary := map[string]interface{}{
				"schedule_id":    temporal.ScheduleID(account),
				"recent_actions": len(desc.Info.RecentActions),
				"next_runs":      desc.Info.NextActionTimes,
			}
			if desc.Schedule.Spec != nil {
				intervals := make([]string, 0, len(desc.Schedule.Spec.Intervals))
				for _, iv := range desc.Schedule.Spec.Intervals {
					intervals = append(intervals, iv.Every.String())
				}
				summary["intervals"] = intervals
			}
			if desc.Schedule.State != nil {
				summary["paused"] = desc.Schedule.State.Paused
				summary["note"] = desc.Schedule.State.Note
			}
			return output(c, summary)
		},
	}
}

func deleteScheduleCommand() *cli.Command {
	return &cli.Command{
		Name:    "delete",
		Aliases: []string{"rm"},
		Usage:   "Delete the archive sync schedule of a feed account",
		Flags:   []cli.Flag{accountFlag()},
		Action: func(c *cli.Context) error {
			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			account := c.String("account")
			if err := temporalClient.DeleteFeedSchedule(context.Background(), account); err != nil {
				return err
			}

			fmt.Fprintf(c.App.Writer, "schedule %s deleted\n", temporal.ScheduleID(account))
			return nil
		},
	}
}

func syncNowCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Run one archive sync through the worker and wait for it",
		Flags: []cli.Flag{
			accountFlag(),
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the sync to finish",
				Value: 10 * time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			temporalClient, err := getTemporalClient(c)
			if err != nil {
				return err
			}
			defer temporalClient.Close()

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			result, err := temporalClient.SyncNow(ctx, c.String("account"))
			if err != nil {
				return err
			}
			return output(c, result)
		},
	}
}

// getTemporalClient creates a Temporal client from CLI context.
func getTemporalClient(c *cli.Context) (*temporal.Client, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	return temporal.NewClient(
		c.String("temporal-host"),
		c.String("temporal-namespace"),
		c.String("task-queue"),
		logger,
	)
}
