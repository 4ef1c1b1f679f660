package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "memofeed",
		Usage: "Ledger memo social feed CLI",
		Description: `A command-line tool for reading and operating the memofeed service.

Use this CLI to browse the feed through the HTTP API, encode and decode memos,
manage the archive and curator overrides in the database, and schedule
archive syncs on the Temporal worker.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// Feed commands (HTTP API)
			feedCommand(),
			postCommand(),
			commentsCommand(),
			likesCommand(),
			threadCommand(),
			userCommand(),
			// Memo codec commands
			{
				Name:  "memo",
				Usage: "Memo encoding commands",
				Subcommands: []*cli.Command{
					memoEncodeCommand(),
					memoDecodeCommand(),
				},
			},
			// Database commands
			{
				Name:  "db",
				Usage: "Archive and override management commands",
				Subcommands: []*cli.Command{
					migrateCommand(),
					syncCommand(),
					{
						Name:  "override",
						Usage: "Curator override commands",
						Subcommands: []*cli.Command{
							addOverrideCommand(),
							removeOverrideCommand(),
							listOverridesCommand(),
						},
					},
				},
			},
			// Archive sync commands (Temporal)
			{
				Name:  "temporal",
				Usage: "Archive sync schedule commands",
				Subcommands: []*cli.Command{
					{
						Name:  "schedule",
						Usage: "Manage the archive sync schedule",
						Subcommands: []*cli.Command{
							createScheduleCommand(),
							describeScheduleCommand(),
							deleteScheduleCommand(),
						},
					},
					syncNowCommand(),
				},
			},
			// Server utility commands
			{
				Name:  "server",
				Usage: "Server utility commands",
				Subcommands: []*cli.Command{
					healthCommand(),
					versionCommand(),
				},
			},
		},
		// Global flags available to all commands
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "memofeed HTTP API URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "temporal-host",
				Usage:   "Temporal server host:port",
				EnvVars: []string{"TEMPORAL_HOST"},
				Value:   "localhost:7233",
			},
			&cli.StringFlag{
				Name:    "temporal-namespace",
				Usage:   "Temporal namespace",
				EnvVars: []string{"TEMPORAL_NAMESPACE"},
				Value:   "default",
			},
			&cli.StringFlag{
				Name:    "task-queue",
				Usage:   "Temporal task queue of the archive worker",
				EnvVars: []string{"TEMPORAL_TASK_QUEUE"},
				Value:   "memofeed-archive-sync",
			},
			&cli.StringFlag{
				Name:  "jq",
				Usage: "jq filter applied to JSON output",
			},
		},
	}
}
