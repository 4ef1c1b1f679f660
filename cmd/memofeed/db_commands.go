package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/memofeed/service/db"
	"github.com/brojonat/memofeed/service/xrpl"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Create the archive and override tables",
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.Migrate(context.Background()); err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, "schema is up to date")
			return nil
		},
	}
}

func syncCommand() *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Copy the feed account history from the ledger into the archive",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "rpc-url",
				Usage:    "Ledger JSON-RPC URL",
				EnvVars:  []string{"XRPL_RPC_URL"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "account",
				Aliases:  []string{"a"},
				Usage:    "Feed account to archive",
				EnvVars:  []string{"FEED_ACCOUNT"},
				Required: true,
			},
			&cli.IntFlag{
				Name:  "max-pages",
				Usage: "Maximum account_tx pages to follow (0 for no cap)",
				Value: 0,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Timeout for the ledger fetch",
				Value: 5 * time.Minute,
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
				Level: slog.LevelWarn,
			}))
			ledger := xrpl.NewClient(xrpl.NewRPCClient(c.String("rpc-url")), xrpl.ClientOptions{
				Endpoint: "cli",
				MaxPages: c.Int("max-pages"),
				Timeout:  c.Duration("timeout"),
			}, nil, logger)

			account := c.String("account")
			ctx := context.Background()

			txns, err := ledger.AccountTransactions(ctx, account)
			if err != nil {
				return fmt.Errorf("failed to fetch ledger history: %w", err)
			}

			if err := store.Migrate(ctx); err != nil {
				return err
			}
			written, err := store.UpsertTransactions(ctx, account, txns)
			if err != nil {
				return fmt.Errorf("failed to archive transactions: %w", err)
			}

			fmt.Fprintf(c.App.Writer, "archived %d of %d transactions for %s\n", written, len(txns), account)
			return nil
		},
	}
}

func addOverrideCommand() *cli.Command {
	return &cli.Command{
		Name:      "add",
		Usage:     "Put a transaction hash on the blacklist or whitelist",
		ArgsUsage: "HASH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "list",
				Aliases:  []string{"l"},
				Usage:    "blacklist or whitelist",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "note",
				Usage: "Reason for the override",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction hash")
			}
			list, err := db.ParseOverrideList(c.String("list"))
			if err != nil {
				return err
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			override, err := store.AddOverride(context.Background(), c.Args().First(), list, c.String("note"))
			if err != nil {
				return fmt.Errorf("failed to add override: %w", err)
			}
			return output(c, override)
		},
	}
}

func removeOverrideCommand() *cli.Command {
	return &cli.Command{
		Name:      "remove",
		Aliases:   []string{"rm"},
		Usage:     "Remove a transaction hash from a list",
		ArgsUsage: "HASH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "list",
				Aliases:  []string{"l"},
				Usage:    "blacklist or whitelist",
				Required: true,
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: transaction hash")
			}
			list, err := db.ParseOverrideList(c.String("list"))
			if err != nil {
				return err
			}

			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			if err := store.RemoveOverride(context.Background(), c.Args().First(), list); err != nil {
				return fmt.Errorf("failed to remove override: %w", err)
			}
			fmt.Fprintf(c.App.Writer, "removed %s from %s\n", c.Args().First(), list)
			return nil
		},
	}
}

func listOverridesCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List curator overrides",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output in JSON format",
			},
		},
		Action: func(c *cli.Context) error {
			store, closer, err := getStore(c)
			if err != nil {
				return err
			}
			defer closer()

			overrides, err := store.ListOverrides(context.Background())
			if err != nil {
				return fmt.Errorf("failed to list overrides: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return output(c, overrides)
			}

			// Pretty table output
			w := tabwriter.NewWriter(c.App.Writer, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "HASH\tLIST\tNOTE\tCREATED")
			for _, o := range overrides {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", o.Hash, o.List, o.Note, o.CreatedAt.Format(time.RFC3339))
			}
			w.Flush()

			fmt.Fprintf(c.App.ErrWriter, "\nTotal: %d overrides\n", len(overrides))
			return nil
		},
	}
}

// getStore creates a database store from CLI context.
func getStore(c *cli.Context) (*db.Store, func(), error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, fmt.Errorf("database-url is required (set DATABASE_URL env var or use --database-url)")
	}

	pool, err := pgxpool.New(context.Background(), dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool, nil)
	closer := func() { pool.Close() }

	return store, closer, nil
}
