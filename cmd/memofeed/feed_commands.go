package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/memofeed/client"
)

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Value:   60 * time.Second,
		Usage:   "Request timeout",
	}
}

func newClient(c *cli.Context) *client.Client {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError, // Only errors to stderr
	}))
	return client.NewClient(c.String("server-url"), &http.Client{Timeout: c.Duration("timeout")}, logger)
}

func feedCommand() *cli.Command {
	return &cli.Command{
		Name:  "feed",
		Usage: "Show a page of the feed",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "cursor",
				Aliases: []string{"c"},
				Usage:   "Offset of the first post",
			},
			&cli.StringFlag{
				Name:    "account",
				Aliases: []string{"a"},
				Usage:   "Only posts authored by this account",
			},
			&cli.BoolFlag{
				Name:  "all",
				Usage: "Follow nextCursor and print every post",
			},
			timeoutFlag(),
		},
		Action: func(c *cli.Context) error {
			cl := newClient(c)
			ctx := context.Background()
			account := c.String("account")

			fetch := func(cursor int) (*client.Page, error) {
				if account != "" {
					return cl.GetFeedByAccount(ctx, account, cursor)
				}
				return cl.GetFeed(ctx, cursor)
			}

			page, err := fetch(c.Int("cursor"))
			if err != nil {
				return fmt.Errorf("failed to get feed: %w", err)
			}
			if !c.Bool("all") {
				return output(c, page)
			}

			posts := page.Posts
			for page.NextCursor != nil {
				if page, err = fetch(*page.NextCursor); err != nil {
					return fmt.Errorf("failed to get feed: %w", err)
				}
				posts = append(posts, page.Posts...)
			}
			return output(c, posts)
		},
	}
}

func postCommand() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "Show a single post",
		ArgsUsage: "POST_HASH",
		Flags:     []cli.Flag{timeoutFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: post hash")
			}
			post, err := newClient(c).GetPost(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get post: %w", err)
			}
			return output(c, post)
		},
	}
}

func commentsCommand() *cli.Command {
	return &cli.Command{
		Name:      "comments",
		Usage:     "Show the comments on a post",
		ArgsUsage: "POST_HASH",
		Flags:     []cli.Flag{timeoutFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: post hash")
			}
			comments, err := newClient(c).GetComments(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get comments: %w", err)
			}
			return output(c, comments)
		},
	}
}

func likesCommand() *cli.Command {
	return &cli.Command{
		Name:      "likes",
		Usage:     "Show the likes of a post",
		ArgsUsage: "POST_HASH",
		Flags:     []cli.Flag{timeoutFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: post hash")
			}
			likes, err := newClient(c).GetLikes(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get likes: %w", err)
			}
			return output(c, likes)
		},
	}
}

func threadCommand() *cli.Command {
	return &cli.Command{
		Name:      "thread",
		Usage:     "Show a post with its comments and likes",
		ArgsUsage: "POST_HASH",
		Flags:     []cli.Flag{timeoutFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: post hash")
			}
			thread, err := newClient(c).GetThread(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get thread: %w", err)
			}
			return output(c, thread)
		},
	}
}

func userCommand() *cli.Command {
	return &cli.Command{
		Name:      "user",
		Usage:     "Show the profile identity of an account",
		ArgsUsage: "ACCOUNT",
		Flags:     []cli.Flag{timeoutFlag()},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: account address")
			}
			info, err := newClient(c).GetUserInfo(context.Background(), c.Args().First())
			if err != nil {
				return fmt.Errorf("failed to get user info: %w", err)
			}
			return output(c, info)
		},
	}
}
