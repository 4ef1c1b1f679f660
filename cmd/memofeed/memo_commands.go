package main

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/brojonat/memofeed/service/memo"
)

func memoEncodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "encode",
		Usage:     "Hex encode text for a MemoData field",
		ArgsUsage: "TEXT...",
		Action: func(c *cli.Context) error {
			if c.NArg() == 0 {
				return fmt.Errorf("text is required")
			}
			fmt.Fprintln(c.App.Writer, memo.Encode(strings.Join(c.Args().Slice(), " ")))
			return nil
		},
	}
}

func memoDecodeCommand() *cli.Command {
	return &cli.Command{
		Name:      "decode",
		Usage:     "Decode a hex MemoData field to text",
		ArgsUsage: "HEX",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("requires exactly one argument: hex memo data")
			}
			fmt.Fprintln(c.App.Writer, memo.Decode(c.Args().First()))
			return nil
		},
	}
}
