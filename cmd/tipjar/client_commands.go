package main

import (
	"fmt"

	"github.com/brojonat/tipjar/client"
	"github.com/urfave/cli/v2"
)

func clientCommands() *cli.Command {
	return &cli.Command{
		Name:  "client",
		Usage: "Commands against a running tipjar server",
		Subcommands: []*cli.Command{
			{
				Name:  "stats",
				Usage: "Show the server's current tip jar stats",
				Flags: []cli.Flag{jqFlag},
				Action: func(c *cli.Context) error {
					stats, err := newAPIClient(c).Stats(c.Context)
					if err != nil {
						return fmt.Errorf("failed to get stats: %w", err)
					}
					return writeOutput(c.App.Writer, stats, c.String("jq"))
				},
			},
			{
				Name:  "refresh",
				Usage: "Ask the server to re-read the tip jar",
				Flags: []cli.Flag{jqFlag},
				Action: func(c *cli.Context) error {
					key, stats, err := newAPIClient(c).Refresh(c.Context)
					if err != nil {
						return fmt.Errorf("failed to refresh: %w", err)
					}
					return writeOutput(c.App.Writer, map[string]interface{}{
						"refresh_key": key,
						"stats":       stats,
					}, c.String("jq"))
				},
			},
			{
				Name:  "send",
				Usage: "Send a tip through the server's wallet",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "amount",
						Aliases:  []string{"a"},
						Usage:    "Tip amount in SUI",
						Required: true,
					},
					&cli.BoolFlag{
						Name:    "json",
						Aliases: []string{"j"},
						Usage:   "Output as JSON",
					},
				},
				Action: func(c *cli.Context) error {
					tip, err := newAPIClient(c).SendTip(c.Context, c.String("amount"))
					if err != nil {
						return err
					}
					if c.Bool("json") {
						return writeOutput(c.App.Writer, tip, "")
					}
					fmt.Fprintf(c.App.Writer, "✓ %s\n", tip.Message)
					fmt.Fprintf(c.App.Writer, "  Digest: %s\n", tip.Digest)
					return nil
				},
			},
			{
				Name:  "receipts",
				Usage: "List recorded tips",
				Flags: []cli.Flag{
					jqFlag,
					&cli.IntFlag{
						Name:  "limit",
						Value: 20,
						Usage: "Page size (1-100)",
					},
					&cli.IntFlag{
						Name:  "offset",
						Usage: "Page offset",
					},
				},
				Action: func(c *cli.Context) error {
					page, err := newAPIClient(c).Receipts(c.Context, c.Int("limit"), c.Int("offset"))
					if err != nil {
						return fmt.Errorf("failed to list receipts: %w", err)
					}
					if c.String("jq") == "" && page.Total == 0 {
						fmt.Fprintln(c.App.Writer, "No tips recorded")
						return nil
					}
					return writeOutput(c.App.Writer, page, c.String("jq"))
				},
			},
			{
				Name:      "receipt",
				Usage:     "Show one recorded tip",
				ArgsUsage: "DIGEST",
				Flags:     []cli.Flag{jqFlag},
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return fmt.Errorf("transaction digest is required")
					}
					receipt, err := newAPIClient(c).Receipt(c.Context, c.Args().First())
					if err != nil {
						return fmt.Errorf("failed to get receipt: %w", err)
					}
					return writeOutput(c.App.Writer, receipt, c.String("jq"))
				},
			},
		},
	}
}

func newAPIClient(c *cli.Context) *client.Client {
	return client.NewClient(c.String("server-url"), nil, newLogger(c))
}

