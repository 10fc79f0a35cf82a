package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/brojonat/tipjar/service/sponsor"
	"github.com/brojonat/tipjar/service/tipjar"
	"github.com/brojonat/tipjar/service/wallet"
	"github.com/urfave/cli/v2"
)

func sendCommand() *cli.Command {
	return &cli.Command{
		Name:  "send",
		Usage: "Send a sponsored tip from the local wallet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "amount",
				Aliases:  []string{"a"},
				Usage:    "Tip amount in SUI (e.g. 0.1)",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "Sponsor relay request timeout",
				Value: 60 * time.Second,
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output the receipt as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c)
			settings := settingsFromFlags(c)

			kp, err := keypairFromFlags(c)
			if err != nil {
				return err
			}
			if c.String("sponsor-api-key") == "" {
				return fmt.Errorf("sponsor-api-key is required (set SPONSOR_API_KEY env var or use --sponsor-api-key)")
			}

			client, err := newSuiClient(c, logger)
			if err != nil {
				return err
			}

			accounts := wallet.NewConnection(kp)
			executor := sponsor.NewEnokiExecutor(sponsor.Config{
				BaseURL:    c.String("sponsor-url"),
				APIKey:     c.String("sponsor-api-key"),
				Network:    c.String("network"),
				HTTPClient: &http.Client{Timeout: c.Duration("timeout")},
			}, accounts, client, nil, logger)

			sender := tipjar.NewSender(settings, accounts, client, executor, nil, logger)
			receipt, err := sender.SendTip(c.Context, c.String("amount"))
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return writeOutput(c.App.Writer, receipt, "")
			}
			fmt.Fprintf(c.App.Writer, "✓ %s\n", receipt.SuccessMessage())
			fmt.Fprintf(c.App.Writer, "  Digest: %s\n", receipt.Digest)
			fmt.Fprintf(c.App.Writer, "  Coin:   %s\n", receipt.CoinID)
			return nil
		},
	}
}
