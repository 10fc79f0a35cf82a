package main

import (
	"fmt"

	"github.com/brojonat/tipjar/service/sui"
	"github.com/brojonat/tipjar/service/tipjar"
	"github.com/urfave/cli/v2"
)

type statsOutput struct {
	TipJarID          string `json:"tip_jar_id"`
	Owner             string `json:"owner"`
	OwnerShort        string `json:"owner_short"`
	TotalTipsReceived string `json:"total_tips_received"`
	TotalTipsSUI      string `json:"total_tips_sui"`
	TipCount          string `json:"tip_count"`
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Read tip jar stats from the fullnode",
		Flags: []cli.Flag{jqFlag},
		Action: func(c *cli.Context) error {
			logger := newLogger(c)
			settings := settingsFromFlags(c)
			if !settings.HasTipJar() {
				return fmt.Errorf("tipjar-id is required (set TIPJAR_OBJECT_ID env var or use --tipjar-id)")
			}

			client, err := newSuiClient(c, logger)
			if err != nil {
				return err
			}

			snap, err := tipjar.NewStatsReader(client, settings, nil, logger).Read(c.Context)
			if err != nil {
				return fmt.Errorf("failed to read tip jar: %w", err)
			}

			return writeOutput(c.App.Writer, statsOutput{
				TipJarID:          settings.TipJarID,
				Owner:             snap.Owner,
				OwnerShort:        snap.ShortOwner(),
				TotalTipsReceived: snap.TotalTips,
				TotalTipsSUI:      snap.TotalTipsSUI(),
				TipCount:          snap.TipCount,
			}, c.String("jq"))
		},
	}
}

type coinOutput struct {
	CoinObjectID string `json:"coin_object_id"`
	Balance      string `json:"balance"`
	BalanceSUI   string `json:"balance_sui"`
	Version      uint64 `json:"version"`
}

func coinsCommand() *cli.Command {
	return &cli.Command{
		Name:      "coins",
		Usage:     "List SUI coins owned by an address (defaults to the wallet address)",
		ArgsUsage: "[ADDRESS]",
		Flags: []cli.Flag{
			jqFlag,
			&cli.StringFlag{
				Name:  "coin-type",
				Value: sui.NativeCoinType,
				Usage: "Coin type to list",
			},
		},
		Action: func(c *cli.Context) error {
			logger := newLogger(c)

			owner := c.Args().First()
			if owner == "" {
				kp, err := keypairFromFlags(c)
				if err != nil {
					return fmt.Errorf("address argument or wallet key required: %w", err)
				}
				owner = kp.Address()
			}

			client, err := newSuiClient(c, logger)
			if err != nil {
				return err
			}

			coins, err := client.GetCoins(c.Context, owner, c.String("coin-type"))
			if err != nil {
				return fmt.Errorf("failed to list coins: %w", err)
			}

			out := make([]coinOutput, 0, len(coins))
			for _, coin := range coins {
				bal, err := coin.BalanceMist()
				if err != nil {
					return err
				}
				out = append(out, coinOutput{
					CoinObjectID: coin.CoinObjectID,
					Balance:      coin.Balance,
					BalanceSUI:   tipjar.FormatSUI(bal, 4),
					Version:      uint64(coin.Version),
				})
			}
			return writeOutput(c.App.Writer, map[string]interface{}{
				"owner": owner,
				"coins": out,
			}, c.String("jq"))
		},
	}
}
