package main

import (
	"fmt"

	"github.com/brojonat/tipjar/service/wallet"
	"github.com/urfave/cli/v2"
)

func walletCommands() *cli.Command {
	return &cli.Command{
		Name:  "wallet",
		Usage: "Local wallet key commands",
		Subcommands: []*cli.Command{
			walletAddressCommand(),
			walletNewCommand(),
		},
	}
}

func walletAddressCommand() *cli.Command {
	return &cli.Command{
		Name:  "address",
		Usage: "Print the Sui address of the configured private key",
		Action: func(c *cli.Context) error {
			kp, err := keypairFromFlags(c)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, kp.Address())
			return nil
		},
	}
}

func walletNewCommand() *cli.Command {
	return &cli.Command{
		Name:  "new",
		Usage: "Generate a new ed25519 keypair",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			kp, err := wallet.NewKeypair()
			if err != nil {
				return fmt.Errorf("failed to generate keypair: %w", err)
			}

			if c.Bool("json") {
				return writeOutput(c.App.Writer, map[string]string{
					"address":     kp.Address(),
					"private_key": kp.ExportPrivateKey(),
				}, "")
			}
			fmt.Fprintf(c.App.Writer, "Address:     %s\n", kp.Address())
			fmt.Fprintf(c.App.Writer, "Private key: %s\n", kp.ExportPrivateKey())
			fmt.Fprintln(c.App.Writer, "\nStore the private key as WALLET_PRIVATE_KEY. It is not shown again.")
			return nil
		},
	}
}
