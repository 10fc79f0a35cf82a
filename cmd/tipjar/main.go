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
		Name:  "tipjar",
		Usage: "Sui tip jar CLI",
		Description: `A command-line tool for the tip jar widget.

Read jar stats and coins straight from a Sui fullnode, send sponsored tips,
manage the local wallet key, or talk to a running tipjar server.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			statsCommand(),
			coinsCommand(),
			sendCommand(),
			walletCommands(),
			clientCommands(),
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
				Name:    "network",
				Usage:   "Sui network (mainnet, testnet, devnet, localnet)",
				EnvVars: []string{"SUI_NETWORK"},
				Value:   "testnet",
			},
			&cli.StringFlag{
				Name:    "rpc-url",
				Usage:   "Sui fullnode JSON-RPC URL (defaults to the network's public fullnode)",
				EnvVars: []string{"SUI_RPC_URL"},
			},
			&cli.StringFlag{
				Name:    "package-id",
				Usage:   "Tip jar package ID",
				EnvVars: []string{"TIPJAR_PACKAGE_ID"},
				Value:   "0x0",
			},
			&cli.StringFlag{
				Name:    "tipjar-id",
				Usage:   "Tip jar object ID",
				EnvVars: []string{"TIPJAR_OBJECT_ID"},
				Value:   "0x0",
			},
			&cli.StringFlag{
				Name:    "private-key",
				Usage:   "Wallet private key (hex seed or base64)",
				EnvVars: []string{"WALLET_PRIVATE_KEY"},
			},
			&cli.StringFlag{
				Name:    "sponsor-url",
				Usage:   "Sponsor relay base URL",
				EnvVars: []string{"SPONSOR_API_URL"},
				Value:   "https://api.enoki.mystenlabs.com",
			},
			&cli.StringFlag{
				Name:    "sponsor-api-key",
				Usage:   "Sponsor relay API key",
				EnvVars: []string{"SPONSOR_API_KEY"},
			},
			&cli.StringFlag{
				Name:    "server-url",
				Usage:   "tipjar server URL",
				EnvVars: []string{"SERVER_URL"},
				Value:   "http://localhost:8080",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
				Value:   "warn",
			},
		},
	}
}
