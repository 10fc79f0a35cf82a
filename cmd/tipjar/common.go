package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/brojonat/tipjar/service/sui"
	"github.com/brojonat/tipjar/service/tipjar"
	"github.com/brojonat/tipjar/service/wallet"
	"github.com/itchyny/gojq"
	"github.com/urfave/cli/v2"
)

var publicFullnodes = map[string]string{
	"mainnet":  "https://fullnode.mainnet.sui.io:443",
	"testnet":  "https://fullnode.testnet.sui.io:443",
	"devnet":   "https://fullnode.devnet.sui.io:443",
	"localnet": "http://127.0.0.1:9000",
}

var jqFlag = &cli.StringFlag{
	Name:  "jq",
	Usage: "jq filter applied to the JSON output",
}

func newLogger(c *cli.Context) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.String("log-level"))); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func rpcURL(c *cli.Context) (string, error) {
	if u := c.String("rpc-url"); u != "" {
		return u, nil
	}
	u, ok := publicFullnodes[c.String("network")]
	if !ok {
		return "", fmt.Errorf("unknown network %q (set --rpc-url)", c.String("network"))
	}
	return u, nil
}

func newSuiClient(c *cli.Context, logger *slog.Logger) (*sui.Client, error) {
	u, err := rpcURL(c)
	if err != nil {
		return nil, err
	}
	return sui.NewClient(sui.NewRPCClient(u), u, nil, nil, logger), nil
}

func settingsFromFlags(c *cli.Context) tipjar.Settings {
	s := tipjar.DefaultSettings()
	s.PackageID = c.String("package-id")
	s.TipJarID = c.String("tipjar-id")
	return s
}

func keypairFromFlags(c *cli.Context) (*wallet.Keypair, error) {
	key := c.String("private-key")
	if key == "" {
		return nil, fmt.Errorf("private-key is required (set WALLET_PRIVATE_KEY env var or use --private-key)")
	}
	return wallet.ParsePrivateKey(key)
}

// writeOutput prints v as indented JSON, or the results of filter applied to it.
func writeOutput(w io.Writer, v interface{}, filter string) error {
	if filter == "" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	query, err := gojq.Parse(filter)
	if err != nil {
		return fmt.Errorf("failed to parse jq filter %q: %w", filter, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return fmt.Errorf("failed to compile jq filter %q: %w", filter, err)
	}

	// gojq only accepts plain JSON values.
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	var input interface{}
	if err := json.Unmarshal(data, &input); err != nil {
		return fmt.Errorf("failed to decode output: %w", err)
	}

	iter := code.Run(input)
	for {
		result, ok := iter.Next()
		if !ok {
			return nil
		}
		if err, isErr := result.(error); isErr {
			return fmt.Errorf("jq: %w", err)
		}
		if s, isString := result.(string); isString {
			fmt.Fprintln(w, s)
			continue
		}
		out, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("failed to marshal jq result: %w", err)
		}
		fmt.Fprintln(w, string(out))
	}
}
