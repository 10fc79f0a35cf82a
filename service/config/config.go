package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/brojonat/tipjar/service/sui"
	"github.com/brojonat/tipjar/service/tipjar"
)

// Network RPC defaults for the public fullnodes.
var defaultRPCURLs = map[string]string{
	"mainnet":  "https://fullnode.mainnet.sui.io:443",
	"testnet":  "https://fullnode.testnet.sui.io:443",
	"devnet":   "https://fullnode.devnet.sui.io:443",
	"localnet": "http://127.0.0.1:9000",
}

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Sui configuration
	SuiNetwork string
	SuiRPCURL  string
	CoinType   string

	// Tip jar deployment. "0x0" means not deployed yet.
	PackageID string
	TipJarID  string
	Module    string
	Function  string

	// Sponsor relay configuration
	SponsorAPIURL string
	SponsorAPIKey string

	// Wallet configuration. Empty means no account is connected.
	WalletPrivateKey string

	// Optional persistence and events
	DatabaseURL string
	NATSURL     string

	// RPC throttling
	RPCRateLimit float64
	RPCRateBurst int
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	// Server configuration
	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	// Sui configuration
	cfg.SuiNetwork = strings.ToLower(getEnvOrDefault("SUI_NETWORK", "testnet"))
	cfg.SuiRPCURL = getEnvOrDefault("SUI_RPC_URL", defaultRPCURLs[cfg.SuiNetwork])
	cfg.CoinType = getEnvOrDefault("SUI_COIN_TYPE", sui.NativeCoinType)

	// Tip jar configuration
	cfg.PackageID = getEnvOrDefault("TIPJAR_PACKAGE_ID", sui.PlaceholderID)
	cfg.TipJarID = getEnvOrDefault("TIPJAR_OBJECT_ID", sui.PlaceholderID)
	cfg.Module = getEnvOrDefault("TIPJAR_MODULE", "tip_jar_contract")
	cfg.Function = getEnvOrDefault("TIPJAR_FUNCTION", "send_tip")

	// Sponsor configuration
	cfg.SponsorAPIURL = getEnvOrDefault("SPONSOR_API_URL", "https://api.enoki.mystenlabs.com")
	cfg.SponsorAPIKey = os.Getenv("SPONSOR_API_KEY")

	cfg.WalletPrivateKey = os.Getenv("WALLET_PRIVATE_KEY")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")

	rateLimit, err := parseFloat("RPC_RATE_LIMIT", 10)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RPCRateLimit = rateLimit
	}

	rateBurst, err := parseInt("RPC_RATE_BURST", 5)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.RPCRateBurst = rateBurst
	}

	errs = append(errs, cfg.validate()...)

	// Return all validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for server initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	if errs := c.validate(); len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}
	return nil
}

func (c *Config) validate() []error {
	var errs []error

	if _, ok := defaultRPCURLs[c.SuiNetwork]; !ok {
		errs = append(errs, fmt.Errorf("SuiNetwork must be one of mainnet, testnet, devnet, localnet (got %q)", c.SuiNetwork))
	}

	if err := validateURL("SuiRPCURL", c.SuiRPCURL); err != nil {
		errs = append(errs, err)
	}

	if err := validateURL("SponsorAPIURL", c.SponsorAPIURL); err != nil {
		errs = append(errs, err)
	}

	if !sui.IsPlaceholder(c.PackageID) {
		if _, err := sui.NormalizeAddress(c.PackageID); err != nil {
			errs = append(errs, fmt.Errorf("PackageID: %w", err))
		}
	}

	if !sui.IsPlaceholder(c.TipJarID) {
		if _, err := sui.NormalizeAddress(c.TipJarID); err != nil {
			errs = append(errs, fmt.Errorf("TipJarID: %w", err))
		}
	}

	if c.Module == "" || c.Function == "" {
		errs = append(errs, fmt.Errorf("Module and Function are required"))
	}

	if c.CoinType == "" {
		errs = append(errs, fmt.Errorf("CoinType is required"))
	}

	if c.RPCRateLimit < 0 {
		errs = append(errs, fmt.Errorf("RPCRateLimit cannot be negative"))
	}

	if c.RPCRateBurst < 1 {
		errs = append(errs, fmt.Errorf("RPCRateBurst must be at least 1"))
	}

	return errs
}

// TipJar returns the deployment identifiers handed to the tipjar package.
func (c *Config) TipJar() tipjar.Settings {
	s := tipjar.DefaultSettings()
	s.PackageID = c.PackageID
	s.TipJarID = c.TipJarID
	s.Module = c.Module
	s.Function = c.Function
	s.CoinType = c.CoinType
	return s
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func validateURL(name, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s is required", name)
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s: invalid URL %q", name, raw)
	}
	return nil
}

// parseFloat parses a float from an environment variable or uses a default.
func parseFloat(key string, defaultValue float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid number %q: %w", key, value, err)
	}
	return result, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
