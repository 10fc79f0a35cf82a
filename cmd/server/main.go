package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/tipjar/service/config"
	"github.com/brojonat/tipjar/service/db"
	"github.com/brojonat/tipjar/service/metrics"
	natspkg "github.com/brojonat/tipjar/service/nats"
	"github.com/brojonat/tipjar/service/server"
	"github.com/brojonat/tipjar/service/sponsor"
	"github.com/brojonat/tipjar/service/sui"
	"github.com/brojonat/tipjar/service/tipjar"
	"github.com/brojonat/tipjar/service/wallet"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
		"network", cfg.SuiNetwork,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(prometheus.DefaultRegisterer)

	settings := cfg.TipJar()
	if !settings.Configured() {
		logger.Warn("tip jar contract not configured, sends are disabled",
			"package_id", settings.PackageID,
			"tip_jar_id", settings.TipJarID,
		)
	}

	suiRPC := sui.NewRPCClient(cfg.SuiRPCURL)
	suiClient := sui.NewClient(suiRPC, cfg.SuiRPCURL, sui.NewLimiter(cfg.RPCRateLimit, cfg.RPCRateBurst), m, logger)
	logger.Info("initialized sui RPC client", "url", cfg.SuiRPCURL)

	accounts := wallet.NewConnection(nil)
	if cfg.WalletPrivateKey != "" {
		kp, err := wallet.ParsePrivateKey(cfg.WalletPrivateKey)
		if err != nil {
			logger.Error("failed to parse wallet private key", "error", err)
			os.Exit(1)
		}
		accounts.Connect(kp)
		logger.Info("wallet connected", "address", kp.Address())
	} else {
		logger.Warn("WALLET_PRIVATE_KEY not set, no account connected")
	}

	executor := sponsor.NewEnokiExecutor(sponsor.Config{
		BaseURL:    cfg.SponsorAPIURL,
		APIKey:     cfg.SponsorAPIKey,
		Network:    cfg.SuiNetwork,
		HTTPClient: &http.Client{Timeout: 60 * time.Second},
	}, accounts, suiClient, m, logger)

	deps := server.Deps{
		Network: cfg.SuiNetwork,
		Stats:   tipjar.NewStatsReader(suiClient, settings, m, logger),
		Sender:  tipjar.NewSender(settings, accounts, suiClient, executor, m, logger),
		Metrics: m,
	}

	if cfg.DatabaseURL != "" {
		dbPool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbPool.Close()

		if err := dbPool.Ping(ctx); err != nil {
			logger.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		store := db.NewStore(dbPool, m)
		if err := store.EnsureSchema(ctx); err != nil {
			logger.Error("failed to ensure database schema", "error", err)
			os.Exit(1)
		}
		deps.Store = store
		logger.Info("connected to database")
	}

	if cfg.NATSURL != "" {
		publisher, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			logger.Error("failed to initialize NATS publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		deps.Publisher = publisher
		deps.Subscriber = publisher
	}

	httpServer := server.New(cfg.ServerAddr, deps, logger)
	if err := httpServer.WithTemplates(); err != nil {
		logger.Error("failed to load templates", "error", err)
		os.Exit(1)
	}

	logger.Info("server initialized, all dependencies ready",
		"sui_rpc", cfg.SuiRPCURL,
		"sponsor_url", cfg.SponsorAPIURL,
		"database", cfg.DatabaseURL != "",
		"nats", cfg.NATSURL != "",
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- httpServer.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		logger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		logger.Info("shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("failed to shutdown server gracefully", "error", err)
			os.Exit(1)
		}

		logger.Info("server shutdown complete")
	}
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
