package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/siwiki/analytics/internal/config"
	"github.com/siwiki/analytics/internal/logging"
	"github.com/siwiki/analytics/internal/notify"
	"github.com/siwiki/analytics/internal/store"
	"github.com/siwiki/analytics/internal/transfer"
)

func main() {
	skipTruncate := flag.Bool("skip-truncate", false, "leave the source log in place (no backup, no truncate)")
	skipInsert := flag.Bool("skip-insert", false, "parse and report only, do not load into the database")
	flag.Parse()

	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Flags override env toggles; both default to enabled.
	if *skipTruncate {
		cfg.Transfer.Truncate = false
	}
	if *skipInsert {
		cfg.Transfer.Insert = false
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	logger := logging.NewRunLogger()
	logger.Info("configuration loaded",
		"source", cfg.Transfer.SourcePath,
		"chunk_size", cfg.Transfer.ChunkSize,
		"truncate", cfg.Transfer.Truncate,
		"insert", cfg.Transfer.Insert,
	)

	var notifier notify.Notifier = notify.Nop{}
	if cfg.Notify.WebhookURL != "" {
		notifier = notify.NewDiscordWebhook(cfg.Notify.WebhookURL, cfg.Notify.Timeout)
	} else {
		logger.Warn("DISCORD_WEBHOOK_URL not set, notifications disabled")
	}

	saga := transfer.New(
		transfer.Options{
			SourcePath: cfg.Transfer.SourcePath,
			BackupPath: cfg.Transfer.BackupPath,
			Truncate:   cfg.Transfer.Truncate,
			Insert:     cfg.Transfer.Insert,
		},
		notifier,
		store.NewSink(cfg, logger),
		logger,
	)

	result, err := saga.Run(context.Background())
	if err != nil {
		// Saga already notified and logged the failure detail.
		os.Exit(1)
	}

	logger.Info("transfer complete",
		"accepted", result.Accepted,
		"rejected", result.Rejected,
		"inserted", result.Inserted,
		"duration", result.Duration,
	)
}
