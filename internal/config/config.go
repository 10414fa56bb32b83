// Package config provides centralized configuration management for the
// loader. It reads environment variables with sensible defaults and
// validates everything on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all loader configuration.
// All settings can be configured via environment variables.
type Config struct {
	Database DatabaseConfig
	Transfer TransferConfig
	Notify   NotifyConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 4)
	MaxConns int `env:"DB_MAX_CONNS" default:"4"`

	// MinConns is the minimum number of connections to keep open (default: 1)
	MinConns int `env:"DB_MIN_CONNS" default:"1"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
}

// TransferConfig holds the file lifecycle and load settings.
type TransferConfig struct {
	// SourcePath is the access log file to transfer (required)
	SourcePath string `env:"SOURCE_LOG_PATH" required:"true"`

	// BackupPath is where the source is copied before truncation
	// (default: SourcePath + ".bak", resolved during validation)
	BackupPath string `env:"BACKUP_LOG_PATH"`

	// ChunkSize is rows per bulk insert (default: 20000)
	ChunkSize int `env:"TRANSFER_CHUNK_SIZE" default:"20000"`

	// Truncate enables backup + truncate-after-parse (default: true)
	Truncate bool `env:"TRANSFER_TRUNCATE" default:"true"`

	// Insert enables the bulk-load step (default: true)
	Insert bool `env:"TRANSFER_INSERT" default:"true"`
}

// NotifyConfig holds Discord webhook settings.
type NotifyConfig struct {
	// WebhookURL is the Discord webhook endpoint; empty disables
	// notifications entirely
	WebhookURL string `env:"DISCORD_WEBHOOK_URL"`

	// Timeout bounds each delivery attempt (default: 10s)
	Timeout time.Duration `env:"NOTIFY_TIMEOUT" default:"10s"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}
