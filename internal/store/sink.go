package store

// sink.go scopes the connection pool to a single load: the pool is opened
// when the saga reaches the load step and closed unconditionally when the
// step finishes, success or not. No connection outlives the load.

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siwiki/analytics/internal/config"
	"github.com/siwiki/analytics/internal/pipeline"
)

// Sink is the production EntrySink: connect, ensure schema, bulk-load in
// chunks, close.
type Sink struct {
	db        config.DatabaseConfig
	chunkSize int
	logger    *slog.Logger
}

// NewSink creates a sink from the loaded configuration.
func NewSink(cfg *config.Config, logger *slog.Logger) *Sink {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sink{
		db:        cfg.Database,
		chunkSize: cfg.Transfer.ChunkSize,
		logger:    logger,
	}
}

// Load opens a pool for the duration of this call, writes all entries in
// order via the batch loader, and closes the pool before returning.
func (s *Sink) Load(ctx context.Context, entries []pipeline.Entry) (int64, error) {
	poolConfig, err := pgxpool.ParseConfig(s.db.URL)
	if err != nil {
		return 0, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(s.db.MaxConns)
	poolConfig.MinConns = int32(s.db.MinConns)
	poolConfig.MaxConnLifetime = s.db.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return 0, fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return 0, fmt.Errorf("ping database: %w", err)
	}

	st := New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		return 0, err
	}

	return NewBatchLoader(st, s.chunkSize, s.logger).Load(ctx, entries)
}
