// Package store persists validated access-log entries into PostgreSQL.
// Bulk writes go through the COPY protocol, one round-trip per chunk.
package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/siwiki/analytics/internal/pipeline"
)

// accessLogColumns is the fixed column order for bulk inserts. It must
// match the order copyRow returns values in.
var accessLogColumns = []string{
	"host", "user", "time", "method", "path", "query", "status",
	"response_size", "process_time", "referer", "user_agent", "is_bot",
	"browser", "device_type", "os", "country",
}

const createAccessLog = `
CREATE TABLE IF NOT EXISTS access_log (
	id BIGSERIAL PRIMARY KEY,
	host VARCHAR(45) NOT NULL,
	"user" VARCHAR(255),
	time TIMESTAMPTZ NOT NULL,
	method VARCHAR(7),
	path VARCHAR(255),
	query VARCHAR(255),
	status SMALLINT NOT NULL,
	response_size DOUBLE PRECISION NOT NULL,
	process_time DOUBLE PRECISION NOT NULL,
	referer VARCHAR(255) NOT NULL,
	user_agent VARCHAR(255),
	is_bot BOOLEAN NOT NULL,
	browser VARCHAR(255),
	device_type VARCHAR(16) NOT NULL,
	os VARCHAR(255),
	country VARCHAR(8)
)`

// Store wraps a pgx connection pool for access_log operations.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on an existing pool. The caller owns the pool's
// lifecycle.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// EnsureSchema creates the access_log table if it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, createAccessLog); err != nil {
		return fmt.Errorf("ensure access_log schema: %w", err)
	}
	return nil
}

// WriteChunk bulk-inserts one chunk of entries via COPY, preserving the
// slice order. Returns the number of rows written.
func (s *Store) WriteChunk(ctx context.Context, entries []pipeline.Entry) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	copied, err := s.pool.CopyFrom(
		ctx,
		pgx.Identifier{"access_log"},
		accessLogColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			return copyRow(entries[i]), nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy into access_log: %w", err)
	}
	return copied, nil
}

// copyRow flattens an entry into COPY values in accessLogColumns order.
func copyRow(e pipeline.Entry) []any {
	return []any{
		e.Host,
		e.User,
		e.Time,
		e.Method,
		e.Path,
		e.Query,
		e.Status,
		e.ResponseSize,
		e.ProcessTime,
		e.Referer,
		e.UserAgent,
		e.Bot,
		e.Browser,
		e.DeviceType,
		e.OS,
		e.Country,
	}
}
