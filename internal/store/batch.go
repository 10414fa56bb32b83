package store

// batch.go splits the accepted entries into bounded chunks and issues one
// bulk insert per chunk, in order. A chunk failure aborts the remaining
// chunks; chunks already written stay committed (there is no cross-chunk
// transaction, so a re-run after fixing the cause starts from a truncated
// source, not from a rollback).

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siwiki/analytics/internal/pipeline"
)

// DefaultChunkSize is the number of rows per bulk insert.
const DefaultChunkSize = 20000

// ChunkWriter persists one ordered chunk of entries in a single store
// round-trip. Satisfied by *Store.
type ChunkWriter interface {
	WriteChunk(ctx context.Context, entries []pipeline.Entry) (int64, error)
}

// BatchLoader feeds accepted entries to a ChunkWriter in fixed-size chunks.
type BatchLoader struct {
	writer    ChunkWriter
	chunkSize int
	logger    *slog.Logger
}

// NewBatchLoader creates a loader. A non-positive chunkSize falls back to
// DefaultChunkSize.
func NewBatchLoader(writer ChunkWriter, chunkSize int, logger *slog.Logger) *BatchLoader {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BatchLoader{writer: writer, chunkSize: chunkSize, logger: logger}
}

// Load writes all entries in consecutive chunks of at most chunkSize rows,
// preserving input order within and across chunks. Returns the total rows
// written; any chunk failure stops the load and propagates.
func (l *BatchLoader) Load(ctx context.Context, entries []pipeline.Entry) (int64, error) {
	var total int64
	for i := 0; i < len(entries); i += l.chunkSize {
		end := i + l.chunkSize
		if end > len(entries) {
			end = len(entries)
		}

		written, err := l.writer.WriteChunk(ctx, entries[i:end])
		if err != nil {
			return total, fmt.Errorf("insert chunk %d-%d: %w", i, end, err)
		}
		total += written

		l.logger.Info("chunk inserted",
			"rows", written,
			"offset", i,
			"total", len(entries),
		)
	}
	return total, nil
}
