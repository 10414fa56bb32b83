// Package transfer orchestrates one access-log transfer run as a fixed
// sequence of steps: announce, backup, parse, truncate, report failures,
// bulk-load, report success. Steps run strictly in order on a single
// goroutine; notification delivery is best-effort, everything after the
// backup step is fatal on error.
package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/siwiki/analytics/internal/notify"
	"github.com/siwiki/analytics/internal/pipeline"
)

// maxReportedFailures caps how many rejected lines the failure
// notification spells out. The full rejected list always goes to the log.
const maxReportedFailures = 5

// EntrySink persists the accepted entries. Satisfied by
// *store.BatchLoader.
type EntrySink interface {
	Load(ctx context.Context, entries []pipeline.Entry) (int64, error)
}

// Options configures a transfer run.
type Options struct {
	SourcePath string
	BackupPath string

	// Truncate enables the backup and truncate-after-parse steps.
	Truncate bool
	// Insert enables the bulk-load step.
	Insert bool
}

// Result summarizes a completed run.
type Result struct {
	Accepted int
	Rejected int
	Inserted int64
	Duration time.Duration
}

// Saga runs the transfer steps against injected collaborators so the
// sequencing and failure semantics are testable without Discord or
// Postgres.
type Saga struct {
	opts     Options
	notifier notify.Notifier
	sink     EntrySink
	logger   *slog.Logger
}

// New creates a saga. A nil notifier is replaced with notify.Nop.
func New(opts Options, notifier notify.Notifier, sink EntrySink, logger *slog.Logger) *Saga {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Saga{opts: opts, notifier: notifier, sink: sink, logger: logger}
}

// Run executes the full step sequence. On any fatal step error it sends a
// best-effort failure notification, logs the error detail, and returns
// the error; the caller decides the process exit code.
func (s *Saga) Run(ctx context.Context) (*Result, error) {
	result, err := s.run(ctx)
	if err != nil {
		s.logger.Error("transfer failed", "error", err)
		s.announce(ctx, fmt.Sprintf("Access log transfer failed: %v", err))
		return nil, err
	}
	return result, nil
}

func (s *Saga) run(ctx context.Context) (*Result, error) {
	start := time.Now()

	// Step 1: announce start. Delivery failure is logged, never fatal.
	s.announce(ctx, "Access log transfer started.")

	// Step 2: back up the source before anything can clear it.
	if s.opts.Truncate {
		if err := copyFile(s.opts.SourcePath, s.opts.BackupPath); err != nil {
			return nil, err
		}
		s.logger.Info("source backed up", "backup", s.opts.BackupPath)
	}

	// Step 3: parse. Per-line failures are collected, not raised.
	parsed, err := s.parse()
	if err != nil {
		return nil, err
	}
	s.logger.Info("source parsed",
		"accepted", len(parsed.Accepted),
		"rejected", len(parsed.Rejected),
	)

	// Step 4: truncate only after the whole file has been read, so a
	// parse failure leaves every unread record in place for a re-run.
	if s.opts.Truncate {
		if err := truncateFile(s.opts.SourcePath); err != nil {
			return nil, err
		}
		s.logger.Info("source truncated", "source", s.opts.SourcePath)
	}

	// Step 5: report rejected lines.
	s.reportFailures(ctx, parsed.Rejected)

	// Step 6: bulk-load. A store failure is fatal; chunks already
	// written stay committed.
	var inserted int64
	if s.opts.Insert {
		inserted, err = s.sink.Load(ctx, parsed.Accepted)
		if err != nil {
			return nil, err
		}
	}

	// Step 7: report success.
	s.announce(ctx, fmt.Sprintf("Access log transfer complete: %d entries transferred.", len(parsed.Accepted)))

	return &Result{
		Accepted: len(parsed.Accepted),
		Rejected: len(parsed.Rejected),
		Inserted: inserted,
		Duration: time.Since(start),
	}, nil
}

// parse streams the source file through the validation pipeline.
func (s *Saga) parse() (*pipeline.Result, error) {
	f, err := os.Open(s.opts.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("open source %s: %w", s.opts.SourcePath, err)
	}
	defer f.Close()

	return pipeline.Load(f)
}

// reportFailures notifies the operator about rejected lines, capping the
// examples at maxReportedFailures, and logs every rejection in full.
func (s *Saga) reportFailures(ctx context.Context, rejected []pipeline.FailedLine) {
	for _, fl := range rejected {
		s.logger.Warn("entry rejected", "reason", fl.Reason, "line", fl.Line)
	}
	if len(rejected) == 0 {
		return
	}
	s.announce(ctx, failureReport(rejected))
}

// failureReport formats the rejection summary message.
func failureReport(rejected []pipeline.FailedLine) string {
	shown := len(rejected)
	var b strings.Builder
	if shown > maxReportedFailures {
		shown = maxReportedFailures
		fmt.Fprintf(&b, "%d entries failed to validate, first %d are displayed:\n", len(rejected), maxReportedFailures)
	} else {
		fmt.Fprintf(&b, "%d entries failed to validate:\n", len(rejected))
	}
	for i, fl := range rejected[:shown] {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, fl.Reason, fl.Line)
	}
	return b.String()
}

// announce delivers a notification and swallows delivery errors.
func (s *Saga) announce(ctx context.Context, message string) {
	if err := s.notifier.Announce(ctx, message); err != nil {
		s.logger.Warn("notification delivery failed", "error", err)
	}
}
