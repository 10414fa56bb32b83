package pipeline

// loader.go streams raw lines and partitions them into accepted entries
// and rejected lines. This is the only place that reads the line source.

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineSize bounds a single log line. Lines are one JSON record each;
// anything past 1 MiB is a stream fault, not a log record.
const maxLineSize = 1024 * 1024

// Result holds the two ordered output partitions of a pipeline run.
// Together they cover every non-blank input line exactly once.
type Result struct {
	Accepted []Entry
	Rejected []FailedLine
}

// Total returns the number of non-blank lines processed.
func (r *Result) Total() int {
	return len(r.Accepted) + len(r.Rejected)
}

// Load reads the source line by line, validates each non-blank line, and
// collects the outcomes in input order. A validation failure rejects the
// line and moves on; only a read failure aborts the run.
func Load(r io.Reader) (*Result, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	result := &Result{}
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		entry, err := Validate(line)
		if err != nil {
			result.Rejected = append(result.Rejected, FailedLine{Line: line, Reason: err.Error()})
			continue
		}
		result.Accepted = append(result.Accepted, entry)
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log stream: %w", err)
	}
	return result, nil
}
