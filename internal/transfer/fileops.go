package transfer

// fileops.go holds the file lifecycle steps of the saga: backing up the
// source log before it is cleared, and truncating it once every line has
// been read.

import (
	"fmt"
	"io"
	"os"
)

// copyFile writes a byte-identical copy of src at dst, replacing any
// existing file.
func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create backup %s: %w", dst, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close backup %s: %w", dst, err)
	}
	return nil
}

// truncateFile clears the file at path to zero length.
func truncateFile(path string) error {
	if err := os.Truncate(path, 0); err != nil {
		return fmt.Errorf("truncate %s: %w", path, err)
	}
	return nil
}
