// archive/errors.go
package archive

import (
	"errors"
	"fmt"
)

var (
	// ErrDateNotAfter rejects a changed geometry dated on or before the last record.
	ErrDateNotAfter = errors.New("snapshot date is not after the last archive record")

	// ErrWriteFailed wraps failures replacing the archive file. The previous
	// archive is still in place when this is returned.
	ErrWriteFailed = errors.New("failed to write archive")
)

// CorruptError means an existing archive could not be parsed. It is fatal for
// the run: the archive must not be replaced by a fresh, truncated one.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("archive %s is corrupt: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}
