// scraper/errors.go
package scraper

import (
	"errors"
	"fmt"
)

// ErrSnapshotMissing is returned when no snapshot file exists for the requested date.
var ErrSnapshotMissing = errors.New("snapshot file does not exist")

// FetchError is a network or decoding failure on the source data. The run is
// skipped and retried on the next schedule.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s failed: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
