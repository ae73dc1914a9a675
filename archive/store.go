// archive/store.go
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/cyterat/deepstate-map-data/utils"
)

// Load reads the archive at path. A missing or zero-length file is an empty
// archive; anything unreadable beyond that is a *CorruptError.
func Load(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return &Archive{}, nil
		}
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive %s: %w", path, err)
	}
	if info.Size() == 0 {
		return &Archive{}, nil
	}

	a, err := Decode(f)
	if err != nil {
		return nil, &CorruptError{Path: path, Err: err}
	}
	return a, nil
}

// Save atomically replaces the archive at path with a.
func Save(path string, a *Archive) error {
	err := utils.WriteAtomic(path, 0644, func(w io.Writer) error {
		return a.Encode(w)
	})
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrWriteFailed, path, err)
	}
	return nil
}
