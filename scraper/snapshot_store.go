// scraper/snapshot_store.go
package scraper

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/cyterat/deepstate-map-data/geometry"
	"github.com/cyterat/deepstate-map-data/models"
	"github.com/cyterat/deepstate-map-data/utils"
)

const (
	snapshotPrefix = "deepstatemap_data_"
	snapshotExt    = ".geojson"
)

// SnapshotFileName is the file name of the snapshot for date.
func SnapshotFileName(date time.Time) string {
	return snapshotPrefix + models.FormatDate(date) + snapshotExt
}

// SnapshotPath joins dataDir and the snapshot file name for date.
func SnapshotPath(dataDir string, date time.Time) string {
	return filepath.Join(dataDir, SnapshotFileName(date))
}

// WriteSnapshot persists snap under dataDir. Snapshots are immutable: when a
// file for the date already exists it is left untouched and written is false.
func WriteSnapshot(dataDir string, snap *models.DailySnapshot) (path string, written bool, err error) {
	path = SnapshotPath(dataDir, snap.Date)
	if _, err := os.Stat(path); err == nil {
		return path, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return path, false, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := geometry.Validate(snap.Geometry); err != nil {
		return path, false, err
	}

	f := geojson.NewFeature(snap.Geometry)
	f.Properties["date"] = models.FormatDate(snap.Date)
	data, err := geometry.NewFeatureCollection().Append(f).Marshal()
	if err != nil {
		return path, false, fmt.Errorf("failed to encode snapshot: %w", err)
	}

	if err := utils.WriteFileAtomic(path, data, 0644); err != nil {
		return path, false, err
	}
	return path, true, nil
}

// ReadSnapshot loads the snapshot for date from dataDir. The file must hold
// exactly one feature with valid multipolygon geometry.
func ReadSnapshot(dataDir string, date time.Time) (*models.DailySnapshot, error) {
	path := SnapshotPath(dataDir, date)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrSnapshotMissing, path)
		}
		return nil, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}

	fc, err := geometry.DecodeFeatureCollection(data)
	if err != nil {
		var vErr *geometry.ValidationError
		if errors.As(err, &vErr) {
			return nil, err
		}
		return nil, &geometry.ValidationError{Reason: fmt.Sprintf("snapshot %s is malformed: %v", path, err)}
	}
	if len(fc.Features) != 1 {
		return nil, &geometry.ValidationError{Reason: fmt.Sprintf("snapshot %s: expected 1 feature, found %d", path, len(fc.Features))}
	}

	feature := fc.Features[0]
	if d, ok := feature.Properties["date"].(string); ok && d != models.FormatDate(date) {
		return nil, &geometry.ValidationError{Reason: fmt.Sprintf("snapshot %s is dated %s", path, d)}
	}

	mp, err := geometry.AsMultiPolygon(feature.Geometry)
	if err != nil {
		return nil, err
	}
	return &models.DailySnapshot{Date: models.Day(date), Geometry: mp}, nil
}
