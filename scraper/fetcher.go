// scraper/fetcher.go
package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/cyterat/deepstate-map-data/config"
	"github.com/cyterat/deepstate-map-data/models"
)

// Fetcher retrieves the day's geometry from the source and stores it as a
// dated snapshot file.
type Fetcher struct {
	downloader *Downloader
	sourceURL  string
	names      []string
	dataDir    string
	logger     *slog.Logger
}

// NewFetcher builds a Fetcher from cfg.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		downloader: NewDownloader(cfg.Source, logger),
		sourceURL:  cfg.Source.URL,
		names:      cfg.Source.Names,
		dataDir:    cfg.Storage.DataDir,
		logger:     logger,
	}
}

// Fetch downloads and validates the current geometry, dating it date.
func (f *Fetcher) Fetch(ctx context.Context, date time.Time) (*models.DailySnapshot, error) {
	f.logger.Info("requesting source data", "url", f.sourceURL)
	body, err := f.downloader.Download(ctx, f.sourceURL)
	if err != nil {
		return nil, err
	}

	mp, err := parsePayload(f.sourceURL, body, f.names)
	if err != nil {
		return nil, err
	}
	return &models.DailySnapshot{Date: models.Day(date), Geometry: mp}, nil
}

// FetchAndStore returns the snapshot for date, downloading and writing it
// only when no snapshot file exists yet for that day.
func (f *Fetcher) FetchAndStore(ctx context.Context, date time.Time) (*models.DailySnapshot, string, error) {
	path := SnapshotPath(f.dataDir, date)
	if _, err := os.Stat(path); err == nil {
		f.logger.Info("snapshot already exists, not fetching again", "path", path)
		snap, err := ReadSnapshot(f.dataDir, date)
		return snap, path, err
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, path, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	snap, err := f.Fetch(ctx, date)
	if err != nil {
		return nil, path, err
	}

	path, written, err := WriteSnapshot(f.dataDir, snap)
	if err != nil {
		return nil, path, err
	}
	if written {
		f.logger.Info("snapshot written", "path", path, "polygons", len(snap.Geometry))
	}
	return snap, path, nil
}
