// cli/env.go
package cli

import (
	"context"
	"log/slog"
	"time"

	"github.com/cyterat/deepstate-map-data/archive"
	"github.com/cyterat/deepstate-map-data/config"
	"github.com/cyterat/deepstate-map-data/database"
	"github.com/cyterat/deepstate-map-data/metrics"
	"github.com/cyterat/deepstate-map-data/models"
	"github.com/cyterat/deepstate-map-data/publish"
	"github.com/cyterat/deepstate-map-data/scraper"
	"github.com/cyterat/deepstate-map-data/services"
)

func loadConfig(opts *RootOptions) (*config.Config, error) {
	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load configuration", err)
	}
	return cfg, nil
}

// runDate resolves the --date flag, defaulting to today in UTC.
func runDate(value string) (time.Time, error) {
	if value == "" {
		return models.Day(time.Now().UTC()), nil
	}
	date, err := models.ParseDate(value)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, "invalid --date", err)
	}
	return date, nil
}

// openMirror opens the configured database for commands that read it back.
func openMirror(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*database.Store, error) {
	if cfg.Database.Driver == "" {
		return nil, NewExitError(ExitCommandError, "no database configured: set database.driver and database.dsn")
	}
	store, err := database.Open(ctx, cfg.Database, logger)
	if err != nil {
		return nil, WrapExitError(ExitFatal, "cannot open database", err)
	}
	return store, nil
}

// newUpdater wires the pipeline and whichever sinks are configured. A sink
// that cannot be set up is logged and left out. The returned func releases
// the database connection.
func newUpdater(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*services.Updater, func()) {
	u := &services.Updater{
		Fetcher:      scraper.NewFetcher(cfg, logger),
		Consolidator: archive.NewConsolidator(cfg.Storage.Archive, logger),
		DataDir:      cfg.Storage.DataDir,
		IndexPath:    cfg.Storage.Index,
		Logger:       logger,
	}
	cleanup := func() {}

	if cfg.Database.Driver != "" {
		store, err := database.Open(ctx, cfg.Database, logger)
		if err != nil {
			logger.Error("database mirror disabled", "driver", cfg.Database.Driver, "error", err)
		} else {
			u.Mirror = store
			cleanup = func() {
				if err := store.Close(); err != nil {
					logger.Warn("failed to close database", "error", err)
				}
			}
		}
	}

	if cfg.Publish.Bucket != "" {
		pub, err := publish.New(ctx, cfg.Publish, logger)
		if err != nil {
			logger.Error("S3 publishing disabled", "bucket", cfg.Publish.Bucket, "error", err)
		} else {
			u.Publisher = pub
		}
	}

	if cfg.Metrics.PushgatewayURL != "" {
		u.Metrics = metrics.NewPusher(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job, logger)
	}

	return u, cleanup
}
