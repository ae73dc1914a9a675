// services/update_service.go
package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/cyterat/deepstate-map-data/archive"
	"github.com/cyterat/deepstate-map-data/geometry"
	"github.com/cyterat/deepstate-map-data/metrics"
	"github.com/cyterat/deepstate-map-data/models"
	"github.com/cyterat/deepstate-map-data/publish"
	"github.com/cyterat/deepstate-map-data/report"
	"github.com/cyterat/deepstate-map-data/scraper"
)

// Mirror receives archive records and run history after each run.
type Mirror interface {
	MirrorRecords(ctx context.Context, records []models.ArchiveRecord) (int, error)
	LogRun(ctx context.Context, entry *models.RunEntry) error
}

// Publisher uploads local files somewhere public.
type Publisher interface {
	Publish(ctx context.Context, localPath, contentType string) (string, error)
}

// MetricsPusher reports run statistics.
type MetricsPusher interface {
	Push(ctx context.Context, stats metrics.RunStats) error
}

// RunResult describes one fetch/consolidate run.
type RunResult struct {
	Outcome       string
	Date          time.Time
	Snapshot      *models.DailySnapshot
	SnapshotPath  string
	Consolidation archive.Result
}

// Updater runs the daily pipeline: fetch the snapshot, fold it into the
// archive, then feed the optional sinks. Sinks are best effort; their
// failures are logged and never change the archive or the run's outcome.
type Updater struct {
	Fetcher      *scraper.Fetcher
	Consolidator *archive.Consolidator
	DataDir      string
	IndexPath    string

	Mirror    Mirror
	Publisher Publisher
	Metrics   MetricsPusher

	Logger *slog.Logger
	Now    func() time.Time
}

func (u *Updater) logger() *slog.Logger {
	if u.Logger == nil {
		return slog.Default()
	}
	return u.Logger
}

func (u *Updater) now() time.Time {
	if u.Now == nil {
		return time.Now().UTC()
	}
	return u.Now().UTC()
}

// Update fetches the snapshot for date and consolidates it.
func (u *Updater) Update(ctx context.Context, date time.Time) (*RunResult, error) {
	res := &RunResult{Date: models.Day(date)}
	u.logger().Info("starting update", "date", models.FormatDate(date))

	snap, path, err := u.Fetcher.FetchAndStore(ctx, date)
	res.SnapshotPath = path
	if err != nil {
		return u.finish(ctx, res, err)
	}
	res.Snapshot = snap
	return u.consolidate(ctx, res)
}

// Consolidate folds the already stored snapshot for date into the archive.
func (u *Updater) Consolidate(ctx context.Context, date time.Time) (*RunResult, error) {
	res := &RunResult{Date: models.Day(date), SnapshotPath: scraper.SnapshotPath(u.DataDir, date)}
	u.logger().Info("consolidating stored snapshot", "path", res.SnapshotPath)

	snap, err := scraper.ReadSnapshot(u.DataDir, date)
	if err != nil {
		return u.finish(ctx, res, err)
	}
	res.Snapshot = snap
	return u.consolidate(ctx, res)
}

func (u *Updater) consolidate(ctx context.Context, res *RunResult) (*RunResult, error) {
	cres, err := u.Consolidator.Consolidate(res.Snapshot)
	if err != nil {
		return u.finish(ctx, res, err)
	}
	res.Consolidation = cres
	if cres.Appended {
		res.Outcome = models.OutcomeAppended
	} else {
		res.Outcome = models.OutcomeUnchanged
	}

	u.writeIndex(cres)
	u.mirror(ctx, cres)
	u.publish(ctx, res)
	return u.finish(ctx, res, nil)
}

func (u *Updater) writeIndex(cres archive.Result) {
	if u.IndexPath == "" || cres.Archive == nil {
		return
	}
	if !cres.Appended {
		if _, err := os.Stat(u.IndexPath); err == nil {
			return
		}
	}
	if err := report.WriteIndexFile(u.IndexPath, cres.Archive); err != nil {
		u.logger().Error("failed to write history index", "path", u.IndexPath, "error", err)
		return
	}
	u.logger().Info("history index written", "path", u.IndexPath, "rows", cres.Total)
}

func (u *Updater) mirror(ctx context.Context, cres archive.Result) {
	if u.Mirror == nil || cres.Archive == nil {
		return
	}
	if _, err := u.Mirror.MirrorRecords(ctx, cres.Archive.Records); err != nil {
		u.logger().Error("failed to mirror archive records", "error", err)
	}
}

func (u *Updater) publish(ctx context.Context, res *RunResult) {
	if u.Publisher == nil {
		return
	}
	if res.Consolidation.Appended {
		if _, err := u.Publisher.Publish(ctx, u.Consolidator.Path, publish.ContentTypeGzip); err != nil {
			u.logger().Error("failed to publish archive", "error", err)
		}
	}
	if res.SnapshotPath != "" {
		if _, err := u.Publisher.Publish(ctx, res.SnapshotPath, publish.ContentTypeGeoJSON); err != nil {
			u.logger().Error("failed to publish snapshot", "error", err)
		}
	}
}

// finish classifies err, records the run in the run log and metrics, and
// returns err unchanged.
func (u *Updater) finish(ctx context.Context, res *RunResult, err error) (*RunResult, error) {
	if err != nil {
		res.Outcome = Classify(err)
		u.logger().Error("run did not complete", "outcome", res.Outcome, "date", models.FormatDate(res.Date), "error", err)
	}

	finished := u.now()
	entry := &models.RunEntry{
		RunAt:          finished,
		SnapshotDate:   models.FormatDate(res.Date),
		Outcome:        res.Outcome,
		ArchiveRecords: res.Consolidation.Total,
	}
	if res.Snapshot != nil {
		entry.GeometryHash = geometry.Hash(res.Snapshot.Geometry)
	}
	if res.Consolidation.Appended {
		id := res.Consolidation.Record.ID
		entry.RecordID = &id
	}
	if err != nil {
		entry.Message = err.Error()
	}

	if u.Mirror != nil {
		if lerr := u.Mirror.LogRun(ctx, entry); lerr != nil {
			u.logger().Error("failed to log run", "error", lerr)
		}
	}
	if u.Metrics != nil {
		stats := metrics.RunStats{
			Outcome:  res.Outcome,
			Records:  res.Consolidation.Total,
			Appended: res.Consolidation.Appended,
			Finished: finished,
		}
		if perr := u.Metrics.Push(ctx, stats); perr != nil {
			u.logger().Error("failed to push metrics", "error", perr)
		}
	}

	if err == nil {
		u.logger().Info("update finished", "outcome", res.Outcome, "records", res.Consolidation.Total)
	}
	return res, err
}

// Classify maps a run error to its outcome: skipped runs leave the archive
// untouched and retry on the next schedule; failed runs need attention.
func Classify(err error) string {
	var (
		fetchErr   *scraper.FetchError
		invalidErr *geometry.ValidationError
		corruptErr *archive.CorruptError
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &corruptErr), errors.Is(err, archive.ErrWriteFailed):
		return models.OutcomeFailed
	case errors.As(err, &fetchErr), errors.As(err, &invalidErr),
		errors.Is(err, scraper.ErrSnapshotMissing), errors.Is(err, archive.ErrDateNotAfter):
		return models.OutcomeSkipped
	default:
		return models.OutcomeFailed
	}
}
