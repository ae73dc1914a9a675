// archive/consolidator.go
package archive

import (
	"log/slog"

	"github.com/cyterat/deepstate-map-data/models"
)

// Result is the observable outcome of one consolidation.
type Result struct {
	// Appended is true when a new record was written.
	Appended bool
	// Record is the appended record, or the unchanged last record.
	Record models.ArchiveRecord
	// Total is the number of records in the archive afterwards.
	Total int
	// Archive is the in-memory state after the run.
	Archive *Archive
}

// Consolidator folds daily snapshots into the archive file at Path.
type Consolidator struct {
	Path   string
	logger *slog.Logger
}

func NewConsolidator(path string, logger *slog.Logger) *Consolidator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consolidator{Path: path, logger: logger}
}

// Consolidate loads the archive, applies the append rule for snap and writes
// the archive back only when a record was appended. A corrupt archive is
// returned as *CorruptError and is never rewritten.
func (c *Consolidator) Consolidate(snap *models.DailySnapshot) (Result, error) {
	a, err := Load(c.Path)
	if err != nil {
		c.logger.Error("cannot load archive, refusing to write", "path", c.Path, "error", err)
		return Result{}, err
	}
	if last, ok := a.Last(); ok {
		c.logger.Info("archive loaded", "path", c.Path, "records", a.Len(), "last_id", last.ID, "last_date", models.FormatDate(last.Date))
	} else {
		c.logger.Info("archive is empty or missing, starting a new one", "path", c.Path)
	}

	rec, appended, err := a.Append(snap)
	if err != nil {
		return Result{}, err
	}
	res := Result{Appended: appended, Record: rec, Total: a.Len(), Archive: a}

	if !appended {
		c.logger.Info("geometry unchanged, archive not modified",
			"snapshot_date", models.FormatDate(snap.Date), "last_id", rec.ID, "last_date", models.FormatDate(rec.Date))
		return res, nil
	}

	if err := Save(c.Path, a); err != nil {
		return Result{}, err
	}
	c.logger.Info("appended archive record", "id", rec.ID, "date", models.FormatDate(rec.Date), "appended", 1, "records", res.Total)
	return res, nil
}
