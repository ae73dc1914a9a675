// archive/archive.go
package archive

import (
	"fmt"

	"github.com/cyterat/deepstate-map-data/geometry"
	"github.com/cyterat/deepstate-map-data/models"
)

// Archive is the ordered history of distinct daily geometries.
type Archive struct {
	Records []models.ArchiveRecord
}

// Len is the number of records.
func (a *Archive) Len() int {
	return len(a.Records)
}

// Last returns the most recent record.
func (a *Archive) Last() (models.ArchiveRecord, bool) {
	if len(a.Records) == 0 {
		return models.ArchiveRecord{}, false
	}
	return a.Records[len(a.Records)-1], true
}

// Append extends the archive with snap unless its geometry is structurally
// equal to the last record's. It returns the appended record, or the current
// last record with appended=false when nothing changed.
//
// A changed geometry dated on or before the last record is rejected with
// ErrDateNotAfter so dates stay strictly increasing.
func (a *Archive) Append(snap *models.DailySnapshot) (rec models.ArchiveRecord, appended bool, err error) {
	if err := geometry.Validate(snap.Geometry); err != nil {
		return models.ArchiveRecord{}, false, err
	}

	date := models.Day(snap.Date)
	last, ok := a.Last()
	if ok && geometry.Equal(last.Geometry, snap.Geometry) {
		return last, false, nil
	}
	if ok && !date.After(last.Date) {
		return models.ArchiveRecord{}, false, fmt.Errorf("%w: snapshot %s, last record %d on %s",
			ErrDateNotAfter, models.FormatDate(date), last.ID, models.FormatDate(last.Date))
	}

	id := 0
	if ok {
		id = last.ID + 1
	}
	rec = models.ArchiveRecord{ID: id, Date: date, Geometry: snap.Geometry}
	a.Records = append(a.Records, rec)
	return rec, true, nil
}
