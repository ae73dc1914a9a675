// models/archive.go
package models

import (
	"time"

	"github.com/paulmach/orb"
)

// ArchiveRecord is one entry of the consolidated archive.
type ArchiveRecord struct {
	ID       int              `json:"id"`
	Date     time.Time        `json:"date"`
	Geometry orb.MultiPolygon `json:"geometry"`
}

// RecordSummary is the flattened, CSV-friendly view of an ArchiveRecord.
type RecordSummary struct {
	ID       int     `csv:"id"`
	Date     string  `csv:"date"`
	Polygons int     `csv:"polygons"`
	Rings    int     `csv:"rings"`
	Points   int     `csv:"points"`
	AreaKm2  float64 `csv:"area_km2"`
}
