// report/index.go
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"

	"github.com/jszwec/csvutil"

	"github.com/cyterat/deepstate-map-data/archive"
	"github.com/cyterat/deepstate-map-data/geometry"
	"github.com/cyterat/deepstate-map-data/models"
	"github.com/cyterat/deepstate-map-data/utils"
)

// Summaries flattens every archive record into an index row.
func Summaries(a *archive.Archive) []models.RecordSummary {
	out := make([]models.RecordSummary, 0, a.Len())
	for _, rec := range a.Records {
		polygons, rings, points := geometry.Counts(rec.Geometry)
		out = append(out, models.RecordSummary{
			ID:       rec.ID,
			Date:     models.FormatDate(rec.Date),
			Polygons: polygons,
			Rings:    rings,
			Points:   points,
			AreaKm2:  math.Round(geometry.AreaKm2(rec.Geometry)*1000) / 1000,
		})
	}
	return out
}

// WriteIndex writes summaries as CSV with a header row, even when empty.
func WriteIndex(w io.Writer, summaries []models.RecordSummary) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)

	if err := enc.EncodeHeader(models.RecordSummary{}); err != nil {
		return fmt.Errorf("failed to write index header: %w", err)
	}
	for _, s := range summaries {
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("failed to encode index row %d: %w", s.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteIndexFile atomically writes the index of a to path.
func WriteIndexFile(path string, a *archive.Archive) error {
	summaries := Summaries(a)
	return utils.WriteAtomic(path, 0644, func(w io.Writer) error {
		return WriteIndex(w, summaries)
	})
}

// ReadIndex parses an index written by WriteIndex.
func ReadIndex(r io.Reader) ([]models.RecordSummary, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create CSV decoder for index: %w", err)
	}

	var summaries []models.RecordSummary
	if err := dec.Decode(&summaries); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to decode index: %w", err)
	}
	return summaries, nil
}
