// archive/codec.go
package archive

import (
	"compress/gzip"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"github.com/paulmach/orb/geojson"

	"github.com/cyterat/deepstate-map-data/geometry"
	"github.com/cyterat/deepstate-map-data/models"
)

// Decode reads a gzip-compressed GeoJSON FeatureCollection of archive records.
// Records written by geopandas (string feature ids, date-only properties,
// Polygon geometries) are accepted.
func Decode(r io.Reader) (*Archive, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open gzip stream: %w", err)
	}
	defer zr.Close()

	data, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}

	fc, err := geometry.DecodeFeatureCollection(data)
	if err != nil {
		return nil, err
	}

	a := &Archive{Records: make([]models.ArchiveRecord, 0, len(fc.Features))}
	for i, f := range fc.Features {
		rec, err := decodeRecord(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		a.Records = append(a.Records, rec)
	}
	return a, nil
}

// Encode writes the archive as gzip-compressed GeoJSON. Output is
// deterministic: the gzip header carries no timestamp.
func (a *Archive) Encode(w io.Writer) error {
	fc := geometry.NewFeatureCollection()
	for _, rec := range a.Records {
		f := geojson.NewFeature(rec.Geometry)
		f.ID = rec.ID
		f.Properties["id"] = rec.ID
		f.Properties["date"] = models.FormatDate(rec.Date)
		fc.Append(f)
	}
	data, err := fc.Marshal()
	if err != nil {
		return fmt.Errorf("failed to encode archive: %w", err)
	}

	zw, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return err
	}
	if _, err := zw.Write(data); err != nil {
		zw.Close()
		return fmt.Errorf("failed to compress archive: %w", err)
	}
	return zw.Close()
}

func decodeRecord(f *geojson.Feature) (models.ArchiveRecord, error) {
	if f == nil {
		return models.ArchiveRecord{}, fmt.Errorf("null feature")
	}

	idValue, ok := f.Properties["id"]
	if !ok {
		idValue = f.ID
	}
	id, err := toInt(idValue)
	if err != nil {
		return models.ArchiveRecord{}, fmt.Errorf("invalid id: %w", err)
	}

	rawDate, ok := f.Properties["date"].(string)
	if !ok {
		return models.ArchiveRecord{}, fmt.Errorf("missing date property")
	}
	date, err := parseRecordDate(rawDate)
	if err != nil {
		return models.ArchiveRecord{}, err
	}

	mp, err := geometry.Normalize(f.Geometry)
	if err != nil {
		return models.ArchiveRecord{}, err
	}
	return models.ArchiveRecord{ID: id, Date: date, Geometry: mp}, nil
}

func toInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
			return 0, fmt.Errorf("%v is not a non-negative integer", n)
		}
		return int(n), nil
	case int:
		return n, nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("%q is not a non-negative integer", n)
		}
		return i, nil
	case nil:
		return 0, fmt.Errorf("missing")
	default:
		return 0, fmt.Errorf("unsupported type %T", v)
	}
}

func parseRecordDate(s string) (time.Time, error) {
	if d, err := time.Parse(models.DateLayout, s); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return calendarDay(t), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return calendarDay(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// calendarDay keeps the date as written, whatever the offset.
func calendarDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
