// models/snapshot.go
package models

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// DateLayout is the calendar-date form used in file names and record properties.
const DateLayout = "2006-01-02"

// DailySnapshot is one day's occupied-territory geometry as fetched from the source.
type DailySnapshot struct {
	Date     time.Time        `json:"date"`
	Geometry orb.MultiPolygon `json:"geometry"`
}

// ParseDate parses a YYYY-MM-DD string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD: %w", s, err)
	}
	return d, nil
}

// Day truncates t to its calendar date in UTC.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}
