// geometry/validate.go
package geometry

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// ValidationError reports geometry that is malformed, empty, or outside EPSG:4326.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid geometry: " + e.Reason
}

func invalidf(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// Normalize converts g to a MultiPolygon without validating it. A Polygon is
// promoted to a one-member MultiPolygon; any other type is rejected.
func Normalize(g orb.Geometry) (orb.MultiPolygon, error) {
	switch v := g.(type) {
	case orb.MultiPolygon:
		return v, nil
	case orb.Polygon:
		return orb.MultiPolygon{v}, nil
	case nil:
		return nil, invalidf("missing geometry")
	default:
		return nil, invalidf("expected MultiPolygon, got %s", g.GeoJSONType())
	}
}

// AsMultiPolygon normalises g to a MultiPolygon and validates it.
func AsMultiPolygon(g orb.Geometry) (orb.MultiPolygon, error) {
	mp, err := Normalize(g)
	if err != nil {
		return nil, err
	}
	if err := Validate(mp); err != nil {
		return nil, err
	}
	return mp, nil
}

// Validate checks that mp is non-empty, that every ring is closed with at
// least four positions, and that every position is a finite lon/lat pair.
func Validate(mp orb.MultiPolygon) error {
	if len(mp) == 0 {
		return invalidf("empty multipolygon")
	}
	for i, poly := range mp {
		if len(poly) == 0 {
			return invalidf("polygon %d has no rings", i)
		}
		for j, ring := range poly {
			if len(ring) < 4 {
				return invalidf("polygon %d ring %d has %d positions, need at least 4", i, j, len(ring))
			}
			if ring[0] != ring[len(ring)-1] {
				return invalidf("polygon %d ring %d is not closed", i, j)
			}
			for k, p := range ring {
				if err := validPosition(p); err != nil {
					return invalidf("polygon %d ring %d position %d: %s", i, j, k, err)
				}
			}
		}
	}
	return nil
}

func validPosition(p orb.Point) error {
	lon, lat := p.Lon(), p.Lat()
	if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
		return fmt.Errorf("non-finite coordinate [%v, %v]", lon, lat)
	}
	if lon < -180 || lon > 180 {
		return fmt.Errorf("longitude %v outside [-180, 180]", lon)
	}
	if lat < -90 || lat > 90 {
		return fmt.Errorf("latitude %v outside [-90, 90]", lat)
	}
	return nil
}
