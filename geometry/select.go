// geometry/select.go
package geometry

import (
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// nameSeparator splits the multilingual "name" property of source features;
// the second part is the English label.
const nameSeparator = "///"

// FeatureLabel returns the English label of a source feature, or "" when the
// feature has no multi-part name.
func FeatureLabel(f *geojson.Feature) string {
	name, _ := f.Properties["name"].(string)
	parts := strings.Split(name, nameSeparator)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// SelectPolygons dissolves every Polygon feature whose label is one of names
// into a single validated MultiPolygon. Features of any other geometry type
// are ignored.
func SelectPolygons(features []*geojson.Feature, names []string) (orb.MultiPolygon, error) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}

	var polys []orb.Polygon
	for _, f := range features {
		if f == nil {
			continue
		}
		poly, ok := f.Geometry.(orb.Polygon)
		if !ok {
			continue
		}
		if !wanted[FeatureLabel(f)] {
			continue
		}
		polys = append(polys, poly)
	}
	if len(polys) == 0 {
		return nil, invalidf("no polygon features labelled %s", strings.Join(names, ", "))
	}
	mp, err := Dissolve(polys)
	if err != nil {
		return nil, err
	}
	if err := Validate(mp); err != nil {
		return nil, err
	}
	return mp, nil
}
