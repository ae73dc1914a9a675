// geometry/dissolve.go
package geometry

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
	"github.com/peterstace/simplefeatures/geom"
)

// Dissolve unions polys into a single MultiPolygon so that overlapping or
// touching source polygons become one member with no shared edges. A single
// polygon is returned untouched. Polygons the overlay engine rejects are a
// *ValidationError.
func Dissolve(polys []orb.Polygon) (orb.MultiPolygon, error) {
	switch len(polys) {
	case 0:
		return nil, invalidf("nothing to dissolve")
	case 1:
		return orb.MultiPolygon{polys[0]}, nil
	}

	var acc geom.Geometry
	for i, p := range polys {
		g, err := toSimple(p)
		if err != nil {
			return nil, invalidf("polygon %d: %v", i, err)
		}
		if i == 0 {
			acc = g
			continue
		}
		if acc, err = geom.Union(acc, g); err != nil {
			return nil, invalidf("union with polygon %d: %v", i, err)
		}
	}
	return fromSimple(acc)
}

func toSimple(p orb.Polygon) (geom.Geometry, error) {
	data, err := wkb.Marshal(p)
	if err != nil {
		return geom.Geometry{}, err
	}
	return geom.UnmarshalWKB(data)
}

func fromSimple(g geom.Geometry) (orb.MultiPolygon, error) {
	if g.IsEmpty() {
		return nil, invalidf("union is empty")
	}
	og, err := wkb.Unmarshal(g.AsBinary())
	if err != nil {
		return nil, invalidf("union result: %v", err)
	}
	return Normalize(og)
}
