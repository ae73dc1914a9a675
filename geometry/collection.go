// geometry/collection.go
package geometry

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// CRS84 is the OGC name for EPSG:4326 with lon/lat axis order, as written by GDAL.
const CRS84 = "urn:ogc:def:crs:OGC:1.3:CRS84"

var acceptedCRS = map[string]bool{
	CRS84:                        true,
	"EPSG:4326":                  true,
	"urn:ogc:def:crs:EPSG::4326": true,
}

type namedCRS struct {
	Type       string `json:"type"`
	Properties struct {
		Name string `json:"name"`
	} `json:"properties"`
}

// FeatureCollection is a GeoJSON FeatureCollection that also carries the
// legacy "crs" member, which orb's own collection type does not expose.
type FeatureCollection struct {
	Type     string             `json:"type"`
	CRS      *namedCRS          `json:"crs,omitempty"`
	Features []*geojson.Feature `json:"features"`
}

// NewFeatureCollection returns an empty collection tagged as CRS84.
func NewFeatureCollection() *FeatureCollection {
	crs := &namedCRS{Type: "name"}
	crs.Properties.Name = CRS84
	return &FeatureCollection{
		Type:     "FeatureCollection",
		CRS:      crs,
		Features: []*geojson.Feature{},
	}
}

// Append adds a feature to the collection.
func (fc *FeatureCollection) Append(f *geojson.Feature) *FeatureCollection {
	fc.Features = append(fc.Features, f)
	return fc
}

// Marshal encodes the collection as GeoJSON.
func (fc *FeatureCollection) Marshal() ([]byte, error) {
	return json.Marshal(fc)
}

// DecodeFeatureCollection parses a GeoJSON FeatureCollection. Syntax errors
// are returned as-is; a foreign CRS is a *ValidationError.
func DecodeFeatureCollection(data []byte) (*FeatureCollection, error) {
	fc := &FeatureCollection{}
	if err := json.Unmarshal(data, fc); err != nil {
		return nil, fmt.Errorf("failed to decode feature collection: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("failed to decode feature collection: unexpected type %q", fc.Type)
	}
	if fc.CRS != nil && !acceptedCRS[fc.CRS.Properties.Name] {
		return nil, invalidf("unsupported crs %q, expected EPSG:4326", fc.CRS.Properties.Name)
	}
	return fc, nil
}
