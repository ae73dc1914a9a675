// scraper/payload.go
package scraper

import (
	"encoding/json"
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/cyterat/deepstate-map-data/geometry"
)

// historyResponse is the subset of the source's "history/last" answer we use.
type historyResponse struct {
	Map *geojson.FeatureCollection `json:"map"`
}

// parsePayload decodes a source response and extracts the occupied-territory
// multipolygon. Undecodable payloads are *FetchError; payloads that decode but
// yield no usable geometry are *geometry.ValidationError.
func parsePayload(url string, body []byte, names []string) (orb.MultiPolygon, error) {
	var resp historyResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if resp.Map == nil {
		return nil, &FetchError{URL: url, Err: errors.New(`payload has no "map" feature collection`)}
	}
	return geometry.SelectPolygons(resp.Map.Features, names)
}
