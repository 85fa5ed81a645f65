package geo

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/geojson"
)

// ParseGeometry decodes a geometry column as returned by the search
// engines: GeoJSON text (ST_ASGEOJSON) or WKT (the BigQuery GEOGRAPHY
// default).
func ParseGeometry(s string) (orb.Geometry, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errEmptyGeometry
	}

	if strings.HasPrefix(s, "{") {
		g, err := geojson.UnmarshalGeometry([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("decode geojson: %w", err)
		}
		return g.Geometry(), nil
	}

	g, err := wkt.Unmarshal(s)
	if err != nil {
		return nil, fmt.Errorf("decode wkt: %w", err)
	}
	return g, nil
}
