package render

import (
	"github.com/paulmach/orb/geojson"

	"github.com/hubenschmidt/go-tilesearch/engine"
)

// FeatureCollection exports a result set as GeoJSON, one feature per
// match in rank order.
func FeatureCollection(rs *engine.RankedResultSet) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	if rs == nil {
		return fc
	}
	for i, m := range rs.Matches {
		f := geojson.NewFeature(m.Geometry)
		f.ID = m.BaseID
		f.Properties["rank"] = i + 1
		f.Properties["base_id"] = m.BaseID
		f.Properties["base_tile"] = m.BaseTile
		f.Properties["query_id"] = m.QueryID
		f.Properties["query_tile"] = m.QueryTile
		f.Properties["distance"] = m.Distance
		fc.Append(f)
	}
	return fc
}

// Layer is one named overlay in draw order.
type Layer struct {
	Name     string                     `json:"name"`
	Features *geojson.FeatureCollection `json:"features"`
	Shown    bool                       `json:"shown"`
}

// Layers returns the overlays for snap: results below the clicked point.
func (snap Snapshot) Layers() []Layer {
	var layers []Layer
	if snap.Result != nil {
		layers = append(layers, Layer{Name: ResultLayer, Features: FeatureCollection(snap.Result), Shown: true})
	}
	if snap.Marker != nil {
		fc := geojson.NewFeatureCollection()
		fc.Append(geojson.NewFeature(snap.Marker.Orb()))
		layers = append(layers, Layer{Name: engine.ClickedPointLayer, Features: fc, Shown: true})
	}
	return layers
}
