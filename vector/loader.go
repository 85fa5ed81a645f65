package vector

import (
	"fmt"
	"io"
	"os"

	"github.com/paulmach/orb/geojson"
)

// LoadGeoJSON reads index records from a GeoJSON FeatureCollection. Each
// feature carries "id", "tile" and "embedding" properties; a missing "id"
// falls back to the feature id.
func LoadGeoJSON(r io.Reader) ([]IndexRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decode feature collection: %w", err)
	}

	records := make([]IndexRecord, 0, len(fc.Features))
	for i, f := range fc.Features {
		rec, err := recordFromFeature(f)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadGeoJSONFile is LoadGeoJSON over a file path.
func LoadGeoJSONFile(path string) ([]IndexRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer f.Close()
	return LoadGeoJSON(f)
}

func recordFromFeature(f *geojson.Feature) (IndexRecord, error) {
	id := f.Properties.MustString("id", "")
	if id == "" {
		if s, ok := f.ID.(string); ok {
			id = s
		}
	}
	if id == "" {
		return IndexRecord{}, fmt.Errorf("missing id")
	}
	if f.Geometry == nil {
		return IndexRecord{}, fmt.Errorf("record %s: missing geometry", id)
	}

	raw, ok := f.Properties["embedding"].([]any)
	if !ok || len(raw) == 0 {
		return IndexRecord{}, fmt.Errorf("record %s: missing embedding", id)
	}
	embedding := make([]float64, len(raw))
	for i, v := range raw {
		x, ok := v.(float64)
		if !ok {
			return IndexRecord{}, fmt.Errorf("record %s: embedding[%d] is not a number", id, i)
		}
		embedding[i] = x
	}

	return IndexRecord{
		ID:        id,
		Tile:      f.Properties.MustString("tile", ""),
		Geometry:  f.Geometry,
		Embedding: embedding,
	}, nil
}
