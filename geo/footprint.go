package geo

import (
	"errors"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

// DefaultMarginMeters is the buffer applied to match geometries before
// taking their bounding box.
const DefaultMarginMeters = 160.0

var errEmptyGeometry = errors.New("geometry is empty")

// Footprint buffers g by marginMeters and returns the axis-aligned bounding
// box of the result as a closed ring of four vertices. The bounding box of
// a buffer equals the geometry's bounding box padded by the margin, so the
// buffer itself is never materialized.
func Footprint(g orb.Geometry, marginMeters float64) (orb.Polygon, error) {
	if g == nil {
		return nil, errEmptyGeometry
	}
	b := g.Bound()
	if b.IsEmpty() {
		return nil, errEmptyGeometry
	}
	if marginMeters > 0 {
		b = geo.BoundPad(b, marginMeters)
	}
	return b.ToPolygon(), nil
}
