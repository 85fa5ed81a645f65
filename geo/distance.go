package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// DistanceMeters returns the great-circle distance from p to the nearest
// point of g's bounding box, or 0 when p lies inside g. Index tiles are
// rectangles, so the bound is an exact stand-in for the tile outline.
func DistanceMeters(p Point, g orb.Geometry) float64 {
	if g == nil {
		return math.Inf(1)
	}
	pt := p.Orb()
	switch t := g.(type) {
	case orb.Polygon:
		if planar.PolygonContains(t, pt) {
			return 0
		}
	case orb.MultiPolygon:
		if planar.MultiPolygonContains(t, pt) {
			return 0
		}
	}

	b := g.Bound()
	if b.IsEmpty() {
		return math.Inf(1)
	}
	nearest := orb.Point{
		clamp(pt[0], b.Min[0], b.Max[0]),
		clamp(pt[1], b.Min[1], b.Max[1]),
	}
	return geo.DistanceHaversine(pt, nearest)
}

// Within mirrors ST_DWITHIN(geometry, point, meters).
func Within(p Point, g orb.Geometry, meters float64) bool {
	return DistanceMeters(p, g) <= meters
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
