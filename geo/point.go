// Package geo holds the geographic primitives of the search workflow:
// anchor points, display footprints and geometry decoding.
package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Point is a WGS84 coordinate captured from a map click.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func NewPoint(lon, lat float64) Point {
	return Point{Lon: lon, Lat: lat}
}

// Validate reports whether the point is a usable WGS84 coordinate.
func (p Point) Validate() error {
	if math.IsNaN(p.Lon) || math.IsNaN(p.Lat) || math.IsInf(p.Lon, 0) || math.IsInf(p.Lat, 0) {
		return fmt.Errorf("coordinate is not finite: %s", p)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("longitude %g out of range [-180, 180]", p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("latitude %g out of range [-90, 90]", p.Lat)
	}
	return nil
}

func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

func (p Point) String() string {
	return fmt.Sprintf("(%g, %g)", p.Lon, p.Lat)
}
