package geo

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assertAxisAlignedRect(t *testing.T, p orb.Polygon) {
	t.Helper()
	require.Len(t, p, 1, "footprint must be a single ring")
	ring := p[0]
	require.Len(t, ring, 5, "closed ring of four vertices")
	assert.Equal(t, ring[0], ring[4])

	for i := 0; i < 4; i++ {
		a, b := ring[i], ring[i+1]
		horizontal := a[1] == b[1] && a[0] != b[0]
		vertical := a[0] == b[0] && a[1] != b[1]
		assert.True(t, horizontal || vertical, "edge %d is not axis-aligned: %v -> %v", i, a, b)
	}
}

func TestPointValidate(t *testing.T) {
	tests := []struct {
		name    string
		point   Point
		wantErr bool
	}{
		{"nairobi", NewPoint(36.8, -1.3), false},
		{"corner", NewPoint(-180, 90), false},
		{"lon too large", NewPoint(180.5, 0), true},
		{"lat too small", NewPoint(0, -90.1), true},
		{"nan", NewPoint(math.NaN(), 0), true},
		{"inf", NewPoint(0, math.Inf(1)), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.point.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFootprintIsAxisAlignedRect(t *testing.T) {
	// A concave, rotated outline.
	poly := orb.Polygon{{
		{36.80, -1.30}, {36.81, -1.295}, {36.805, -1.29},
		{36.812, -1.285}, {36.798, -1.282}, {36.80, -1.30},
	}}

	fp, err := Footprint(poly, DefaultMarginMeters)
	require.NoError(t, err)
	assertAxisAlignedRect(t, fp)

	// Strictly larger than the source bound on every side.
	src := poly.Bound()
	got := fp.Bound()
	assert.Less(t, got.Min[0], src.Min[0])
	assert.Less(t, got.Min[1], src.Min[1])
	assert.Greater(t, got.Max[0], src.Max[0])
	assert.Greater(t, got.Max[1], src.Max[1])
}

func TestFootprintOfPoint(t *testing.T) {
	fp, err := Footprint(orb.Point{36.8, -1.3}, DefaultMarginMeters)
	require.NoError(t, err)
	assertAxisAlignedRect(t, fp)

	// ~160 m on each side of the point.
	b := fp.Bound()
	height := geo.DistanceHaversine(orb.Point{36.8, b.Min[1]}, orb.Point{36.8, b.Max[1]})
	assert.InDelta(t, 320, height, 5)
}

func TestFootprintRectangleMatchesPaddedBound(t *testing.T) {
	rect := orb.Bound{Min: orb.Point{36.8, -1.31}, Max: orb.Point{36.81, -1.30}}.ToPolygon()

	fp, err := Footprint(rect, DefaultMarginMeters)
	require.NoError(t, err)
	assert.Equal(t, geo.BoundPad(rect.Bound(), DefaultMarginMeters), fp.Bound())

	// Same margin, same input: same output.
	again, err := Footprint(rect, DefaultMarginMeters)
	require.NoError(t, err)
	assert.Equal(t, fp, again)
}

func TestFootprintBoundsStepIsIdempotent(t *testing.T) {
	rect := orb.Bound{Min: orb.Point{36.8, -1.31}, Max: orb.Point{36.81, -1.30}}.ToPolygon()

	same, err := Footprint(rect, 0)
	require.NoError(t, err)
	assert.Equal(t, rect, same)

	fp, err := Footprint(rect, DefaultMarginMeters)
	require.NoError(t, err)
	twice, err := Footprint(fp, 0)
	require.NoError(t, err)
	assert.Equal(t, fp, twice)
}

func TestFootprintEmpty(t *testing.T) {
	_, err := Footprint(nil, DefaultMarginMeters)
	assert.Error(t, err)

	_, err = Footprint(orb.Polygon{}, DefaultMarginMeters)
	assert.Error(t, err)
}

func TestDistanceMeters(t *testing.T) {
	tile := orb.Bound{Min: orb.Point{36.80, -1.30}, Max: orb.Point{36.81, -1.29}}.ToPolygon()

	assert.Zero(t, DistanceMeters(NewPoint(36.805, -1.295), tile))

	// 0.001 degrees of longitude at the equator is ~111 m.
	d := DistanceMeters(NewPoint(36.811, -1.295), tile)
	assert.InDelta(t, 111, d, 2)
	assert.True(t, Within(NewPoint(36.811, -1.295), tile, 160))
	assert.False(t, Within(NewPoint(36.82, -1.295), tile, 160))

	assert.True(t, math.IsInf(DistanceMeters(NewPoint(0, 0), nil), 1))
}

func TestParseGeometry(t *testing.T) {
	g, err := ParseGeometry(`{"type":"Polygon","coordinates":[[[36.8,-1.3],[36.81,-1.3],[36.81,-1.29],[36.8,-1.29],[36.8,-1.3]]]}`)
	require.NoError(t, err)
	assert.IsType(t, orb.Polygon{}, g)

	g, err = ParseGeometry("POLYGON((36.8 -1.3,36.81 -1.3,36.81 -1.29,36.8 -1.29,36.8 -1.3))")
	require.NoError(t, err)
	assert.Equal(t, orb.Point{36.8, -1.3}, g.Bound().Min)

	_, err = ParseGeometry("   ")
	assert.Error(t, err)

	_, err = ParseGeometry("{not json")
	assert.Error(t, err)
}
