package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-tilesearch/core"
	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/vector"
)

func TestPointResolver(t *testing.T) {
	sel := NewSelection()
	r := NewPointResolver(sel)

	_, err := r.Resolve()
	assert.ErrorIs(t, err, core.ErrNoSelection)

	sel.Set(Marker{Name: "AOI", Point: nairobi})
	_, err = r.Resolve()
	assert.ErrorIs(t, err, core.ErrNoSelection, "only the clicked point marker counts")

	require.NoError(t, sel.Click(nairobi))
	p, err := r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, nairobi, p)

	require.NoError(t, sel.Click(geo.NewPoint(36.9, -1.3)))
	p, err = r.Resolve()
	require.NoError(t, err)
	assert.Equal(t, geo.NewPoint(36.9, -1.3), p)

	sel.Clear()
	_, err = r.Resolve()
	assert.ErrorIs(t, err, core.ErrNoSelection)
}

func TestSelectionClickRejectsInvalidPoint(t *testing.T) {
	sel := NewSelection()
	err := sel.Click(geo.NewPoint(200, 0))
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
	_, ok := sel.Current()
	assert.False(t, ok)
}

func TestClosestTieGoesToFirst(t *testing.T) {
	rs := &RankedResultSet{Matches: []vector.MatchRecord{
		{BaseID: "x", Distance: 0.3},
		{BaseID: "y", Distance: 0.1},
		{BaseID: "z", Distance: 0.1},
	}}
	m, ok := rs.Closest()
	require.True(t, ok)
	assert.Equal(t, "y", m.BaseID)

	var empty *RankedResultSet
	_, ok = empty.Closest()
	assert.False(t, ok)
	assert.Empty(t, empty.BaseIDs())
}
