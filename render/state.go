// Package render holds the map view the analyst sees: the clicked point,
// the latest result layer and the view center.
package render

import (
	"sync"

	"github.com/paulmach/orb"

	"github.com/hubenschmidt/go-tilesearch/engine"
	"github.com/hubenschmidt/go-tilesearch/geo"
)

const (
	ResultLayer = "Similar Areas"

	ClickZoom  = 16
	ResultZoom = 14
)

type Center struct {
	Geometry orb.Geometry
	Zoom     int
}

// State is the result sink for search runs. Apply replaces the result
// layer wholesale; readers never see a partially applied run.
type State struct {
	mu      sync.RWMutex
	marker  *geo.Point
	result  *engine.RankedResultSet
	center  *Center
	version int
}

func NewState() *State {
	return &State{}
}

// Focus shows a newly clicked point and drops the previous result layer.
func (s *State) Focus(p geo.Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = &p
	s.result = nil
	s.center = &Center{Geometry: p.Orb(), Zoom: ClickZoom}
	s.version++
}

// Apply implements engine.ResultSink. A result set is shown only while its
// anchor is still the clicked point; otherwise it is dropped and Apply
// returns false.
func (s *State) Apply(rs *engine.RankedResultSet) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rs == nil || s.marker == nil || *s.marker != rs.Request.Anchor {
		return false
	}
	s.result = rs
	if closest, ok := rs.Closest(); ok {
		s.center = &Center{Geometry: closest.Geometry, Zoom: ResultZoom}
	}
	s.version++
	return true
}

func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = nil
	s.result = nil
	s.center = nil
	s.version++
}

type Snapshot struct {
	Marker  *geo.Point
	Result  *engine.RankedResultSet
	Center  *Center
	Version int
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := Snapshot{Result: s.result, Version: s.version}
	if s.marker != nil {
		m := *s.marker
		snap.Marker = &m
	}
	if s.center != nil {
		c := *s.center
		snap.Center = &c
	}
	return snap
}
