package engine

import (
	"sync"

	"github.com/hubenschmidt/go-tilesearch/core"
	"github.com/hubenschmidt/go-tilesearch/geo"
)

// ClickedPointLayer is the marker name a map click produces. Only a marker
// with this name counts as a selection.
const ClickedPointLayer = "Clicked Point"

type Marker struct {
	Name  string    `json:"name"`
	Point geo.Point `json:"point"`
}

// Selection holds the analyst's current marker. It is written by the click
// handler and read by search runs.
type Selection struct {
	mu     sync.RWMutex
	marker *Marker
}

func NewSelection() *Selection {
	return &Selection{}
}

// Click records p as the clicked point, replacing any previous marker.
func (s *Selection) Click(p geo.Point) error {
	if err := p.Validate(); err != nil {
		return core.Errorf("selection.click", core.ErrInvalidRequest, "%v", err)
	}
	s.Set(Marker{Name: ClickedPointLayer, Point: p})
	return nil
}

func (s *Selection) Set(m Marker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = &m
}

func (s *Selection) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marker = nil
}

func (s *Selection) Current() (Marker, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.marker == nil {
		return Marker{}, false
	}
	return *s.marker, true
}

// PointResolver turns the current selection into a search anchor.
type PointResolver struct {
	selection *Selection
}

func NewPointResolver(sel *Selection) *PointResolver {
	return &PointResolver{selection: sel}
}

func (r *PointResolver) Resolve() (geo.Point, error) {
	m, ok := r.selection.Current()
	if !ok || m.Name != ClickedPointLayer {
		return geo.Point{}, core.NewSearchError("resolver.resolve", core.ErrNoSelection)
	}
	return m.Point, nil
}
