// Package query builds nearest-neighbor search requests and renders them
// into the SQL dialects of the supported vector-search engines.
package query

import (
	"fmt"

	"github.com/hubenschmidt/go-tilesearch/core"
	"github.com/hubenschmidt/go-tilesearch/geo"
)

const (
	MinMatches     = 0
	MaxMatches     = 100
	DefaultMatches = 10
	MatchesStep    = 10

	DefaultRadiusMeters = 160.0
)

// SearchRequest is a single nearest-neighbor search. TopK counts the seed
// record itself, which the engine returns as its own nearest neighbor.
type SearchRequest struct {
	Anchor       geo.Point    `json:"anchor"`
	RadiusMeters float64      `json:"radius_meters"`
	Matches      int          `json:"matches"`
	TopK         int          `json:"top_k"`
	Seed         SeedPolicy   `json:"seed_policy"`
	Distance     DistanceType `json:"distance_type,omitempty"`
}

type Option func(*SearchRequest)

func WithSeedPolicy(p SeedPolicy) Option {
	return func(r *SearchRequest) { r.Seed = p }
}

func WithDistanceType(d DistanceType) Option {
	return func(r *SearchRequest) { r.Distance = d }
}

// NewRequest builds a request for matches neighbors of the record under
// anchor. One extra result is requested to absorb the self-match.
func NewRequest(anchor geo.Point, radiusMeters float64, matches int, opts ...Option) (SearchRequest, error) {
	req := SearchRequest{
		Anchor:       anchor,
		RadiusMeters: radiusMeters,
		Matches:      matches,
		TopK:         matches + 1,
		Seed:         SeedNearest,
	}
	for _, opt := range opts {
		opt(&req)
	}
	if err := req.Validate(); err != nil {
		return SearchRequest{}, err
	}
	return req, nil
}

func (r SearchRequest) Validate() error {
	if err := r.Anchor.Validate(); err != nil {
		return core.Errorf("query.validate", core.ErrInvalidRequest, "anchor: %v", err)
	}
	if !(r.RadiusMeters > 0) {
		return core.Errorf("query.validate", core.ErrInvalidRequest, "radius must be positive, got %g", r.RadiusMeters)
	}
	if r.Matches < MinMatches {
		return core.Errorf("query.validate", core.ErrInvalidRequest, "matches must be >= %d, got %d", MinMatches, r.Matches)
	}
	if r.TopK != r.Matches+1 {
		return core.Errorf("query.validate", core.ErrInvalidRequest, "top_k %d must equal matches+1", r.TopK)
	}
	if !r.Seed.Valid() {
		return core.Errorf("query.validate", core.ErrInvalidRequest, "unknown seed policy %q", r.Seed)
	}
	if !r.Distance.Valid() {
		return core.Errorf("query.validate", core.ErrInvalidRequest, "unknown distance type %q", r.Distance)
	}
	return nil
}

func (r SearchRequest) String() string {
	return fmt.Sprintf("anchor=%s radius=%gm matches=%d top_k=%d seed=%s", r.Anchor, r.RadiusMeters, r.Matches, r.TopK, r.Seed)
}
