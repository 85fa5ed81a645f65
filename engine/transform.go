package engine

import (
	"github.com/hubenschmidt/go-tilesearch/core"
	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/query"
	"github.com/hubenschmidt/go-tilesearch/vector"
)

// RankedResultSet is the displayable outcome of one run. Matches keep the
// engine's ascending-distance order; each Geometry is the match footprint.
type RankedResultSet struct {
	Request  query.SearchRequest  `json:"request"`
	SeedID   string               `json:"seed_id"`
	SeedTile string               `json:"seed_tile"`
	Matches  []vector.MatchRecord `json:"matches"`
}

// Transform drops the self-match from raw, truncates to req.Matches and
// replaces each geometry with its padded bounding box.
func Transform(req query.SearchRequest, raw []vector.MatchRecord, marginMeters float64) (*RankedResultSet, error) {
	if len(raw) == 0 {
		return nil, core.Errorf("transform", core.ErrAmbiguousSeed,
			"no index record within %gm of %s", req.RadiusMeters, req.Anchor)
	}

	self := raw[0]
	if self.QueryID != "" && self.BaseID != self.QueryID {
		return nil, core.Errorf("transform", core.ErrAmbiguousSeed,
			"first match %q is not the seed %q", self.BaseID, self.QueryID)
	}

	rest := raw[1:]
	if len(rest) > req.Matches {
		rest = rest[:req.Matches]
	}

	matches := make([]vector.MatchRecord, 0, len(rest))
	for _, m := range rest {
		fp, err := geo.Footprint(m.Geometry, marginMeters)
		if err != nil {
			return nil, core.Errorf("transform", core.ErrInvalidGeometry, "record %q: %v", m.BaseID, err)
		}
		m.Geometry = fp
		matches = append(matches, m)
	}

	seedID := self.QueryID
	if seedID == "" {
		seedID = self.BaseID
	}
	seedTile := self.QueryTile
	if seedTile == "" {
		seedTile = self.BaseTile
	}

	return &RankedResultSet{
		Request:  req,
		SeedID:   seedID,
		SeedTile: seedTile,
		Matches:  matches,
	}, nil
}

func (rs *RankedResultSet) Len() int {
	if rs == nil {
		return 0
	}
	return len(rs.Matches)
}

func (rs *RankedResultSet) BaseIDs() []string {
	out := make([]string, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		out = append(out, rs.Matches[i].BaseID)
	}
	return out
}

func (rs *RankedResultSet) BaseTiles() []string {
	out := make([]string, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		out = append(out, rs.Matches[i].BaseTile)
	}
	return out
}

func (rs *RankedResultSet) Distances() []float64 {
	out := make([]float64, 0, rs.Len())
	for i := 0; i < rs.Len(); i++ {
		out = append(out, rs.Matches[i].Distance)
	}
	return out
}

// DistinctDistances returns each distance once, in first-seen order.
func (rs *RankedResultSet) DistinctDistances() []float64 {
	seen := make(map[float64]struct{}, rs.Len())
	out := make([]float64, 0, rs.Len())
	for _, d := range rs.Distances() {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	return out
}

// Closest returns the match with the minimum distance. Ties go to the
// earliest match. ok is false when the set is empty.
func (rs *RankedResultSet) Closest() (vector.MatchRecord, bool) {
	if rs.Len() == 0 {
		return vector.MatchRecord{}, false
	}
	best := 0
	for i := 1; i < len(rs.Matches); i++ {
		if rs.Matches[i].Distance < rs.Matches[best].Distance {
			best = i
		}
	}
	return rs.Matches[best], true
}
