package server

import (
	"github.com/paulmach/orb/geojson"

	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/query"
	"github.com/hubenschmidt/go-tilesearch/render"
	"github.com/hubenschmidt/go-tilesearch/store"
)

type InitResponse struct {
	Engine         string     `json:"engine"`
	MinMatches     int        `json:"min_matches"`
	MaxMatches     int        `json:"max_matches"`
	DefaultMatches int        `json:"default_matches"`
	MatchesStep    int        `json:"matches_step"`
	Layers         []string   `json:"layers"`
	Selection      *geo.Point `json:"selection,omitempty"`
}

type SelectionRequest struct {
	Lon *float64 `json:"lon"`
	Lat *float64 `json:"lat"`
}

type SearchRequest struct {
	Matches *int `json:"matches"`
}

type SearchResponse struct {
	RunID             string       `json:"run_id"`
	SeedID            string       `json:"seed_id"`
	SeedTile          string       `json:"seed_tile"`
	Count             int          `json:"count"`
	BaseIDs           []string     `json:"base_ids"`
	BaseTiles         []string     `json:"base_tiles"`
	Distances         []float64    `json:"distances"`
	DistinctDistances []float64    `json:"distinct_distances"`
	ElapsedMs         int64        `json:"elapsed_ms"`
	Applied           bool         `json:"applied"`
	View              ViewResponse `json:"view"`
}

type CenterInfo struct {
	Geometry *geojson.Geometry `json:"geometry"`
	Zoom     int               `json:"zoom"`
}

// ViewResponse is the map state: marker, center and overlay layers.
type ViewResponse struct {
	Version int            `json:"version"`
	Marker  *geo.Point     `json:"marker,omitempty"`
	Center  *CenterInfo    `json:"center,omitempty"`
	Layers  []render.Layer `json:"layers"`
}

type QueryResponse struct {
	Engine string        `json:"engine"`
	SQL    string        `json:"sql"`
	Params []query.Param `json:"params"`
}

type RunListResponse struct {
	Runs []store.RunInfo `json:"runs"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func viewResponse(snap render.Snapshot) ViewResponse {
	v := ViewResponse{
		Version: snap.Version,
		Marker:  snap.Marker,
		Layers:  snap.Layers(),
	}
	if v.Layers == nil {
		v.Layers = []render.Layer{}
	}
	if snap.Center != nil {
		v.Center = &CenterInfo{Geometry: geojson.NewGeometry(snap.Center.Geometry), Zoom: snap.Center.Zoom}
	}
	return v
}
