// Package vector provides the nearest-neighbor search engines the
// workflow runs against.
package vector

import (
	"context"

	"github.com/paulmach/orb"

	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/query"
)

// IndexRecord is one row of the tile-embedding table.
type IndexRecord struct {
	ID        string       `json:"id"`
	Tile      string       `json:"tile"`
	Geometry  orb.Geometry `json:"-"`
	Embedding []float64    `json:"embedding,omitempty"`
}

// MatchRecord is one neighbor returned by an engine. QueryID and QueryTile
// identify the seed record the search compared against.
type MatchRecord struct {
	BaseID    string       `json:"base_id"`
	BaseTile  string       `json:"base_tile"`
	QueryID   string       `json:"query_id"`
	QueryTile string       `json:"query_tile"`
	Geometry  orb.Geometry `json:"-"`
	Distance  float64      `json:"distance"`
}

// Engine executes nearest-neighbor searches against a tile index.
type Engine interface {
	// Name identifies the engine in logs and metrics.
	Name() string

	// Search returns at most req.TopK matches ordered by ascending
	// distance. Order among equal distances is engine-defined.
	Search(ctx context.Context, req query.SearchRequest) ([]MatchRecord, error)

	// Close releases resources.
	Close() error
}

// SeedCounter is implemented by engines that can report how many index
// records fall within the seed radius of an anchor.
type SeedCounter interface {
	CountSeeds(ctx context.Context, anchor geo.Point, radiusMeters float64) (int, error)
}

// SQLRenderer is implemented by engines backed by SQL, for query preview.
type SQLRenderer interface {
	RenderSQL(req query.SearchRequest) (query.Statement, error)
}
