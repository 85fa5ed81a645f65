package vector

import (
	"context"
	"sort"
	"sync"

	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/query"
)

// MemoryEngine is an in-memory brute-force engine for development and
// testing. It follows the same seed and ordering rules as the SQL engines.
type MemoryEngine struct {
	mu      sync.RWMutex
	records []IndexRecord
	index   map[string]int
}

// NewMemoryEngine creates an engine holding the given records.
func NewMemoryEngine(records ...IndexRecord) *MemoryEngine {
	e := &MemoryEngine{index: make(map[string]int)}
	e.Upsert(records)
	return e
}

func (e *MemoryEngine) Name() string {
	return "memory"
}

// Upsert stores records, replacing existing ones by ID in place.
func (e *MemoryEngine) Upsert(records []IndexRecord) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, r := range records {
		if i, ok := e.index[r.ID]; ok {
			e.records[i] = r
			continue
		}
		e.index[r.ID] = len(e.records)
		e.records = append(e.records, r)
	}
}

// Search picks a seed within the radius and ranks every record by its
// embedding distance to the seed. The seed ranks first among records at
// its distance; other ties keep insertion order.
func (e *MemoryEngine) Search(ctx context.Context, req query.SearchRequest) ([]MatchRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	seed, ok := e.pickSeed(req)
	if !ok {
		return nil, nil
	}

	dist := DistanceFunc(req.Distance)
	results := make([]MatchRecord, 0, len(e.records))
	for _, r := range e.records {
		if len(r.Embedding) == 0 {
			continue
		}
		results = append(results, MatchRecord{
			BaseID:    r.ID,
			BaseTile:  r.Tile,
			QueryID:   seed.ID,
			QueryTile: seed.Tile,
			Geometry:  r.Geometry,
			Distance:  dist(seed.Embedding, r.Embedding),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Distance != results[j].Distance {
			return results[i].Distance < results[j].Distance
		}
		return results[i].BaseID == seed.ID && results[j].BaseID != seed.ID
	})

	if len(results) > req.TopK {
		results = results[:req.TopK]
	}
	return results, nil
}

func (e *MemoryEngine) pickSeed(req query.SearchRequest) (IndexRecord, bool) {
	var (
		best     IndexRecord
		bestDist float64
		found    bool
	)
	for _, r := range e.records {
		if len(r.Embedding) == 0 {
			continue
		}
		d := geo.DistanceMeters(req.Anchor, r.Geometry)
		if d > req.RadiusMeters {
			continue
		}
		if req.Seed == query.SeedUnordered {
			return r, true
		}
		if !found || d < bestDist || (d == bestDist && r.ID < best.ID) {
			best, bestDist, found = r, d, true
		}
	}
	return best, found
}

// CountSeeds returns the number of records within radiusMeters of anchor.
func (e *MemoryEngine) CountSeeds(ctx context.Context, anchor geo.Point, radiusMeters float64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	var n int
	for _, r := range e.records {
		if len(r.Embedding) > 0 && geo.Within(anchor, r.Geometry, radiusMeters) {
			n++
		}
	}
	return n, nil
}

// Close is a no-op for the in-memory engine.
func (e *MemoryEngine) Close() error {
	return nil
}

// Count returns the number of records in the engine.
func (e *MemoryEngine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.records)
}
