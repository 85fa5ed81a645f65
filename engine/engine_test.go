package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubenschmidt/go-tilesearch/core"
	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/monitor"
	"github.com/hubenschmidt/go-tilesearch/query"
	"github.com/hubenschmidt/go-tilesearch/store"
	"github.com/hubenschmidt/go-tilesearch/vector"
)

var nairobi = geo.NewPoint(36.8, -1.3)

type stubEngine struct {
	mu      sync.Mutex
	records []vector.MatchRecord
	err     error
	seeds   int
	block   chan struct{}
	entered chan struct{}
	calls   atomic.Int32
	lastReq query.SearchRequest
}

func (s *stubEngine) Name() string { return "stub" }

func (s *stubEngine) Search(ctx context.Context, req query.SearchRequest) ([]vector.MatchRecord, error) {
	s.calls.Add(1)
	s.mu.Lock()
	s.lastReq = req
	s.mu.Unlock()

	if s.entered != nil {
		close(s.entered)
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	out := s.records
	if len(out) > req.TopK {
		out = out[:req.TopK]
	}
	return out, nil
}

func (s *stubEngine) CountSeeds(ctx context.Context, anchor geo.Point, radiusMeters float64) (int, error) {
	return s.seeds, nil
}

func (s *stubEngine) Close() error { return nil }

type recordingSink struct {
	mu      sync.Mutex
	applied []*RankedResultSet
}

func (r *recordingSink) Apply(rs *RankedResultSet) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, rs)
	return true
}

func (r *recordingSink) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.applied)
}

// matchesWithDistances builds raw engine output: the seed first, then one
// record per distance, each a point geometry.
func matchesWithDistances(distances ...float64) []vector.MatchRecord {
	out := []vector.MatchRecord{{
		BaseID: "seed", BaseTile: "t0", QueryID: "seed", QueryTile: "t0",
		Geometry: orb.Point{36.8, -1.3}, Distance: 0,
	}}
	for i, d := range distances {
		out = append(out, vector.MatchRecord{
			BaseID:    "m" + string(rune('1'+i)),
			BaseTile:  "t1",
			QueryID:   "seed",
			QueryTile: "t0",
			Geometry:  orb.Point{36.83 + float64(i)*0.01, -1.29},
			Distance:  d,
		})
	}
	return out
}

type fixture struct {
	backend   *stubEngine
	sink      *recordingSink
	runs      *store.MemoryRunStore
	collector *monitor.InMemoryCollector
	engine    *Engine
}

func newFixture(backend *stubEngine, mutate ...func(*EngineConfig)) *fixture {
	f := &fixture{
		backend:   backend,
		sink:      &recordingSink{},
		runs:      store.NewMemoryRunStore(),
		collector: monitor.NewInMemoryCollector(),
	}
	cfg := EngineConfig{
		Backend:               backend,
		Sink:                  f.sink,
		Runs:                  f.runs,
		Collector:             f.collector,
		RadiusMeters:          160,
		FootprintMarginMeters: 160,
		Timeout:               time.Second,
	}
	for _, m := range mutate {
		m(&cfg)
	}
	f.engine = NewEngine(cfg)
	return f
}

func (f *fixture) click(t *testing.T, p geo.Point) {
	t.Helper()
	require.NoError(t, f.engine.Selection().Click(p))
}

func TestRunNairobi(t *testing.T) {
	f := newFixture(&stubEngine{records: matchesWithDistances(0.12, 0.12, 0.31, 0.40, 0.55)})
	f.click(t, nairobi)

	out, err := f.engine.Run(context.Background(), 5)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.NotEmpty(t, out.RunID)

	assert.Equal(t, 6, f.backend.lastReq.TopK)
	assert.Equal(t, nairobi, f.backend.lastReq.Anchor)
	assert.Equal(t, query.SeedNearest, f.backend.lastReq.Seed)

	rs := out.Result
	assert.Equal(t, 5, rs.Len())
	assert.Equal(t, "seed", rs.SeedID)
	assert.Equal(t, []string{"m1", "m2", "m3", "m4", "m5"}, rs.BaseIDs())
	assert.Equal(t, []float64{0.12, 0.12, 0.31, 0.40, 0.55}, rs.Distances())
	assert.Equal(t, []float64{0.12, 0.31, 0.40, 0.55}, rs.DistinctDistances())

	closest, ok := rs.Closest()
	require.True(t, ok)
	assert.Equal(t, "m1", closest.BaseID)

	for _, m := range rs.Matches {
		poly, ok := m.Geometry.(orb.Polygon)
		require.True(t, ok)
		require.Len(t, poly, 1)
		assert.Len(t, poly[0], 5)
	}

	require.Equal(t, 1, f.sink.count())
	assert.Same(t, rs, f.sink.applied[0])

	runs, err := f.runs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "success", runs[0].Status)
	assert.Equal(t, 5, runs[0].ResultCount)
	assert.Equal(t, "seed", runs[0].SeedID)
	assert.Equal(t, out.RunID, runs[0].RunID)

	assert.Equal(t, map[string]int{"success": 1}, f.collector.Flush().ByStatus)
}

func TestRunWithoutSelectionKeepsPreviousResult(t *testing.T) {
	f := newFixture(&stubEngine{records: matchesWithDistances(0.1, 0.2)})
	f.click(t, nairobi)
	_, err := f.engine.Run(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, f.sink.count())

	f.engine.Selection().Clear()
	out, err := f.engine.Run(context.Background(), 10)
	assert.Nil(t, out)
	assert.ErrorIs(t, err, core.ErrNoSelection)
	assert.Equal(t, 1, f.sink.count())
	assert.EqualValues(t, 1, f.backend.calls.Load())

	runs, err := f.runs.List(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	for _, r := range runs {
		switch r.Status {
		case "no_selection":
			assert.Nil(t, r.Lon, "no anchor was resolved")
			assert.Nil(t, r.Lat)
		case "success":
			require.NotNil(t, r.Lon)
			assert.Equal(t, nairobi.Lon, *r.Lon)
			assert.Equal(t, nairobi.Lat, *r.Lat)
		default:
			t.Fatalf("unexpected status %q", r.Status)
		}
	}
}

func TestRunZeroMatches(t *testing.T) {
	f := newFixture(&stubEngine{records: matchesWithDistances(0.1, 0.2)})
	f.click(t, nairobi)

	out, err := f.engine.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, f.backend.lastReq.TopK)
	assert.Zero(t, out.Result.Len())
	_, ok := out.Result.Closest()
	assert.False(t, ok)
	assert.Equal(t, 1, f.sink.count())
}

func TestRunKeepsEngineOrder(t *testing.T) {
	f := newFixture(&stubEngine{records: matchesWithDistances(0.5, 0.2, 0.9)})
	f.click(t, nairobi)

	out, err := f.engine.Run(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5, 0.2, 0.9}, out.Result.Distances())

	closest, ok := out.Result.Closest()
	require.True(t, ok)
	assert.Equal(t, "m2", closest.BaseID)
}

func TestRunSparseIndex(t *testing.T) {
	f := newFixture(&stubEngine{records: matchesWithDistances(0.1, 0.2)})
	f.click(t, nairobi)

	out, err := f.engine.Run(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 2, out.Result.Len())
}

func TestRunAmbiguousSeed(t *testing.T) {
	mismatched := matchesWithDistances(0.1, 0.2)
	mismatched[0].BaseID = "other"

	tests := []struct {
		name    string
		records []vector.MatchRecord
	}{
		{"no seed record", nil},
		{"first row is not the seed", mismatched},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(&stubEngine{records: tt.records})
			f.click(t, nairobi)

			_, err := f.engine.Run(context.Background(), 5)
			assert.ErrorIs(t, err, core.ErrAmbiguousSeed)
			assert.Zero(t, f.sink.count())
		})
	}
}

func TestRunStrictSeedPolicy(t *testing.T) {
	strict := func(c *EngineConfig) { c.SeedPolicy = query.SeedStrict }

	f := newFixture(&stubEngine{records: matchesWithDistances(0.1), seeds: 2}, strict)
	f.click(t, nairobi)
	_, err := f.engine.Run(context.Background(), 5)
	assert.ErrorIs(t, err, core.ErrAmbiguousSeed)
	assert.Zero(t, f.backend.calls.Load())

	f = newFixture(&stubEngine{records: matchesWithDistances(0.1), seeds: 1}, strict)
	f.click(t, nairobi)
	out, err := f.engine.Run(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Result.Len())
}

func TestRunInvalidGeometry(t *testing.T) {
	records := matchesWithDistances(0.1, 0.2)
	records[2].Geometry = nil
	f := newFixture(&stubEngine{records: records})
	f.click(t, nairobi)

	_, err := f.engine.Run(context.Background(), 5)
	assert.ErrorIs(t, err, core.ErrInvalidGeometry)
	assert.Zero(t, f.sink.count())
}

func TestRunInvalidMatches(t *testing.T) {
	f := newFixture(&stubEngine{records: matchesWithDistances(0.1)})
	f.click(t, nairobi)

	_, err := f.engine.Run(context.Background(), -1)
	assert.ErrorIs(t, err, core.ErrInvalidRequest)

	_, err = f.engine.Run(context.Background(), 101)
	assert.ErrorIs(t, err, core.ErrInvalidRequest)
	assert.Zero(t, f.backend.calls.Load())
}

func TestRunEngineFailures(t *testing.T) {
	t.Run("timeout", func(t *testing.T) {
		f := newFixture(&stubEngine{block: make(chan struct{})}, func(c *EngineConfig) {
			c.Timeout = 20 * time.Millisecond
		})
		f.click(t, nairobi)

		_, err := f.engine.Run(context.Background(), 5)
		assert.ErrorIs(t, err, core.ErrEngineTimeout)
		assert.Zero(t, f.sink.count())
		assert.Equal(t, map[string]int{"timeout": 1}, f.collector.Flush().ByStatus)
	})

	t.Run("unavailable", func(t *testing.T) {
		f := newFixture(&stubEngine{err: errors.New("connection refused")})
		f.click(t, nairobi)

		_, err := f.engine.Run(context.Background(), 5)
		assert.ErrorIs(t, err, core.ErrEngineUnavailable)
		assert.Contains(t, err.Error(), "connection refused")

		var se *core.SearchError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "stub", se.Context["engine"])

		runs, listErr := f.runs.List(context.Background())
		require.NoError(t, listErr)
		require.Len(t, runs, 1)
		assert.Equal(t, runs[0].RunID, se.Context["run_id"])
	})
}

func TestRunRejectsConcurrentRun(t *testing.T) {
	backend := &stubEngine{
		records: matchesWithDistances(0.1),
		block:   make(chan struct{}),
		entered: make(chan struct{}),
	}
	f := newFixture(backend)
	f.click(t, nairobi)

	done := make(chan error, 1)
	go func() {
		_, err := f.engine.Run(context.Background(), 5)
		done <- err
	}()
	<-backend.entered

	_, err := f.engine.Run(context.Background(), 5)
	assert.ErrorIs(t, err, core.ErrSearchInFlight)

	close(backend.block)
	require.NoError(t, <-done)
	assert.Equal(t, 1, f.sink.count())
	assert.EqualValues(t, 1, backend.calls.Load())
}

func TestPreview(t *testing.T) {
	f := newFixture(&stubEngine{})
	f.click(t, nairobi)
	_, err := f.engine.Preview(5)
	assert.ErrorIs(t, err, ErrNoSQL)

	pg := NewEngine(EngineConfig{Backend: vector.NewPgVectorEngineFromDB(nil, "public.tiles")})
	_, err = pg.Preview(5)
	assert.ErrorIs(t, err, core.ErrNoSelection)

	require.NoError(t, pg.Selection().Click(nairobi))
	stmt, err := pg.Preview(5)
	require.NoError(t, err)
	assert.Contains(t, stmt.SQL, `"public"."tiles"`)
	assert.Equal(t, []any{36.8, -1.3, 160.0, 6}, stmt.Args())
}
