// Package engine runs the similarity-search workflow: resolve the clicked
// point, query the vector engine, shape the result and hand it to a sink.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"

	"github.com/hubenschmidt/go-tilesearch/core"
	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/monitor"
	"github.com/hubenschmidt/go-tilesearch/query"
	"github.com/hubenschmidt/go-tilesearch/store"
	"github.com/hubenschmidt/go-tilesearch/vector"
)

// ErrNoSQL is returned by Preview when the backend is not SQL based.
var ErrNoSQL = errors.New("engine does not render SQL")

// ResultSink receives the result set of each successful run. Apply
// reports false when the sink no longer shows the run's anchor and the
// result was discarded.
type ResultSink interface {
	Apply(rs *RankedResultSet) bool
}

type Engine struct {
	backend   vector.Engine
	selection *Selection
	resolver  *PointResolver
	executor  *Executor
	sink      ResultSink
	runs      store.RunStore
	collector monitor.RunCollector
	logger    *slog.Logger
	sem       *semaphore.Weighted

	radius     float64
	margin     float64
	maxMatches int
	seed       query.SeedPolicy
	distance   query.DistanceType
}

type EngineConfig struct {
	Backend   vector.Engine
	Selection *Selection
	Sink      ResultSink
	Runs      store.RunStore
	Collector monitor.RunCollector
	Logger    *slog.Logger

	RadiusMeters          float64
	FootprintMarginMeters float64
	MaxMatches            int
	SeedPolicy            query.SeedPolicy
	DistanceType          query.DistanceType
	Timeout               time.Duration
}

func NewEngine(cfg EngineConfig) *Engine {
	selection := cfg.Selection
	if selection == nil {
		selection = NewSelection()
	}

	collector := cfg.Collector
	if collector == nil {
		collector = monitor.NewNoOpCollector()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	radius := cfg.RadiusMeters
	if radius <= 0 {
		radius = query.DefaultRadiusMeters
	}

	margin := cfg.FootprintMarginMeters
	if margin <= 0 {
		margin = geo.DefaultMarginMeters
	}

	maxMatches := cfg.MaxMatches
	if maxMatches <= 0 {
		maxMatches = query.MaxMatches
	}

	seed := cfg.SeedPolicy
	if seed == "" {
		seed = query.SeedNearest
	}

	return &Engine{
		backend:    cfg.Backend,
		selection:  selection,
		resolver:   NewPointResolver(selection),
		executor:   NewExecutor(cfg.Backend, cfg.Timeout),
		sink:       cfg.Sink,
		runs:       cfg.Runs,
		collector:  collector,
		logger:     logger.With("component", "engine"),
		sem:        semaphore.NewWeighted(1),
		radius:     radius,
		margin:     margin,
		maxMatches: maxMatches,
		seed:       seed,
		distance:   cfg.DistanceType,
	}
}

func (e *Engine) Selection() *Selection {
	return e.selection
}

func (e *Engine) BackendName() string {
	return e.backend.Name()
}

// RunOutput describes a successful run.
type RunOutput struct {
	RunID          string           `json:"run_id"`
	Result         *RankedResultSet `json:"result"`
	Applied        bool             `json:"applied"`
	Elapsed        time.Duration    `json:"elapsed"`
	EngineDuration time.Duration    `json:"engine_duration"`
}

// Run executes one search for the current selection. Only one run may be
// in flight; a second concurrent call fails with core.ErrSearchInFlight.
// The sink is updated only when the whole run succeeds.
func (e *Engine) Run(ctx context.Context, matches int) (*RunOutput, error) {
	if !e.sem.TryAcquire(1) {
		e.collector.Record(monitor.RunMetrics{Engine: e.backend.Name(), Status: core.Code(core.ErrSearchInFlight)})
		return nil, core.NewSearchError("engine.run", core.ErrSearchInFlight)
	}
	defer e.sem.Release(1)

	ctx, span := otel.Tracer("tilesearch/engine").Start(ctx, "engine.run")
	defer span.End()

	out := &RunOutput{RunID: uuid.NewString()}
	start := time.Now()
	req, err := e.run(ctx, matches, out)
	out.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.String("run.id", out.RunID),
		attribute.String("engine", e.backend.Name()),
		attribute.Int("matches", matches),
	)
	e.record(ctx, req, out, err)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if e.sink != nil {
		out.Applied = e.sink.Apply(out.Result)
		if !out.Applied {
			e.logger.Info("selection changed during run, result not shown", "run_id", out.RunID)
		}
	}
	return out, nil
}

func (e *Engine) run(ctx context.Context, matches int, out *RunOutput) (query.SearchRequest, error) {
	anchor, err := e.resolver.Resolve()
	if err != nil {
		return query.SearchRequest{}, err
	}

	req, err := e.request(anchor, matches)
	if err != nil {
		return query.SearchRequest{Anchor: anchor, RadiusMeters: e.radius, Matches: matches, Seed: e.seed}, err
	}

	e.logger.Debug("searching", "run_id", out.RunID, "request", req.String())

	engineStart := time.Now()
	raw, err := e.executor.Execute(ctx, req)
	out.EngineDuration = time.Since(engineStart)
	if err != nil {
		var se *core.SearchError
		if errors.As(err, &se) {
			core.WithContext(se, "engine", e.backend.Name())
			core.WithContext(se, "run_id", out.RunID)
		}
		return req, err
	}

	rs, err := Transform(req, raw, e.margin)
	if err != nil {
		return req, err
	}
	out.Result = rs
	return req, nil
}

func (e *Engine) request(anchor geo.Point, matches int) (query.SearchRequest, error) {
	if matches > e.maxMatches {
		return query.SearchRequest{}, core.Errorf("engine.request", core.ErrInvalidRequest,
			"matches must be <= %d, got %d", e.maxMatches, matches)
	}
	return query.NewRequest(anchor, e.radius, matches,
		query.WithSeedPolicy(e.seed),
		query.WithDistanceType(e.distance),
	)
}

// Preview renders the statement a run with matches would submit, for
// engines backed by SQL.
func (e *Engine) Preview(matches int) (query.Statement, error) {
	renderer, ok := e.backend.(vector.SQLRenderer)
	if !ok {
		return query.Statement{}, fmt.Errorf("%s: %w", e.backend.Name(), ErrNoSQL)
	}
	anchor, err := e.resolver.Resolve()
	if err != nil {
		return query.Statement{}, err
	}
	req, err := e.request(anchor, matches)
	if err != nil {
		return query.Statement{}, err
	}
	return renderer.RenderSQL(req)
}

func (e *Engine) record(ctx context.Context, req query.SearchRequest, out *RunOutput, runErr error) {
	status := core.Code(runErr)
	info := store.RunInfo{
		RunID:        out.RunID,
		Timestamp:    time.Now().UnixMilli(),
		Engine:       e.backend.Name(),
		RadiusMeters: req.RadiusMeters,
		Matches:      req.Matches,
		TopK:         req.TopK,
		SeedPolicy:   string(req.Seed),
		ElapsedMs:    out.Elapsed.Milliseconds(),
		Status:       status,
	}
	if !errors.Is(runErr, core.ErrNoSelection) {
		lon, lat := req.Anchor.Lon, req.Anchor.Lat
		info.Lon, info.Lat = &lon, &lat
	}
	if out.Result != nil {
		info.SeedID = out.Result.SeedID
		info.ResultCount = out.Result.Len()
		info.Distances = out.Result.Distances()
	}
	if runErr != nil {
		info.Error = runErr.Error()
	}

	e.collector.Record(monitor.RunMetrics{
		RunID:          out.RunID,
		Engine:         info.Engine,
		Status:         status,
		Duration:       out.Elapsed,
		EngineDuration: out.EngineDuration,
		Results:        info.ResultCount,
		Error:          info.Error,
	})

	if e.runs != nil {
		if err := e.runs.Add(context.WithoutCancel(ctx), info); err != nil {
			e.logger.Warn("failed to record run", "run_id", out.RunID, "error", err)
		}
	}

	if runErr != nil {
		e.logger.Warn("search failed", "run_id", out.RunID, "status", status, "error", runErr)
		return
	}
	e.logger.Info("search complete",
		"run_id", out.RunID,
		"seed_id", info.SeedID,
		"results", info.ResultCount,
		"elapsed_ms", info.ElapsedMs,
	)
}
