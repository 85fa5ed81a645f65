// Package tilesearch wires a similarity search workflow over tile
// embeddings: click a point, find the index tiles whose embeddings are
// nearest to the tile under it, and show them on the map.
//
// Example usage:
//
//	cfg, _ := config.Load("tilesearch.yaml")
//	app, err := tilesearch.Open(ctx, cfg, logger)
//	defer app.Close()
//
//	_ = app.Select(geo.NewPoint(36.8, -1.3))
//	out, err := app.Engine.Run(ctx, 10)
package tilesearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hubenschmidt/go-tilesearch/config"
	"github.com/hubenschmidt/go-tilesearch/engine"
	"github.com/hubenschmidt/go-tilesearch/geo"
	"github.com/hubenschmidt/go-tilesearch/monitor"
	"github.com/hubenschmidt/go-tilesearch/render"
	"github.com/hubenschmidt/go-tilesearch/server"
	"github.com/hubenschmidt/go-tilesearch/store"
	"github.com/hubenschmidt/go-tilesearch/vector"
)

// App holds the assembled components for one process.
type App struct {
	Config  config.Config
	Backend vector.Engine
	Runs    store.RunStore
	View    *render.State
	Engine  *engine.Engine
	Stats   *monitor.InMemoryCollector
	Logger  *slog.Logger
}

// Open builds the backend, run log, view and engine described by cfg.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := OpenBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	runs, err := store.NewRunStore(cfg.RunLogDSN)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("open run log: %w", err)
	}

	view := render.NewState()
	stats := monitor.NewInMemoryCollector()
	eng := engine.NewEngine(engine.EngineConfig{
		Backend:               backend,
		Sink:                  view,
		Runs:                  runs,
		Collector:             monitor.MultiCollector{monitor.NewPrometheusCollector(), stats},
		Logger:                logger,
		RadiusMeters:          cfg.RadiusMeters,
		FootprintMarginMeters: cfg.FootprintMarginMeters,
		MaxMatches:            cfg.MaxMatches,
		SeedPolicy:            cfg.Seed(),
		DistanceType:          cfg.Distance(),
		Timeout:               cfg.Timeout,
	})

	return &App{
		Config:  cfg,
		Backend: backend,
		Runs:    runs,
		View:    view,
		Engine:  eng,
		Stats:   stats,
		Logger:  logger,
	}, nil
}

// OpenBackend connects the vector engine named by cfg.Engine.
func OpenBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (vector.Engine, error) {
	log := logger.With("component", "vector")

	switch cfg.Engine {
	case config.EngineBigQuery:
		e, err := vector.NewBigQueryEngine(ctx, vector.BigQueryConfig{
			Project:         cfg.BigQueryProject,
			Location:        cfg.BigQueryLocation,
			Table:           cfg.Table,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, fmt.Errorf("bigquery: %w", err)
		}
		log.Info("using bigquery engine", "project", cfg.BigQueryProject, "table", cfg.Table)
		return e, nil

	case config.EnginePostgres:
		e, err := vector.NewPgVectorEngine(cfg.DatabaseURL, cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		log.Info("using pgvector engine", "table", cfg.Table)
		return e, nil

	case config.EngineMemory:
		e := vector.NewMemoryEngine()
		if cfg.IndexFile != "" {
			records, err := vector.LoadGeoJSONFile(cfg.IndexFile)
			if err != nil {
				return nil, fmt.Errorf("load index: %w", err)
			}
			e.Upsert(records)
		}
		monitor.IndexRecords.Set(float64(e.Count()))
		log.Info("using in-memory engine", "records", e.Count(), "index_file", cfg.IndexFile)
		return e, nil
	}
	return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
}

// Select marks p as the clicked point and shows it in the view.
func (a *App) Select(p geo.Point) error {
	if err := a.Engine.Selection().Click(p); err != nil {
		return err
	}
	a.View.Focus(p)
	return nil
}

// Server returns an HTTP server for the app.
func (a *App) Server() (*server.Server, error) {
	return server.New(server.Config{
		Engine:         a.Engine,
		View:           a.View,
		Runs:           a.Runs,
		Logger:         a.Logger,
		DefaultMatches: a.Config.DefaultMatches,
		MaxMatches:     a.Config.MaxMatches,
		MatchesStep:    a.Config.MatchesStep,
		CORSOrigin:     a.Config.CORSOrigin,
		RateLimitRPS:   a.Config.RateLimitRPS,
		RateLimitBurst: a.Config.RateLimitBurst,
	})
}

func (a *App) Close() error {
	return errors.Join(a.Runs.Close(), a.Backend.Close())
}
