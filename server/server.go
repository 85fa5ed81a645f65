package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hubenschmidt/go-tilesearch/engine"
	"github.com/hubenschmidt/go-tilesearch/query"
	"github.com/hubenschmidt/go-tilesearch/render"
	"github.com/hubenschmidt/go-tilesearch/store"
)

// Config configures a new Server instance.
type Config struct {
	Engine *engine.Engine
	View   *render.State
	Runs   store.RunStore // Optional: defaults to an in-memory run log
	Logger *slog.Logger

	DefaultMatches int
	MaxMatches     int
	MatchesStep    int

	ServiceName    string
	CORSOrigin     string
	RateLimitRPS   float64 // Optional: 0 disables rate limiting
	RateLimitBurst int
}

// Server is the HTTP API for the tile similarity search.
type Server struct {
	engine *engine.Engine
	view   *render.State
	runs   store.RunStore
	logger *slog.Logger

	defaultMatches int
	maxMatches     int
	matchesStep    int

	serviceName string
	corsOrigin  string
	rps         float64
	burst       int
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Engine == nil {
		return nil, errors.New("server: engine is required")
	}

	view := cfg.View
	if view == nil {
		view = render.NewState()
	}

	runs := cfg.Runs
	if runs == nil {
		runs = store.NewMemoryRunStore()
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	maxMatches := cfg.MaxMatches
	if maxMatches <= 0 {
		maxMatches = query.MaxMatches
	}

	defaultMatches := cfg.DefaultMatches
	if defaultMatches <= 0 || defaultMatches > maxMatches {
		defaultMatches = min(query.DefaultMatches, maxMatches)
	}

	step := cfg.MatchesStep
	if step <= 0 {
		step = query.MatchesStep
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "tilesearch"
	}

	corsOrigin := cfg.CORSOrigin
	if corsOrigin == "" {
		corsOrigin = "*"
	}

	return &Server{
		engine:         cfg.Engine,
		view:           view,
		runs:           runs,
		logger:         logger.With("component", "server"),
		defaultMatches: defaultMatches,
		maxMatches:     maxMatches,
		matchesStep:    step,
		serviceName:    serviceName,
		corsOrigin:     corsOrigin,
		rps:            cfg.RateLimitRPS,
		burst:          cfg.RateLimitBurst,
	}, nil
}

// Handler returns an http.Handler for the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /init", s.handleInit)

	mux.HandleFunc("POST /selection", s.handleSelect)
	mux.HandleFunc("DELETE /selection", s.handleClearSelection)
	mux.HandleFunc("POST /search", s.handleSearch)
	mux.HandleFunc("GET /results", s.handleResults)
	mux.HandleFunc("GET /query", s.handleQuery)

	mux.HandleFunc("GET /runs", s.handleRunList)
	mux.HandleFunc("GET /runs/summary", s.handleRunSummary)
	mux.HandleFunc("GET /runs/{id}", s.handleRunGet)
	mux.HandleFunc("DELETE /runs/{id}", s.handleRunDelete)

	mux.Handle("GET /metrics", promhttp.Handler())

	return Chain(mux,
		Recover(s.logger),
		OTel(s.serviceName),
		Logger(s.logger),
		CORS(s.corsOrigin),
		RateLimit(s.rps, s.burst),
	)
}
