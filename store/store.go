package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a run is not found
var ErrNotFound = errors.New("not found")

// RunInfo represents one recorded search run. Lon and Lat are nil when
// the run failed before a point was resolved.
type RunInfo struct {
	RunID        string    `json:"run_id"`
	Timestamp    int64     `json:"timestamp"`
	Engine       string    `json:"engine"`
	Lon          *float64  `json:"lon,omitempty"`
	Lat          *float64  `json:"lat,omitempty"`
	RadiusMeters float64   `json:"radius_meters"`
	Matches      int       `json:"matches"`
	TopK         int       `json:"top_k"`
	SeedPolicy   string    `json:"seed_policy"`
	SeedID       string    `json:"seed_id,omitempty"`
	ResultCount  int       `json:"result_count"`
	Distances    []float64 `json:"distances,omitempty"`
	ElapsedMs    int64     `json:"elapsed_ms"`
	Status       string    `json:"status"`
	Error        string    `json:"error,omitempty"`
}

// RunSummary contains aggregated run statistics
type RunSummary struct {
	TotalRuns      int     `json:"total_runs"`
	SuccessfulRuns int     `json:"successful_runs"`
	FailedRuns     int     `json:"failed_runs"`
	TotalResults   int     `json:"total_results"`
	AvgLatencyMs   float64 `json:"avg_latency_ms"`
}

// RunStore defines the interface for run log persistence
type RunStore interface {
	Add(ctx context.Context, r RunInfo) error
	Get(ctx context.Context, id string) (RunInfo, error)
	List(ctx context.Context) ([]RunInfo, error)
	Delete(ctx context.Context, id string) error
	Summary(ctx context.Context) (RunSummary, error)
	Close() error
}

const statusSuccess = "success"
