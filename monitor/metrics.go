package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal counts search runs by engine and outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tilesearch_runs_total",
			Help: "The total number of similarity search runs",
		},
		[]string{"engine", "status"},
	)

	// RunDurationSeconds measures end-to-end run latency
	RunDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tilesearch_run_duration_seconds",
			Help:    "Duration of similarity search runs",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"engine"},
	)

	// EngineDurationSeconds measures time spent inside the vector search engine
	EngineDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tilesearch_engine_duration_seconds",
			Help:    "Duration of vector search engine calls",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"engine"},
	)

	// ResultSize tracks how many matches each successful run displayed
	ResultSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tilesearch_result_size",
			Help:    "Number of matches returned per successful run",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100},
		},
	)

	// IndexRecords is the number of records held by the in-memory engine
	IndexRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "tilesearch_index_records",
			Help: "Number of tile records loaded into the in-memory index",
		},
	)
)

// RunMetrics describes one completed (or rejected) run.
type RunMetrics struct {
	RunID          string        `json:"run_id"`
	Engine         string        `json:"engine"`
	Status         string        `json:"status"`
	Duration       time.Duration `json:"duration"`
	EngineDuration time.Duration `json:"engine_duration"`
	Results        int           `json:"results"`
	Error          string        `json:"error,omitempty"`
}

// Summary aggregates the runs seen by a collector.
type Summary struct {
	TotalRuns      int            `json:"total_runs"`
	ByStatus       map[string]int `json:"by_status"`
	TotalResults   int            `json:"total_results"`
	TotalDuration  time.Duration  `json:"total_duration"`
	EngineDuration time.Duration  `json:"engine_duration"`
	StartTime      time.Time      `json:"start_time"`
	EndTime        time.Time      `json:"end_time"`
}
