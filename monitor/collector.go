package monitor

import (
	"maps"
	"sync"
	"time"
)

type RunCollector interface {
	Record(m RunMetrics)
}

// PrometheusCollector feeds the package-level Prometheus metrics.
type PrometheusCollector struct{}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{}
}

func (c *PrometheusCollector) Record(m RunMetrics) {
	RunsTotal.WithLabelValues(m.Engine, m.Status).Inc()
	if m.Status == "in_flight" {
		return
	}
	RunDurationSeconds.WithLabelValues(m.Engine).Observe(m.Duration.Seconds())
	if m.EngineDuration > 0 {
		EngineDurationSeconds.WithLabelValues(m.Engine).Observe(m.EngineDuration.Seconds())
	}
	if m.Status == "success" {
		ResultSize.Observe(float64(m.Results))
	}
}

// InMemoryCollector keeps running totals for the process.
type InMemoryCollector struct {
	mu      sync.Mutex
	summary Summary
}

func NewInMemoryCollector() *InMemoryCollector {
	return &InMemoryCollector{summary: Summary{
		ByStatus:  make(map[string]int),
		StartTime: time.Now(),
	}}
}

func (c *InMemoryCollector) Record(m RunMetrics) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.summary.TotalRuns++
	c.summary.ByStatus[m.Status]++
	c.summary.TotalResults += m.Results
	c.summary.TotalDuration += m.Duration
	c.summary.EngineDuration += m.EngineDuration
}

// Flush returns the totals recorded so far.
func (c *InMemoryCollector) Flush() Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.summary
	s.ByStatus = maps.Clone(c.summary.ByStatus)
	s.EndTime = time.Now()
	return s
}

// MultiCollector fans a record out to several collectors.
type MultiCollector []RunCollector

func (mc MultiCollector) Record(m RunMetrics) {
	for _, c := range mc {
		c.Record(m)
	}
}

type NoOpCollector struct{}

func NewNoOpCollector() *NoOpCollector {
	return &NoOpCollector{}
}

func (c *NoOpCollector) Record(m RunMetrics) {}
