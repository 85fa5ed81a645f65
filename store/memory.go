package store

import (
	"context"
	"sort"
	"sync"
)

// MemoryRunStore keeps runs in process memory.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[string]RunInfo
}

func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{
		runs: make(map[string]RunInfo),
	}
}

func (s *MemoryRunStore) Add(_ context.Context, r RunInfo) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[r.RunID] = r
	return nil
}

func (s *MemoryRunStore) Get(_ context.Context, id string) (RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return RunInfo{}, ErrNotFound
	}
	return r, nil
}

func (s *MemoryRunStore) List(_ context.Context) ([]RunInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]RunInfo, 0, len(s.runs))
	for _, r := range s.runs {
		result = append(result, r)
	}
	sort.SliceStable(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp > result[j].Timestamp
		}
		return result[i].RunID < result[j].RunID
	})
	return result, nil
}

func (s *MemoryRunStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
	return nil
}

func (s *MemoryRunStore) Summary(_ context.Context) (RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.runs) == 0 {
		return RunSummary{}, nil
	}

	var m RunSummary
	var totalLatency int64
	for _, r := range s.runs {
		m.TotalRuns++
		if r.Status == statusSuccess {
			m.SuccessfulRuns++
		}
		m.TotalResults += r.ResultCount
		totalLatency += r.ElapsedMs
	}
	m.FailedRuns = m.TotalRuns - m.SuccessfulRuns
	m.AvgLatencyMs = float64(totalLatency) / float64(m.TotalRuns)
	return m, nil
}

func (s *MemoryRunStore) Close() error {
	return nil
}
