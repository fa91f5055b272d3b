// Package stats keeps process-wide running counters of request volume,
// success/failure and latency. Counters only reset at process restart.
package stats

import "sync"

// Snapshot is a read-only view of the counters. AverageLatencySeconds is
// recomputed from the totals at read time rather than tracked
// incrementally, so it cannot drift.
type Snapshot struct {
	TotalRequests         int64   `json:"total_requests"`
	SuccessCount          int64   `json:"successful_detections"`
	FailureCount          int64   `json:"failed_detections"`
	TotalLatencySeconds   float64 `json:"total_processing_time"`
	AverageLatencySeconds float64 `json:"average_processing_time"`
	SuccessRate           float64 `json:"success_rate"`
}

// Service is the aggregator. Safe for concurrent use; Record never blocks
// beyond the mutex and never fails.
type Service struct {
	mu           sync.Mutex
	total        int64
	success      int64
	failure      int64
	totalLatency float64
}

// New creates an empty aggregator.
func New() *Service {
	return &Service{}
}

// Record adds one completed request.
func (s *Service) Record(latencySeconds float64, succeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total++
	if succeeded {
		s.success++
	} else {
		s.failure++
	}
	s.totalLatency += latencySeconds
}

// Snapshot returns the current counters with derived values.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		TotalRequests:       s.total,
		SuccessCount:        s.success,
		FailureCount:        s.failure,
		TotalLatencySeconds: s.totalLatency,
	}
	if s.total > 0 {
		snap.AverageLatencySeconds = s.totalLatency / float64(s.total)
		snap.SuccessRate = float64(s.success) / float64(s.total) * 100
	}
	return snap
}
