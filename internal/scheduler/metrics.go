package scheduler

import (
	"sync"
	"time"
)

type RunMetrics struct {
	mutex               sync.RWMutex
	totalRuns           uint64
	failedRuns          uint64
	skippedRuns         uint64
	totalProcessingTime time.Duration
	lastRunAt           time.Time
}

type MetricsSnapshot struct {
	TotalRuns             uint64        `json:"total_runs"`
	FailedRuns            uint64        `json:"failed_runs"`
	SkippedRuns           uint64        `json:"skipped_runs"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	LastRunAt             *time.Time    `json:"last_run_at,omitempty"`
}

func (m *RunMetrics) recordRun(d time.Duration, err error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.totalRuns++
	if err != nil {
		m.failedRuns++
	}
	m.totalProcessingTime += d
	m.lastRunAt = time.Now().UTC()
}

func (m *RunMetrics) recordSkip() {
	m.mutex.Lock()
	m.skippedRuns++
	m.mutex.Unlock()
}

func (m *RunMetrics) snapshot() MetricsSnapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	s := MetricsSnapshot{
		TotalRuns:   m.totalRuns,
		FailedRuns:  m.failedRuns,
		SkippedRuns: m.skippedRuns,
	}
	if m.totalRuns > 0 {
		s.AverageProcessingTime = m.totalProcessingTime / time.Duration(m.totalRuns)
		last := m.lastRunAt
		s.LastRunAt = &last
	}
	return s
}
