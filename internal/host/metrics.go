package host

import (
	"sync"
	"time"

	"github.com/conneroisu/concat/internal/concat"
)

// Metrics tracks pass outcomes of a Host.
type Metrics struct {
	mu            sync.RWMutex
	totalPasses   int64
	failedPasses  int64
	emptyPasses   int64
	totalDuration time.Duration
	lastDuration  time.Duration
	bytesWritten  int64
}

// MetricsSnapshot is a copy of the counters at one point in time.
type MetricsSnapshot struct {
	TotalPasses     int64
	FailedPasses    int64
	EmptyPasses     int64
	AverageDuration time.Duration
	LastDuration    time.Duration
	BytesWritten    int64
	Cache           concat.CacheStats
}

func (m *Metrics) record(result *Result, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalPasses++
	m.totalDuration += result.Duration
	m.lastDuration = result.Duration

	if err != nil {
		m.failedPasses++
	} else if len(result.Assets) == 0 {
		m.emptyPasses++
	}
	for _, a := range result.Assets {
		m.bytesWritten += int64(a.Size)
	}
}

func (m *Metrics) snapshot(cache concat.CacheStats) MetricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := MetricsSnapshot{
		TotalPasses:  m.totalPasses,
		FailedPasses: m.failedPasses,
		EmptyPasses:  m.emptyPasses,
		LastDuration: m.lastDuration,
		BytesWritten: m.bytesWritten,
		Cache:        cache,
	}
	if m.totalPasses > 0 {
		s.AverageDuration = m.totalDuration / time.Duration(m.totalPasses)
	}

	return s
}

// SuccessRate returns the share of passes that succeeded, in percent.
func (s MetricsSnapshot) SuccessRate() float64 {
	if s.TotalPasses == 0 {
		return 0
	}

	return float64(s.TotalPasses-s.FailedPasses) / float64(s.TotalPasses) * 100
}

// CacheHitRate returns the share of file reads served from the cache, in
// percent.
func (s MetricsSnapshot) CacheHitRate() float64 {
	total := s.Cache.Hits + s.Cache.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Cache.Hits) / float64(total) * 100
}
