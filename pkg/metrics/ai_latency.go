package metrics

import (
	"sort"
	"sync"
	"time"
)

// =============================================================================
// Latency Tracker (P50/P95/P99)
// =============================================================================

// LatencyTracker keeps a sliding window of latencies.
type LatencyTracker struct {
	mu         sync.Mutex
	samples    []int64 // microseconds
	maxSamples int
}

// NewLatencyTracker creates a tracker that keeps the last windowSize samples.
func NewLatencyTracker(windowSize int) *LatencyTracker {
	if windowSize <= 0 {
		windowSize = 1000
	}
	return &LatencyTracker{
		samples:    make([]int64, 0, windowSize),
		maxSamples: windowSize,
	}
}

// Record adds one sample.
func (lt *LatencyTracker) Record(d time.Duration) {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	if len(lt.samples) >= lt.maxSamples {
		// 10%씩 잘라내서 잦은 shift 방지
		drop := lt.maxSamples / 10
		if drop < 1 {
			drop = 1
		}
		lt.samples = append(lt.samples[:0], lt.samples[drop:]...)
	}
	lt.samples = append(lt.samples, d.Microseconds())
}

// Stats computes percentiles over the current window.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.Lock()
	sorted := make([]int64, len(lt.samples))
	copy(sorted, lt.samples)
	lt.mu.Unlock()

	n := len(sorted)
	if n == 0 {
		return LatencyStats{}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum int64
	for _, v := range sorted {
		sum += v
	}
	at := func(p float64) float64 {
		return float64(sorted[int(float64(n-1)*p)]) / 1000
	}

	return LatencyStats{
		Count: n,
		AvgMs: float64(sum) / float64(n) / 1000,
		P50Ms: at(0.50),
		P95Ms: at(0.95),
		P99Ms: at(0.99),
		MaxMs: float64(sorted[n-1]) / 1000,
	}
}

// LatencyStats in milliseconds.
type LatencyStats struct {
	Count int     `json:"count"`
	AvgMs float64 `json:"avg_ms"`
	P50Ms float64 `json:"p50_ms"`
	P95Ms float64 `json:"p95_ms"`
	P99Ms float64 `json:"p99_ms"`
	MaxMs float64 `json:"max_ms"`
}

// =============================================================================
// Per-route registry
// =============================================================================

// LatencyRegistry keeps one tracker per key.
type LatencyRegistry struct {
	mu       sync.RWMutex
	trackers map[string]*LatencyTracker
	window   int
}

// NewLatencyRegistry creates a registry whose trackers keep windowSize samples.
func NewLatencyRegistry(windowSize int) *LatencyRegistry {
	return &LatencyRegistry{
		trackers: make(map[string]*LatencyTracker),
		window:   windowSize,
	}
}

// Record adds a sample for key.
func (r *LatencyRegistry) Record(key string, d time.Duration) {
	r.mu.RLock()
	tracker, ok := r.trackers[key]
	r.mu.RUnlock()

	if !ok {
		r.mu.Lock()
		if tracker, ok = r.trackers[key]; !ok {
			tracker = NewLatencyTracker(r.window)
			r.trackers[key] = tracker
		}
		r.mu.Unlock()
	}
	tracker.Record(d)
}

// AllStats returns stats for every key.
func (r *LatencyRegistry) AllStats() map[string]LatencyStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]LatencyStats, len(r.trackers))
	for key, tracker := range r.trackers {
		result[key] = tracker.Stats()
	}
	return result
}
