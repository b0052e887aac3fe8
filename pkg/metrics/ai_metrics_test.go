package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestLatencyTracker_Stats(t *testing.T) {
	lt := NewLatencyTracker(100)
	for i := 1; i <= 100; i++ {
		lt.Record(time.Duration(i) * time.Millisecond)
	}

	s := lt.Stats()
	if s.Count != 100 {
		t.Fatalf("count = %d", s.Count)
	}
	if s.P50Ms != 50 || s.P99Ms != 99 || s.MaxMs != 100 {
		t.Errorf("p50=%v p99=%v max=%v", s.P50Ms, s.P99Ms, s.MaxMs)
	}
	if s.AvgMs != 50.5 {
		t.Errorf("avg = %v", s.AvgMs)
	}
}

func TestLatencyTracker_SlidingWindow(t *testing.T) {
	lt := NewLatencyTracker(10)
	for i := 0; i < 25; i++ {
		lt.Record(time.Millisecond)
	}
	if n := lt.Stats().Count; n > 10 {
		t.Errorf("window exceeded: %d samples", n)
	}
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest("POST", "/api/v1/classify", "200", 12*time.Millisecond)
	m.ObserveModelCall("gpt-4o-mini", errors.New("timeout"), time.Second)
	m.ObserveCache("memory", true)
	m.ObserveFallback("classification")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)

	for _, want := range []string{
		`ai_service_http_requests_total{method="POST",route="/api/v1/classify",status="200"} 1`,
		`ai_service_model_calls_total{model="gpt-4o-mini",outcome="error"} 1`,
		`ai_service_embedding_cache_lookups_total{result="hit",tier="memory"} 1`,
		`ai_service_fallbacks_total{stage="classification"} 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics output missing %q", want)
		}
	}

	if _, ok := m.Latency.AllStats()["POST /api/v1/classify"]; !ok {
		t.Error("latency registry should track the route")
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("GET", "/", "200", time.Millisecond)
	m.ObserveFallback("priority")
	m.ObserveJob(nil, time.Millisecond)
}
