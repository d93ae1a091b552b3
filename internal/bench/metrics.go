package bench

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Latency histogram bounds: 1µs to 10 minutes at 3 significant figures.
// Anything outside is clamped rather than dropped so a pathological
// iteration still counts toward max and throughput.
const (
	histMinMicros = 1
	histMaxMicros = int64(10 * time.Minute / time.Microsecond)
	histSigFigs   = 3
)

// IndexUsage is the best-effort label derived from captured plan text.
type IndexUsage string

const (
	IndexUsageIndexed  IndexUsage = "indexed"
	IndexUsageCollScan IndexUsage = "collection-scan"
	IndexUsageUnknown  IndexUsage = "unknown"
)

// QueryMetrics accumulates one query's measurements: a high-dynamic-range
// latency histogram plus iteration, error, and document counters. Created
// once per QuerySpec and mutated through warmup and measurement.
type QueryMetrics struct {
	Name string

	hist         *hdrhistogram.Histogram
	warmups      int
	iterations   int
	errors       int
	docsReturned int64
	docsMatched  int64
	measured     time.Duration

	PlanText   string
	IndexUsage IndexUsage
}

// NewQueryMetrics creates an empty collector for one query.
func NewQueryMetrics(name string) *QueryMetrics {
	return &QueryMetrics{
		Name:       name,
		hist:       hdrhistogram.New(histMinMicros, histMaxMicros, histSigFigs),
		IndexUsage: IndexUsageUnknown,
	}
}

// RecordWarmup counts a warmup iteration; its latency is discarded.
func (m *QueryMetrics) RecordWarmup() {
	m.warmups++
}

// Record adds one successful measured iteration.
func (m *QueryMetrics) Record(elapsed time.Duration, returned, matched int) {
	us := elapsed.Microseconds()
	if us < histMinMicros {
		us = histMinMicros
	}
	if us > histMaxMicros {
		us = histMaxMicros
	}
	_ = m.hist.RecordValue(us)
	m.iterations++
	m.measured += elapsed
	m.docsReturned += int64(returned)
	m.docsMatched += int64(matched)
}

// RecordError counts a failed measured iteration.
func (m *QueryMetrics) RecordError() {
	m.iterations++
	m.errors++
}

// Result is the immutable per-query record handed to reporters. Zero
// successful iterations yields degenerate zero statistics; callers must
// inspect Iterations and Errors before trusting the latency numbers.
type Result struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Iterations  int           `json:"iterations"`
	Warmups     int           `json:"warmups"`
	Errors      int           `json:"errors"`
	Min         time.Duration `json:"min_ns"`
	Mean        time.Duration `json:"mean_ns"`
	Max         time.Duration `json:"max_ns"`
	P50         time.Duration `json:"p50_ns"`
	P95         time.Duration `json:"p95_ns"`
	P99         time.Duration `json:"p99_ns"`
	Throughput  float64       `json:"throughput_per_sec"`
	AvgReturned float64       `json:"avg_documents_returned"`
	AvgMatched  float64       `json:"avg_documents_matched"`
	PlanText    string        `json:"plan,omitempty"`
	IndexUsage  IndexUsage    `json:"index_usage"`
	Failure     string        `json:"failure,omitempty"`
}

// Snapshot derives the reportable statistics from the accumulated state.
func (m *QueryMetrics) Snapshot() Result {
	r := Result{
		Name:       m.Name,
		Iterations: m.iterations,
		Warmups:    m.warmups,
		Errors:     m.errors,
		PlanText:   m.PlanText,
		IndexUsage: m.IndexUsage,
	}
	successes := m.hist.TotalCount()
	if successes == 0 {
		return r
	}
	r.Min = time.Duration(m.hist.Min()) * time.Microsecond
	r.Mean = time.Duration(m.hist.Mean()) * time.Microsecond
	r.Max = time.Duration(m.hist.Max()) * time.Microsecond
	r.P50 = time.Duration(m.hist.ValueAtQuantile(50)) * time.Microsecond
	r.P95 = time.Duration(m.hist.ValueAtQuantile(95)) * time.Microsecond
	r.P99 = time.Duration(m.hist.ValueAtQuantile(99)) * time.Microsecond
	if m.measured > 0 {
		r.Throughput = float64(successes) / m.measured.Seconds()
	}
	r.AvgReturned = float64(m.docsReturned) / float64(successes)
	r.AvgMatched = float64(m.docsMatched) / float64(successes)
	return r
}
