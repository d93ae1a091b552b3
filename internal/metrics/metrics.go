// Package metrics exposes run progress as prometheus metrics, served on
// an optional HTTP endpoint for scraping long benchmark runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Benchmark Prometheus metrics.
var (
	QueryIterationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docbench",
			Name:      "query_iterations_total",
			Help:      "Measured iterations per query",
		},
		[]string{"query", "status"}, // "ok" / "error"
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docbench",
			Name:      "query_duration_seconds",
			Help:      "Measured iteration duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"query"},
	)

	DocumentsReturnedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docbench",
			Name:      "documents_returned_total",
			Help:      "Primary documents returned by measured iterations",
		},
		[]string{"query"},
	)

	DocumentsLoadedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docbench",
			Name:      "documents_loaded_total",
			Help:      "Documents inserted by the bulk loader",
		},
		[]string{"collection"},
	)

	LoadBatchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docbench",
			Name:      "load_batches_total",
			Help:      "Bulk insert batches per collection",
		},
		[]string{"collection", "status"}, // "ok" / "error"
	)
)

var registered bool

// Register registers all docbench metrics. Must be called once from main.
func Register() {
	if registered {
		return
	}
	prometheus.MustRegister(QueryIterationsTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(DocumentsReturnedTotal)
	prometheus.MustRegister(DocumentsLoadedTotal)
	prometheus.MustRegister(LoadBatchesTotal)
	registered = true
}

// Observer mirrors measured iterations into the prometheus counters. It
// satisfies the benchmark driver's observer seam.
type Observer struct{}

// IterationDone records one measured iteration.
func (Observer) IterationDone(query string, elapsed time.Duration, returned int, failed bool) {
	status := "ok"
	if failed {
		status = "error"
	}
	QueryIterationsTotal.WithLabelValues(query, status).Inc()
	QueryDuration.WithLabelValues(query).Observe(elapsed.Seconds())
	DocumentsReturnedTotal.WithLabelValues(query).Add(float64(returned))
}

// BatchDone records one bulk loader batch.
func BatchDone(collection string, docs int, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	LoadBatchesTotal.WithLabelValues(collection, status).Inc()
	if err == nil {
		DocumentsLoadedTotal.WithLabelValues(collection).Add(float64(docs))
	}
}
