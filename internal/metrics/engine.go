package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Search engine, cache and indexing metrics.
var (
	EngineRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "topicdex",
			Name:      "engine_requests_total",
			Help:      "Total number of search engine requests",
		},
		[]string{"op", "outcome"},
	)

	EngineRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "topicdex",
			Name:      "engine_request_duration_seconds",
			Help:      "Search engine request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"op"},
	)

	IndexedDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "topicdex",
			Name:      "indexed_documents_total",
			Help:      "Documents submitted to the engine by indexing runs",
		},
		[]string{"kind"}, // "corpus" / "model" / "topic"
	)

	BetaCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "topicdex",
			Name:      "beta_cache_total",
			Help:      "Topic-word weight cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	InferenceRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "topicdex",
			Name:      "inference_requests_total",
			Help:      "Total number of inference service requests",
		},
		[]string{"status"},
	)

	InferenceRequestDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "topicdex",
			Name:      "inference_request_duration_seconds",
			Help:      "Inference service request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

var serviceMetricsRegistered bool

// RegisterServiceMetrics registers engine, cache, indexing and inference metrics.
// Must be called once from main.
func RegisterServiceMetrics() {
	if serviceMetricsRegistered {
		return
	}
	prometheus.MustRegister(EngineRequestsTotal)
	prometheus.MustRegister(EngineRequestDuration)
	prometheus.MustRegister(IndexedDocumentsTotal)
	prometheus.MustRegister(BetaCacheTotal)
	prometheus.MustRegister(InferenceRequestsTotal)
	prometheus.MustRegister(InferenceRequestDuration)
	serviceMetricsRegistered = true
}

// ObserveEngineCall records one engine round trip.
func ObserveEngineCall(op string, err error, d time.Duration) {
	EngineRequestsTotal.WithLabelValues(op, outcome(err)).Inc()
	EngineRequestDuration.WithLabelValues(op).Observe(d.Seconds())
}

// ObserveInference records one inference service call.
func ObserveInference(err error, d time.Duration) {
	InferenceRequestsTotal.WithLabelValues(outcome(err)).Inc()
	InferenceRequestDuration.Observe(d.Seconds())
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}
