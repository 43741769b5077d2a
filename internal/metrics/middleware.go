package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kailas-cloud/topicdex/internal/domain"
)

var (
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "topicdex",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			// Model indexing runs synchronously and can take minutes.
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 10, 30, 120, 300},
		},
		[]string{"method", "path", "status"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "topicdex",
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpEngineCalls = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "topicdex",
			Name:      "http_engine_calls_per_request",
			Help:      "Search engine round trips made while serving one query request",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 25},
		},
		[]string{"path"},
	)

	httpCacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "topicdex",
			Name:      "http_cache_hits_total",
			Help:      "Word-beta answers served from the cache, by route",
		},
		[]string{"path"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpEngineCalls)
	prometheus.MustRegister(httpCacheHits)
}

// Middleware records HTTP request duration and count. It also seeds the
// request context with a domain.RequestStats collector so handlers and
// services below can report engine round trips and cache hits.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ctx, stats := domain.NewContextWithStats(r.Context())
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r.WithContext(ctx))

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(ww.status)

			// chi fills the route pattern of the shared route context while routing.
			path := normalizePath(chi.RouteContext(ctx).RoutePattern())

			httpRequestDuration.WithLabelValues(r.Method, path, status).Observe(duration)
			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			if stats.EngineCalls > 0 {
				httpEngineCalls.WithLabelValues(path).Observe(float64(stats.EngineCalls))
			}
			if stats.CacheHits > 0 {
				httpCacheHits.WithLabelValues(path).Add(float64(stats.CacheHits))
			}
		})
	}
}

// normalizePath keeps label cardinality bounded: unmatched requests share one label.
func normalizePath(pattern string) string {
	if pattern == "" {
		return "unmatched"
	}
	return pattern
}

// statusWriter captures the response status code.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if !w.wroteHeader {
		w.status = status
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.wroteHeader = true
	}
	return w.ResponseWriter.Write(b) //nolint:wrapcheck // delegating to underlying ResponseWriter
}
