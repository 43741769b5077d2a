package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/topicdex/internal/domain"
)

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, http.NoBody)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestMetricsMiddleware_RecordsDurationAndCount(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/queries/getNrDocsColl", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ndocs":3}`))
	})

	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/queries/getNrDocsColl", "200"))
	if rr := serve(r, http.MethodGet, "/queries/getNrDocsColl?collection=cordis"); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	after := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "/queries/getNrDocsColl", "200"))
	if after != before+1 {
		t.Errorf("expected http_requests_total to grow by 1, got %f -> %f", before, after)
	}
	if testutil.CollectAndCount(httpRequestDuration) == 0 {
		t.Error("expected http_request_duration_seconds to have observations")
	}
}

func TestMetricsMiddleware_StatusCodes(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Post("/corpora/indexCorpus", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	r.Post("/models/indexModel", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	tests := []struct {
		path   string
		status string
	}{
		{"/corpora/indexCorpus", "409"},
		{"/models/indexModel", "502"},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			serve(r, http.MethodPost, tc.path)
			if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("POST", tc.path, tc.status)); v < 1 {
				t.Errorf("expected requests_total for %s with status %s >= 1, got %f", tc.path, tc.status, v)
			}
		})
	}
}

func TestMetricsMiddleware_UnmatchedRoute(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {})

	serve(r, http.MethodGet, "/queries/doesNotExist")
	if v := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("GET", "unmatched", "404")); v < 1 {
		t.Errorf("expected unmatched 404 to be counted, got %f", v)
	}
}

func TestMetricsMiddleware_RecordsRequestStats(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware())
	r.Get("/queries/getBetasByWordAndTopicId", func(w http.ResponseWriter, req *http.Request) {
		stats := domain.StatsFromContext(req.Context())
		if stats == nil {
			t.Error("expected request stats in context")
			return
		}
		stats.AddEngineCall()
		stats.AddEngineCall()
		stats.AddCacheHit()
	})

	const path = "/queries/getBetasByWordAndTopicId"
	hitsBefore := testutil.ToFloat64(httpCacheHits.WithLabelValues(path))
	serve(r, http.MethodGet, path)

	if got := testutil.ToFloat64(httpCacheHits.WithLabelValues(path)) - hitsBefore; got != 1 {
		t.Errorf("expected 1 cache hit, got %f", got)
	}
	if testutil.CollectAndCount(httpEngineCalls) == 0 {
		t.Error("expected engine calls histogram to have observations")
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", "unmatched"},
		{"/queries/getDocsByYear", "/queries/getDocsByYear"},
		{"/health", "/health"},
	}

	for _, tc := range tests {
		if got := normalizePath(tc.input); got != tc.expected {
			t.Errorf("normalizePath(%q) = %q, want %q", tc.input, got, tc.expected)
		}
	}
}
