package inferencer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/topicdex/internal/domain"
	"github.com/kailas-cloud/topicdex/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterServiceMetrics()
	os.Exit(m.Run())
}

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{URL: srv.URL + "/", ThetaBudget: 1000})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNew_RequiresURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty url")
	}
}

func TestInfer_EncodedThetas(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/inference_operations/inferDoc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("text_to_infer"); got != "solar panels & grids" {
			t.Errorf("unexpected text %q", got)
		}
		if got := r.URL.Query().Get("model_for_infer"); got != "mallet10" {
			t.Errorf("unexpected model %q", got)
		}
		_, _ = w.Write([]byte(`{"responseHeader":{"status":200,"time":0.4},"response":[{"id":0,"thetas":"t0|800 t1|200"}]}`))
	})

	before := testutil.ToFloat64(metrics.InferenceRequestsTotal.WithLabelValues("ok"))
	inf, err := c.Infer(context.Background(), "mallet10", "solar panels & grids")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if inf.Thetas != "t0|800 t1|200" || inf.ID != "0" {
		t.Errorf("unexpected inference %+v", inf)
	}
	if got := testutil.ToFloat64(metrics.InferenceRequestsTotal.WithLabelValues("ok")); got != before+1 {
		t.Errorf("expected ok counter %v, got %v", before+1, got)
	}
}

func TestInfer_DenseThetas(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"responseHeader":{"status":200,"time":1},"response":[{"id":"doc","thetas":[0.5,0,0.3,0.2]}]}`))
	})

	inf, err := c.Infer(context.Background(), "ctm5", "x")
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if inf.Thetas != "t0|500 t2|300 t3|200" {
		t.Errorf("unexpected thetas %q", inf.Thetas)
	}
	if inf.ID != "doc" {
		t.Errorf("expected id doc, got %q", inf.ID)
	}
}

func TestInfer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"http error", http.StatusInternalServerError, `boom`},
		{"header error", http.StatusOK, `{"responseHeader":{"status":500},"response":{"error":"no model"}}`},
		{"empty response", http.StatusOK, `{"responseHeader":{"status":200},"response":[]}`},
		{"malformed thetas", http.StatusOK, `{"responseHeader":{"status":200},"response":[{"id":1,"thetas":"t0"}]}`},
		{"not json", http.StatusOK, `<html>`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})
			if _, err := c.Infer(context.Background(), "m", "x"); !errors.Is(err, domain.ErrInferenceFailed) {
				t.Fatalf("expected ErrInferenceFailed, got %v", err)
			}
		})
	}
}

func TestInfer_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	c, err := New(Config{URL: srv.URL, Timeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Infer(context.Background(), "m", "x")
	if !errors.Is(err, context.DeadlineExceeded) || !errors.Is(err, domain.ErrInferenceFailed) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	healthy := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	if err := healthy.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy on 404, got %v", err)
	}

	down := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	if err := down.HealthCheck(context.Background()); err == nil {
		t.Error("expected error on 502")
	}
}
