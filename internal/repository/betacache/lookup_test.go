package betacache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"

	"github.com/kailas-cloud/topicdex/internal/db"
	"github.com/kailas-cloud/topicdex/internal/domain"
)

func TestWordBeta_CacheMiss(t *testing.T) {
	inner := &mockLookup{beta: 42}
	cl, ms := newTestCachedLookup(t, inner)

	var setKey, setValue string
	var setTTL time.Duration
	ms.setWithTTLFn = func(_ context.Context, key string, value []byte, ttl time.Duration) error {
		setKey, setValue, setTTL = key, string(value), ttl
		return nil
	}

	beta, err := cl.WordBeta(context.Background(), "mallet10", "3", "energy")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if beta != 42 {
		t.Errorf("expected 42, got %d", beta)
	}
	if setKey != "topicdex:beta:mallet10:3:energy" {
		t.Errorf("unexpected key %s", setKey)
	}
	if setValue != "42" || setTTL != time.Hour {
		t.Errorf("unexpected value %q ttl %v", setValue, setTTL)
	}
}

func TestWordBeta_CacheHit(t *testing.T) {
	inner := &mockLookup{beta: 1}
	cl, ms := newTestCachedLookup(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return []byte("17"), nil }

	ctx, stats := domain.NewContextWithStats(context.Background())
	beta, err := cl.WordBeta(ctx, "m", "0", "grid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if beta != 17 {
		t.Errorf("expected cached 17, got %d", beta)
	}
	if inner.calls != 0 {
		t.Errorf("expected no inner call, got %d", inner.calls)
	}
	if stats.CacheHits != 1 {
		t.Errorf("expected 1 cache hit recorded, got %d", stats.CacheHits)
	}
}

func TestWordBeta_CorruptEntryFallsThrough(t *testing.T) {
	inner := &mockLookup{beta: 5}
	cl, ms := newTestCachedLookup(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return []byte("x"), nil }

	beta, err := cl.WordBeta(context.Background(), "m", "0", "grid")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if beta != 5 || inner.calls != 1 {
		t.Errorf("expected inner answer 5 after corrupt entry, got %d (%d calls)", beta, inner.calls)
	}
}

func TestWordBeta_StoreErrorIgnored(t *testing.T) {
	inner := &mockLookup{beta: 9}
	cl, ms := newTestCachedLookup(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return nil, errors.New("conn refused") }
	ms.setWithTTLFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error {
		return errors.New("conn refused")
	}

	beta, err := cl.WordBeta(context.Background(), "m", "0", "grid")
	if err != nil {
		t.Fatalf("expected cache failures to be tolerated, got %v", err)
	}
	if beta != 9 {
		t.Errorf("expected 9, got %d", beta)
	}
}

func TestWordBeta_InnerError(t *testing.T) {
	inner := &mockLookup{err: errors.New("engine down")}
	cl, _ := newTestCachedLookup(t, inner)

	if _, err := cl.WordBeta(context.Background(), "m", "0", "grid"); err == nil {
		t.Fatal("expected error from inner lookup")
	}
}

func TestWordBeta_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_beta_cache_total"}, []string{"result"})
	ms := &mockKVStore{}
	cl := New(&mockLookup{beta: 1}, ms, time.Minute, counter, zap.NewNop())

	_, _ = cl.WordBeta(context.Background(), "m", "0", "a")
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return []byte("1"), nil }
	_, _ = cl.WordBeta(context.Background(), "m", "0", "a")

	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("expected 1 miss, got %v", got)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("expected 1 hit, got %v", got)
	}
}

func TestPurge(t *testing.T) {
	cl, ms := newTestCachedLookup(t, &mockLookup{})
	ms.scanFn = func(_ context.Context, pattern string) ([]string, error) {
		if pattern != "topicdex:beta:ctm25:*" {
			t.Errorf("unexpected pattern %s", pattern)
		}
		return []string{"topicdex:beta:ctm25:0:a", "topicdex:beta:ctm25:1:b"}, nil
	}
	var deleted []string
	ms.delFn = func(_ context.Context, keys ...string) error {
		deleted = keys
		return nil
	}

	if err := cl.Purge(context.Background(), "ctm25"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
	if len(deleted) != 2 {
		t.Errorf("expected 2 deleted keys, got %v", deleted)
	}
}

func TestPurge_NothingCached(t *testing.T) {
	cl, ms := newTestCachedLookup(t, &mockLookup{})
	ms.delFn = func(_ context.Context, _ ...string) error {
		t.Error("DEL must not be sent without keys")
		return nil
	}
	if err := cl.Purge(context.Background(), "m"); err != nil {
		t.Fatalf("Purge: %v", err)
	}
}

func TestPurge_ScanError(t *testing.T) {
	cl, ms := newTestCachedLookup(t, &mockLookup{})
	ms.scanFn = func(_ context.Context, _ string) ([]string, error) {
		return nil, &db.Error{Op: db.OpScan, Err: errors.New("timeout")}
	}
	if err := cl.Purge(context.Background(), "m"); err == nil {
		t.Fatal("expected error")
	}
}
