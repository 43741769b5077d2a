package domain

import "context"

type requestStatsKey struct{}

// RequestStats collects backend work done for a single HTTP request.
// The handler puts a mutable pointer into the context before calling the service;
// the service records each engine round trip; the handler reads it for response headers.
type RequestStats struct {
	EngineCalls int
	CacheHits   int
	Inferred    bool // true if the inference service was called
}

// NewContextWithStats returns a context with an embedded stats collector.
func NewContextWithStats(ctx context.Context) (context.Context, *RequestStats) {
	s := &RequestStats{}
	return context.WithValue(ctx, requestStatsKey{}, s), s
}

// StatsFromContext extracts the stats collector from context. Returns nil if not set.
func StatsFromContext(ctx context.Context) *RequestStats {
	s, _ := ctx.Value(requestStatsKey{}).(*RequestStats)
	return s
}

// AddEngineCall records one engine round trip.
func (s *RequestStats) AddEngineCall() {
	if s != nil {
		s.EngineCalls++
	}
}

// AddCacheHit records one answer served from the cache.
func (s *RequestStats) AddCacheHit() {
	if s != nil {
		s.CacheHits++
	}
}

// MarkInferred records a call to the inference service.
func (s *RequestStats) MarkInferred() {
	if s != nil {
		s.Inferred = true
	}
}
