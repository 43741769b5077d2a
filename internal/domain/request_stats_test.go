package domain

import (
	"context"
	"errors"
	"testing"
)

func TestRequestStats(t *testing.T) {
	ctx, s := NewContextWithStats(context.Background())

	got := StatsFromContext(ctx)
	if got != s {
		t.Fatal("expected the same collector from context")
	}
	got.AddEngineCall()
	got.AddEngineCall()
	got.AddCacheHit()
	got.MarkInferred()

	if s.EngineCalls != 2 || s.CacheHits != 1 || !s.Inferred {
		t.Errorf("unexpected stats %+v", *s)
	}
}

func TestRequestStats_NilSafe(t *testing.T) {
	s := StatsFromContext(context.Background())
	if s != nil {
		t.Fatal("expected nil collector")
	}
	s.AddEngineCall()
	s.AddCacheHit()
	s.MarkInferred()
}

func TestErrors_Unwrap(t *testing.T) {
	var err error = &NotManagedError{Collection: "x", Want: "corpus"}
	if !errors.Is(err, ErrNotManaged) {
		t.Error("expected ErrNotManaged")
	}
	err = &MissingArgumentError{Name: "year"}
	if !errors.Is(err, ErrInvalidArgument) {
		t.Error("expected ErrInvalidArgument")
	}
	if err.Error() != "invalid argument: year is required" {
		t.Errorf("unexpected message %q", err.Error())
	}
}
