package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"local", "dev", "docker", "prod"} {
		t.Run(env, func(t *testing.T) {
			l, err := NewLogger(env, Options{})
			if err != nil {
				t.Fatalf("NewLogger(%s): %v", env, err)
			}
			if l == nil {
				t.Fatal("expected logger")
			}
		})
	}
}

func TestNewLogger_UnknownEnv(t *testing.T) {
	if _, err := NewLogger("staging", Options{}); err == nil {
		t.Fatal("expected error for unknown env")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", Options{Level: "warn"})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	if l.Core().Enabled(zapcore.InfoLevel) {
		t.Error("expected info to be disabled at warn level")
	}
	if !l.Core().Enabled(zapcore.WarnLevel) {
		t.Error("expected warn to be enabled")
	}

	if _, err := NewLogger("prod", Options{Level: "loud"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
}

func TestNewLogger_FormatOverride(t *testing.T) {
	for _, f := range []string{"json", "console"} {
		if _, err := NewLogger("local", Options{Format: f}); err != nil {
			t.Errorf("format %s: %v", f, err)
		}
	}
	if _, err := NewLogger("local", Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func TestFromContext(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("expected nop logger for empty context")
	}

	l := zap.NewExample()
	ctx := ContextWithLogger(context.Background(), l)
	if FromContext(ctx) != l {
		t.Error("expected stored logger")
	}
}

func TestWith(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	ctx := ContextWithLogger(context.Background(), zap.New(core).With(zap.String("request_id", "r1")))

	if With(ctx) != ctx {
		t.Error("expected context unchanged without fields")
	}

	ctx = With(ctx, zap.String("query", "getDocsByYear"))
	FromContext(ctx).Info("domain error")

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["request_id"] != "r1" || fields["query"] != "getDocsByYear" {
		t.Errorf("expected request_id and query fields, got %v", fields)
	}
}
