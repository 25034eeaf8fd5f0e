package logging

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitSetsLevel(t *testing.T) {
	Init(Config{Level: "debug", Format: "json"})
	if zerolog.GlobalLevel() != zerolog.DebugLevel {
		t.Errorf("global level = %v, want debug", zerolog.GlobalLevel())
	}

	Init(Config{Level: "warn", Format: "json"})
	if zerolog.GlobalLevel() != zerolog.WarnLevel {
		t.Errorf("global level = %v, want warn", zerolog.GlobalLevel())
	}
}

func TestInitInvalidLevelFallsBack(t *testing.T) {
	Init(Config{Level: "loud", Format: "json"})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("global level = %v, want info fallback", zerolog.GlobalLevel())
	}
}

func TestWithRequestIDGenerates(t *testing.T) {
	ctx, id := WithRequestID(context.Background(), "")
	if id == "" {
		t.Fatal("expected a generated request id")
	}
	if got := RequestID(ctx); got != id {
		t.Errorf("RequestID(ctx) = %q, want %q", got, id)
	}
}

func TestWithRequestIDKeepsExisting(t *testing.T) {
	ctx, id := WithRequestID(context.Background(), "req-42")
	if id != "req-42" {
		t.Errorf("id = %q, want req-42", id)
	}
	if got := RequestID(ctx); got != "req-42" {
		t.Errorf("RequestID(ctx) = %q", got)
	}
}
