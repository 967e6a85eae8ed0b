package correlation

import (
	"context"
	"testing"
)

func TestEnsureRequestIDKeepsExisting(t *testing.T) {
	ctx := WithRequestID(context.Background(), " req-1 ")
	ctx, id := EnsureRequestID(ctx)
	if id != "req-1" {
		t.Fatalf("expected req-1, got %q", id)
	}
	if got := RequestIDFromContext(ctx); got != "req-1" {
		t.Fatalf("expected req-1 on context, got %q", got)
	}
}

func TestEnsureRequestIDGenerates(t *testing.T) {
	ctx, id := EnsureRequestID(context.Background())
	if len(id) != 26 {
		t.Fatalf("expected a 26 char ulid, got %q", id)
	}
	if RequestIDFromContext(ctx) != id {
		t.Fatalf("expected generated id on context")
	}
}

func TestWithRun(t *testing.T) {
	ctx := WithRun(context.Background(), "default", "42")
	if RunIDFromContext(ctx) != "42" || PipelineFromContext(ctx) != "default" {
		t.Fatalf("expected run tags, got %q %q", RunIDFromContext(ctx), PipelineFromContext(ctx))
	}
	if RunIDFromContext(nil) != "" {
		t.Fatalf("expected empty run id for nil context")
	}
}
