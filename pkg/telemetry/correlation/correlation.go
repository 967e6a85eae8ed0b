package correlation

import (
	"context"
	"strings"

	"github.com/oklog/ulid/v2"
)

type requestIDKey struct{}

type runIDKey struct{}

type pipelineKey struct{}

// NewID returns a lexically sortable identifier for requests.
func NewID() string {
	return ulid.Make().String()
}

// RequestIDFromContext fetches the request ID from the context if present.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(requestIDKey{}).(string); ok {
		return val
	}
	return ""
}

// WithRequestID sets the request ID onto the context.
func WithRequestID(ctx context.Context, id string) context.Context {
	id = strings.TrimSpace(id)
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, id)
}

// EnsureRequestID guarantees a request ID on the context, generating one when missing.
func EnsureRequestID(ctx context.Context) (context.Context, string) {
	id := RequestIDFromContext(ctx)
	if id == "" {
		id = NewID()
	}
	return WithRequestID(ctx, id), id
}

func RunIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(runIDKey{}).(string); ok {
		return val
	}
	return ""
}

// WithRun tags the context with the refresh run it belongs to.
func WithRun(ctx context.Context, pipeline, runID string) context.Context {
	if runID != "" {
		ctx = context.WithValue(ctx, runIDKey{}, runID)
	}
	if pipeline != "" {
		ctx = context.WithValue(ctx, pipelineKey{}, pipeline)
	}
	return ctx
}

func PipelineFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if val, ok := ctx.Value(pipelineKey{}).(string); ok {
		return val
	}
	return ""
}
