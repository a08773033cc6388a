package usecase

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

var usecaseTracer = otel.Tracer("team-identity/internal/usecase")

// startUsecaseSpan opens a span for one usecase operation. Without a parent
// in ctx the span becomes a root, so SyncAll roots a trace per sync cycle
// and the partition and lookup spans nest under it. With no tracer provider
// installed the global tracer is a noop.
func startUsecaseSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if strings.TrimSpace(name) == "" {
		return ctx, trace.SpanFromContext(ctx)
	}
	return usecaseTracer.Start(ctx, name)
}
