package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "renum"

// StartExecutionSpan starts a span for an agent execution.
func StartExecutionSpan(ctx context.Context, executionID, agentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "execution",
		trace.WithAttributes(
			attribute.String("execution.id", executionID),
			attribute.String("agent.id", agentID),
		),
	)
}

// StartSearchSpan starts a span for a knowledge base retrieval query.
func StartSearchSpan(ctx context.Context, kbID string, topK int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "kb.search",
		trace.WithAttributes(
			attribute.String("kb.id", kbID),
			attribute.Int("kb.top_k", topK),
		),
	)
}
