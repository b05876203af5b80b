package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "roundtable"

// StartTurnSpan starts a span for one conductor turn.
func StartTurnSpan(ctx context.Context, sessionID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "turn",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
		),
	)
}

// StartSelectorSpan starts a span for the external selector call.
func StartSelectorSpan(ctx context.Context, sessionID, modelID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "selector",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("selector.model_id", modelID),
		),
	)
}
