package telemetry

import (
	"context"

	"github.com/flemzord/ragchat/internal/orchestrator"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TransitionObserver records every turn state transition as an event on the
// span carried by ctx. Without a recording span it does nothing.
func TransitionObserver() orchestrator.Observer {
	return func(ctx context.Context, t orchestrator.Transition) {
		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		attrs := []attribute.KeyValue{
			attribute.String("turn.from", t.From.String()),
			attribute.String("turn.to", t.To.String()),
		}
		if t.Err != nil {
			attrs = append(attrs, attribute.String("error", t.Err.Error()))
		}
		span.AddEvent("turn.transition", trace.WithAttributes(attrs...))
		if t.To == orchestrator.StateFailed && t.Err != nil {
			span.SetStatus(codes.Error, t.Err.Error())
		}
	}
}
