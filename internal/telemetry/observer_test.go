package telemetry

import (
	"context"
	"errors"
	"testing"

	"github.com/flemzord/ragchat/internal/orchestrator"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestTransitionObserver_RecordsEvents(t *testing.T) {
	t.Parallel()

	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	obs := TransitionObserver()

	ctx, span := tp.Tracer("test").Start(context.Background(), "turn")
	obs(ctx, orchestrator.Transition{SessionID: "1", From: orchestrator.StateStart, To: orchestrator.StateHistoryFetched})
	obs(ctx, orchestrator.Transition{SessionID: "1", From: orchestrator.StateHistoryFetched, To: orchestrator.StateFailed, Err: errors.New("boom")})
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 {
		t.Fatalf("ended spans = %d, want 1", len(ended))
	}
	events := ended[0].Events()
	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].Name != "turn.transition" {
		t.Errorf("event name = %q", events[0].Name)
	}
	if ended[0].Status().Code != codes.Error {
		t.Errorf("status = %v, want error", ended[0].Status().Code)
	}
}

func TestTransitionObserver_NoSpan(t *testing.T) {
	t.Parallel()

	// Must not panic without a span in the context.
	TransitionObserver()(context.Background(), orchestrator.Transition{To: orchestrator.StateSucceeded})
}
