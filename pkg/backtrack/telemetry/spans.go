package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/operator-framework/backtrack/pkg/backtrack"
)

var _ backtrack.Tracer = SpanEvents{}

// SpanEvents records search events on the span found in the context,
// which is the span opened by backtrack.Search. Started and Finished
// are skipped since the span itself covers them.
type SpanEvents struct{}

func (SpanEvents) Trace(ctx context.Context, e backtrack.Event) {
	if e.Kind == backtrack.Started || e.Kind == backtrack.Finished {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int("backtrack.fuel", e.Fuel),
	}
	if e.Goal != nil {
		attrs = append(attrs, attribute.String("backtrack.goal", fmt.Sprint(e.Goal)))
	}
	switch e.Kind {
	case backtrack.Backtracked, backtrack.Committed:
		attrs = append(attrs, attribute.Int("backtrack.alternative", e.Alternative))
	case backtrack.Replaced, backtrack.Discharged:
		attrs = append(attrs, attribute.Int("backtrack.goals", e.Goals))
	}
	if e.Err != nil {
		attrs = append(attrs, attribute.String("backtrack.error", e.Err.Error()))
	}
	span.AddEvent("backtrack."+e.Kind.String(), trace.WithAttributes(attrs...))
}
