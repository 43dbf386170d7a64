package backtrack

import (
	"context"
	"fmt"
	"io"
	"log/slog"
)

type EventKind int

const (
	Started EventKind = iota
	Working
	Assigned
	Suspended
	Replaced
	Backtracked
	Committed
	Accepted
	Discharged
	Exhausted
	Finished
)

var eventKindNames = [...]string{
	Started:     "started",
	Working:     "working",
	Assigned:    "assigned",
	Suspended:   "suspended",
	Replaced:    "replaced",
	Backtracked: "backtracked",
	Committed:   "committed",
	Accepted:    "accepted",
	Discharged:  "discharged",
	Exhausted:   "exhausted",
	Finished:    "finished",
}

func (k EventKind) String() string {
	if k < 0 || int(k) >= len(eventKindNames) {
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
	return eventKindNames[k]
}

// EventKinds lists every kind an engine may emit.
func EventKinds() []EventKind {
	kinds := make([]EventKind, len(eventKindNames))
	for i := range kinds {
		kinds[i] = EventKind(i)
	}
	return kinds
}

// Event describes one step of a search.
type Event struct {
	Label string
	Kind  EventKind
	// Goal is the goal the step is about, nil for Started, Replaced,
	// Exhausted and Finished.
	Goal any
	// Fuel is the fuel available when the step was taken.
	Fuel int
	// Alternative is the zero-based index of the alternative for
	// Backtracked and Committed.
	Alternative int
	// Goals is the number of goals produced by the step: subgoals for
	// Committed and Discharged, the new queue length for Replaced and
	// the residual goals for Finished.
	Goals int
	Err   error
}

// Tracer observes a search. It must not influence it.
type Tracer interface {
	Trace(ctx context.Context, e Event)
}

type DefaultTracer struct{}

func (DefaultTracer) Trace(context.Context, Event) {
}

// LoggingTracer writes one line per event to Writer, indented by the
// fuel already consumed.
type LoggingTracer struct {
	Writer   io.Writer
	MaxDepth int
}

func (t LoggingTracer) Trace(_ context.Context, e Event) {
	indent := t.MaxDepth - e.Fuel
	if indent < 0 || e.Kind == Started || e.Kind == Finished {
		indent = 0
	}
	fmt.Fprintf(t.Writer, "[%s] %*s", e.Label, indent*2, "")
	switch e.Kind {
	case Started:
		fmt.Fprintf(t.Writer, "search started with %d goals and fuel %d\n", e.Goals, e.Fuel)
	case Working:
		fmt.Fprintf(t.Writer, "working on %v\n", e.Goal)
	case Assigned:
		fmt.Fprintf(t.Writer, "%v already assigned\n", e.Goal)
	case Suspended:
		fmt.Fprintf(t.Writer, "suspending %v\n", e.Goal)
	case Replaced:
		fmt.Fprintf(t.Writer, "goals replaced, %d pending\n", e.Goals)
	case Backtracked:
		fmt.Fprintf(t.Writer, "alternative %d for %v failed: %v\n", e.Alternative, e.Goal, e.Err)
	case Committed:
		fmt.Fprintf(t.Writer, "alternative %d for %v succeeded with %d subgoals\n", e.Alternative, e.Goal, e.Goals)
	case Accepted:
		fmt.Fprintf(t.Writer, "failed to discharge %v, accepting it\n", e.Goal)
	case Discharged:
		fmt.Fprintf(t.Writer, "discharged %v into %d goals\n", e.Goal, e.Goals)
	case Exhausted:
		fmt.Fprintf(t.Writer, "out of fuel\n")
	case Finished:
		if e.Err != nil {
			fmt.Fprintf(t.Writer, "search failed: %v\n", e.Err)
			return
		}
		fmt.Fprintf(t.Writer, "search finished with %d goals remaining\n", e.Goals)
	default:
		fmt.Fprintf(t.Writer, "%s\n", e.Kind)
	}
}

// SlogTracer emits every event as a debug record.
type SlogTracer struct {
	Logger *slog.Logger
}

func (t SlogTracer) Trace(ctx context.Context, e Event) {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	attrs := []slog.Attr{
		slog.String("label", e.Label),
		slog.String("kind", e.Kind.String()),
		slog.Int("fuel", e.Fuel),
	}
	if e.Goal != nil {
		attrs = append(attrs, slog.String("goal", fmt.Sprint(e.Goal)))
	}
	switch e.Kind {
	case Backtracked, Committed:
		attrs = append(attrs, slog.Int("alternative", e.Alternative))
	}
	if e.Goals > 0 {
		attrs = append(attrs, slog.Int("goals", e.Goals))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("error", e.Err.Error()))
	}
	logger.LogAttrs(ctx, slog.LevelDebug, "backtrack", attrs...)
}

// Tracers fans every event out to each of its members in order.
type Tracers []Tracer

func (ts Tracers) Trace(ctx context.Context, e Event) {
	for _, t := range ts {
		t.Trace(ctx, e)
	}
}
