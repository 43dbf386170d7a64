package backtrack

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const otelTracerName = "github.com/operator-framework/backtrack"

var errNoAlternatives = errors.New("no alternatives provider configured")

type options struct {
	tracer Tracer
	logger *slog.Logger
	otel   trace.Tracer
}

type Option func(o *options) error

func WithTracer(t Tracer) Option {
	return func(o *options) error {
		o.tracer = t
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) error {
		o.logger = l
		return nil
	}
}

// WithOTelTracer sets the tracer used to open the span that covers a
// search. Events delivered to a Tracer can reach that span through
// trace.SpanFromContext.
func WithOTelTracer(t trace.Tracer) Option {
	return func(o *options) error {
		o.otel = t
		return nil
	}
}

var defaults = []Option{
	func(o *options) error {
		if o.tracer == nil {
			o.tracer = DefaultTracer{}
		}
		return nil
	},
	func(o *options) error {
		if o.logger == nil {
			o.logger = slog.Default()
		}
		return nil
	},
	func(o *options) error {
		if o.otel == nil {
			o.otel = otel.Tracer(otelTracerName)
		}
		return nil
	},
}

// parked holds suspended goals, most recent first.
type parked[G any] struct {
	goal G
	next *parked[G]
}

func (p *parked[G]) push(g G) *parked[G] {
	return &parked[G]{goal: g, next: p}
}

// list returns the parked goals in the order they were parked.
func (p *parked[G]) list() []G {
	n := 0
	for q := p; q != nil; q = q.next {
		n++
	}
	goals := make([]G, n)
	for q := p; q != nil; q = q.next {
		n--
		goals[n] = q.goal
	}
	return goals
}

type search[G any] struct {
	cfg      Config[G]
	label    string
	alts     Alternatives[G]
	original []G
	tracer   Tracer
}

// Search solves goals depth-first by trying, for the goal at the head
// of the queue, each alternative produced by alts in order and
// committing to the first one whose subgoals, followed by the rest of
// the queue, can all be solved. It returns the goals that were
// suspended or accepted unresolved along the way, in the order they
// were encountered.
//
// A search fails when a goal has no successful alternative and cannot
// be discharged, or when it runs out of fuel with FailAtMaxDepth set.
// If cfg has a Trail, a failed search leaves it where it started.
func Search[G any](ctx context.Context, cfg Config[G], label string, alts Alternatives[G], goals []G, opts ...Option) ([]G, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if alts == nil {
		return nil, errNoAlternatives
	}
	var o options
	for _, option := range slices.Concat(opts, defaults) {
		if err := option(&o); err != nil {
			return nil, err
		}
	}

	ctx, span := o.otel.Start(ctx, "backtrack.search",
		trace.WithAttributes(
			attribute.String("backtrack.label", label),
			attribute.Int("backtrack.max_depth", cfg.MaxDepth),
			attribute.Bool("backtrack.fail_at_max_depth", cfg.FailAtMaxDepth),
			attribute.Int("backtrack.goals", len(goals)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	defer span.End()

	s := &search[G]{
		cfg:      cfg,
		label:    label,
		alts:     alts,
		original: goals,
		tracer:   o.tracer,
	}
	mark := 0
	if cfg.Trail != nil {
		mark = cfg.Trail.Mark()
	}

	o.logger.DebugContext(ctx, "backtracking search started",
		slog.String("label", label),
		slog.Int("goals", len(goals)),
		slog.Int("max_depth", cfg.MaxDepth),
	)
	s.trace(ctx, Event{Kind: Started, Fuel: cfg.MaxDepth, Goals: len(goals)})

	result, err := s.run(ctx, cfg.MaxDepth, goals, nil)
	if err != nil {
		if cfg.Trail != nil {
			cfg.Trail.Undo(mark)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.trace(ctx, Event{Kind: Finished, Err: err})
		o.logger.DebugContext(ctx, "backtracking search failed",
			slog.String("label", label),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	span.SetAttributes(attribute.Int("backtrack.residual_goals", len(result)))
	span.SetStatus(codes.Ok, "")
	s.trace(ctx, Event{Kind: Finished, Goals: len(result)})
	o.logger.DebugContext(ctx, "backtracking search finished",
		slog.String("label", label),
		slog.Int("residual_goals", len(result)),
	)
	return result, nil
}

func (s *search[G]) trace(ctx context.Context, e Event) {
	e.Label = s.label
	s.tracer.Trace(ctx, e)
}

func (s *search[G]) run(ctx context.Context, fuel int, current []G, acc *parked[G]) ([]G, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if fuel == 0 {
		s.trace(ctx, Event{Kind: Exhausted})
		if s.cfg.FailAtMaxDepth {
			return nil, &RecursionLimitExceeded{MaxDepth: s.cfg.MaxDepth}
		}
		rest := concat(acc.list(), current)
		replaced, ok, err := s.proc(ctx, rest)
		if err != nil {
			return nil, err
		}
		if ok {
			return replaced, nil
		}
		return rest, nil
	}

	replaced, ok, err := s.proc(ctx, current)
	if err != nil {
		return nil, err
	}
	if ok {
		s.trace(ctx, Event{Kind: Replaced, Fuel: fuel, Goals: len(replaced)})
		return s.run(ctx, fuel-1, replaced, acc)
	}

	if len(current) == 0 {
		return acc.list(), nil
	}
	g, gs := current[0], current[1:]

	// Dropping, parking and accepting a goal shrink the queue without
	// consuming fuel.
	if s.cfg.Assigned != nil && s.cfg.Assigned(g) {
		s.trace(ctx, Event{Kind: Assigned, Goal: g, Fuel: fuel})
		return s.run(ctx, fuel, gs, acc)
	}
	if s.cfg.Suspend != nil {
		suspend, err := s.cfg.Suspend(ctx, g)
		if err != nil {
			return nil, &HookFailure{Hook: "suspend", Goal: g, Err: err}
		}
		if suspend {
			s.trace(ctx, Event{Kind: Suspended, Goal: g, Fuel: fuel})
			return s.run(ctx, fuel, gs, acc.push(g))
		}
	}

	s.trace(ctx, Event{Kind: Working, Goal: g, Fuel: fuel})
	result, committed, failures, err := s.alternatives(ctx, fuel, g, gs, acc)
	if err != nil {
		return nil, err
	}
	if committed {
		return result, nil
	}

	subgoals, ok, err := s.discharge(ctx, g)
	if err != nil {
		return nil, &AlternativesExhausted{Goal: g, Failures: failures, Err: err}
	}
	if !ok {
		s.trace(ctx, Event{Kind: Accepted, Goal: g, Fuel: fuel})
		return s.run(ctx, fuel, gs, acc.push(g))
	}
	s.trace(ctx, Event{Kind: Discharged, Goal: g, Fuel: fuel, Goals: len(subgoals)})
	return s.run(ctx, fuel-1, concat(subgoals, gs), acc)
}

// alternatives forces the alternatives of g one at a time and commits
// to the first whose attempt succeeds. A provider error counts as a
// failed alternative. The error is only set when the search as a whole
// must stop.
func (s *search[G]) alternatives(ctx context.Context, fuel int, g G, gs []G, acc *parked[G]) ([]G, bool, []error, error) {
	seq, err := s.alts(ctx, g)
	if err != nil {
		return nil, false, []error{&HookFailure{Hook: "alternatives", Goal: g, Err: err}}, nil
	}
	if seq == nil {
		return nil, false, nil, nil
	}

	var failures []error
	i := 0
	for alt := range seq {
		if s.cfg.MaxAlternatives > 0 && i >= s.cfg.MaxAlternatives {
			break
		}
		result, subgoals, err := s.attempt(ctx, fuel-1, g, alt, gs, acc)
		if err == nil {
			s.trace(ctx, Event{Kind: Committed, Goal: g, Fuel: fuel, Alternative: i, Goals: subgoals})
			return result, true, failures, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, false, nil, ctxErr
		}
		s.trace(ctx, Event{Kind: Backtracked, Goal: g, Fuel: fuel, Alternative: i, Err: err})
		failures = append(failures, err)
		i++
	}
	return nil, false, failures, nil
}

// attempt forces alt and solves its subgoals ahead of gs. The trail is
// restored if anything fails.
func (s *search[G]) attempt(ctx context.Context, fuel int, g G, alt Alternative[G], gs []G, acc *parked[G]) ([]G, int, error) {
	mark := 0
	if s.cfg.Trail != nil {
		mark = s.cfg.Trail.Mark()
	}
	subgoals, err := alt(ctx)
	if err != nil {
		err = &HookFailure{Hook: "alternative", Goal: g, Err: err}
	} else {
		var result []G
		result, err = s.run(ctx, fuel, concat(subgoals, gs), acc)
		if err == nil {
			return result, len(subgoals), nil
		}
	}
	if s.cfg.Trail != nil {
		s.cfg.Trail.Undo(mark)
	}
	return nil, len(subgoals), err
}

func (s *search[G]) proc(ctx context.Context, current []G) ([]G, bool, error) {
	if s.cfg.Proc == nil {
		return nil, false, nil
	}
	replaced, ok, err := s.cfg.Proc(ctx, s.original, current)
	if err != nil {
		return nil, false, &HookFailure{Hook: "proc", Err: err}
	}
	return replaced, ok, nil
}

func (s *search[G]) discharge(ctx context.Context, g G) ([]G, bool, error) {
	if s.cfg.Discharge == nil {
		return nil, false, ErrNotDischarged
	}
	subgoals, ok, err := s.cfg.Discharge(ctx, g)
	if err != nil {
		return nil, false, &HookFailure{Hook: "discharge", Goal: g, Err: err}
	}
	return subgoals, ok, nil
}

func concat[G any](head, tail []G) []G {
	goals := make([]G, 0, len(head)+len(tail))
	goals = append(goals, head...)
	return append(goals, tail...)
}
