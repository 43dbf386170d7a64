package backtrack

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DefaultMaxDepth is the fuel given to a search when none is configured.
const DefaultMaxDepth = 6

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config controls a single search. It is read, never written, by the
// engine, so one value may be shared by many searches.
type Config[G any] struct {
	// MaxDepth bounds the recursion of the search. Every committed
	// alternative, every discharge that produces subgoals and every
	// replacement made by Proc consumes one unit.
	MaxDepth int `validate:"gte=0"`

	// FailAtMaxDepth makes running out of fuel a failure. Otherwise
	// the goals still pending when fuel runs out are returned as-is,
	// after a last pass through Proc.
	FailAtMaxDepth bool

	// MaxAlternatives caps the number of alternatives forced for a
	// single goal. Zero means no cap.
	MaxAlternatives int `validate:"gte=0"`

	// Proc is called with the original goals and the current queue
	// before every step. When it reports a replacement the queue is
	// swapped for it and one unit of fuel is consumed.
	Proc func(ctx context.Context, original, current []G) ([]G, bool, error)

	// Suspend parks a goal without attempting any alternative.
	Suspend func(ctx context.Context, goal G) (bool, error)

	// Discharge is consulted when no alternative resolves a goal.
	// Returning (nil, false, nil) accepts the goal as unresolved,
	// returning (goals, true, nil) replaces it with goals, and an
	// error fails the goal. A nil Discharge always fails with
	// ErrNotDischarged.
	Discharge func(ctx context.Context, goal G) ([]G, bool, error)

	// Assigned reports whether a goal has already been resolved, in
	// which case it is dropped from the queue.
	Assigned func(goal G) bool

	// Trail, when set, is marked before each alternative is forced and
	// undone when the alternative fails.
	Trail Trail
}

// DefaultConfig returns a Config with a small fuel bound that fails
// when the bound is reached.
func DefaultConfig[G any]() Config[G] {
	return Config[G]{
		MaxDepth:       DefaultMaxDepth,
		FailAtMaxDepth: true,
	}
}

// Validate reports configuration values the engine cannot work with.
func (c Config[G]) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid search configuration: %w", err)
	}
	return nil
}
