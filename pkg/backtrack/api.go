package backtrack

import (
	"context"
	"iter"
)

// Alternative is one candidate resolution of a goal. Nothing is
// computed until the engine calls it; calling it yields the subgoals
// that must all be solved for the alternative to count as a
// resolution of its parent goal.
type Alternative[G any] func(ctx context.Context) ([]G, error)

// Alternatives produces the ordered candidate resolutions for a goal.
// The sequence may be infinite: the engine pulls one alternative at a
// time and stops pulling as soon as one of them succeeds.
type Alternatives[G any] func(ctx context.Context, goal G) (iter.Seq[Alternative[G]], error)

// Trail is implemented by hosts whose goal state is mutated by
// alternatives and must be restored when an alternative fails.
type Trail interface {
	// Mark returns a position that can later be passed to Undo.
	Mark() int
	// Undo reverts every change recorded after mark.
	Undo(mark int)
}

// Slice returns an Alternatives sequence over a fixed slice.
func Slice[G any](alternatives ...Alternative[G]) iter.Seq[Alternative[G]] {
	return func(yield func(Alternative[G]) bool) {
		for _, a := range alternatives {
			if !yield(a) {
				return
			}
		}
	}
}

// Solved is an Alternative that resolves its goal without subgoals.
func Solved[G any]() Alternative[G] {
	return func(context.Context) ([]G, error) {
		return nil, nil
	}
}

// Subgoals is an Alternative that replaces its goal with goals.
func Subgoals[G any](goals ...G) Alternative[G] {
	return func(context.Context) ([]G, error) {
		return goals, nil
	}
}
