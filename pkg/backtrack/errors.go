package backtrack

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotDischarged is returned by the default discharge hook.
var ErrNotDischarged = errors.New("goal could not be discharged")

// RecursionLimitExceeded is returned when a search runs out of fuel
// while configured to fail at its maximum depth. An enclosing
// alternative treats it like any other failure and moves on.
type RecursionLimitExceeded struct {
	MaxDepth int
}

func (e *RecursionLimitExceeded) Error() string {
	return fmt.Sprintf("backtracking exceeded the recursion limit (max depth %d)", e.MaxDepth)
}

// AlternativesExhausted is returned when no alternative resolved a
// goal and the discharge hook failed as well. Failures holds the
// error of every alternative that was tried, in order.
type AlternativesExhausted struct {
	Goal     any
	Failures []error
	Err      error
}

func (e *AlternativesExhausted) Error() string {
	msg := fmt.Sprintf("no alternative resolved %v", e.Goal)
	if len(e.Failures) > 0 {
		s := make([]string, len(e.Failures))
		for i, err := range e.Failures {
			s[i] = fmt.Sprintf("  %d: %s", i, err)
		}
		msg = fmt.Sprintf("%s (%d tried):\n%s", msg, len(e.Failures), strings.Join(s, "\n"))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s\n%s", msg, e.Err)
	}
	return msg
}

func (e *AlternativesExhausted) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures)+1)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return append(errs, e.Failures...)
}

// HookFailure wraps an error returned by one of the configured hooks
// or by an alternative.
type HookFailure struct {
	Hook string
	Goal any
	Err  error
}

func (e *HookFailure) Error() string {
	if e.Goal == nil {
		return fmt.Sprintf("%s hook failed: %s", e.Hook, e.Err)
	}
	return fmt.Sprintf("%s hook failed on %v: %s", e.Hook, e.Goal, e.Err)
}

func (e *HookFailure) Unwrap() error {
	return e.Err
}
