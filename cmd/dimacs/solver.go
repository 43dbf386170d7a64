package dimacs

import (
	"context"
	"fmt"
	"iter"

	"github.com/go-air/gini/z"

	"github.com/operator-framework/backtrack/internal/sat"
	"github.com/operator-framework/backtrack/pkg/backtrack"
)

// Variable is a search goal: the variable needs a truth value.
type Variable int

func (v Variable) String() string {
	return fmt.Sprintf("x%d", int(v))
}

// Solver assigns the variables of a Dimacs problem one at a time,
// trying true before false.
type Solver struct {
	dimacs *Dimacs
	scope  *sat.Scope
}

func NewSolver(d *Dimacs) (*Solver, error) {
	scope, err := sat.NewCNFScope(d.Clauses())
	if err != nil {
		return nil, err
	}
	return &Solver{dimacs: d, scope: scope}, nil
}

// Goals returns every variable in order.
func (s *Solver) Goals() []Variable {
	goals := make([]Variable, s.dimacs.Variables())
	for i := range goals {
		goals[i] = Variable(i + 1)
	}
	return goals
}

// MaxDepth is enough depth to assign every variable.
func (s *Solver) MaxDepth() int {
	return s.dimacs.Variables() + 1
}

func (s *Solver) Config(maxDepth int) backtrack.Config[Variable] {
	return backtrack.Config[Variable]{
		MaxDepth:       maxDepth,
		FailAtMaxDepth: true,
		Assigned:       s.assigned,
		Trail:          s.scope,
	}
}

// Solve returns one literal per variable, positive for true and
// negative for false. Variables the search left unassigned are
// reported as 0.
func (s *Solver) Solve(ctx context.Context, cfg backtrack.Config[Variable], label string, opts ...backtrack.Option) ([]int, error) {
	if _, err := backtrack.Search(ctx, cfg, label, s.alternatives, s.Goals(), opts...); err != nil {
		return nil, err
	}
	model := make([]int, 0, s.dimacs.Variables())
	for _, v := range s.Goals() {
		switch {
		case s.scope.Implied(z.Dimacs2Lit(int(v))):
			model = append(model, int(v))
		case s.scope.Implied(z.Dimacs2Lit(-int(v))):
			model = append(model, -int(v))
		default:
			model = append(model, 0)
		}
	}
	return model, nil
}

func (s *Solver) assigned(v Variable) bool {
	m := z.Dimacs2Lit(int(v))
	return s.scope.Implied(m) || s.scope.Implied(m.Not())
}

func (s *Solver) alternatives(_ context.Context, v Variable) (iter.Seq[backtrack.Alternative[Variable]], error) {
	return backtrack.Slice(s.assume(int(v)), s.assume(-int(v))), nil
}

func (s *Solver) assume(lit int) backtrack.Alternative[Variable] {
	return func(context.Context) ([]Variable, error) {
		if err := s.scope.Assume(z.Dimacs2Lit(lit)); err != nil {
			return nil, fmt.Errorf("cannot assume %d: %w", lit, err)
		}
		return nil, nil
	}
}
