package sat

import (
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/z"
)

const (
	satisfiable   = 1
	unsatisfiable = -1
	unknown       = 0
)

// Scope is a stack of gini test scopes. Every successful Guess or
// Assume pushes one scope holding its assumptions and the literals
// they imply; Undo pops scopes again. A Scope implements the trail
// used by backtrack.Search, so a failed alternative forgets its
// guesses.
type Scope struct {
	g       inter.S
	lits    *litMapping
	implied map[z.Lit]struct{}
	scopes  [][]z.Lit
	buffer  []z.Lit
}

// NewScope teaches the constraints of variables to a fresh solver and
// pushes a baseline scope in which every constraint is assumed to
// hold.
func NewScope(variables []Variable) (*Scope, error) {
	lm, err := newLitMapping(variables)
	if err != nil {
		return nil, err
	}
	g := gini.New()
	lm.AddConstraints(g)

	s := &Scope{
		g:       g,
		lits:    lm,
		implied: make(map[z.Lit]struct{}),
		buffer:  make([]z.Lit, 0, 64),
	}
	if err := s.push(lm.ConstraintLits()); err != nil {
		return nil, err
	}
	return s, nil
}

// NewCNFScope loads clauses of DIMACS literals into a fresh solver and
// pushes an empty baseline scope.
func NewCNFScope(clauses [][]int) (*Scope, error) {
	g := gini.New()
	for _, clause := range clauses {
		for _, lit := range clause {
			if lit == 0 {
				return nil, fmt.Errorf("0 is not a valid literal")
			}
			g.Add(z.Dimacs2Lit(lit))
		}
		g.Add(z.LitNull)
	}

	s := &Scope{
		g:       g,
		implied: make(map[z.Lit]struct{}),
		buffer:  make([]z.Lit, 0, 64),
	}
	if err := s.push(nil); err != nil {
		return nil, err
	}
	return s, nil
}

// Guess selects the Variables with the given Identifiers.
func (s *Scope) Guess(ids ...Identifier) error {
	if s.lits == nil {
		return fmt.Errorf("scope has no variables")
	}
	ms := make([]z.Lit, len(ids))
	for i, id := range ids {
		m, ok := s.lits.lits[id]
		if !ok {
			return fmt.Errorf("variable %q referenced but not provided", id)
		}
		ms[i] = m
	}
	return s.push(ms)
}

// Assume pushes a scope assuming the given literals.
func (s *Scope) Assume(ms ...z.Lit) error {
	return s.push(ms)
}

func (s *Scope) push(ms []z.Lit) error {
	s.g.Assume(ms...)
	result, out := s.g.Test(s.buffer)
	if out != nil {
		s.buffer = out
	}

	added := make([]z.Lit, 0, len(ms)+len(out))
	for _, batch := range [][]z.Lit{ms, out} {
		for _, m := range batch {
			if _, ok := s.implied[m]; ok {
				continue
			}
			s.implied[m] = struct{}{}
			added = append(added, m)
		}
	}
	s.scopes = append(s.scopes, added)

	if result == unknown {
		result = s.g.Solve()
	}
	if result == unsatisfiable {
		var conflicts []AppliedConstraint
		if s.lits != nil {
			conflicts = s.lits.Conflicts(s.g)
		}
		s.pop()
		return NotSatisfiable(conflicts)
	}
	return nil
}

func (s *Scope) pop() {
	top := s.scopes[len(s.scopes)-1]
	s.scopes = s.scopes[:len(s.scopes)-1]
	for _, m := range top {
		delete(s.implied, m)
	}
	s.g.Untest()
}

// Mark returns the current number of scopes.
func (s *Scope) Mark() int {
	return len(s.scopes)
}

// Undo pops scopes until only mark of them remain. The baseline scope
// is never popped.
func (s *Scope) Undo(mark int) {
	if mark < 1 {
		mark = 1
	}
	for len(s.scopes) > mark {
		s.pop()
	}
}

// Implied reports whether m was assumed or propagated by a live scope.
func (s *Scope) Implied(m z.Lit) bool {
	_, ok := s.implied[m]
	return ok
}

// Selected reports whether the Variable is known to be selected.
func (s *Scope) Selected(id Identifier) bool {
	if s.lits == nil {
		return false
	}
	m, ok := s.lits.lits[id]
	return ok && s.Implied(m)
}

// Excluded reports whether the Variable is known not to be selected.
func (s *Scope) Excluded(id Identifier) bool {
	if s.lits == nil {
		return false
	}
	m, ok := s.lits.lits[id]
	return ok && s.Implied(m.Not())
}

// Selection returns the Identifiers of every selected Variable, in
// input order.
func (s *Scope) Selection() []Identifier {
	var ids []Identifier
	if s.lits == nil {
		return ids
	}
	for _, variable := range s.lits.inorder {
		if s.Selected(variable.Identifier()) {
			ids = append(ids, variable.Identifier())
		}
	}
	return ids
}

// Value reports the value of m in the model found by the last
// satisfiable Solve.
func (s *Scope) Value(m z.Lit) bool {
	return s.g.Value(m)
}

// Solve runs a full search under the live scopes without pushing a new
// one.
func (s *Scope) Solve() error {
	if s.g.Solve() == unsatisfiable {
		var conflicts []AppliedConstraint
		if s.lits != nil {
			conflicts = s.lits.Conflicts(s.g)
		}
		return NotSatisfiable(conflicts)
	}
	return nil
}
