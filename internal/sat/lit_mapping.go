package sat

import (
	"fmt"
	"strings"

	"github.com/go-air/gini/inter"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

type DuplicateIdentifier Identifier

func (e DuplicateIdentifier) Error() string {
	return fmt.Sprintf("duplicate identifier %q in input", Identifier(e))
}

// litMapping performs translation between Variables and Constraints
// and the literals that appear in the SAT formula.
type litMapping struct {
	inorder     []Variable
	lits        map[Identifier]z.Lit
	constraints map[z.Lit]AppliedConstraint
	c           *logic.C
	errs        []error
}

// newLitMapping assigns a literal to every Variable and encodes every
// Constraint into the circuit.
func newLitMapping(variables []Variable) (*litMapping, error) {
	d := litMapping{
		inorder:     variables,
		lits:        make(map[Identifier]z.Lit, len(variables)),
		constraints: make(map[z.Lit]AppliedConstraint),
		c:           logic.NewCCap(len(variables)),
	}

	for _, variable := range variables {
		if _, ok := d.lits[variable.Identifier()]; ok {
			return nil, DuplicateIdentifier(variable.Identifier())
		}
		d.lits[variable.Identifier()] = d.c.Lit()
	}

	for _, variable := range variables {
		for _, constraint := range variable.Constraints() {
			m := constraint.Apply(d.c, &d, variable.Identifier())
			if m == z.LitNull {
				// This constraint doesn't have a
				// useful representation in the SAT
				// inputs.
				continue
			}
			d.constraints[m] = AppliedConstraint{
				Variable:   variable,
				Constraint: constraint,
			}
		}
	}

	if err := d.Error(); err != nil {
		return nil, err
	}
	return &d, nil
}

// LitOf returns the positive literal corresponding to the Variable
// with the given Identifier.
func (d *litMapping) LitOf(id Identifier) z.Lit {
	m, ok := d.lits[id]
	if ok {
		return m
	}
	d.errs = append(d.errs, fmt.Errorf("variable %q referenced but not provided", id))
	return z.LitNull
}

// Error returns a single error value that is an aggregation of all
// errors encountered during a litMapping's lifetime, or nil if there have
// been no errors.
func (d *litMapping) Error() error {
	if len(d.errs) == 0 {
		return nil
	}
	s := make([]string, len(d.errs))
	for i, err := range d.errs {
		s[i] = err.Error()
	}
	return fmt.Errorf("%d errors encountered: %s", len(s), strings.Join(s, ", "))
}

// AddConstraints adds the constraints encoded in the embedded circuit
// to the solver g.
func (d *litMapping) AddConstraints(g inter.Adder) {
	d.c.ToCnf(g)
}

// ConstraintLits returns the literal of every applied constraint.
// Assuming all of them asserts that every constraint holds.
func (d *litMapping) ConstraintLits() []z.Lit {
	ms := make([]z.Lit, 0, len(d.constraints))
	for m := range d.constraints {
		ms = append(ms, m)
	}
	return ms
}

func (d *litMapping) Conflicts(g inter.Assumable) []AppliedConstraint {
	whys := g.Why(nil)
	as := make([]AppliedConstraint, 0, len(whys))
	for _, why := range whys {
		if a, ok := d.constraints[why]; ok {
			as = append(as, a)
		}
	}
	return as
}
