package sat

import (
	"fmt"
	"strings"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

// Identifier values uniquely identify particular Variables within
// the input to a single Scope.
type Identifier string

func (id Identifier) String() string {
	return string(id)
}

// LitMapping translates Identifiers into literals of the SAT formula.
type LitMapping interface {
	LitOf(subject Identifier) z.Lit
}

// Constraint implementations limit the circumstances under which a
// particular Variable can be selected.
type Constraint interface {
	String(subject Identifier) string
	Apply(c *logic.C, lm LitMapping, subject Identifier) z.Lit
	Anchor() bool
}

// Variable values are the basic unit of problems understood by this
// package.
type Variable interface {
	Identifier() Identifier
	Constraints() []Constraint
}

// AppliedConstraint values compose a single Constraint with the
// Variable it applies to.
type AppliedConstraint struct {
	Variable   Variable
	Constraint Constraint
}

// String implements fmt.Stringer and returns a human-readable message
// representing the receiver.
func (a AppliedConstraint) String() string {
	return a.Constraint.String(a.Variable.Identifier())
}

// NotSatisfiable is an error composed of the applied constraints that
// were found to rule out a guess.
type NotSatisfiable []AppliedConstraint

func (e NotSatisfiable) Error() string {
	const msg = "constraints not satisfiable"
	if len(e) == 0 {
		return msg
	}
	s := make([]string, len(e))
	for i, a := range e {
		s[i] = a.String()
	}
	return fmt.Sprintf("%s: %s", msg, strings.Join(s, ", "))
}

var _ Variable = &SimpleVariable{}

type SimpleVariable struct {
	id          Identifier
	constraints []Constraint
}

func NewVariable(id Identifier, constraints ...Constraint) *SimpleVariable {
	return &SimpleVariable{
		id:          id,
		constraints: constraints,
	}
}

func (v *SimpleVariable) Identifier() Identifier {
	return v.id
}

func (v *SimpleVariable) Constraints() []Constraint {
	return v.constraints
}

func (v *SimpleVariable) AddConstraint(constraints ...Constraint) {
	v.constraints = append(v.constraints, constraints...)
}
