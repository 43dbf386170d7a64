package resolver

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strings"

	"github.com/operator-framework/backtrack/internal/sat"
	"github.com/operator-framework/backtrack/pkg/backtrack"
)

// DefaultMaxDepth is the search depth used when neither the catalog nor
// an option sets one.
const DefaultMaxDepth = 256

// Requirement is a goal asking for some version of Package to be
// installed.
type Requirement struct {
	Package string
	// Optional requirements come from recommendations and may be
	// skipped when no version can be installed.
	Optional bool
	// RequiredBy names the version that introduced the requirement,
	// or is empty for a request.
	RequiredBy string
}

func (r Requirement) String() string {
	var b strings.Builder
	b.WriteString(r.Package)
	switch {
	case r.RequiredBy != "" && r.Optional:
		fmt.Fprintf(&b, " (recommended by %s)", r.RequiredBy)
	case r.RequiredBy != "":
		fmt.Fprintf(&b, " (required by %s)", r.RequiredBy)
	case r.Optional:
		b.WriteString(" (optional)")
	}
	return b.String()
}

// Installation is a package version chosen by a resolution.
type Installation struct {
	Package string
	Version string
}

func (i Installation) String() string {
	return i.Package + "@" + i.Version
}

// Solution is the outcome of a successful resolution.
type Solution struct {
	// Selected lists the installed versions in the order they were
	// chosen.
	Selected []Installation
	// External lists the requirements on packages the environment
	// provides.
	External []Requirement
	// Skipped lists the optional requirements no version could
	// satisfy.
	Skipped []Requirement
	// Unresolved lists the requirements still pending when the search
	// ran out of depth without failing.
	Unresolved []Requirement
}

type entity struct {
	id         sat.Identifier
	install    Installation
	requires   []string
	recommends []string
}

// Resolver resolves the requests of a Catalog.
type Resolver struct {
	catalog    *Catalog
	variables  []sat.Variable
	candidates map[string][]*entity
	external   map[string]struct{}
	cfg        backtrack.Config[Requirement]
	label      string
	coalesce   bool
	searchOpts []backtrack.Option
}

type Option func(r *Resolver) error

// WithMaxDepth sets the search depth, overriding the catalog.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) error {
		if n < 0 {
			return fmt.Errorf("max depth must not be negative, got %d", n)
		}
		r.cfg.MaxDepth = n
		return nil
	}
}

// WithFailAtMaxDepth sets whether running out of depth fails the
// resolution, overriding the catalog.
func WithFailAtMaxDepth(fail bool) Option {
	return func(r *Resolver) error {
		r.cfg.FailAtMaxDepth = fail
		return nil
	}
}

// WithMaxAlternatives caps the versions tried per requirement,
// overriding the catalog.
func WithMaxAlternatives(n int) Option {
	return func(r *Resolver) error {
		if n < 0 {
			return fmt.Errorf("max alternatives must not be negative, got %d", n)
		}
		r.cfg.MaxAlternatives = n
		return nil
	}
}

// WithLabel sets the label attached to the search's trace events.
func WithLabel(label string) Option {
	return func(r *Resolver) error {
		r.label = label
		return nil
	}
}

// WithoutCoalescing keeps duplicate requirements in the queue instead
// of merging them.
func WithoutCoalescing() Option {
	return func(r *Resolver) error {
		r.coalesce = false
		return nil
	}
}

// WithSearchOptions passes options through to backtrack.Search.
func WithSearchOptions(opts ...backtrack.Option) Option {
	return func(r *Resolver) error {
		r.searchOpts = append(r.searchOpts, opts...)
		return nil
	}
}

// NewResolver encodes catalog for resolution. Search settings come
// from the catalog's search section, then from options.
func NewResolver(catalog *Catalog, options ...Option) (*Resolver, error) {
	if err := catalog.Validate(); err != nil {
		return nil, err
	}
	r := &Resolver{
		catalog:    catalog,
		candidates: make(map[string][]*entity, len(catalog.Packages)),
		external:   make(map[string]struct{}, len(catalog.External)),
		label:      "resolve",
		coalesce:   true,
		cfg: backtrack.Config[Requirement]{
			MaxDepth:       DefaultMaxDepth,
			FailAtMaxDepth: true,
		},
	}
	if s := catalog.Search; s != nil {
		if s.MaxDepth != nil {
			r.cfg.MaxDepth = *s.MaxDepth
		}
		if s.FailAtMaxDepth != nil {
			r.cfg.FailAtMaxDepth = *s.FailAtMaxDepth
		}
		if s.MaxAlternatives != nil {
			r.cfg.MaxAlternatives = *s.MaxAlternatives
		}
	}
	for _, option := range options {
		if err := option(r); err != nil {
			return nil, err
		}
	}
	for _, name := range catalog.External {
		r.external[name] = struct{}{}
	}
	for _, p := range catalog.Packages {
		for _, v := range p.Versions {
			r.candidates[p.Name] = append(r.candidates[p.Name], &entity{
				id:         sat.Identifier(p.Name + "@" + v.Version),
				install:    Installation{Package: p.Name, Version: v.Version},
				requires:   v.Requires,
				recommends: v.Recommends,
			})
		}
	}
	r.variables = r.encode()
	return r, nil
}

// encode builds one variable per version, carrying its dependencies
// and conflicts, and one per package limiting it to a single version.
func (r *Resolver) encode() []sat.Variable {
	ids := func(name string) []sat.Identifier {
		var result []sat.Identifier
		for _, e := range r.candidates[name] {
			result = append(result, e.id)
		}
		return result
	}

	var variables []sat.Variable
	for _, p := range r.catalog.Packages {
		for i, v := range p.Versions {
			e := r.candidates[p.Name][i]
			variable := sat.NewVariable(e.id)
			for _, name := range v.Requires {
				if _, ok := r.external[name]; ok {
					continue
				}
				variable.AddConstraint(sat.Dependency(ids(name)...))
			}
			for _, ref := range v.Conflicts {
				if strings.Contains(ref, "@") {
					variable.AddConstraint(sat.Conflict(sat.Identifier(ref)))
					continue
				}
				for _, id := range ids(ref) {
					variable.AddConstraint(sat.Conflict(id))
				}
			}
			variables = append(variables, variable)
		}
		if len(p.Versions) > 1 {
			variables = append(variables, sat.NewVariable(sat.Identifier(p.Name), sat.AtMost(1, ids(p.Name)...)))
		}
	}
	return variables
}

// Resolve searches for an installation satisfying every request. Each
// call starts from a fresh solver.
func (r *Resolver) Resolve(ctx context.Context) (*Solution, error) {
	scope, err := sat.NewScope(r.variables)
	if err != nil {
		return nil, fmt.Errorf("catalog is not satisfiable: %w", err)
	}
	res := &resolution{Resolver: r, scope: scope}

	cfg := r.cfg
	cfg.Assigned = res.assigned
	cfg.Suspend = res.suspend
	cfg.Discharge = res.discharge
	cfg.Trail = res
	if r.coalesce {
		cfg.Proc = coalesce
	}

	goals := make([]Requirement, len(r.catalog.Requests))
	for i, name := range r.catalog.Requests {
		goals[i] = Requirement{Package: name}
	}
	residual, err := backtrack.Search(ctx, cfg, r.label, res.alternatives, goals, r.searchOpts...)
	if err != nil {
		return nil, fmt.Errorf("no installation satisfies %s: %w", strings.Join(r.catalog.Requests, ", "), err)
	}

	solution := &Solution{}
	for _, e := range res.installed {
		solution.Selected = append(solution.Selected, e.install)
	}
	for _, req := range residual {
		switch {
		case res.isExternal(req):
			solution.External = append(solution.External, req)
		case req.Optional && res.assigned(req):
			// installed for another requirement later on
		case req.Optional:
			solution.Skipped = append(solution.Skipped, req)
		default:
			solution.Unresolved = append(solution.Unresolved, req)
		}
	}
	return solution, nil
}

// resolution holds the state of a single Resolve call. Every installed
// entity pushes exactly one solver scope, so the installed list and the
// scope stack are marked and undone together.
type resolution struct {
	*Resolver
	scope     *sat.Scope
	installed []*entity
}

func (r *resolution) Mark() int {
	return r.scope.Mark()
}

func (r *resolution) Undo(mark int) {
	r.scope.Undo(mark)
	if n := r.scope.Mark() - 1; n < len(r.installed) {
		r.installed = r.installed[:n]
	}
}

func (r *resolution) isExternal(req Requirement) bool {
	_, ok := r.external[req.Package]
	return ok
}

func (r *resolution) assigned(req Requirement) bool {
	return slices.ContainsFunc(r.installed, func(e *entity) bool {
		return e.install.Package == req.Package
	})
}

func (r *resolution) suspend(_ context.Context, req Requirement) (bool, error) {
	return r.isExternal(req), nil
}

func (r *resolution) discharge(_ context.Context, req Requirement) ([]Requirement, bool, error) {
	if req.Optional {
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("no installable version of %s", req)
}

// alternatives yields the versions of the required package that the
// solver has not already ruled out, in catalog order.
func (r *resolution) alternatives(_ context.Context, req Requirement) (iter.Seq[backtrack.Alternative[Requirement]], error) {
	candidates, ok := r.candidates[req.Package]
	if !ok {
		return nil, fmt.Errorf("package %q is not in the catalog", req.Package)
	}
	return func(yield func(backtrack.Alternative[Requirement]) bool) {
		for _, e := range candidates {
			if r.scope.Excluded(e.id) {
				continue
			}
			if !yield(r.install(e)) {
				return
			}
		}
	}, nil
}

func (r *resolution) install(e *entity) backtrack.Alternative[Requirement] {
	return func(context.Context) ([]Requirement, error) {
		if err := r.scope.Guess(e.id); err != nil {
			return nil, fmt.Errorf("cannot install %s: %w", e.id, err)
		}
		r.installed = append(r.installed, e)

		subgoals := make([]Requirement, 0, len(e.requires)+len(e.recommends))
		for _, name := range e.requires {
			subgoals = append(subgoals, Requirement{Package: name, RequiredBy: string(e.id)})
		}
		for _, name := range e.recommends {
			subgoals = append(subgoals, Requirement{Package: name, Optional: true, RequiredBy: string(e.id)})
		}
		return subgoals, nil
	}
}

// coalesce merges requirements on the same package into the first of
// them. The merged requirement is optional only if all of them were.
func coalesce(_ context.Context, _, current []Requirement) ([]Requirement, bool, error) {
	index := make(map[string]int, len(current))
	merged := make([]Requirement, 0, len(current))
	changed := false
	for _, req := range current {
		i, ok := index[req.Package]
		if !ok {
			index[req.Package] = len(merged)
			merged = append(merged, req)
			continue
		}
		changed = true
		if !req.Optional && merged[i].Optional {
			merged[i] = req
		}
	}
	if !changed {
		return nil, false, nil
	}
	return merged, true, nil
}
