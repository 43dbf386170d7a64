package resolver_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/backtrack/pkg/backtrack"
	"github.com/operator-framework/backtrack/pkg/resolver"
)

func TestResolver(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Resolver Suite")
}

func mustLoad(catalog string) *resolver.Catalog {
	GinkgoHelper()
	c, err := resolver.LoadCatalog(strings.NewReader(catalog))
	Expect(err).ToNot(HaveOccurred())
	return c
}

type recorder struct {
	kinds []backtrack.EventKind
}

func (r *recorder) Trace(_ context.Context, e backtrack.Event) {
	r.kinds = append(r.kinds, e.Kind)
}

func (r *recorder) count(kind backtrack.EventKind) int {
	n := 0
	for _, k := range r.kinds {
		if k == kind {
			n++
		}
	}
	return n
}

func installed(s *resolver.Solution) []string {
	var ids []string
	for _, i := range s.Selected {
		ids = append(ids, i.String())
	}
	return ids
}

var _ = Describe("Resolver", func() {
	It("should install the preferred versions of a request and its dependencies", func() {
		r, err := resolver.NewResolver(mustLoad(`
packages:
- name: app
  versions:
  - version: "2.0"
    requires: [lib]
  - version: "1.0"
- name: lib
  versions:
  - version: "1.1"
  - version: "1.0"
requests: [app]
`))
		Expect(err).ToNot(HaveOccurred())

		solution, err := r.Resolve(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(installed(solution)).To(Equal([]string{"app@2.0", "lib@1.1"}))
		Expect(solution.External).To(BeEmpty())
		Expect(solution.Skipped).To(BeEmpty())
		Expect(solution.Unresolved).To(BeEmpty())
	})

	It("should fall back to an older version when the newest cannot be installed", func() {
		r, err := resolver.NewResolver(mustLoad(`
packages:
- name: app
  versions:
  - version: "2.0"
    requires: [lib]
  - version: "1.0"
- name: lib
  versions:
  - version: "1.0"
    conflicts: [app@2.0]
requests: [app]
`))
		Expect(err).ToNot(HaveOccurred())

		solution, err := r.Resolve(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(installed(solution)).To(Equal([]string{"app@1.0"}))
	})

	It("should set aside requirements on external packages", func() {
		r, err := resolver.NewResolver(mustLoad(`
packages:
- name: app
  versions:
  - version: "1.0"
    requires: [kernel]
requests: [app]
external: [kernel]
`))
		Expect(err).ToNot(HaveOccurred())

		solution, err := r.Resolve(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(installed(solution)).To(Equal([]string{"app@1.0"}))
		Expect(solution.External).To(Equal([]resolver.Requirement{
			{Package: "kernel", RequiredBy: "app@1.0"},
		}))
	})

	It("should skip recommendations that cannot be installed", func() {
		r, err := resolver.NewResolver(mustLoad(`
packages:
- name: app
  versions:
  - version: "1.0"
    recommends: [docs, extras]
- name: docs
  versions:
  - version: "1.0"
    conflicts: [app]
- name: extras
  versions:
  - version: "1.0"
requests: [app]
`))
		Expect(err).ToNot(HaveOccurred())

		solution, err := r.Resolve(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(installed(solution)).To(Equal([]string{"app@1.0", "extras@1.0"}))
		Expect(solution.Skipped).To(Equal([]resolver.Requirement{
			{Package: "docs", Optional: true, RequiredBy: "app@1.0"},
		}))
	})

	It("should fail when a request cannot be installed", func() {
		r, err := resolver.NewResolver(mustLoad(`
packages:
- name: app
  versions:
  - version: "1.0"
    requires: [lib]
- name: lib
  versions:
  - version: "1.0"
    conflicts: [app]
requests: [app]
`))
		Expect(err).ToNot(HaveOccurred())

		_, err = r.Resolve(context.Background())
		var exhausted *backtrack.AlternativesExhausted
		Expect(errors.As(err, &exhausted)).To(BeTrue())
		Expect(exhausted.Goal).To(Equal(resolver.Requirement{Package: "app"}))
		Expect(exhausted.Failures).To(HaveLen(1))
	})

	It("should fail when two requests conflict", func() {
		r, err := resolver.NewResolver(mustLoad(`
packages:
- name: a
  versions:
  - version: "1.0"
    conflicts: [b]
- name: b
  versions:
  - version: "1.0"
requests: [a, b]
`))
		Expect(err).ToNot(HaveOccurred())

		_, err = r.Resolve(context.Background())
		Expect(err).To(MatchError(ContainSubstring("no installation satisfies a, b")))
	})

	It("should merge duplicate requirements", func() {
		catalog := `
packages:
- name: app
  versions:
  - version: "1.0"
    requires: [lib]
- name: lib
  versions:
  - version: "1.0"
requests: [app, lib]
`
		merged := &recorder{}
		r, err := resolver.NewResolver(mustLoad(catalog),
			resolver.WithSearchOptions(backtrack.WithTracer(merged)))
		Expect(err).ToNot(HaveOccurred())
		solution, err := r.Resolve(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(installed(solution)).To(Equal([]string{"app@1.0", "lib@1.0"}))
		Expect(merged.count(backtrack.Replaced)).To(Equal(1))
		Expect(merged.count(backtrack.Assigned)).To(Equal(0))

		kept := &recorder{}
		r, err = resolver.NewResolver(mustLoad(catalog),
			resolver.WithoutCoalescing(),
			resolver.WithSearchOptions(backtrack.WithTracer(kept)))
		Expect(err).ToNot(HaveOccurred())
		solution, err = r.Resolve(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(installed(solution)).To(Equal([]string{"app@1.0", "lib@1.0"}))
		Expect(kept.count(backtrack.Replaced)).To(Equal(0))
		Expect(kept.count(backtrack.Assigned)).To(Equal(1))
	})

	Context("with a dependency chain", func() {
		const catalog = `
packages:
- name: app
  versions:
  - version: "1.0"
    requires: [lib]
- name: lib
  versions:
  - version: "1.0"
requests: [app]
`

		It("should fail when it runs out of depth", func() {
			r, err := resolver.NewResolver(mustLoad(catalog), resolver.WithMaxDepth(1))
			Expect(err).ToNot(HaveOccurred())

			_, err = r.Resolve(context.Background())
			var limit *backtrack.RecursionLimitExceeded
			Expect(errors.As(err, &limit)).To(BeTrue())
			Expect(limit.MaxDepth).To(Equal(1))
		})

		It("should report pending requirements when running out of depth is allowed", func() {
			r, err := resolver.NewResolver(mustLoad(catalog),
				resolver.WithMaxDepth(1),
				resolver.WithFailAtMaxDepth(false))
			Expect(err).ToNot(HaveOccurred())

			solution, err := r.Resolve(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(installed(solution)).To(Equal([]string{"app@1.0"}))
			Expect(solution.Unresolved).To(Equal([]resolver.Requirement{
				{Package: "lib", RequiredBy: "app@1.0"},
			}))
		})

		It("should take search settings from the catalog", func() {
			r, err := resolver.NewResolver(mustLoad(catalog + `
search:
  maxDepth: 1
  failAtMaxDepth: false
`))
			Expect(err).ToNot(HaveOccurred())

			solution, err := r.Resolve(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(solution.Unresolved).To(HaveLen(1))
		})

		It("should resolve the same way every time", func() {
			r, err := resolver.NewResolver(mustLoad(catalog))
			Expect(err).ToNot(HaveOccurred())

			first, err := r.Resolve(context.Background())
			Expect(err).ToNot(HaveOccurred())
			second, err := r.Resolve(context.Background())
			Expect(err).ToNot(HaveOccurred())
			Expect(second).To(Equal(first))
		})
	})

	It("should only try as many versions as allowed", func() {
		catalog := `
packages:
- name: app
  versions:
  - version: "3.0"
    requires: [lib]
  - version: "2.0"
    requires: [lib]
  - version: "1.0"
- name: lib
  versions:
  - version: "1.0"
    conflicts: [app@3.0, app@2.0]
requests: [app]
`
		r, err := resolver.NewResolver(mustLoad(catalog))
		Expect(err).ToNot(HaveOccurred())
		solution, err := r.Resolve(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(installed(solution)).To(Equal([]string{"app@1.0"}))

		r, err = resolver.NewResolver(mustLoad(catalog), resolver.WithMaxAlternatives(2))
		Expect(err).ToNot(HaveOccurred())
		_, err = r.Resolve(context.Background())
		var exhausted *backtrack.AlternativesExhausted
		Expect(errors.As(err, &exhausted)).To(BeTrue())
		Expect(exhausted.Failures).To(HaveLen(2))
	})

	It("should reject negative settings", func() {
		c := mustLoad(`
packages:
- name: app
  versions:
  - version: "1.0"
requests: [app]
`)
		_, err := resolver.NewResolver(c, resolver.WithMaxDepth(-1))
		Expect(err).To(HaveOccurred())
		_, err = resolver.NewResolver(c, resolver.WithMaxAlternatives(-1))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Requirement", func() {
	DescribeTable("String",
		func(r resolver.Requirement, expected string) {
			Expect(r.String()).To(Equal(expected))
		},
		Entry("request", resolver.Requirement{Package: "app"}, "app"),
		Entry("optional request", resolver.Requirement{Package: "app", Optional: true}, "app (optional)"),
		Entry("dependency", resolver.Requirement{Package: "lib", RequiredBy: "app@1.0"}, "lib (required by app@1.0)"),
		Entry("recommendation", resolver.Requirement{Package: "docs", Optional: true, RequiredBy: "app@1.0"}, "docs (recommended by app@1.0)"),
	)
})
