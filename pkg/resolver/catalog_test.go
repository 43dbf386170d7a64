package resolver_test

import (
	"os"
	"path/filepath"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/operator-framework/backtrack/pkg/resolver"
)

var _ = Describe("Catalog", func() {
	It("should decode every section", func() {
		c := mustLoad(`
packages:
- name: app
  versions:
  - version: "1.0"
    requires: [lib]
    recommends: [docs]
    conflicts: [legacy@0.1]
- name: lib
  versions:
  - version: "1.0"
- name: docs
  versions:
  - version: "1.0"
- name: legacy
  versions:
  - version: "0.1"
requests: [app]
external: [kernel]
search:
  maxDepth: 10
  failAtMaxDepth: false
  maxAlternatives: 3
`)
		Expect(c.Packages).To(HaveLen(4))
		Expect(c.Packages[0].Versions[0]).To(Equal(resolver.Version{
			Version:    "1.0",
			Requires:   []string{"lib"},
			Recommends: []string{"docs"},
			Conflicts:  []string{"legacy@0.1"},
		}))
		Expect(c.Requests).To(Equal([]string{"app"}))
		Expect(c.External).To(Equal([]string{"kernel"}))
		Expect(c.Search).ToNot(BeNil())
		Expect(*c.Search.MaxDepth).To(Equal(10))
		Expect(*c.Search.FailAtMaxDepth).To(BeFalse())
		Expect(*c.Search.MaxAlternatives).To(Equal(3))
	})

	It("should load a catalog from a file", func() {
		path := filepath.Join(GinkgoT().TempDir(), "catalog.yaml")
		Expect(os.WriteFile(path, []byte("packages:\n- name: app\n  versions:\n  - version: \"1.0\"\nrequests: [app]\n"), 0o600)).To(Succeed())

		c, err := resolver.LoadCatalogFile(path)
		Expect(err).ToNot(HaveOccurred())
		Expect(c.Requests).To(Equal([]string{"app"}))

		_, err = resolver.LoadCatalogFile(filepath.Join(GinkgoT().TempDir(), "missing.yaml"))
		Expect(err).To(MatchError(ContainSubstring("error opening catalog")))
	})

	DescribeTable("should reject",
		func(catalog string, message string) {
			_, err := resolver.LoadCatalog(strings.NewReader(catalog))
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("an empty document", "", "empty catalog"),
		Entry("unknown fields", `
packages:
- name: app
  versions:
  - version: "1.0"
    provides: [x]
requests: [app]
`, "error decoding catalog"),
		Entry("a catalog without requests", `
packages:
- name: app
  versions:
  - version: "1.0"
`, "Requests"),
		Entry("a package without versions", `
packages:
- name: app
requests: [app]
`, "Versions"),
		Entry("a package name containing @", `
packages:
- name: app@1
  versions:
  - version: "1.0"
requests: [app@1]
`, "Name"),
		Entry("negative search settings", `
packages:
- name: app
  versions:
  - version: "1.0"
requests: [app]
search:
  maxDepth: -1
`, "MaxDepth"),
		Entry("duplicate packages", `
packages:
- name: app
  versions:
  - version: "1.0"
- name: app
  versions:
  - version: "2.0"
requests: [app]
`, `package "app" is listed twice`),
		Entry("duplicate versions", `
packages:
- name: app
  versions:
  - version: "1.0"
  - version: "1.0"
requests: [app]
`, "version app@1.0 is listed twice"),
		Entry("an unknown request", `
packages:
- name: app
  versions:
  - version: "1.0"
requests: [missing]
`, `requested package "missing" is unknown`),
		Entry("an unknown dependency", `
packages:
- name: app
  versions:
  - version: "1.0"
    recommends: [missing]
requests: [app]
`, `app@1.0 depends on unknown package "missing"`),
		Entry("a conflict with an unknown version", `
packages:
- name: app
  versions:
  - version: "1.0"
    conflicts: [lib@2.0]
- name: lib
  versions:
  - version: "1.0"
requests: [app]
`, `app@1.0 conflicts with unknown version "lib@2.0"`),
		Entry("an external package in the catalog", `
packages:
- name: app
  versions:
  - version: "1.0"
requests: [app]
external: [app]
`, `package "app" is both external and in the catalog`),
	)
})
