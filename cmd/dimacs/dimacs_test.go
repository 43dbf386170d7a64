package dimacs_test

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/operator-framework/backtrack/cmd/dimacs"
	"github.com/operator-framework/backtrack/cmd/options"
)

func TestDimacs(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Dimacs Suite")
}

func parse(problem string) *dimacs.Dimacs {
	GinkgoHelper()
	d, err := dimacs.NewDimacs(bytes.NewReader([]byte(problem)))
	Expect(err).ToNot(HaveOccurred())
	return d
}

var _ = Describe("Dimacs", func() {
	It("should fail if there is no header", func() {
		problem := "1 2 3 0\n"
		_, err := dimacs.NewDimacs(bytes.NewReader([]byte(problem)))
		Expect(err).To(HaveOccurred())
	})
	It("should fail if there are no clauses", func() {
		problem := "p cnf 3 3\n"
		_, err := dimacs.NewDimacs(bytes.NewReader([]byte(problem)))
		Expect(err).To(HaveOccurred())
	})
	It("should parse valid dimacs", func() {
		d := parse("c a comment\np cnf 3 2\n1 2 3 0\n-1   -3 0")
		Expect(d.Variables()).To(Equal(3))
		Expect(d.Clauses()).To(Equal([][]int{{1, 2, 3}, {-1, -3}}))
	})
	DescribeTable("should reject",
		func(problem string, message string) {
			_, err := dimacs.NewDimacs(bytes.NewReader([]byte(problem)))
			Expect(err).To(MatchError(ContainSubstring(message)))
		},
		Entry("a clause count mismatch", "p cnf 2 2\n1 2 0\n", "header declares 2 clauses but 1 were found"),
		Entry("a variable count mismatch", "p cnf 3 1\n1 2 0\n", "header declares 3 variables but 2 were used"),
		Entry("an undeclared variable", "p cnf 2 1\n1 3 0\n", "3 is not a valid variable"),
		Entry("an empty clause", "p cnf 1 1\n0\n", "empty clause"),
		Entry("an unterminated clause", "p cnf 2 1\n1 2\n", "invalid dimacs command"),
		Entry("a second header", "p cnf 1 1\n1 0\np cnf 1 1\n", "Only one header is allowed"),
	)
})

var _ = Describe("Solver", func() {
	solve := func(problem string) ([]int, error) {
		s, err := dimacs.NewSolver(parse(problem))
		if err != nil {
			return nil, err
		}
		return s.Solve(context.Background(), s.Config(s.MaxDepth()), "dimacs")
	}

	It("should prefer true", func() {
		model, err := solve("p cnf 2 2\n1 2 0\n1 -2 0\n")
		Expect(err).ToNot(HaveOccurred())
		Expect(model).To(Equal([]int{1, 2}))
	})

	It("should backtrack to false", func() {
		model, err := solve("p cnf 2 3\n-1 2 0\n-1 -2 0\n1 2 0\n")
		Expect(err).ToNot(HaveOccurred())
		Expect(model).To(Equal([]int{-1, 2}))
	})

	It("should fail on unsatisfiable problems", func() {
		_, err := solve("p cnf 1 2\n1 0\n-1 0\n")
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Command", func() {
	It("should print a model", func() {
		path := filepath.Join(GinkgoT().TempDir(), "problem.cnf")
		Expect(os.WriteFile(path, []byte("p cnf 2 2\n1 2 0\n1 -2 0\n"), 0o600)).To(Succeed())

		o := &options.Options{}
		cmd := dimacs.NewDimacsCommand(o)
		o.AddFlags(cmd)
		cmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error { return o.Setup(cmd) }
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{path})

		Expect(cmd.ExecuteContext(context.Background())).To(Succeed())
		Expect(out.String()).To(Equal("solution found:\nv 1 2 0\n"))
	})

	It("should fail for a missing file", func() {
		o := &options.Options{}
		cmd := dimacs.NewDimacsCommand(o)
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetErr(&bytes.Buffer{})
		cmd.SetArgs([]string{filepath.Join(GinkgoT().TempDir(), "missing.cnf")})
		Expect(cmd.Execute()).To(MatchError(ContainSubstring("not found")))
	})
})
