package dimacs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/operator-framework/backtrack/cmd/options"
)

func NewDimacsCommand(o *options.Options) *cobra.Command {
	return &cobra.Command{
		Use:   "solve <path>",
		Short: "Solves a sat problem given in dimacs format",
		Long: `Solves a sat problem given in dimacs format. For instance:
c
c this is a comment
c header: p cnf <number of variable> <number of clauses>
p cnf 2 2
c clauses end in zero, negative means 'not'
c 0 (zero) is not a valid literal
1 2 0
1 -2 0
c cnf: (1 or 2) and (1 or not 2)
`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := os.Stat(args[0]); errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("file (%s) not found", args[0])
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return solve(cmd, o, args[0])
		},
	}
}

func solve(cmd *cobra.Command, o *options.Options, path string) error {
	// open dimacs file
	dimacsFile, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening dimacs file (%s): %w", path, err)
	}
	defer dimacsFile.Close()

	dimacs, err := NewDimacs(dimacsFile)
	if err != nil {
		return fmt.Errorf("error parsing dimacs file (%s): %w", path, err)
	}

	out := cmd.OutOrStdout()
	solver, err := NewSolver(dimacs)
	if err != nil {
		fmt.Fprintf(out, "no solution found: %s\n", err)
		return nil
	}
	cfg := solver.Config(o.Depth(cmd, solver.MaxDepth()))
	cfg.FailAtMaxDepth = o.FailAtMaxDepth
	cfg.MaxAlternatives = o.MaxAlternatives

	model, err := solver.Solve(cmd.Context(), cfg, o.Label, o.SearchOptions(cmd, cfg.MaxDepth)...)
	if err != nil {
		fmt.Fprintf(out, "no solution found: %s\n", err)
		return nil
	}

	fmt.Fprintln(out, "solution found:")
	terms := make([]string, 0, len(model)+2)
	terms = append(terms, "v")
	for _, lit := range model {
		if lit != 0 {
			terms = append(terms, strconv.Itoa(lit))
		}
	}
	fmt.Fprintln(out, strings.Join(append(terms, "0"), " "))
	return nil
}
