package root

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/operator-framework/backtrack/cmd/dimacs"
	"github.com/operator-framework/backtrack/cmd/options"
	"github.com/operator-framework/backtrack/cmd/resolve"
	"github.com/operator-framework/backtrack/cmd/sudoku"
)

func NewRootCmd() *cobra.Command {
	o := &options.Options{}
	rootCmd := &cobra.Command{
		Use:   "backtrack",
		Short: "Backtrack is a depth-first search engine for goal-directed problems",
		Long: `A depth-first backtracking search engine written in Go, with
sub-commands that put it to work on package resolution, sudoku boards
and SAT problems in dimacs format.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.Setup(cmd)
		},
	}
	o.AddFlags(rootCmd)

	// add sub-commands
	rootCmd.AddCommand(dimacs.NewDimacsCommand(o))
	rootCmd.AddCommand(sudoku.NewSudokuCommand(o))
	rootCmd.AddCommand(resolve.NewResolveCommand(o))
	finishing(rootCmd, o)

	return rootCmd
}

// finishing flushes telemetry and closes log files after every runnable
// command, including the ones that fail. Cobra skips PersistentPostRunE
// after a PreRunE or RunE error.
func finishing(cmd *cobra.Command, o *options.Options) {
	if pre := cmd.PreRunE; pre != nil {
		cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
			if err := pre(cmd, args); err != nil {
				return errors.Join(err, o.Finish(cmd))
			}
			return nil
		}
	}
	if run := cmd.RunE; run != nil {
		cmd.RunE = func(cmd *cobra.Command, args []string) (err error) {
			defer func() {
				err = errors.Join(err, o.Finish(cmd))
			}()
			return run(cmd, args)
		}
	}
	for _, sub := range cmd.Commands() {
		finishing(sub, o)
	}
}
