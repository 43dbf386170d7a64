package sudoku

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/operator-framework/backtrack/cmd/options"
)

func NewSudokuCommand(o *options.Options) *cobra.Command {
	var (
		puzzle string
		seed   int64
		mrv    bool
	)
	cmd := &cobra.Command{
		Use:   "sudoku",
		Short: "Returns a solved sudoku board",
		Long: `Returns a solved sudoku board. Without --puzzle a random board is
generated. A puzzle is given as 81 cells in row-major order, with digits
for givens and '.' or '0' for empty cells.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var board Board
			var opts []Option
			if puzzle != "" {
				b, err := ParseBoard(puzzle)
				if err != nil {
					return fmt.Errorf("error parsing puzzle: %w", err)
				}
				board = b
			} else {
				if !cmd.Flags().Changed("seed") {
					seed = time.Now().UnixNano()
				}
				opts = append(opts, WithRandom(rand.New(rand.NewSource(seed))))
			}
			if mrv {
				opts = append(opts, WithMostConstrainedFirst())
			}
			return solve(cmd, o, board, opts...)
		},
	}
	cmd.Flags().StringVar(&puzzle, "puzzle", "", "puzzle to solve instead of generating a board")
	cmd.Flags().Int64Var(&seed, "seed", 0, "seed for random boards (default the current time)")
	cmd.Flags().BoolVar(&mrv, "most-constrained-first", false, "fill the cell with the fewest candidates first")
	return cmd
}

func solve(cmd *cobra.Command, o *options.Options, board Board, opts ...Option) error {
	sudoku, err := NewSudoku(board, opts...)
	if err != nil {
		return err
	}

	cfg := sudoku.Config(o.Depth(cmd, sudoku.MaxDepth()))
	cfg.FailAtMaxDepth = o.FailAtMaxDepth
	cfg.MaxAlternatives = o.MaxAlternatives

	solved, err := sudoku.Solve(cmd.Context(), cfg, o.Label, o.SearchOptions(cmd, cfg.MaxDepth)...)
	if err != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "no solution found: %s\n", err)
		return nil
	}
	fmt.Fprint(cmd.OutOrStdout(), solved)
	return nil
}
