package sudoku

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math/rand"
	"strings"

	"github.com/operator-framework/backtrack/internal/sat"
	"github.com/operator-framework/backtrack/pkg/backtrack"
)

// Board holds the digits 1 to 9 of a sudoku grid, with 0 for an empty
// cell.
type Board [9][9]int

// ParseBoard reads 81 cells in row-major order. Digits are givens and
// '.', '0' or '_' mark empty cells; whitespace is ignored.
func ParseBoard(s string) (Board, error) {
	var b Board
	i := 0
	for _, r := range s {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			continue
		case i == 81:
			return b, fmt.Errorf("puzzle has more than 81 cells")
		case r >= '1' && r <= '9':
			b[i/9][i%9] = int(r - '0')
		case r == '.' || r == '0' || r == '_':
		default:
			return b, fmt.Errorf("invalid cell %q at position %d", r, i+1)
		}
		i++
	}
	if i != 81 {
		return b, fmt.Errorf("puzzle has %d cells, expected 81", i)
	}
	return b, nil
}

func (b Board) String() string {
	var sb strings.Builder
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			if b[row][col] == 0 {
				sb.WriteString(" ")
			} else {
				fmt.Fprintf(&sb, "%d", b[row][col])
			}
			if col != 8 {
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

// Cell is a search goal: the cell at Row and Col needs a digit.
type Cell struct {
	Row, Col int
}

func (c Cell) String() string {
	return fmt.Sprintf("r%dc%d", c.Row+1, c.Col+1)
}

// GetID returns the identifier of the variable stating that the cell at
// row and col holds num+1.
func GetID(row int, col int, num int) sat.Identifier {
	n := num
	n += col * 9
	n += row * 81
	return sat.Identifier(fmt.Sprintf("%03d", n))
}

type Sudoku struct {
	board  Board
	scope  *sat.Scope
	digits map[Cell][]int
	mrv    bool
}

type Option func(s *Sudoku)

// WithRandom shuffles the order in which digits are tried for every
// cell, so an empty board yields a different solution on every run.
func WithRandom(rnd *rand.Rand) Option {
	return func(s *Sudoku) {
		for _, c := range s.Goals() {
			digits := s.digits[c]
			rnd.Shuffle(len(digits), func(i, j int) { digits[i], digits[j] = digits[j], digits[i] })
		}
	}
}

// WithMostConstrainedFirst moves the cell with the fewest remaining
// candidates to the front of the queue before every step.
func WithMostConstrainedFirst() Option {
	return func(s *Sudoku) {
		s.mrv = true
	}
}

// NewSudoku encodes the rules and the givens of board.
func NewSudoku(board Board, opts ...Option) (*Sudoku, error) {
	scope, err := sat.NewScope(variables(board))
	if err != nil {
		var ns sat.NotSatisfiable
		if errors.As(err, &ns) {
			return nil, fmt.Errorf("puzzle has no solution: %w", err)
		}
		return nil, err
	}
	s := &Sudoku{
		board:  board,
		scope:  scope,
		digits: make(map[Cell][]int),
	}
	for _, c := range s.Goals() {
		s.digits[c] = []int{0, 1, 2, 3, 4, 5, 6, 7, 8}
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func variables(board Board) []sat.Variable {
	// adapted from: https://github.com/go-air/gini/blob/871d828a26852598db2b88f436549634ba9533ff/sudoku_test.go#L10
	variables := make(map[sat.Identifier]*sat.SimpleVariable, 9*9*9)
	inorder := make([]sat.Variable, 0, 9*9*10)

	// create variables for all number in all positions of the board
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			for n := 0; n < 9; n++ {
				variable := sat.NewVariable(GetID(row, col, n))
				if board[row][col] == n+1 {
					variable.AddConstraint(sat.Mandatory())
				}
				variables[variable.Identifier()] = variable
				inorder = append(inorder, variable)
			}
		}
	}

	// every position on the board has exactly one number
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			ids := make([]sat.Identifier, 9)
			for n := 0; n < 9; n++ {
				ids[n] = GetID(row, col, n)
			}
			varID := sat.Identifier(fmt.Sprintf("%d-%d has a number", row, col))
			inorder = append(inorder, sat.NewVariable(varID, sat.Mandatory(), sat.Dependency(ids...), sat.AtMost(1, ids...)))
		}
	}

	// every row has unique numbers
	for n := 0; n < 9; n++ {
		for row := 0; row < 9; row++ {
			for colA := 0; colA < 9; colA++ {
				variable := variables[GetID(row, colA, n)]
				for colB := colA + 1; colB < 9; colB++ {
					variable.AddConstraint(sat.Conflict(GetID(row, colB, n)))
				}
			}
		}
	}

	// every column has unique numbers
	for n := 0; n < 9; n++ {
		for col := 0; col < 9; col++ {
			for rowA := 0; rowA < 9; rowA++ {
				variable := variables[GetID(rowA, col, n)]
				for rowB := rowA + 1; rowB < 9; rowB++ {
					variable.AddConstraint(sat.Conflict(GetID(rowB, col, n)))
				}
			}
		}
	}

	// every box rooted at x, y has unique numbers
	var box = func(x, y int) {
		offs := []struct{ x, y int }{{0, 0}, {0, 1}, {0, 2}, {1, 0}, {1, 1}, {1, 2}, {2, 0}, {2, 1}, {2, 2}}
		for n := 0; n < 9; n++ {
			for i, offA := range offs {
				variable := variables[GetID(x+offA.x, y+offA.y, n)]
				for j := i + 1; j < len(offs); j++ {
					offB := offs[j]
					variable.AddConstraint(sat.Conflict(GetID(x+offB.x, y+offB.y, n)))
				}
			}
		}
	}
	for x := 0; x < 9; x += 3 {
		for y := 0; y < 9; y += 3 {
			box(x, y)
		}
	}

	return inorder
}

// Goals returns the empty cells in row-major order.
func (s *Sudoku) Goals() []Cell {
	var cells []Cell
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			if s.board[row][col] == 0 {
				cells = append(cells, Cell{Row: row, Col: col})
			}
		}
	}
	return cells
}

// MaxDepth is enough depth to fill every empty cell, with room for one
// reordering per cell.
func (s *Sudoku) MaxDepth() int {
	return 2*len(s.Goals()) + 1
}

// Config returns the search configuration for the puzzle.
func (s *Sudoku) Config(maxDepth int) backtrack.Config[Cell] {
	cfg := backtrack.Config[Cell]{
		MaxDepth:       maxDepth,
		FailAtMaxDepth: true,
		Assigned:       s.assigned,
		Trail:          s.scope,
	}
	if s.mrv {
		cfg.Proc = s.mostConstrainedFirst
	}
	return cfg
}

// Solve fills the board. A Sudoku can be solved once.
func (s *Sudoku) Solve(ctx context.Context, cfg backtrack.Config[Cell], label string, opts ...backtrack.Option) (Board, error) {
	if _, err := backtrack.Search(ctx, cfg, label, s.alternatives, s.Goals(), opts...); err != nil {
		return Board{}, err
	}
	solved := s.board
	for row := 0; row < 9; row++ {
		for col := 0; col < 9; col++ {
			if d, ok := s.digit(Cell{Row: row, Col: col}); ok {
				solved[row][col] = d + 1
			}
		}
	}
	return solved, nil
}

func (s *Sudoku) digit(c Cell) (int, bool) {
	for n := 0; n < 9; n++ {
		if s.scope.Selected(GetID(c.Row, c.Col, n)) {
			return n, true
		}
	}
	return 0, false
}

func (s *Sudoku) assigned(c Cell) bool {
	_, ok := s.digit(c)
	return ok
}

func (s *Sudoku) candidates(c Cell) int {
	n := 0
	for d := 0; d < 9; d++ {
		if !s.scope.Excluded(GetID(c.Row, c.Col, d)) {
			n++
		}
	}
	return n
}

func (s *Sudoku) alternatives(_ context.Context, c Cell) (iter.Seq[backtrack.Alternative[Cell]], error) {
	return func(yield func(backtrack.Alternative[Cell]) bool) {
		for _, d := range s.digits[c] {
			id := GetID(c.Row, c.Col, d)
			if s.scope.Excluded(id) {
				continue
			}
			place := func(context.Context) ([]Cell, error) {
				if err := s.scope.Guess(id); err != nil {
					return nil, fmt.Errorf("%d does not fit in %s: %w", d+1, c, err)
				}
				return nil, nil
			}
			if !yield(place) {
				return
			}
		}
	}, nil
}

// mostConstrainedFirst drops filled cells from the queue and moves the
// cell with the fewest candidates to its front.
func (s *Sudoku) mostConstrainedFirst(_ context.Context, _, current []Cell) ([]Cell, bool, error) {
	open := make([]Cell, 0, len(current))
	for _, c := range current {
		if !s.assigned(c) {
			open = append(open, c)
		}
	}
	best, fewest := 0, 10
	for i, c := range open {
		if n := s.candidates(c); n < fewest {
			best, fewest = i, n
		}
	}
	if best == 0 && len(open) == len(current) {
		return nil, false, nil
	}
	reordered := make([]Cell, 0, len(open))
	if len(open) > 0 {
		reordered = append(reordered, open[best])
		reordered = append(reordered, open[:best]...)
		reordered = append(reordered, open[best+1:]...)
	}
	return reordered, true, nil
}
