package dimacs

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Dimacs holds the variables and clauses that make up a CNF problem
// described in DIMACS format
// see: https://logic.pdmi.ras.ru/~basolver/dimacs.html
type Dimacs struct {
	variables int
	clauses   [][]int
}

// Variables returns the number of variables declared in the header.
// Variables are numbered from 1.
func (d *Dimacs) Variables() int {
	return d.variables
}

// Clauses returns the clauses as lists of non-zero literals.
func (d *Dimacs) Clauses() [][]int {
	return d.clauses
}

var (
	commentLine = regexp.MustCompile(`^c(\s.*)?$`)
	headerLine  = regexp.MustCompile(`^p\s+cnf\s+\d+\s+\d+$`)
	clauseLine  = regexp.MustCompile(`^(-?\d+\s+)*0$`)
	whitespace  = regexp.MustCompile(`\s+`)
)

// NewDimacs creates a Dimacs struct with the values
// parsed from the DIMACS formatted stream afforded by dimacsReader
func NewDimacs(dimacsReader io.Reader) (*Dimacs, error) {
	reader := bufio.NewReader(dimacsReader)

	seen := map[int]struct{}{}
	numVariables := 0
	numClauses := 0
	var clauses [][]int

	for {
		line, err := reader.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("error reading dimacs data: %w", err)
		}
		done := err != nil
		line = strings.TrimSpace(line)

		switch {
		case line == "" || commentLine.MatchString(line):
		case headerLine.MatchString(line):
			if clauses != nil {
				return nil, fmt.Errorf("invalid statement: (%s). Only one header is allowed", line)
			}
			problem := whitespace.Split(line, -1)
			numVariables, _ = strconv.Atoi(problem[2])
			numClauses, _ = strconv.Atoi(problem[3])
			clauses = make([][]int, 0, numClauses)
		case clauseLine.MatchString(line):
			if clauses == nil {
				return nil, fmt.Errorf("invalid dimacs format: missing header 'p cnf <variables> <clauses>'")
			}
			terms := whitespace.Split(line, -1)
			clause, err := parseClause(terms[:len(terms)-1], numVariables)
			if err != nil {
				return nil, fmt.Errorf("invalid clause (%s): %w", line, err)
			}
			for _, lit := range clause {
				seen[abs(lit)] = struct{}{}
			}
			clauses = append(clauses, clause)
		default:
			return nil, fmt.Errorf("invalid dimacs command: %s", line)
		}

		if done {
			break
		}
	}

	if numVariables == 0 || numClauses == 0 || len(clauses) == 0 {
		return nil, fmt.Errorf("invalid format: no variables or clauses found")
	}
	if len(clauses) != numClauses {
		return nil, fmt.Errorf("invalid format: header declares %d clauses but %d were found", numClauses, len(clauses))
	}
	if len(seen) != numVariables {
		return nil, fmt.Errorf("invalid format: header declares %d variables but %d were used", numVariables, len(seen))
	}

	return &Dimacs{
		variables: numVariables,
		clauses:   clauses,
	}, nil
}

func parseClause(terms []string, numVariables int) ([]int, error) {
	if len(terms) == 0 {
		return nil, fmt.Errorf("empty clause")
	}
	clause := make([]int, 0, len(terms))
	for _, term := range terms {
		lit, err := strconv.Atoi(term)
		if err != nil {
			return nil, fmt.Errorf("%s is not a number", term)
		}
		if lit == 0 {
			return nil, fmt.Errorf("0 is not a valid variable")
		}
		if abs(lit) > numVariables {
			return nil, fmt.Errorf("%s is not a valid variable", term)
		}
		clause = append(clause, lit)
	}
	return clause, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
