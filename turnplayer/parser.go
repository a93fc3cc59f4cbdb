package turnplayer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/domino14/c4solver/board"
)

const (
	SolverPlayerKind = "solver"
	RandomPlayerKind = "random"
)

// ParseColumn turns a 1-indexed column as typed by a person into a column
// index.
func ParseColumn(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 || n > board.Width {
		return 0, fmt.Errorf("%w: %q (want 1-%d)", board.ErrInvalidColumn, s, board.Width)
	}
	return n - 1, nil
}

func ParsePlayerKind(s string) (string, error) {
	switch strings.ToLower(s) {
	case SolverPlayerKind, "":
		return SolverPlayerKind, nil
	case RandomPlayerKind:
		return RandomPlayerKind, nil
	}
	return "", fmt.Errorf("%v is not a supported player; valid options: solver, random", s)
}
