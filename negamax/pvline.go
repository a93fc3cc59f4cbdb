package negamax

import (
	"context"
	"fmt"
	"strings"

	"github.com/domino14/c4solver/board"
)

// PVLine is a line of best play for both sides, as columns.
type PVLine struct {
	Moves []int
	score int
}

// Clear the principal variation line.
func (pvLine *PVLine) Clear() {
	pvLine.Moves = nil
}

// Update the principal variation line with a new best move,
// and a new line of best play after the best move.
func (pvLine *PVLine) Update(col int, newPVLine PVLine, score int) {
	pvLine.Clear()
	pvLine.Moves = append(pvLine.Moves, col)
	pvLine.Moves = append(pvLine.Moves, newPVLine.Moves...)
	pvLine.score = score
}

// GetPVMove returns the first move of the line, or -1 for an empty line.
func (pvLine *PVLine) GetPVMove() int {
	if len(pvLine.Moves) == 0 {
		return -1
	}
	return pvLine.Moves[0]
}

func (pvLine *PVLine) Score() int {
	return pvLine.score
}

// MoveString writes the line as 1-indexed column digits.
func (pvLine PVLine) MoveString() string {
	var sb strings.Builder
	for _, col := range pvLine.Moves {
		sb.WriteByte(byte('1' + col))
	}
	return sb.String()
}

// Convert the principal variation line to a string.
func (pvLine PVLine) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "PV; val %d\n", pvLine.score)
	for i, col := range pvLine.Moves {
		fmt.Fprintf(&sb, "%d: %d\n", i+1, col+1)
	}
	return sb.String()
}

func (pvLine PVLine) NLBString() string {
	// no line breaks
	return fmt.Sprintf("PV; val %d; %s", pvLine.score, pvLine.MoveString())
}

// PrincipalVariation solves p and each position along the best line until
// the game ends. With a depth limit or deadline the later moves are only as
// good as the search that picked them; the deadline covers the whole line.
func (s *Solver) PrincipalVariation(ctx context.Context, p *board.Position) (PVLine, error) {
	var line PVLine
	if p.IsOver() {
		return line, board.ErrGameOver
	}
	pos := p.Copy()
	err := s.principalVariation(ctx, pos, &line)
	return line, err
}

func (s *Solver) principalVariation(ctx context.Context, pos *board.Position, line *PVLine) error {
	if pos.IsOver() {
		line.Clear()
		return nil
	}
	col, score, err := s.Solve(ctx, pos)
	if err != nil {
		return err
	}
	pos.MakeMove(col)
	var child PVLine
	err = s.principalVariation(ctx, pos, &child)
	pos.UndoMove(col)
	if err != nil {
		return err
	}
	line.Update(col, child, score)
	return nil
}
