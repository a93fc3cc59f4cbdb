package turnplayer

import (
	"errors"
	"strconv"
	"strings"

	"github.com/domino14/c4solver/board"
)

var ErrNothingToUndo = errors.New("no moves to undo")

// Game is a position plus the columns that led to it, so that moves can be
// taken back and the game written out as a move string.
type Game struct {
	pos     *board.Position
	history []int
}

func NewGame() *Game {
	return &Game{pos: board.NewPosition()}
}

// GameFromMoves replays a move string of 1-indexed columns.
func GameFromMoves(moves string) (*Game, error) {
	g := NewGame()
	for _, ch := range moves {
		col, err := ParseColumn(string(ch))
		if err != nil {
			return nil, err
		}
		if err := g.Play(col); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Position returns the current position. Callers must not modify it.
func (g *Game) Position() *board.Position {
	return g.pos
}

// Play drops a disc in col for the player on turn. Moves that end the game
// are allowed; moves after that are not.
func (g *Game) Play(col int) error {
	if err := g.pos.Play(col); err != nil {
		return err
	}
	g.history = append(g.history, col)
	return nil
}

func (g *Game) Undo() error {
	if len(g.history) == 0 {
		return ErrNothingToUndo
	}
	col := g.history[len(g.history)-1]
	g.history = g.history[:len(g.history)-1]
	g.pos.UndoMove(col)
	return nil
}

// MoveString returns the game so far as 1-indexed column digits.
func (g *Game) MoveString() string {
	var sb strings.Builder
	for _, col := range g.history {
		sb.WriteString(strconv.Itoa(col + 1))
	}
	return sb.String()
}

func (g *Game) History() []int {
	return g.history
}

func (g *Game) Playing() bool {
	return !g.pos.IsOver()
}

// PlayerOnTurn is 0 for the first player and 1 for the second.
func (g *Game) PlayerOnTurn() int {
	return g.pos.Plies() % 2
}

// Winner is the index of the player who made four in a row, or -1.
func (g *Game) Winner() int {
	if !g.pos.IsWon() {
		return -1
	}
	return (g.pos.Plies() - 1) % 2
}
