package turnplayer

import (
	"context"

	"github.com/domino14/c4solver/board"
)

// Player picks a column for the side to move in a position. It must not
// modify the position.
type Player interface {
	ChooseMove(ctx context.Context, p *board.Position) (int, error)
	Name() string
}
