package board

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrBadGridLength = errors.New("grid must have exactly 42 cells")
	ErrFloatingDisc  = errors.New("disc with an empty cell beneath it")
	ErrDiscCount     = errors.New("disc counts do not alternate")
)

const (
	firstPlayerDisc  = 'X'
	secondPlayerDisc = 'O'
	emptyCell        = '.'
)

// cellOwners returns the discs of the first and second player, regardless
// of who is on turn.
func (p *Position) cellOwners() (first, second uint64) {
	opp := p.mine ^ p.occupied
	if p.plies%2 == 0 {
		return p.mine, opp
	}
	return opp, p.mine
}

// ToDisplayText renders the board with the top row first. X moved first.
func (p *Position) ToDisplayText() string {
	first, second := p.cellOwners()
	var sb strings.Builder
	sb.WriteString("\n")
	for row := Height - 1; row >= 0; row-- {
		sb.WriteString(" |")
		for col := 0; col < Width; col++ {
			cell := uint64(1) << (col*laneBits + row)
			switch {
			case first&cell != 0:
				sb.WriteByte(firstPlayerDisc)
			case second&cell != 0:
				sb.WriteByte(secondPlayerDisc)
			default:
				sb.WriteByte(emptyCell)
			}
			sb.WriteByte(' ')
		}
		sb.WriteString("|\n")
	}
	sb.WriteString(" " + strings.Repeat("-", Width*2+2) + "\n")
	sb.WriteString("  ")
	for col := 0; col < Width; col++ {
		sb.WriteString(fmt.Sprintf("%d ", col+1))
	}
	sb.WriteString("\n")
	switch {
	case p.IsWon():
		sb.WriteString(fmt.Sprintf("%c wins\n", p.lastMover()))
	case p.IsDraw():
		sb.WriteString("draw\n")
	default:
		sb.WriteString(fmt.Sprintf("%c to move (ply %d)\n", p.toMove(), p.plies))
	}
	return sb.String()
}

func (p *Position) toMove() byte {
	if p.plies%2 == 0 {
		return firstPlayerDisc
	}
	return secondPlayerDisc
}

func (p *Position) lastMover() byte {
	if p.plies%2 == 0 {
		return secondPlayerDisc
	}
	return firstPlayerDisc
}

// FromText builds a position from a grid of 42 cells, top row first, using
// '.', 'X' and 'O' (case-insensitive). Any other character is ignored. X is
// the first player; the side to move follows from the disc counts.
func FromText(grid string) (*Position, error) {
	cells := make([]byte, 0, Size)
	for _, ch := range strings.ToUpper(grid) {
		switch ch {
		case emptyCell, firstPlayerDisc, secondPlayerDisc:
			cells = append(cells, byte(ch))
		}
	}
	if len(cells) != Size {
		return nil, fmt.Errorf("%w: got %d", ErrBadGridLength, len(cells))
	}
	var first, occupied uint64
	nfirst, nsecond := 0, 0
	for i, ch := range cells {
		row := Height - 1 - i/Width
		col := i % Width
		cell := uint64(1) << (col*laneBits + row)
		switch ch {
		case firstPlayerDisc:
			first |= cell
			occupied |= cell
			nfirst++
		case secondPlayerDisc:
			occupied |= cell
			nsecond++
		}
	}
	for col := 0; col < Width; col++ {
		lane := (occupied & ColumnMask(col)) >> (col * laneBits)
		if lane&(lane+1) != 0 {
			return nil, fmt.Errorf("%w: column %d", ErrFloatingDisc, col+1)
		}
	}
	if nfirst != nsecond && nfirst != nsecond+1 {
		return nil, fmt.Errorf("%w: %d X, %d O", ErrDiscCount, nfirst, nsecond)
	}
	p := &Position{occupied: occupied, plies: nfirst + nsecond}
	if p.plies%2 == 0 {
		p.mine = first
	} else {
		p.mine = occupied ^ first
	}
	return p, nil
}
