// Package board implements the Connect-Four bitboard: a position is two
// 64-bit words, and moves, undos and win detection are a handful of word
// operations each.
package board

import (
	"errors"
	"fmt"
	"math/bits"
)

/*
Bit layout. Each column is a lane of Height+1 bits; the top bit of every
lane is a guard that stays empty so shifts never carry into the next
column:

  6 13 20 27 34 41 48
  5 12 19 26 33 40 47
  4 11 18 25 32 39 46
  3 10 17 24 31 38 45
  2  9 16 23 30 37 44
  1  8 15 22 29 36 43
  0  7 14 21 28 35 42
*/

const (
	Width  = 7
	Height = 6
	Size   = Width * Height

	// MinScore and MaxScore bound the score of any position that is not
	// already decided: the earliest possible win is with a player's 4th disc.
	MinScore = -Size/2 + 3
	MaxScore = (Size+1)/2 - 3

	laneBits = Height + 1
)

var (
	ErrInvalidColumn    = errors.New("invalid column")
	ErrColumnFull       = errors.New("column is full")
	ErrInvalidCharacter = errors.New("invalid character in move string")
	ErrWinningMove      = errors.New("move string continues past a win")
	ErrGameOver         = errors.New("game is over")
)

// MoveOrder is the order in which columns are tried; center columns take
// part in more lines and cut off more often.
var MoveOrder = [Width]int{3, 2, 4, 1, 5, 0, 6}

var (
	bottomRow uint64
	boardMask uint64
)

func init() {
	for c := 0; c < Width; c++ {
		bottomRow |= bottomMask(c)
	}
	boardMask = bottomRow * ((1 << Height) - 1)
}

func bottomMask(col int) uint64 {
	return 1 << (col * laneBits)
}

func topMask(col int) uint64 {
	return 1 << (Height - 1 + col*laneBits)
}

// ColumnMask returns the playable cells of a column.
func ColumnMask(col int) uint64 {
	return ((1 << Height) - 1) << (col * laneBits)
}

// Position is a Connect-Four board. mine holds the discs of the side to
// move; it is flipped on every move, so the encoding is always relative to
// whoever is about to play.
type Position struct {
	mine     uint64
	occupied uint64
	plies    int
}

// NewPosition returns the empty board.
func NewPosition() *Position {
	return &Position{}
}

// FromMoves replays a move string of 1-indexed column digits from the
// empty board.
func FromMoves(moves string) (*Position, error) {
	p := NewPosition()
	for i, ch := range moves {
		if ch < '0' || ch > '9' {
			return nil, fmt.Errorf("%w: %q at index %d", ErrInvalidCharacter, ch, i)
		}
		col := int(ch-'0') - 1
		if col < 0 || col >= Width {
			return nil, fmt.Errorf("%w: %d at index %d", ErrInvalidColumn, col+1, i)
		}
		if !p.CanPlay(col) {
			return nil, fmt.Errorf("%w: %d at index %d", ErrColumnFull, col+1, i)
		}
		if p.WillWin(col) {
			return nil, fmt.Errorf("%w: %d at index %d", ErrWinningMove, col+1, i)
		}
		p.MakeMove(col)
	}
	return p, nil
}

// Copy returns an independent copy of the position.
func (p *Position) Copy() *Position {
	cp := *p
	return &cp
}

// Plies is the number of discs on the board.
func (p *Position) Plies() int {
	return p.plies
}

// Key identifies the position. Within each lane occupied is a contiguous run
// from the bottom and mine is a subset of it, so the sum is unique.
func (p *Position) Key() uint64 {
	return p.occupied + p.mine
}

// Mine returns the discs of the side to move.
func (p *Position) Mine() uint64 {
	return p.mine
}

// Occupied returns every filled cell.
func (p *Position) Occupied() uint64 {
	return p.occupied
}

// CanPlay reports whether col is on the board and not full.
func (p *Position) CanPlay(col int) bool {
	return col >= 0 && col < Width && p.occupied&topMask(col) == 0
}

// ValidMoves returns the non-full columns in center-first order.
func (p *Position) ValidMoves() MoveList {
	var ml MoveList
	for _, col := range MoveOrder {
		if p.occupied&topMask(col) == 0 {
			ml.add(col)
		}
	}
	return ml
}

// MakeMove drops a disc for the side to move. The column must be playable;
// this is not checked.
func (p *Position) MakeMove(col int) {
	p.mine ^= p.occupied
	p.occupied |= p.occupied + bottomMask(col)
	p.plies++
}

// UndoMove takes back the last move, which must have been made in col.
func (p *Position) UndoMove(col int) {
	p.plies--
	p.occupied ^= ((p.occupied & ColumnMask(col)) + bottomMask(col)) >> 1
	p.mine ^= p.occupied
}

// Play is the checked form of MakeMove, for callers applying moves that
// come from outside the search.
func (p *Position) Play(col int) error {
	if col < 0 || col >= Width {
		return fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	if p.IsOver() {
		return ErrGameOver
	}
	if !p.CanPlay(col) {
		return fmt.Errorf("%w: %d", ErrColumnFull, col)
	}
	p.MakeMove(col)
	return nil
}

// Possible returns the cells a disc can be dropped into right now.
func (p *Position) Possible() uint64 {
	return (p.occupied + bottomRow) & boardMask
}

// WillWin reports whether dropping in col completes four for the side to
// move.
func (p *Position) WillWin(col int) bool {
	return p.winningPositions()&p.Possible()&ColumnMask(col) != 0
}

// CanWinNext reports whether the side to move has any immediate win.
func (p *Position) CanWinNext() bool {
	return p.winningPositions()&p.Possible() != 0
}

// IsWon reports whether the player who just moved has four in a row.
func (p *Position) IsWon() bool {
	return alignment(p.mine ^ p.occupied)
}

// IsDraw reports a full board without a winner.
func (p *Position) IsDraw() bool {
	return p.plies == Size && !p.IsWon()
}

// IsOver reports whether no more moves may be made.
func (p *Position) IsOver() bool {
	return p.plies == Size || p.IsWon()
}

// SafeMoves returns the valid moves that do not hand the opponent an
// immediate win. It is empty when the opponent already has two live threats.
func (p *Position) SafeMoves() MoveList {
	var ml MoveList
	safe := p.safe()
	if safe == 0 {
		return ml
	}
	for _, col := range MoveOrder {
		moved := safe & ColumnMask(col)
		if moved == 0 {
			continue
		}
		ml.insert(col, p.moveScore(moved))
	}
	return ml
}

func (p *Position) safe() uint64 {
	possible := p.Possible()
	opponent := p.opponentWinningPositions()
	forced := possible & opponent
	if forced != 0 {
		if forced&(forced-1) != 0 {
			// two threats; nothing can stop both
			return 0
		}
		possible = forced
	}
	return possible & ^(opponent >> 1)
}

// moveScore counts the winning cells the mover would own after dropping
// into the cell moved.
func (p *Position) moveScore(moved uint64) int {
	return bits.OnesCount64(WinningPositions(p.mine|moved, p.occupied|moved))
}

func (p *Position) winningPositions() uint64 {
	return WinningPositions(p.mine, p.occupied)
}

func (p *Position) opponentWinningPositions() uint64 {
	return WinningPositions(p.mine^p.occupied, p.occupied)
}

// WinningPositions returns the empty cells that would complete a line of
// four for owned. Cells floating above the stacks are included; mask with
// Possible to keep only droppable ones.
func WinningPositions(owned, occupied uint64) uint64 {
	// vertical
	w := (owned << 1) & (owned << 2) & (owned << 3)

	// horizontal
	h := (owned << laneBits) & (owned << (2 * laneBits))
	w |= h & (owned << (3 * laneBits))
	w |= h & (owned >> laneBits)
	h >>= 3 * laneBits
	w |= h & (owned << laneBits)
	w |= h & (owned >> (3 * laneBits))

	// diagonal /
	d := (owned << (laneBits - 1)) & (owned << (2 * (laneBits - 1)))
	w |= d & (owned << (3 * (laneBits - 1)))
	w |= d & (owned >> (laneBits - 1))
	d >>= 3 * (laneBits - 1)
	w |= d & (owned << (laneBits - 1))
	w |= d & (owned >> (3 * (laneBits - 1)))

	// diagonal \
	d = (owned << (laneBits + 1)) & (owned << (2 * (laneBits + 1)))
	w |= d & (owned << (3 * (laneBits + 1)))
	w |= d & (owned >> (laneBits + 1))
	d >>= 3 * (laneBits + 1)
	w |= d & (owned << (laneBits + 1))
	w |= d & (owned >> (3 * (laneBits + 1)))

	return w & (boardMask ^ occupied)
}

func alignment(bb uint64) bool {
	for _, shift := range [4]uint{1, laneBits, laneBits - 1, laneBits + 1} {
		m := bb & (bb >> shift)
		if m&(m>>(2*shift)) != 0 {
			return true
		}
	}
	return false
}

// Mirror returns the left-right reflection of the position.
func (p *Position) Mirror() *Position {
	m := &Position{plies: p.plies}
	for c := 0; c < Width; c++ {
		shift := (Width - 1 - 2*c) * laneBits
		lane := ColumnMask(c)
		if shift >= 0 {
			m.mine |= (p.mine & lane) << shift
			m.occupied |= (p.occupied & lane) << shift
		} else {
			m.mine |= (p.mine & lane) >> -shift
			m.occupied |= (p.occupied & lane) >> -shift
		}
	}
	return m
}

// Equals compares two positions cell by cell.
func (p *Position) Equals(o *Position) bool {
	return p.mine == o.mine && p.occupied == o.occupied && p.plies == o.plies
}
