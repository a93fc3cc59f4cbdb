package negamax

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/book"
)

var (
	ErrNoSolution = errors.New("no solution found")
)

// ColumnScore is the value of dropping into one column, for the side that
// drops.
type ColumnScore struct {
	Column int
	Score  int
	Legal  bool
}

func (c ColumnScore) String() string {
	if !c.Legal {
		return fmt.Sprintf("%d: -", c.Column+1)
	}
	return fmt.Sprintf("%d: %+d", c.Column+1, c.Score)
}

// Solver computes exact game values. A Solver owns its transposition table
// and is not safe for concurrent use; run one Solver per goroutine.
type Solver struct {
	ttable *TranspositionTable
	book   *book.Book

	transpositionTableOptim bool
	nullWindowOptim         bool
	bookOptim               bool

	// maxDepth > 0 limits the search to that many plies past the root.
	maxDepth int
	// horizon is the absolute ply at which Negamax stops; board.Size for an
	// exact search.
	horizon int
	nodes   uint64

	lastDepth int
}

// Init initializes the solver. tt may be nil, in which case a table of the
// default size is allocated; b may be nil.
func (s *Solver) Init(tt *TranspositionTable, b *book.Book) {
	if tt == nil {
		tt = NewTranspositionTable(DefaultTableSize)
	}
	s.ttable = tt
	s.book = b
	s.transpositionTableOptim = true
	s.nullWindowOptim = true
	s.bookOptim = b != nil
	s.horizon = board.Size
}

func (s *Solver) SetTranspositionTableOptim(tt bool) {
	s.transpositionTableOptim = tt
}

func (s *Solver) SetNullWindowOptim(nw bool) {
	s.nullWindowOptim = nw
}

func (s *Solver) SetBookOptim(b bool) {
	s.bookOptim = b && s.book != nil
}

// SetMaxDepth limits searches to depth plies past the root. 0 means exact.
func (s *Solver) SetMaxDepth(depth int) {
	if depth < 0 {
		depth = 0
	}
	s.maxDepth = depth
}

func (s *Solver) SetBook(b *book.Book) {
	s.book = b
	s.bookOptim = b != nil
}

func (s *Solver) Book() *book.Book {
	return s.book
}

func (s *Solver) TranspositionTable() *TranspositionTable {
	return s.ttable
}

// Nodes is the number of positions visited since the last Reset.
func (s *Solver) Nodes() uint64 {
	return s.nodes
}

// LastDepth is the depth of the last completed round of the last Solve;
// board.Size means the result was exact.
func (s *Solver) LastDepth() int {
	return s.lastDepth
}

// Reset clears the table and node count.
func (s *Solver) Reset() {
	s.ttable.Reset()
	s.nodes = 0
}

// Score returns the exact score of p for the side to move. It resets the
// table first. p is not modified.
func (s *Solver) Score(p *board.Position) (int, error) {
	if p.IsOver() {
		return 0, board.ErrGameOver
	}
	s.Reset()
	s.horizon = board.Size
	return s.score(p.Copy()), nil
}

// WeakScore returns only the sign of the score: 1 if the side to move
// wins, -1 if it loses, 0 for a draw. It is much cheaper than Score.
func (s *Solver) WeakScore(p *board.Position) (int, error) {
	if p.IsOver() {
		return 0, board.ErrGameOver
	}
	s.Reset()
	s.horizon = board.Size
	if p.CanWinNext() {
		return 1, nil
	}
	if s.bookOptim {
		if v, ok := s.book.LookupPosition(p); ok {
			return sign(v), nil
		}
	}
	return sign(s.Negamax(p.Copy(), -1, 1)), nil
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func (s *Solver) score(p *board.Position) int {
	if p.CanWinNext() {
		return WinScore(p.Plies())
	}
	if s.bookOptim {
		if v, ok := s.book.LookupPosition(p); ok {
			return v
		}
	}
	return s.evaluate(p)
}

// childScore is the score of the position after col, from the opponent's
// point of view. The side to move must not be able to win with col.
func (s *Solver) childScore(p *board.Position, col int) int {
	p.MakeMove(col)
	defer p.UndoMove(col)
	if s.bookOptim {
		if v, ok := s.book.LookupPosition(p); ok {
			return v
		}
	}
	return s.evaluate(p)
}

// bestMove picks the column that leaves the opponent the lowest score.
// Ties go to the column earlier in board.MoveOrder.
func (s *Solver) bestMove(p *board.Position) (int, int) {
	safe := p.SafeMoves()
	best, bestScore := -1, 0
	for _, col := range board.MoveOrder {
		if !safe.Contains(col) {
			continue
		}
		v := -s.childScore(p, col)
		if best == -1 || v > bestScore {
			best, bestScore = col, v
		}
	}
	return best, bestScore
}

// Solve chooses a column for the side to move and returns it with its
// score. With a max depth or a context deadline it deepens iteratively and
// returns the result of the last completed round; the context is only
// checked between rounds.
func (s *Solver) Solve(ctx context.Context, p *board.Position) (int, int, error) {
	if p.IsOver() {
		return -1, 0, board.ErrGameOver
	}
	tstart := time.Now()
	p = p.Copy()
	s.nodes = 0

	defer func() {
		s.horizon = board.Size
	}()

	for _, col := range board.MoveOrder {
		if p.CanPlay(col) && p.WillWin(col) {
			s.lastDepth = board.Size
			log.Debug().Int("col", col).Msg("immediate-win")
			return col, WinScore(p.Plies()), nil
		}
	}

	if p.SafeMoves().Len() == 0 {
		s.lastDepth = board.Size
		col := p.ValidMoves().At(0)
		log.Debug().Int("col", col).Msg("no-safe-moves")
		return col, LossScore(p.Plies()), nil
	}

	_, hasDeadline := ctx.Deadline()
	iterative := s.maxDepth > 0 || hasDeadline
	start := board.Size - p.Plies()
	if iterative {
		start = 1
	}
	last := board.Size - p.Plies()
	if s.maxDepth > 0 && s.maxDepth < last {
		last = s.maxDepth
	}

	bestCol, bestScore := -1, 0
	for depth := start; depth <= last; depth++ {
		if bestCol != -1 && ctx.Err() != nil {
			log.Info().Int("depth", s.lastDepth).Msg("solve-stopped")
			break
		}
		s.ttable.Reset()
		s.horizon = p.Plies() + depth
		if iterative {
			log.Debug().Int("plies", depth).Msg("deepening-iteratively")
		}
		bestCol, bestScore = s.bestMove(p)
		s.lastDepth = depth
		log.Debug().Int("depth", depth).Int("col", bestCol).Int("score", bestScore).
			Uint64("nodes", s.nodes).Msg("best-val")
	}
	if s.lastDepth >= board.Size-p.Plies() {
		s.lastDepth = board.Size
	}
	if bestCol == -1 {
		return -1, 0, ErrNoSolution
	}

	log.Info().
		Int("col", bestCol).
		Int("score", bestScore).
		Int("depth", s.lastDepth).
		Uint64("nodes", s.nodes).
		Uint64("ttable-created", s.ttable.created).
		Uint64("ttable-lookups", s.ttable.lookups).
		Uint64("ttable-hits", s.ttable.hits).
		Uint64("ttable-t2collisions", s.ttable.t2collisions).
		Float64("time-elapsed-sec", time.Since(tstart).Seconds()).
		Msg("solve-returning")

	return bestCol, bestScore, nil
}

// Analyze scores every column for the side to move. Full columns are marked
// not legal. The context is checked between columns.
func (s *Solver) Analyze(ctx context.Context, p *board.Position) ([]ColumnScore, error) {
	if p.IsOver() {
		return nil, board.ErrGameOver
	}
	p = p.Copy()
	s.Reset()
	s.horizon = board.Size
	if s.maxDepth > 0 && p.Plies()+s.maxDepth < board.Size {
		s.horizon = p.Plies() + s.maxDepth
	}
	defer func() {
		s.horizon = board.Size
	}()

	safe := p.SafeMoves()
	scores := make([]ColumnScore, board.Width)
	for col := 0; col < board.Width; col++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		scores[col].Column = col
		if !p.CanPlay(col) {
			continue
		}
		scores[col].Legal = true
		switch {
		case p.WillWin(col):
			scores[col].Score = WinScore(p.Plies())
		case !safe.Contains(col):
			// the opponent wins right after
			scores[col].Score = -WinScore(p.Plies() + 1)
		default:
			scores[col].Score = -s.childScore(p, col)
		}
	}
	log.Debug().Interface("scores", scores).Uint64("nodes", s.nodes).Msg("analysis")
	return scores, nil
}
