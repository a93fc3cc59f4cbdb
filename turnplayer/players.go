package turnplayer

import (
	"context"
	"errors"
	"time"

	"lukechampine.com/frand"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/negamax"
)

var ErrScriptExhausted = errors.New("scripted player has no moves left")

// SolverPlayer plays the solver's best move.
type SolverPlayer struct {
	solver  *negamax.Solver
	maxTime time.Duration
}

// NewSolverPlayer wraps s. A positive maxTime bounds every move; the solver
// then returns its deepest completed result.
func NewSolverPlayer(s *negamax.Solver, maxTime time.Duration) *SolverPlayer {
	return &SolverPlayer{solver: s, maxTime: maxTime}
}

func (sp *SolverPlayer) ChooseMove(ctx context.Context, p *board.Position) (int, error) {
	if sp.maxTime > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, sp.maxTime)
		defer cancel()
	}
	col, _, err := sp.solver.Solve(ctx, p)
	return col, err
}

func (sp *SolverPlayer) Name() string {
	return SolverPlayerKind
}

func (sp *SolverPlayer) Solver() *negamax.Solver {
	return sp.solver
}

// RandomPlayer picks uniformly among the safe moves, or among all valid
// moves when there is no safe one.
type RandomPlayer struct {
	rng *frand.RNG
}

// NewRandomPlayer uses rng, or a fresh unseeded generator if rng is nil.
// An RNG must not be shared between goroutines.
func NewRandomPlayer(rng *frand.RNG) *RandomPlayer {
	if rng == nil {
		rng = frand.New()
	}
	return &RandomPlayer{rng: rng}
}

func (rp *RandomPlayer) ChooseMove(ctx context.Context, p *board.Position) (int, error) {
	if p.IsOver() {
		return -1, board.ErrGameOver
	}
	moves := p.SafeMoves()
	if moves.Len() == 0 {
		moves = p.ValidMoves()
	}
	return moves.At(rp.rng.Intn(moves.Len())), nil
}

// SetRNG replaces the generator; nil means a fresh unseeded one.
func (rp *RandomPlayer) SetRNG(rng *frand.RNG) {
	if rng == nil {
		rng = frand.New()
	}
	rp.rng = rng
}

func (rp *RandomPlayer) Name() string {
	return RandomPlayerKind
}

// ScriptedPlayer replays a fixed list of columns.
type ScriptedPlayer struct {
	cols []int
	next int
}

func NewScriptedPlayer(cols ...int) *ScriptedPlayer {
	return &ScriptedPlayer{cols: cols}
}

func (sp *ScriptedPlayer) ChooseMove(ctx context.Context, p *board.Position) (int, error) {
	if sp.next >= len(sp.cols) {
		return -1, ErrScriptExhausted
	}
	col := sp.cols[sp.next]
	sp.next++
	return col, nil
}

func (sp *ScriptedPlayer) Name() string {
	return "scripted"
}
