package negamax

import (
	"github.com/domino14/c4solver/board"
)

// Scores are from the point of view of the side to move: a win with the
// player's k-th-from-last disc is positive, larger for faster wins, a loss
// is the negation, a draw is 0.

// WinScore is the score of winning with the next move.
func WinScore(plies int) int {
	return (board.Size + 1 - plies) / 2
}

// LossScore is the score of a position where the opponent cannot be
// stopped from winning with their next move.
func LossScore(plies int) int {
	return -(board.Size - plies) / 2
}

// Negamax returns the score of p within the window (alpha, beta), fail-soft:
// a result <= alpha is an upper bound, >= beta a lower bound. The side to
// move must not have an immediate win. p is restored before returning.
func (s *Solver) Negamax(p *board.Position, alpha, beta int) int {
	s.nodes++
	plies := p.Plies()

	moves := p.SafeMoves()
	if moves.Len() == 0 {
		if p.ValidMoves().Len() == 0 {
			return 0
		}
		return LossScore(plies)
	}

	if plies >= board.Size-2 {
		return 0
	}

	if plies >= s.horizon {
		// depth-limited round; unknown counts as a draw
		return 0
	}

	// opponent cannot win next move
	min := -(board.Size - 2 - plies) / 2
	if alpha < min {
		alpha = min
		if alpha >= beta {
			return alpha
		}
	}

	// we cannot win next move
	max := (board.Size - 1 - plies) / 2
	if s.transpositionTableOptim {
		if bound, ok := s.ttable.lookup(p.Key()); ok {
			max = bound
		}
	}
	if beta > max {
		beta = max
		if alpha >= beta {
			return beta
		}
	}

	for i := 0; i < moves.Len(); i++ {
		col := moves.At(i)
		p.MakeMove(col)
		score := -s.Negamax(p, -beta, -alpha)
		p.UndoMove(col)
		if score >= beta {
			return score
		}
		if score > alpha {
			alpha = score
		}
	}

	if s.transpositionTableOptim {
		s.ttable.store(p.Key(), alpha)
	}
	return alpha
}

// NullWindow finds the exact score of p with a series of zero-width
// searches. Each probe halves the interval the score can lie in; the probe
// point leans toward 0 because most positions are close to a draw. Same
// precondition as Negamax.
func (s *Solver) NullWindow(p *board.Position) int {
	min := -(board.Size - p.Plies()) / 2
	max := (board.Size + 1 - p.Plies()) / 2
	for min < max {
		med := min + (max-min)/2
		if med <= 0 && min/2 < med {
			med = min / 2
		} else if med >= 0 && max/2 > med {
			med = max / 2
		}
		r := s.Negamax(p, med, med+1)
		if r <= med {
			max = r
		} else {
			min = r
		}
	}
	return min
}

// FullWindow searches p once with the widest possible window.
func (s *Solver) FullWindow(p *board.Position) int {
	return s.Negamax(p, -board.Size/2, board.Size/2)
}

// evaluate scores p with whichever driver is switched on.
func (s *Solver) evaluate(p *board.Position) int {
	if s.nullWindowOptim {
		return s.NullWindow(p)
	}
	return s.FullWindow(p)
}
