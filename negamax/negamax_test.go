package negamax

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"lukechampine.com/frand"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/book"
)

func TestMain(m *testing.M) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	os.Exit(m.Run())
}

const testTableSize = 100003

func newSolver(b *book.Book) *Solver {
	s := new(Solver)
	s.Init(NewTranspositionTable(testTableSize), b)
	return s
}

func newRNG(name string) *frand.RNG {
	seed := make([]byte, 32)
	copy(seed, name)
	return frand.NewCustom(seed, 1024, 12)
}

// lateOpenPositions returns n positions with the given number of discs where
// nobody has won yet. Games are played with random non-winning moves.
func lateOpenPositions(rng *frand.RNG, n, plies int) []*board.Position {
	var out []*board.Position
	for attempts := 0; len(out) < n && attempts < 100*n; attempts++ {
		p := board.NewPosition()
		for p.Plies() < plies {
			var cols []int
			valid := p.ValidMoves()
			for i := 0; i < valid.Len(); i++ {
				if !p.WillWin(valid.At(i)) {
					cols = append(cols, valid.At(i))
				}
			}
			if len(cols) == 0 {
				break
			}
			p.MakeMove(cols[rng.Intn(len(cols))])
		}
		if p.Plies() == plies {
			out = append(out, p)
		}
	}
	return out
}

// referenceScore is plain minimax with no pruning and no tables.
func referenceScore(p *board.Position) int {
	if p.CanWinNext() {
		return WinScore(p.Plies())
	}
	if p.Plies() == board.Size {
		return 0
	}
	best := -board.Size
	valid := p.ValidMoves()
	for i := 0; i < valid.Len(); i++ {
		col := valid.At(i)
		p.MakeMove(col)
		v := -referenceScore(p)
		p.UndoMove(col)
		if v > best {
			best = v
		}
	}
	return best
}

func TestScoreHelpers(t *testing.T) {
	is := is.New(t)
	is.Equal(WinScore(6), board.MaxScore)
	is.Equal(WinScore(7), board.MaxScore)
	is.Equal(WinScore(40), 1)
	is.Equal(LossScore(5), board.MinScore)
	is.Equal(LossScore(41), 0)
}

func TestScoreMatchesMinimax(t *testing.T) {
	positions := lateOpenPositions(newRNG("score-matches-minimax"), 40, 36)
	assert.NotEmpty(t, positions)
	s := newSolver(nil)
	for _, p := range positions {
		want := referenceScore(p.Copy())
		got, err := s.Score(p)
		assert.NoError(t, err)
		assert.Equal(t, want, got, "position key %d", p.Key())

		mirrored, err := s.Score(p.Mirror())
		assert.NoError(t, err)
		assert.Equal(t, want, mirrored, "mirror of position key %d", p.Key())
	}
}

func TestDriversAgree(t *testing.T) {
	positions := lateOpenPositions(newRNG("drivers-agree"), 40, 35)
	assert.NotEmpty(t, positions)
	s := newSolver(nil)
	for _, p := range positions {
		if p.CanWinNext() {
			continue
		}
		want := referenceScore(p.Copy())

		s.SetNullWindowOptim(true)
		s.SetTranspositionTableOptim(true)
		s.Reset()
		assert.Equal(t, want, s.NullWindow(p), "null window, key %d", p.Key())

		s.SetNullWindowOptim(false)
		s.Reset()
		assert.Equal(t, want, s.FullWindow(p), "full window, key %d", p.Key())

		s.SetTranspositionTableOptim(false)
		s.Reset()
		assert.Equal(t, want, s.FullWindow(p), "full window, no table, key %d", p.Key())

		s.SetNullWindowOptim(true)
		s.Reset()
		assert.Equal(t, want, s.NullWindow(p), "null window, no table, key %d", p.Key())
	}
}

func TestWeakScore(t *testing.T) {
	positions := lateOpenPositions(newRNG("weak"), 40, 34)
	s := newSolver(nil)
	for _, p := range positions {
		want := sign(referenceScore(p.Copy()))
		got, err := s.WeakScore(p)
		assert.NoError(t, err)
		assert.Equal(t, want, got, "key %d", p.Key())
	}
}

func TestNegamaxLeavesPositionUnchanged(t *testing.T) {
	is := is.New(t)
	positions := lateOpenPositions(newRNG("unchanged"), 10, 34)
	s := newSolver(nil)
	for _, p := range positions {
		if p.CanWinNext() {
			continue
		}
		before := p.Copy()
		s.NullWindow(p)
		is.True(p.Equals(before))
	}
}

func TestNegamaxFailSoft(t *testing.T) {
	positions := lateOpenPositions(newRNG("fail-soft"), 30, 36)
	s := newSolver(nil)
	for _, p := range positions {
		if p.CanWinNext() {
			continue
		}
		exact := referenceScore(p.Copy())
		for _, w := range [][2]int{{-1, 1}, {-3, -2}, {2, 3}, {0, 1}, {-1, 0}} {
			s.Reset()
			r := s.Negamax(p, w[0], w[1])
			switch {
			case r <= w[0]:
				assert.LessOrEqual(t, exact, r, "upper bound, window %v", w)
			case r >= w[1]:
				assert.GreaterOrEqual(t, exact, r, "lower bound, window %v", w)
			default:
				assert.Equal(t, exact, r, "window %v", w)
			}
		}
	}
}

func TestSolveMatchesMinimax(t *testing.T) {
	positions := lateOpenPositions(newRNG("solve-matches-minimax"), 30, 36)
	s := newSolver(nil)
	for _, p := range positions {
		want := referenceScore(p.Copy())
		col, score, err := s.Solve(context.Background(), p)
		assert.NoError(t, err)
		assert.Equal(t, want, score, "key %d", p.Key())
		assert.True(t, p.CanPlay(col))

		child := p.Copy()
		won := child.WillWin(col)
		child.MakeMove(col)
		if won {
			assert.Equal(t, WinScore(p.Plies()), score)
		} else {
			assert.Equal(t, -score, referenceScore(child), "col %d of key %d", col, p.Key())
		}
		assert.Equal(t, board.Size, s.LastDepth())
	}
}

func TestSolveImmediateWin(t *testing.T) {
	is := is.New(t)
	p, err := board.FromMoves("121212")
	is.NoErr(err)
	s := newSolver(nil)
	col, score, err := s.Solve(context.Background(), p)
	is.NoErr(err)
	is.Equal(col, 0)
	is.Equal(score, 18)
	is.Equal(s.Nodes(), uint64(0))

	v, err := s.Score(p)
	is.NoErr(err)
	is.Equal(v, 18)
}

func TestSolveForcedLoss(t *testing.T) {
	is := is.New(t)
	p, err := board.FromText(`
		.......
		.......
		.......
		.......
		.OO....
		.XXX...`)
	is.NoErr(err)
	s := newSolver(nil)
	col, score, err := s.Solve(context.Background(), p)
	is.NoErr(err)
	is.Equal(col, 3)
	is.Equal(score, board.MinScore)

	v, err := s.Score(p)
	is.NoErr(err)
	is.Equal(v, board.MinScore)
}

func TestSolveBlocksThreat(t *testing.T) {
	is := is.New(t)
	p, err := board.FromMoves("12121")
	is.NoErr(err)
	s := newSolver(nil)
	s.SetMaxDepth(4)
	col, _, err := s.Solve(context.Background(), p)
	is.NoErr(err)
	is.Equal(col, 0)
	is.Equal(s.LastDepth(), 4)
}

func TestSolveGameOver(t *testing.T) {
	is := is.New(t)
	p, err := board.FromMoves("121212")
	is.NoErr(err)
	p.MakeMove(0)
	s := newSolver(nil)
	_, _, err = s.Solve(context.Background(), p)
	is.Equal(err, board.ErrGameOver)
	_, err = s.Score(p)
	is.Equal(err, board.ErrGameOver)
	_, err = s.Analyze(context.Background(), p)
	is.Equal(err, board.ErrGameOver)
}

func TestSolveExpiredDeadline(t *testing.T) {
	is := is.New(t)
	p, err := board.FromMoves("4455")
	is.NoErr(err)
	s := newSolver(nil)
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	col, _, err := s.Solve(ctx, p)
	is.NoErr(err)
	is.True(p.SafeMoves().Contains(col))
	is.Equal(s.LastDepth(), 1)
}

func TestSolveWithBook(t *testing.T) {
	is := is.New(t)
	b, err := book.Read(strings.NewReader("1 2\n2 1\n3 0\n4 -1\n5 0\n6 1\n7 2\n"))
	is.NoErr(err)
	s := newSolver(b)
	col, score, err := s.Solve(context.Background(), board.NewPosition())
	is.NoErr(err)
	is.Equal(col, 3)
	is.Equal(score, 1)
	is.Equal(s.Nodes(), uint64(0))

	scores, err := s.Analyze(context.Background(), board.NewPosition())
	is.NoErr(err)
	got := make([]int, len(scores))
	for i, cs := range scores {
		is.True(cs.Legal)
		got[i] = cs.Score
	}
	is.Equal(got, []int{-2, -1, 0, 1, 0, -1, -2})
	is.Equal(scores[3].String(), "4: +1")
}

func TestAnalyzeMatchesMinimax(t *testing.T) {
	positions := lateOpenPositions(newRNG("analyze"), 15, 36)
	s := newSolver(nil)
	for _, p := range positions {
		scores, err := s.Analyze(context.Background(), p)
		assert.NoError(t, err)
		for col, cs := range scores {
			assert.Equal(t, p.CanPlay(col), cs.Legal)
			if !cs.Legal {
				assert.Equal(t, "-", strings.Fields(cs.String())[1])
				continue
			}
			child := p.Copy()
			want := WinScore(p.Plies())
			if !child.WillWin(col) {
				child.MakeMove(col)
				want = -referenceScore(child)
			}
			assert.Equal(t, want, cs.Score, "col %d of key %d", col, p.Key())
		}
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	is := is.New(t)
	p, err := board.FromMoves("4455")
	is.NoErr(err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = newSolver(nil).Analyze(ctx, p)
	is.Equal(err, context.Canceled)
}

func TestSolveOpening(t *testing.T) {
	if testing.Short() || os.Getenv("C4SOLVER_LONG_TESTS") == "" {
		t.Skip("set C4SOLVER_LONG_TESTS to run")
	}
	is := is.New(t)
	p, err := board.FromMoves("4")
	is.NoErr(err)
	s := new(Solver)
	s.Init(nil, nil)
	v, err := s.Score(p)
	is.NoErr(err)
	is.Equal(v, -1)
}
