package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"
	"lukechampine.com/frand"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/negamax"
)

func TestEnumerate(t *testing.T) {
	is := is.New(t)
	is.Equal(len(enumerate(0)), 1)
	is.Equal(enumerate(0)[0].moves, "")

	one := enumerate(1)
	is.Equal(len(one), 5)
	is.Equal(one[4].moves, "4")

	// 49 ordered pairs at two plies; only 44 is its own mirror image.
	is.Equal(len(enumerate(2)), 1+4+25)

	for _, e := range enumerate(3) {
		is.True(e.pos.Plies() <= 3)
		p, err := board.FromMoves(e.moves)
		is.NoErr(err)
		is.True(p.Equals(e.pos))
	}
}

func TestBookCoversShallowPositions(t *testing.T) {
	is := is.New(t)
	var buf bytes.Buffer
	is.NoErr(writeBook(&buf, enumerate(3)))
	b, err := book.Read(&buf)
	is.NoErr(err)
	is.Equal(b.Depth(), 3)

	for _, moves := range []string{"", "4", "44", "43", "1", "7", "443", "716"} {
		p, err := board.FromMoves(moves)
		is.NoErr(err)
		_, ok := b.LookupPosition(p)
		is.True(ok) // every position within the book depth
	}
	p, err := board.FromMoves("4444")
	is.NoErr(err)
	_, ok := b.LookupPosition(p)
	is.True(!ok)
}

// midgame plays random non-winning moves from the empty board until plies
// discs are down.
func midgame(t *testing.T, seedName string, plies int) (*board.Position, string) {
	seed := make([]byte, 32)
	copy(seed, seedName)
	rng := frand.NewCustom(seed, 1024, 12)
	for attempt := 0; attempt < 100; attempt++ {
		p := board.NewPosition()
		moves := ""
		for p.Plies() < plies {
			var cols []int
			for col := 0; col < board.Width; col++ {
				if p.CanPlay(col) && !p.WillWin(col) {
					cols = append(cols, col)
				}
			}
			if len(cols) == 0 {
				break
			}
			col := cols[rng.Intn(len(cols))]
			p.MakeMove(col)
			moves += strconv.Itoa(col + 1)
		}
		if p.Plies() == plies {
			return p, moves
		}
	}
	t.Fatal("no midgame position found")
	return nil, ""
}

func TestBuildScoresEveryEntry(t *testing.T) {
	is := is.New(t)
	root, rootMoves := midgame(t, "build-scores", 30)
	entries, err := build(context.Background(), root, rootMoves, 32, 2, 100003)
	is.NoErr(err)
	is.True(len(entries) > 1)
	is.Equal(entries[0].moves, rootMoves)

	s := new(negamax.Solver)
	s.Init(negamax.NewTranspositionTable(100003), nil)
	for _, e := range entries {
		want, err := s.Score(e.pos)
		is.NoErr(err)
		assert.Equal(t, want, e.score, "moves %s", e.moves)
	}
}

func TestSolveWithGeneratedBook(t *testing.T) {
	is := is.New(t)
	root, rootMoves := midgame(t, "solve-with-book", 28)
	entries, err := build(context.Background(), root, rootMoves, 30, 2, 100003)
	is.NoErr(err)

	path := filepath.Join(t.TempDir(), "mid.book")
	f, err := os.Create(path)
	is.NoErr(err)
	is.NoErr(writeBook(f, entries))
	is.NoErr(f.Close())

	b, err := book.Load(path)
	is.NoErr(err)
	is.Equal(b.Depth(), 30)

	plain := new(negamax.Solver)
	plain.Init(negamax.NewTranspositionTable(100003), nil)
	wantCol, wantScore, err := plain.Solve(context.Background(), root)
	is.NoErr(err)

	booked := new(negamax.Solver)
	booked.Init(negamax.NewTranspositionTable(1009), b)
	col, score, err := booked.Solve(context.Background(), root)
	is.NoErr(err)
	is.Equal(col, wantCol)
	is.Equal(score, wantScore)

	v, ok := b.LookupPosition(root)
	is.True(ok)
	is.Equal(v, wantScore)

	var out bytes.Buffer
	rng := frand.NewCustom(make([]byte, 32), 1024, 12)
	is.NoErr(check(context.Background(), &out, path, 5, 1, rng))
	assert.Contains(t, out.String(), " disagree\n")
	assert.Contains(t, out.String(), "Correctness: ")
}

func TestSolveAndWrite(t *testing.T) {
	is := is.New(t)
	var entries []*entry
	for _, ms := range []string{"121212", "22334", "112233"} {
		p, err := board.FromMoves(ms)
		is.NoErr(err)
		entries = append(entries, &entry{moves: ms, pos: p})
	}
	is.NoErr(solveAll(context.Background(), entries, 2, 1009))
	is.Equal(entries[0].score, 18)
	is.Equal(entries[1].score, -18)
	is.Equal(entries[2].score, 18)

	var buf bytes.Buffer
	is.NoErr(writeBook(&buf, entries))
	is.Equal(buf.String(), "121212 18\n22334 -18\n112233 18\n")

	b, err := book.Read(&buf)
	is.NoErr(err)
	is.Equal(b.Len(), 3)
	is.Equal(b.Depth(), 6)
}

func TestCheck(t *testing.T) {
	is := is.New(t)
	dir := t.TempDir()
	rng := frand.NewCustom(make([]byte, 32), 1024, 12)

	good := filepath.Join(dir, "good.book")
	is.NoErr(os.WriteFile(good, []byte("121212 18\n22334 -18\n112233 18\n"), 0644))
	var out bytes.Buffer
	is.NoErr(check(context.Background(), &out, good, 10, 1, rng))
	assert.Contains(t, out.String(), "3 entries, depth 6")
	// 121212 and 112233 are immediate wins; 22334 has no children in the
	// book and is re-solved.
	assert.Contains(t, out.String(), "2 entries agree with their children, 0 disagree")
	assert.Contains(t, out.String(), "Correctness: 1/1")

	bad := filepath.Join(dir, "bad.book")
	is.NoErr(os.WriteFile(bad, []byte("121212 18\n22334 3\n"), 0644))
	out.Reset()
	is.True(check(context.Background(), &out, bad, 10, 1, rng) != nil)

	// A shallow entry that contradicts its children.
	inconsistent := filepath.Join(dir, "inconsistent.book")
	var buf bytes.Buffer
	entries := enumerate(1)
	for _, e := range entries {
		e.score = 0
	}
	entries[0].score = 5
	is.NoErr(writeBook(&buf, entries))
	is.NoErr(os.WriteFile(inconsistent, buf.Bytes(), 0644))
	out.Reset()
	is.True(check(context.Background(), &out, inconsistent, 0, 1, rng) != nil)
	assert.Contains(t, out.String(), "0 entries agree with their children, 1 disagree")
}
