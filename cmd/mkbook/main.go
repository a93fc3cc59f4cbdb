// mkbook builds an opening book holding every position reachable within a
// fixed number of plies, or checks an existing one.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/domino14/c4solver/bench"
	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/negamax"
)

type entry struct {
	moves string
	pos   *board.Position
	score int
}

// enumerate returns every position reachable in at most depth plies
// without anyone winning, the empty board included. Transpositions and
// mirror images are listed once, under the first move string that reaches
// them.
func enumerate(depth int) []*entry {
	return enumerateFrom(board.NewPosition(), "", depth)
}

// enumerateFrom is enumerate for the positions below root, which was
// reached by rootMoves.
func enumerateFrom(root *board.Position, rootMoves string, depth int) []*entry {
	seen := map[uint64]bool{}
	var entries []*entry
	var walk func(p *board.Position, moves string)
	walk = func(p *board.Position, moves string) {
		if seen[p.Key()] || seen[p.Mirror().Key()] {
			return
		}
		seen[p.Key()] = true
		entries = append(entries, &entry{moves: moves, pos: p.Copy()})
		if p.Plies() == depth {
			return
		}
		for col := 0; col < board.Width; col++ {
			if !p.CanPlay(col) || p.WillWin(col) {
				continue
			}
			p.MakeMove(col)
			walk(p, moves+strconv.Itoa(col+1))
			p.UndoMove(col)
		}
	}
	if root.Plies() <= depth {
		walk(root.Copy(), rootMoves)
	}
	return entries
}

// backedUpScore scores p from the scores of its children. An immediate win
// needs no children.
func backedUpScore(p *board.Position, lookup func(*board.Position) (int, bool)) (int, bool) {
	if p.CanWinNext() {
		return negamax.WinScore(p.Plies()), true
	}
	best, found := 0, false
	for col := 0; col < board.Width; col++ {
		if !p.CanPlay(col) {
			continue
		}
		p.MakeMove(col)
		v, ok := lookup(p)
		p.UndoMove(col)
		if !ok {
			return 0, false
		}
		if !found || -v > best {
			best, found = -v, true
		}
	}
	return best, found
}

// build enumerates the positions below root, solves the deepest ones and
// scores the rest from their children.
func build(ctx context.Context, root *board.Position, rootMoves string, depth, threads, ttSize int) ([]*entry, error) {
	entries := enumerateFrom(root, rootMoves, depth)
	log.Info().Int("depth", depth).Int("positions", len(entries)).Msg("positions-enumerated")

	var leaves []*entry
	for _, e := range entries {
		if e.pos.Plies() == depth {
			leaves = append(leaves, e)
		}
	}
	if err := solveAll(ctx, leaves, threads, ttSize); err != nil {
		return nil, err
	}

	scores := make(map[uint64]int, len(entries))
	for _, e := range leaves {
		scores[e.pos.Key()] = e.score
	}
	lookup := func(p *board.Position) (int, bool) {
		if v, ok := scores[p.Key()]; ok {
			return v, true
		}
		v, ok := scores[p.Mirror().Key()]
		return v, ok
	}
	for ply := depth - 1; ply >= root.Plies(); ply-- {
		for _, e := range entries {
			if e.pos.Plies() != ply {
				continue
			}
			v, ok := backedUpScore(e.pos, lookup)
			if !ok {
				return nil, fmt.Errorf("position %q has an unscored child", e.moves)
			}
			e.score = v
			scores[e.pos.Key()] = v
		}
	}
	return entries, nil
}

func solveAll(ctx context.Context, entries []*entry, threads, ttSize int) error {
	jobs := make(chan *entry)
	var done atomic.Int64
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for _, e := range entries {
			select {
			case jobs <- e:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for t := 0; t < max(threads, 1); t++ {
		g.Go(func() error {
			s := new(negamax.Solver)
			s.Init(negamax.NewTranspositionTable(ttSize), nil)
			for e := range jobs {
				score, err := s.Score(e.pos)
				if err != nil {
					return fmt.Errorf("solving %v: %w", e.moves, err)
				}
				e.score = score
				if n := done.Add(1); n%1000 == 0 {
					log.Info().Int64("solved", n).Int("total", len(entries)).
						Float64("time-elapsed-sec", time.Since(start).Seconds()).
						Msg("book-progress")
				}
			}
			return nil
		})
	}
	return g.Wait()
}

func writeBook(w io.Writer, entries []*entry) error {
	bw := book.NewWriter(w)
	for _, e := range entries {
		if err := bw.Write(e.moves, e.score); err != nil {
			return err
		}
	}
	log.Info().Int("entries", bw.Count()).Msg("book-written")
	return bw.Flush()
}

// check verifies a book. Entries whose children are all in the book must
// agree with them; a random sample of the other entries is re-solved
// without the book.
func check(ctx context.Context, w io.Writer, path string, samples, threads int, rng *frand.RNG) error {
	b, err := book.Load(path)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%v: %d entries, depth %d, digest %016x\n", path, b.Len(), b.Depth(), b.Digest())
	cases, err := bench.LoadSuite(path)
	if err != nil {
		return err
	}
	var unbacked []bench.Case
	consistent, inconsistent := 0, 0
	for _, c := range cases {
		v, ok := backedUpScore(c.Pos, b.LookupPosition)
		switch {
		case !ok:
			unbacked = append(unbacked, c)
		case v != c.Score:
			inconsistent++
			log.Warn().Str("moves", c.Moves).Int("book", c.Score).Int("children", v).
				Msg("book-entry-disagrees-with-children")
		default:
			consistent++
		}
	}
	fmt.Fprintf(w, "%d entries agree with their children, %d disagree\n", consistent, inconsistent)

	rng.Shuffle(len(unbacked), func(i, j int) { unbacked[i], unbacked[j] = unbacked[j], unbacked[i] })
	unbacked = unbacked[:min(samples, len(unbacked))]
	rep, err := bench.Run(ctx, path, unbacked, bench.Options{Threads: threads, NullWindow: true})
	if err != nil {
		return err
	}
	fmt.Fprint(w, rep.String())
	if len(rep.Mismatches) > 0 || inconsistent > 0 {
		return fmt.Errorf("%d of %d sampled entries are wrong, %d entries disagree with their children",
			len(rep.Mismatches), len(unbacked), inconsistent)
	}
	return nil
}

func main() {
	depth := pflag.Int("depth", 8, "deepest position in the book, in plies")
	out := pflag.String("out", "", "file to write the book to; stdout if empty")
	threads := pflag.Int("threads", runtime.NumCPU(), "number of solving threads")
	ttSize := pflag.Int("tt-size", 0, "transposition table entries per thread; 0 for the default")
	checkPath := pflag.String("check", "", "verify a sample of this book's entries and exit")
	samples := pflag.Int("samples", 100, "number of entries to verify with -check")
	pflag.Parse()

	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *checkPath != "" {
		if err := check(ctx, os.Stdout, *checkPath, *samples, *threads, frand.New()); err != nil {
			log.Fatal().Err(err).Msg("check-failed")
		}
		return
	}
	if *depth < 0 || *depth >= board.Size {
		log.Fatal().Int("depth", *depth).Msg("depth out of range")
	}

	entries, err := build(ctx, board.NewPosition(), "", *depth, *threads, *ttSize)
	if err != nil {
		log.Fatal().Err(err).Msg("solve-failed")
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal().Err(err).Msg("")
		}
		defer f.Close()
		w = f
	}
	if err := writeBook(w, entries); err != nil {
		log.Fatal().Err(err).Msg("write-failed")
	}
}
