// Package bench runs the solver over suites of positions with known scores
// and reports correctness and timing.
package bench

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/negamax"
	"github.com/domino14/c4solver/stats"
)

var ErrMalformedCase = errors.New("malformed test case")

// Case is a position with its expected score.
type Case struct {
	Moves string
	Pos   *board.Position
	Score int
}

// LoadSuite reads a suite file.
func LoadSuite(path string) ([]Case, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	cases, err := ReadSuite(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cases, nil
}

// ReadSuite parses lines of "<move-string> <score>". Blank lines and lines
// starting with # are skipped.
func ReadSuite(r io.Reader) ([]Case, error) {
	var cases []Case
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		moves, scoreStr, ok := book.SplitLine(line)
		if !ok {
			return nil, fmt.Errorf("%w %d: %q", ErrMalformedCase, lineNo, trimmed)
		}
		pos, err := board.FromMoves(moves)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformedCase, lineNo, err)
		}
		score, err := strconv.Atoi(scoreStr)
		if err != nil {
			return nil, fmt.Errorf("%w %d: %w", ErrMalformedCase, lineNo, err)
		}
		cases = append(cases, Case{Moves: moves, Pos: pos, Score: score})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return cases, nil
}

type Options struct {
	Threads int
	TTSize  int
	// Weak compares only the sign of the score.
	Weak       bool
	NullWindow bool
	Book       *book.Book
}

// Result is the outcome of one case.
type Result struct {
	Case    Case
	Got     int
	Elapsed time.Duration
	Nodes   uint64
}

func (r Result) Correct(weak bool) bool {
	if weak {
		return sign(r.Got) == sign(r.Case.Score)
	}
	return r.Got == r.Case.Score
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

// Report summarizes a run.
type Report struct {
	Name       string
	Weak       bool
	Results    []Result
	Correct    int
	MeanTime   float64
	StdTime    float64
	Nodes      stats.Statistic
	NodeRate   stats.Statistic
	Mismatches []Result
}

// Run solves every case, opts.Threads at a time. Each worker has its own
// solver and table. The context is checked between cases.
func Run(ctx context.Context, name string, cases []Case, opts Options) (*Report, error) {
	threads := max(opts.Threads, 1)
	results := make([]Result, len(cases))
	jobs := make(chan int)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := range cases {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < threads; w++ {
		g.Go(func() error {
			s := new(negamax.Solver)
			s.Init(negamax.NewTranspositionTable(opts.TTSize), opts.Book)
			s.SetNullWindowOptim(opts.NullWindow)
			for i := range jobs {
				if err := gctx.Err(); err != nil {
					return err
				}
				c := cases[i]
				t := time.Now()
				var got int
				var err error
				if opts.Weak {
					got, err = s.WeakScore(c.Pos)
				} else {
					got, err = s.Score(c.Pos)
				}
				if err != nil {
					return fmt.Errorf("case %s: %w", c.Moves, err)
				}
				results[i] = Result{Case: c, Got: got, Elapsed: time.Since(t), Nodes: s.Nodes()}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return newReport(name, opts.Weak, results), nil
}

func newReport(name string, weak bool, results []Result) *Report {
	rep := &Report{Name: name, Weak: weak, Results: results}
	times := make([]float64, len(results))
	for i, r := range results {
		times[i] = r.Elapsed.Seconds()
		rep.Nodes.Push(float64(r.Nodes))
		if secs := r.Elapsed.Seconds(); secs > 0 {
			rep.NodeRate.Push(float64(r.Nodes) / secs)
		}
		if r.Correct(weak) {
			rep.Correct++
		} else {
			rep.Mismatches = append(rep.Mismatches, r)
			log.Warn().Str("moves", r.Case.Moves).Int("expected", r.Case.Score).
				Int("got", r.Got).Msg("score-mismatch")
		}
	}
	if len(times) > 0 {
		rep.MeanTime, rep.StdTime = stat.MeanStdDev(times, nil)
	}
	log.Info().Str("suite", name).Int("total", len(results)).Int("correct", rep.Correct).
		Float64("mean-time-sec", rep.MeanTime).Msg("bench-finished")
	return rep
}

func (r *Report) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Statistics for %s\n", r.Name)
	fmt.Fprintf(&sb, "Correctness: %d/%d\n", r.Correct, len(r.Results))
	fmt.Fprintf(&sb, "Mean search time: %.6fs\n", r.MeanTime)
	fmt.Fprintf(&sb, "Standard deviation: %.6fs\n", r.StdTime)
	fmt.Fprintf(&sb, "Mean nodes: %.1f (max %.0f)\n", r.Nodes.Mean(), r.Nodes.Max())
	if r.NodeRate.Iterations() > 0 {
		lo, hi := r.NodeRate.Interval(95)
		fmt.Fprintf(&sb, "Nodes/sec: %.0f (95%% CI %.0f-%.0f)\n", r.NodeRate.Mean(), lo, hi)
	}
	if len(r.Results) > 1 {
		times := make([]float64, len(r.Results))
		for i, res := range r.Results {
			times[i] = float64(res.Elapsed.Microseconds()) / 1000
		}
		sb.WriteString("Search time (ms):\n")
		histogram.Fprint(&sb, histogram.Hist(10, times), histogram.Linear(30))
	}
	return sb.String()
}
