package automatic

// Data collection for automatic games.

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"

	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/stats"
	"github.com/domino14/c4solver/turnplayer"
)

var (
	CVCCounter *expvar.Int
	IsPlaying  *expvar.Int
)

func init() {
	CVCCounter = expvar.NewInt("cvcCounter")
	IsPlaying = expvar.NewInt("isPlaying")
}

var ErrAlreadyPlaying = errors.New("games are already being played, please wait till complete")

const LogHeader = "gameID,ply,player,column,ms,result\n"

// CompVCompOptions configures a batch of automatic games.
type CompVCompOptions struct {
	NumGames    int
	Threads     int
	RandomPlies int
	Players     [2]turnplayer.PlayerSettings
	// Seeds, if set, fix the randomness of game i to Seeds[i % len(Seeds)].
	Seeds [][32]byte
}

// Summary aggregates the results of a batch.
type Summary struct {
	Outcomes stats.Outcomes
	Lengths  stats.Statistic
}

func (s *Summary) add(res *GameResult) {
	s.Outcomes.Add(res.Winner)
	s.Lengths.Push(float64(res.Plies))
}

func (s *Summary) String() string {
	lo, hi := s.Outcomes.FirstPlayerInterval(95)
	return fmt.Sprintf("Games played: %d (%s)\nFirst player score: %.3f (95%% CI %.3f-%.3f)\nGame length: mean %.2f, stdev %.2f, min %.0f, max %.0f\n",
		s.Outcomes.Games(), s.Outcomes.String(),
		s.Outcomes.FirstPlayerScore(), lo, hi,
		s.Lengths.Mean(), s.Lengths.Stdev(), s.Lengths.Min(), s.Lengths.Max())
}

// StartCompVComp plays opts.NumGames games on opts.Threads workers and
// writes a CSV line per move to out. Every worker owns its runner and
// solvers. Cancelling ctx stops handing out games; games in progress end
// at their next move and are not counted.
func StartCompVComp(ctx context.Context, b *book.Book, opts CompVCompOptions,
	out io.Writer) (*Summary, error) {

	if IsPlaying.Value() > 0 {
		return nil, ErrAlreadyPlaying
	}
	threads := max(opts.Threads, 1)
	log.Debug().Msgf("Starting %v games, %v threads", opts.NumGames, threads)

	CVCCounter.Set(0)
	jobs := make(chan int, 100)
	logChan := make(chan string, 100)
	summary := &Summary{}
	var mu sync.Mutex

	writeDone := make(chan error, 1)
	go func() {
		var werr error
		if out != nil {
			_, werr = io.WriteString(out, LogHeader)
		}
		for msg := range logChan {
			if out != nil && werr == nil {
				_, werr = io.WriteString(out, msg)
			}
		}
		writeDone <- werr
	}()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < opts.NumGames; i++ {
			select {
			case jobs <- i:
			case <-gctx.Done():
				log.Info().Msg("Got stop signal, exiting soon...")
				return nil
			}
		}
		log.Info().Msg("Finished queueing all jobs.")
		return nil
	})

	for w := 0; w < threads; w++ {
		g.Go(func() error {
			r, err := NewGameRunner(opts.Players, b, opts.RandomPlies, logChan)
			if err != nil {
				return err
			}
			IsPlaying.Add(1)
			defer IsPlaying.Add(-1)
			for i := range jobs {
				if len(opts.Seeds) > 0 {
					seed := opts.Seeds[i%len(opts.Seeds)]
					r.SetRNG(frand.NewCustom(seed[:], 1024, 12))
				}
				res, err := r.PlayGame(gctx, fmt.Sprintf("game-%05d", i))
				if err != nil {
					if gctx.Err() != nil {
						return nil
					}
					return err
				}
				mu.Lock()
				summary.add(res)
				mu.Unlock()
				CVCCounter.Add(1)
			}
			return nil
		})
	}

	err := g.Wait()
	close(logChan)
	if werr := <-writeDone; err == nil {
		err = werr
	}
	log.Info().Int("games", summary.Outcomes.Games()).Msg("All games finished.")
	if err != nil {
		return nil, err
	}
	return summary, nil
}
