// Package automatic plays computer-vs-computer games, for checking the
// solver against itself or against a random mover and for collecting game
// records.
package automatic

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/turnplayer"
)

// GameResult is the outcome of one finished game.
type GameResult struct {
	ID     string
	Moves  string
	Winner int
	Plies  int
}

// GameRunner plays games between two players. It is not safe for
// concurrent use; run one per goroutine.
type GameRunner struct {
	game        *turnplayer.Game
	players     [2]turnplayer.Player
	names       [2]string
	opener      *turnplayer.RandomPlayer
	randomPlies int
	logchan     chan<- string
}

// NewGameRunner builds both players from their settings. Each runner owns
// its players' solvers and tables. logchan may be nil.
func NewGameRunner(settings [2]turnplayer.PlayerSettings, b *book.Book, randomPlies int,
	logchan chan<- string) (*GameRunner, error) {

	r := &GameRunner{
		randomPlies: randomPlies,
		logchan:     logchan,
		opener:      turnplayer.NewRandomPlayer(nil),
	}
	for idx := range settings {
		pl, err := settings[idx].NewPlayer(b, nil)
		if err != nil {
			return nil, err
		}
		r.players[idx] = pl
		r.names[idx] = fmt.Sprintf("p%d-%s", idx+1, pl.Name())
	}
	return r, nil
}

// SetRNG reseeds the random opening and any random players, so a game can
// be replayed.
func (r *GameRunner) SetRNG(rng *frand.RNG) {
	r.opener.SetRNG(rng)
	for _, pl := range r.players {
		if rp, ok := pl.(*turnplayer.RandomPlayer); ok {
			rp.SetRNG(rng)
		}
	}
}

// SetPlayer replaces one of the players.
func (r *GameRunner) SetPlayer(idx int, pl turnplayer.Player) {
	r.players[idx] = pl
	r.names[idx] = fmt.Sprintf("p%d-%s", idx+1, pl.Name())
}

func (r *GameRunner) Game() *turnplayer.Game {
	return r.game
}

// PlayGame plays one game to the end. The first randomPlies moves are
// random; after that the players alternate, the first player moving on
// even plies. The context is checked between moves.
func (r *GameRunner) PlayGame(ctx context.Context, id string) (*GameResult, error) {
	r.game = turnplayer.NewGame()
	for r.game.Playing() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		onTurn := r.game.PlayerOnTurn()
		pl := r.players[onTurn]
		name := r.names[onTurn]
		if len(r.game.History()) < r.randomPlies {
			pl = r.opener
			name = "opening"
		}
		t := time.Now()
		col, err := pl.ChooseMove(ctx, r.game.Position())
		if err != nil {
			return nil, fmt.Errorf("%s at ply %d: %w", name, len(r.game.History())+1, err)
		}
		elapsed := time.Since(t)
		if err := r.game.Play(col); err != nil {
			return nil, fmt.Errorf("%s chose %d at ply %d: %w", name, col+1, len(r.game.History())+1, err)
		}
		r.logMove(id, name, col, elapsed)
	}
	res := &GameResult{
		ID:     id,
		Moves:  r.game.MoveString(),
		Winner: r.game.Winner(),
		Plies:  len(r.game.History()),
	}
	log.Debug().Str("game", id).Str("moves", res.Moves).Int("winner", res.Winner).Msg("game-over")
	return res, nil
}

func (r *GameRunner) logMove(id, name string, col int, elapsed time.Duration) {
	if r.logchan == nil {
		return
	}
	result := ""
	if !r.game.Playing() {
		switch r.game.Winner() {
		case 0:
			result = "first"
		case 1:
			result = "second"
		default:
			result = "draw"
		}
	}
	r.logchan <- fmt.Sprintf("%v,%v,%v,%v,%.3f,%v\n",
		id,
		len(r.game.History()),
		name,
		col+1,
		float64(elapsed.Microseconds())/1000,
		result)
}
