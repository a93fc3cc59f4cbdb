package turnplayer

import (
	"context"
	"errors"
	"testing"

	"github.com/matryer/is"
	"lukechampine.com/frand"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/negamax"
)

func TestGameUndo(t *testing.T) {
	is := is.New(t)
	g, err := GameFromMoves("4453")
	is.NoErr(err)
	is.Equal(g.MoveString(), "4453")
	is.Equal(g.PlayerOnTurn(), 0)
	is.NoErr(g.Undo())
	is.Equal(g.MoveString(), "445")
	is.Equal(g.PlayerOnTurn(), 1)

	want, err := board.FromMoves("445")
	is.NoErr(err)
	is.True(g.Position().Equals(want))

	g = NewGame()
	is.Equal(g.Undo(), ErrNothingToUndo)
}

func TestGameWinner(t *testing.T) {
	is := is.New(t)
	g, err := GameFromMoves("121212")
	is.NoErr(err)
	is.Equal(g.Winner(), -1)
	is.True(g.Playing())
	is.NoErr(g.Play(0))
	is.Equal(g.Winner(), 0)
	is.True(!g.Playing())
	is.True(errors.Is(g.Play(3), board.ErrGameOver))
	is.Equal(g.MoveString(), "1212121")
}

func TestParseColumn(t *testing.T) {
	is := is.New(t)
	col, err := ParseColumn(" 7")
	is.NoErr(err)
	is.Equal(col, 6)
	for _, s := range []string{"0", "8", "x", ""} {
		_, err := ParseColumn(s)
		is.True(errors.Is(err, board.ErrInvalidColumn))
	}
	_, err = GameFromMoves("49")
	is.True(errors.Is(err, board.ErrInvalidColumn))
}

func TestRandomPlayerPrefersSafe(t *testing.T) {
	is := is.New(t)
	seed := make([]byte, 32)
	rp := NewRandomPlayer(frand.NewCustom(seed, 1024, 12))
	p, err := board.FromMoves("12121")
	is.NoErr(err)
	for i := 0; i < 20; i++ {
		col, err := rp.ChooseMove(context.Background(), p)
		is.NoErr(err)
		is.Equal(col, 0)
	}
}

func TestScriptedPlayer(t *testing.T) {
	is := is.New(t)
	sp := NewScriptedPlayer(3, 2)
	p := board.NewPosition()
	col, err := sp.ChooseMove(context.Background(), p)
	is.NoErr(err)
	is.Equal(col, 3)
	col, err = sp.ChooseMove(context.Background(), p)
	is.NoErr(err)
	is.Equal(col, 2)
	_, err = sp.ChooseMove(context.Background(), p)
	is.Equal(err, ErrScriptExhausted)
}

func TestSettingsFromConfig(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigMaxDepth, 6)
	cfg.Set(config.ConfigTTSize, 1009)
	ps := SettingsFromConfig(cfg)
	is.Equal(ps.MaxDepth, 6)
	is.Equal(ps.TableSize(), 1009)
	is.True(ps.NullWindow)

	pl, err := ps.NewPlayer(nil, nil)
	is.NoErr(err)
	is.Equal(pl.Name(), SolverPlayerKind)
	sp := pl.(*SolverPlayer)
	is.Equal(sp.Solver().TranspositionTable().Size(), 1009)

	p, err := board.FromMoves("12121")
	is.NoErr(err)
	col, err := pl.ChooseMove(context.Background(), p)
	is.NoErr(err)
	is.Equal(col, 0)

	ps.Kind = "human"
	_, err = ps.NewPlayer(nil, nil)
	is.True(err != nil)

	is.Equal(PlayerSettings{}.TableSize(), negamax.DefaultTableSize)
}
