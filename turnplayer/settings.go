package turnplayer

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"lukechampine.com/frand"

	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/negamax"
)

// PlayerSettings describes how to build a Player.
type PlayerSettings struct {
	Kind             string
	MaxDepth         int
	MaxTime          time.Duration
	NullWindow       bool
	TTSize           int
	TTMemoryFraction float64
}

// SettingsFromConfig reads solver settings from cfg.
func SettingsFromConfig(cfg *config.Config) PlayerSettings {
	return PlayerSettings{
		Kind:             SolverPlayerKind,
		MaxDepth:         cfg.GetInt(config.ConfigMaxDepth),
		MaxTime:          cfg.GetDuration(config.ConfigMaxTime),
		NullWindow:       cfg.GetBool(config.ConfigNullWindow),
		TTSize:           cfg.GetInt(config.ConfigTTSize),
		TTMemoryFraction: cfg.GetFloat64(config.ConfigTTMemoryFraction),
	}
}

// TableSize resolves the transposition table size: an explicit size wins
// over a memory fraction, and neither means the default.
func (ps PlayerSettings) TableSize() int {
	if ps.TTSize > 0 {
		return ps.TTSize
	}
	if ps.TTMemoryFraction > 0 {
		return negamax.SizeForMemory(ps.TTMemoryFraction)
	}
	return negamax.DefaultTableSize
}

// NewSolver builds a solver with its own transposition table.
func (ps PlayerSettings) NewSolver(b *book.Book) *negamax.Solver {
	s := new(negamax.Solver)
	s.Init(negamax.NewTranspositionTable(ps.TableSize()), b)
	s.SetNullWindowOptim(ps.NullWindow)
	s.SetMaxDepth(ps.MaxDepth)
	return s
}

// NewPlayer builds the player described by ps. rng is only used by random
// players and may be nil.
func (ps PlayerSettings) NewPlayer(b *book.Book, rng *frand.RNG) (Player, error) {
	kind, err := ParsePlayerKind(ps.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case SolverPlayerKind:
		log.Debug().Int("max-depth", ps.MaxDepth).Dur("max-time", ps.MaxTime).
			Bool("null-window", ps.NullWindow).Msg("new-solver-player")
		return NewSolverPlayer(ps.NewSolver(b), ps.MaxTime), nil
	case RandomPlayerKind:
		return NewRandomPlayer(rng), nil
	}
	return nil, fmt.Errorf("unhandled player kind %v", kind)
}
