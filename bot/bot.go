package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/negamax"
	"github.com/domino14/c4solver/turnplayer"
)

// DefaultMaxTime bounds a request that names no time limit of its own.
const DefaultMaxTime = 30 * time.Second

// Request asks the bot for the best move, or a score for every column, in
// the position reached by Moves.
type Request struct {
	Moves    string
	MaxDepth int
	MaxTime  time.Duration
	Analyze  bool
}

func (r Request) Marshal() ([]byte, error) {
	s, err := structpb.NewStruct(map[string]any{
		"moves":       r.Moves,
		"max_depth":   r.MaxDepth,
		"max_time_ms": r.MaxTime.Milliseconds(),
		"analyze":     r.Analyze,
	})
	if err != nil {
		return nil, err
	}
	return proto.Marshal(s)
}

type Bot struct {
	config   *config.Config
	settings turnplayer.PlayerSettings
	solver   *negamax.Solver
}

func NewBot(cfg *config.Config, b *book.Book) *Bot {
	bot := &Bot{config: cfg, settings: turnplayer.SettingsFromConfig(cfg)}
	bot.solver = bot.settings.NewSolver(b)
	return bot
}

func errorResponse(message string, err error) *structpb.Struct {
	msg := message
	if err != nil {
		msg = fmt.Sprintf("%s: %s", msg, err.Error())
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"error": structpb.NewStringValue(msg),
	}}
}

func (bot *Bot) Deserialize(data []byte) (*board.Position, *Request, error) {
	s := &structpb.Struct{}
	if err := proto.Unmarshal(data, s); err != nil {
		return nil, nil, err
	}
	req := &Request{
		Moves:    s.GetFields()["moves"].GetStringValue(),
		MaxDepth: int(s.GetFields()["max_depth"].GetNumberValue()),
		MaxTime:  time.Duration(s.GetFields()["max_time_ms"].GetNumberValue()) * time.Millisecond,
		Analyze:  s.GetFields()["analyze"].GetBoolValue(),
	}
	if req.MaxDepth < 0 || req.MaxTime < 0 {
		return nil, nil, errors.New("negative limits")
	}
	pos, err := board.FromMoves(req.Moves)
	if err != nil {
		return nil, nil, err
	}
	return pos, req, nil
}

func (bot *Bot) handle(ctx context.Context, data []byte) *structpb.Struct {
	pos, req, err := bot.Deserialize(data)
	if err != nil {
		return errorResponse("Could not parse request", err)
	}
	return bot.respond(ctx, pos, req)
}

func (bot *Bot) respond(ctx context.Context, pos *board.Position, req *Request) *structpb.Struct {
	maxTime := req.MaxTime
	if maxTime == 0 {
		maxTime = bot.settings.MaxTime
	}
	if maxTime == 0 {
		maxTime = DefaultMaxTime
	}
	ctx, cancel := context.WithTimeout(ctx, maxTime)
	defer cancel()
	bot.solver.SetMaxDepth(req.MaxDepth)

	if req.Analyze {
		scores, err := bot.solver.Analyze(ctx, pos)
		if err != nil {
			return errorResponse("Could not analyze", err)
		}
		vals := make([]any, len(scores))
		for i, cs := range scores {
			if cs.Legal {
				vals[i] = cs.Score
			}
		}
		resp, err := structpb.NewStruct(map[string]any{"scores": vals})
		if err != nil {
			return errorResponse("Could not encode scores", err)
		}
		return resp
	}

	col, score, err := bot.solver.Solve(ctx, pos)
	if err != nil {
		return errorResponse("Could not solve", err)
	}
	log.Info().Str("moves", req.Moves).Int("column", col+1).Int("score", score).
		Int("depth", bot.solver.LastDepth()).Msg("generated-move")
	resp, err := structpb.NewStruct(map[string]any{
		"column": col + 1,
		"score":  score,
		"exact":  bot.solver.LastDepth() >= board.Size,
		"nodes":  bot.solver.Nodes(),
	})
	if err != nil {
		return errorResponse("Could not encode move", err)
	}
	return resp
}

// Main answers requests on channel until ctx is done. Requests are handled
// one at a time.
func Main(ctx context.Context, channel string, bot *Bot) error {
	nc, err := nats.Connect(bot.config.GetString(config.ConfigNatsURL))
	if err != nil {
		return err
	}
	_, err = nc.Subscribe(channel, func(m *nats.Msg) {
		log.Info().Msgf("RECV: %d bytes", len(m.Data))
		resp := bot.handle(ctx, m.Data)
		data, err := proto.Marshal(resp)
		if err != nil {
			// Should never happen, ideally, but we need to do something sensible here.
			m.Respond([]byte(err.Error()))
		} else {
			m.Respond(data)
		}
	})
	if err != nil {
		nc.Close()
		return err
	}
	if err := nc.Flush(); err != nil {
		nc.Close()
		return err
	}
	if err := nc.LastError(); err != nil {
		nc.Close()
		return err
	}

	log.Info().Msgf("Listening on [%s]", channel)
	<-ctx.Done()
	log.Info().Msg("bot-draining")
	return nc.Drain()
}
