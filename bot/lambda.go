package bot

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/domino14/c4solver/board"
)

// LambdaEvent is the payload of a serverless move request. When
// ReplyChannel is set the answer is also published there.
type LambdaEvent struct {
	GameID       string `json:"game_id"`
	Moves        string `json:"moves"`
	MaxDepth     int    `json:"max_depth"`
	MaxTimeMs    int    `json:"max_time_ms"`
	ReplyChannel string `json:"reply_channel"`
}

// HandleEvent solves the event's position. The returned response carries the
// game ID so that replies can be matched to games.
func (bot *Bot) HandleEvent(ctx context.Context, evt LambdaEvent) (*structpb.Struct, error) {
	logger := log.With().Str("gameID", evt.GameID).Logger()
	if evt.MaxDepth < 0 || evt.MaxTimeMs < 0 {
		return nil, errors.New("negative limits")
	}
	pos, err := board.FromMoves(evt.Moves)
	if err != nil {
		return nil, err
	}
	req := &Request{
		Moves:    evt.Moves,
		MaxDepth: evt.MaxDepth,
		MaxTime:  time.Duration(evt.MaxTimeMs) * time.Millisecond,
	}
	resp := bot.respond(ctx, pos, req)
	if e, ok := resp.GetFields()["error"]; ok {
		return nil, errors.New(e.GetStringValue())
	}
	resp.Fields["game_id"] = structpb.NewStringValue(evt.GameID)
	logger.Info().Str("moves", evt.Moves).
		Str("column", strconv.Itoa(int(resp.Fields["column"].GetNumberValue()))).
		Msg("lambda-move")
	return resp, nil
}
