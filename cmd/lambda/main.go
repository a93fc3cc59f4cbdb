package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"google.golang.org/protobuf/proto"

	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/bot"
	"github.com/domino14/c4solver/config"
)

var solverBot *bot.Bot
var nc *nats.Conn

const HardTimeLimit = 180 * time.Second // max time per move

func HandleRequest(ctx context.Context, evt bot.LambdaEvent) (string, error) {
	// Return something but we have to block till we're done.
	logger := log.With().
		Str("gameID", evt.GameID).
		Logger()

	if evt.MaxTimeMs == 0 || time.Duration(evt.MaxTimeMs)*time.Millisecond > HardTimeLimit {
		evt.MaxTimeMs = int(HardTimeLimit.Milliseconds())
	}
	resp, err := solverBot.HandleEvent(ctx, evt)
	if err != nil {
		return "", err
	}
	data, err := proto.Marshal(resp)
	if err != nil {
		return "", err
	}
	if evt.ReplyChannel != "" && nc != nil {
		logger.Info().Msg("move-success-sending-via-nats")
		err = retry.Do(
			func() error {
				// We're just waiting for an acknowledgement. The actual
				// data doesn't matter.
				_, err := nc.Request(evt.ReplyChannel, data, 3*time.Second)
				return err
			},
			retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
				logger.Err(err).Uint("n", n).
					Msg("did-not-receive-ack-try-again")
				return retry.BackOffDelay(n, err, config)
			}),
		)
		if err != nil {
			logger.Err(err).Msg("bot-move-failed")
		}
	}
	logger.Info().Msg("exiting-fn")
	return strconv.Itoa(int(resp.GetFields()["column"].GetNumberValue())), nil
}

func main() {
	ex, err := os.Executable()
	if err != nil {
		panic(err)
	}
	exPath := filepath.Dir(ex)

	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		log.Fatal().Err(err).Msg("bad-config")
	}
	log.Info().Msgf("Loaded config: %v", cfg.SanitizedSettings())
	cfg.AdjustRelativePaths(exPath)
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	var b *book.Book
	if bp := cfg.GetString(config.ConfigBookPath); bp != "" {
		b, err = book.Cached(bp)
		if err != nil {
			log.Fatal().Err(err).Str("path", bp).Msg("could not load book")
		}
	}
	solverBot = bot.NewBot(cfg, b)

	nc, err = nats.Connect(cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Warn().AnErr("natsConnectErr", err).Msg("replies will not be published")
		nc = nil
	}

	lambda.Start(HandleRequest)
}
