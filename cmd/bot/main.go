// bot serves best-move requests over NATS, or sends one.
//
//	bot [flags]                  serve on --bot-channel
//	bot [flags] request <moves>  ask a running bot
//	bot [flags] analyze <moves>  ask a running bot to score every column
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/bot"
	"github.com/domino14/c4solver/config"
)

func main() {
	cfg := config.DefaultConfig()
	if err := cfg.Load(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.GetBool(config.ConfigDebug) {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	channel := cfg.GetString(config.ConfigBotChannel)

	args := cfg.Args()
	if len(args) == 0 {
		var b *book.Book
		if bp := cfg.GetString(config.ConfigBookPath); bp != "" {
			var err error
			b, err = book.Cached(bp)
			if err != nil {
				log.Fatal().Err(err).Str("path", bp).Msg("could not load book")
			}
		}
		if err := bot.Main(ctx, channel, bot.NewBot(cfg, b)); err != nil {
			log.Fatal().Err(err).Msg("bot-failed")
		}
		return
	}

	if len(args) != 2 || (args[0] != "request" && args[0] != "analyze") {
		fmt.Fprintln(os.Stderr, "usage: bot [flags] [request|analyze <moves>]")
		os.Exit(2)
	}
	nc, err := nats.Connect(cfg.GetString(config.ConfigNatsURL))
	if err != nil {
		log.Fatal().Err(err).Msg("could not connect")
	}
	defer nc.Close()
	resp, err := bot.NewClient(nc, channel).RequestMove(ctx, bot.Request{
		Moves:    args[1],
		MaxDepth: cfg.GetInt(config.ConfigMaxDepth),
		MaxTime:  cfg.GetDuration(config.ConfigMaxTime),
		Analyze:  args[0] == "analyze",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("request-failed")
	}
	if args[0] == "analyze" {
		for i, s := range resp.Scores {
			if s == nil {
				fmt.Printf("%d: -\n", i+1)
			} else {
				fmt.Printf("%d: %+d\n", i+1, *s)
			}
		}
		return
	}
	fmt.Printf("column %d, score %+d, exact %v, nodes %d\n", resp.Column+1, resp.Score, resp.Exact, resp.Nodes)
}
