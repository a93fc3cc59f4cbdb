// bench runs the solver over suite files of known positions and prints a
// report per suite.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"

	"github.com/domino14/c4solver/bench"
	"github.com/domino14/c4solver/book"
)

func main() {
	threads := pflag.Int("threads", runtime.NumCPU(), "number of solving threads")
	ttSize := pflag.Int("tt-size", 0, "transposition table entries per thread; 0 for the default")
	weak := pflag.Bool("weak", false, "only check the sign of each score")
	nullWindow := pflag.Bool("null-window", true, "use the null-window driver")
	bookPath := pflag.String("book", "", "opening book to use")
	debug := pflag.Bool("debug", false, "debug logging")
	resultsPath := pflag.String("results", "", "also write every case result to this YAML file")
	pflag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	if pflag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: bench [flags] <suitefile> ...")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := bench.Options{
		Threads:    *threads,
		TTSize:     *ttSize,
		Weak:       *weak,
		NullWindow: *nullWindow,
	}
	if *bookPath != "" {
		b, err := book.Cached(*bookPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *bookPath).Msg("could not load book")
		}
		opts.Book = b
	}

	var results *os.File
	if *resultsPath != "" {
		var err error
		results, err = os.Create(*resultsPath)
		if err != nil {
			log.Fatal().Err(err).Msg("")
		}
		defer results.Close()
	}

	failed := false
	for _, fn := range pflag.Args() {
		cases, err := bench.LoadSuite(fn)
		if err != nil {
			log.Fatal().Err(err).Msg("")
		}
		rep, err := bench.Run(ctx, fn, cases, opts)
		if err != nil {
			log.Fatal().Err(err).Str("suite", fn).Msg("bench-failed")
		}
		fmt.Print(rep.String())
		if results != nil {
			if err := rep.WriteYAML(results); err != nil {
				log.Fatal().Err(err).Msg("could not write results")
			}
		}
		if len(rep.Mismatches) > 0 {
			failed = true
		}
	}
	if failed {
		if results != nil {
			results.Close()
		}
		os.Exit(1)
	}
}
