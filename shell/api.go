package shell

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/c4solver/automatic"
	"github.com/domino14/c4solver/bench"
	"github.com/domino14/c4solver/board"
	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/negamax"
	"github.com/domino14/c4solver/store"
	"github.com/domino14/c4solver/turnplayer"
)

type Response struct {
	message string
}

func (r *Response) Message() string {
	return r.message
}

type CmdOptions map[string][]string

func (c CmdOptions) String(key string) string {
	v := c[key]
	if len(v) > 0 {
		return v[0]
	}
	return ""
}

func (c CmdOptions) Int(key string) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return 0, errors.New(key + " not found in options")
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) IntDefault(key string, defaultI int) (int, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultI, nil
	}
	return strconv.Atoi(v[0])
}

func (c CmdOptions) Bool(key string) bool {
	v := c[key]
	if len(v) == 0 {
		return false
	}
	return strings.ToLower(v[0]) == "true"
}

// DurationDefault accepts Go durations ("1m30s") and plain seconds ("90").
func (c CmdOptions) DurationDefault(key string, defaultD time.Duration) (time.Duration, error) {
	v := c[key]
	if len(v) == 0 {
		return defaultD, nil
	}
	return parseDuration(v[0])
}

func parseDuration(s string) (time.Duration, error) {
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

func msg(message string) *Response {
	return &Response{message: message}
}

func (sc *ShellController) gameText() string {
	text := sc.game.Position().ToDisplayText()
	if ms := sc.game.MoveString(); ms != "" {
		text += "\nmoves: " + ms
	}
	return text
}

func (sc *ShellController) newGame(cmd *shellcmd) (*Response, error) {
	sc.game = turnplayer.NewGame()
	return msg(sc.gameText()), nil
}

func (sc *ShellController) moves(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: moves <movestring>, e.g. moves 4453")
	}
	g, err := turnplayer.GameFromMoves(cmd.args[0])
	if err != nil {
		return nil, err
	}
	sc.game = g
	return msg(sc.gameText()), nil
}

func (sc *ShellController) play(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		return nil, errors.New("usage: play <column 1-7>")
	}
	col, err := turnplayer.ParseColumn(cmd.args[0])
	if err != nil {
		return nil, err
	}
	if err := sc.game.Play(col); err != nil {
		return nil, err
	}
	return msg(sc.gameText()), nil
}

func (sc *ShellController) undo(cmd *shellcmd) (*Response, error) {
	if err := sc.game.Undo(); err != nil {
		return nil, err
	}
	return msg(sc.gameText()), nil
}

func (sc *ShellController) show(cmd *shellcmd) (*Response, error) {
	return msg(sc.gameText()), nil
}

// searchContext applies the -depth and -maxtime options, falling back to
// the configured settings.
func (sc *ShellController) searchContext(ctx context.Context, cmd *shellcmd) (context.Context, context.CancelFunc, error) {
	depth, err := cmd.options.IntDefault("depth", sc.settings.MaxDepth)
	if err != nil {
		return nil, nil, err
	}
	maxTime, err := cmd.options.DurationDefault("maxtime", sc.settings.MaxTime)
	if err != nil {
		return nil, nil, err
	}
	sc.solver.SetMaxDepth(depth)
	if maxTime > 0 {
		ctx, cancel := context.WithTimeout(ctx, maxTime)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithCancel(ctx)
	return ctx, cancel, nil
}

// resultPly is the ply on which the game is decided when both sides play
// a nonzero score out.
func resultPly(score, plies int) int {
	s := max(score, -score)
	parity := plies % 2
	if score < 0 {
		parity = 1 - parity
	}
	k := board.Size + 1 - 2*s
	if k%2 != parity {
		k--
	}
	return k + 1
}

func describeScore(score, plies int) string {
	switch {
	case score > 0:
		return fmt.Sprintf("%+d, win on ply %d", score, resultPly(score, plies))
	case score < 0:
		return fmt.Sprintf("%+d, loss on ply %d", score, resultPly(score, plies))
	}
	return "0, draw"
}

func (sc *ShellController) solveCurrent(ctx context.Context, cmd *shellcmd) (int, string, error) {
	if !sc.game.Playing() {
		return -1, "", board.ErrGameOver
	}
	pos := sc.game.Position()
	if sc.store != nil {
		if e, err := sc.store.EvalByKey(ctx, pos.Key()); err == nil && e.Depth >= board.Size {
			return e.BestColumn, fmt.Sprintf("Best move: %d (%s; exact, stored)",
				e.BestColumn+1, describeScore(e.Score, pos.Plies())), nil
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			log.Err(err).Msg("store-lookup-failed")
		}
	}
	ctx, cancel, err := sc.searchContext(ctx, cmd)
	if err != nil {
		return -1, "", err
	}
	defer cancel()
	t := time.Now()
	col, score, err := sc.solver.Solve(ctx, pos)
	if err != nil {
		return -1, "", err
	}
	depth := "exact"
	if d := sc.solver.LastDepth(); d < board.Size {
		depth = fmt.Sprintf("depth %d, not exact", d)
	} else if sc.store != nil {
		err := sc.store.UpsertEval(context.Background(), store.Eval{
			Key: pos.Key(), Moves: sc.game.MoveString(), Score: score,
			BestColumn: col, Depth: board.Size,
		})
		if err != nil {
			log.Err(err).Msg("store-save-failed")
		}
	}
	desc := fmt.Sprintf("Best move: %d (%s; %s)\nNodes: %d  Time: %.3fs",
		col+1, describeScore(score, pos.Plies()), depth,
		sc.solver.Nodes(), time.Since(t).Seconds())
	return col, desc, nil
}

func (sc *ShellController) solve(ctx context.Context, cmd *shellcmd) (*Response, error) {
	_, desc, err := sc.solveCurrent(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return msg(desc), nil
}

func (sc *ShellController) aiplay(ctx context.Context, cmd *shellcmd) (*Response, error) {
	col, desc, err := sc.solveCurrent(ctx, cmd)
	if err != nil {
		return nil, err
	}
	if err := sc.game.Play(col); err != nil {
		return nil, err
	}
	return msg(desc + "\n" + sc.gameText()), nil
}

func (sc *ShellController) pv(ctx context.Context, cmd *shellcmd) (*Response, error) {
	ctx, cancel, err := sc.searchContext(ctx, cmd)
	if err != nil {
		return nil, err
	}
	defer cancel()
	pos := sc.game.Position()
	line, err := sc.solver.PrincipalVariation(ctx, pos)
	if err != nil {
		return nil, err
	}
	return msg(fmt.Sprintf("%s (%s)\nmoves: %s%s", line.NLBString(),
		describeScore(line.Score(), pos.Plies()), sc.game.MoveString(), line.MoveString())), nil
}

func (sc *ShellController) analyze(ctx context.Context, cmd *shellcmd) (*Response, error) {
	ctx, cancel, err := sc.searchContext(ctx, cmd)
	if err != nil {
		return nil, err
	}
	defer cancel()
	scores, err := sc.solver.Analyze(ctx, sc.game.Position())
	if err != nil {
		return nil, err
	}
	legal := lo.Filter(scores, func(cs negamax.ColumnScore, _ int) bool { return cs.Legal })
	best := lo.MaxBy(legal, func(a, b negamax.ColumnScore) bool { return a.Score > b.Score })
	lines := lo.Map(scores, func(cs negamax.ColumnScore, _ int) string {
		return lo.Ternary(cs.Legal && cs.Score == best.Score, "* ", "  ") + cs.String()
	})
	return msg(strings.Join(lines, "\n")), nil
}

func (sc *ShellController) loadBook(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) != 1 {
		if sc.book == nil {
			return msg("no book loaded"), nil
		}
		return msg(fmt.Sprintf("book: %d entries, depth %d, digest %016x",
			sc.book.Len(), sc.book.Depth(), sc.book.Digest())), nil
	}
	if cmd.args[0] == "off" {
		sc.setBook(nil)
		return msg("book disabled"), nil
	}
	b, err := book.Cached(cmd.args[0])
	if err != nil {
		return nil, err
	}
	sc.setBook(b)
	return msg(fmt.Sprintf("loaded %d entries, depth %d", b.Len(), b.Depth())), nil
}

var settableKeys = []string{
	config.ConfigMaxDepth, config.ConfigMaxTime, config.ConfigNullWindow,
	config.ConfigTTSize, config.ConfigThreads,
}

func (sc *ShellController) set(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		var sb strings.Builder
		for _, k := range settableKeys {
			fmt.Fprintf(&sb, "%-12s %v\n", k, sc.config.Get(k))
		}
		return msg(strings.TrimSuffix(sb.String(), "\n")), nil
	}
	if len(cmd.args) != 2 {
		return nil, errors.New("usage: set <key> <value>")
	}
	key, val := cmd.args[0], cmd.args[1]
	if !lo.Contains(settableKeys, key) {
		return nil, fmt.Errorf("%v is not a settable key; valid keys: %s", key,
			strings.Join(settableKeys, ", "))
	}
	switch key {
	case config.ConfigMaxDepth, config.ConfigTTSize, config.ConfigThreads:
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%v needs a non-negative integer", key)
		}
		sc.config.Set(key, n)
	case config.ConfigMaxTime:
		d, err := parseDuration(val)
		if err != nil {
			return nil, err
		}
		sc.config.Set(key, d)
	case config.ConfigNullWindow:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return nil, err
		}
		sc.config.Set(key, b)
	}
	oldSize := sc.settings.TableSize()
	sc.settings = turnplayer.SettingsFromConfig(sc.config)
	if sc.settings.TableSize() != oldSize {
		sc.solver = sc.settings.NewSolver(sc.book)
	} else {
		sc.solver.SetMaxDepth(sc.settings.MaxDepth)
		sc.solver.SetNullWindowOptim(sc.settings.NullWindow)
	}
	return msg("set " + key + " to " + val), nil
}

func (sc *ShellController) autoplay(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if len(cmd.args) > 0 {
		return sc.autoplayTool(cmd)
	}
	games, err := cmd.options.IntDefault("games", 100)
	if err != nil {
		return nil, err
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.GetInt(config.ConfigThreads))
	if err != nil {
		return nil, err
	}
	randomPlies, err := cmd.options.IntDefault("random-plies", 8)
	if err != nil {
		return nil, err
	}
	opts := automatic.CompVCompOptions{
		NumGames:    games,
		Threads:     threads,
		RandomPlies: randomPlies,
	}
	for idx, key := range []string{"player1", "player2"} {
		kind, err := turnplayer.ParsePlayerKind(cmd.options.String(key))
		if err != nil {
			return nil, err
		}
		opts.Players[idx] = sc.settings
		opts.Players[idx].Kind = kind
	}
	if sf := cmd.options.String("seeds"); sf != "" {
		opts.Seeds, err = automatic.LoadSeeds(sf)
		if err != nil {
			return nil, err
		}
	}
	var out io.Writer
	if fn := cmd.options.String("out"); fn != "" {
		f, err := os.Create(fn)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		out = f
	}
	log.Info().Int("games", games).Int("threads", threads).Msg("autoplay-starting")
	summary, err := automatic.StartCompVComp(ctx, sc.book, opts, out)
	if err != nil {
		return nil, err
	}
	return msg(strings.TrimSuffix(summary.String(), "\n")), nil
}

// autoplayTool handles the subcommands that work on autoplay files.
func (sc *ShellController) autoplayTool(cmd *shellcmd) (*Response, error) {
	switch cmd.args[0] {
	case "log":
		if len(cmd.args) != 2 {
			return nil, errors.New("usage: autoplay log <file>")
		}
		report, err := automatic.AnalyzeLogFile(cmd.args[1])
		if err != nil {
			return nil, err
		}
		return msg(strings.TrimSuffix(report, "\n")), nil
	case "seeds":
		if len(cmd.args) != 3 {
			return nil, errors.New("usage: autoplay seeds <n> <file>")
		}
		n, err := strconv.Atoi(cmd.args[1])
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("bad seed count %q", cmd.args[1])
		}
		if err := automatic.SaveSeeds(automatic.GenerateSeeds(n), cmd.args[2]); err != nil {
			return nil, err
		}
		return msg(fmt.Sprintf("wrote %d seeds to %s", n, cmd.args[2])), nil
	}
	return nil, fmt.Errorf("unknown autoplay subcommand %q", cmd.args[0])
}

func (sc *ShellController) bench(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return nil, errors.New("usage: bench <suitefile> [<suitefile> ...] [-threads N] [-weak true]")
	}
	threads, err := cmd.options.IntDefault("threads", sc.config.GetInt(config.ConfigThreads))
	if err != nil {
		return nil, err
	}
	opts := bench.Options{
		Threads:    threads,
		TTSize:     sc.settings.TableSize(),
		Weak:       cmd.options.Bool("weak"),
		NullWindow: sc.settings.NullWindow,
		Book:       sc.book,
	}
	files := append([]string{}, cmd.args...)
	sort.Strings(files)
	var sb strings.Builder
	for _, f := range files {
		cases, err := bench.LoadSuite(f)
		if err != nil {
			return nil, err
		}
		rep, err := bench.Run(ctx, f, cases, opts)
		if err != nil {
			return nil, err
		}
		sb.WriteString(rep.String())
	}
	return msg(strings.TrimSuffix(sb.String(), "\n")), nil
}

func (sc *ShellController) help(cmd *shellcmd) (*Response, error) {
	if len(cmd.args) == 0 {
		return msg(usage()), nil
	}
	return msg(usageTopic(cmd.args[0])), nil
}
