package shell

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/domino14/c4solver/book"
	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/negamax"
	"github.com/domino14/c4solver/store"
	"github.com/domino14/c4solver/turnplayer"
)

var (
	errNoData            = errors.New("no data in command")
	errWrongOptionSyntax = errors.New("wrong format; all options need arguments")
)

type ShellController struct {
	l      *readline.Instance
	out    io.Writer
	config *config.Config

	execPath   string
	gitVersion string

	game     *turnplayer.Game
	settings turnplayer.PlayerSettings
	solver   *negamax.Solver
	book     *book.Book
	store    *store.Store

	cancel context.CancelFunc
}

type shellcmd struct {
	cmd     string
	args    []string
	options CmdOptions
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// NewShellController sets up the readline console, the solver and the
// opening book named in cfg. A book that fails to load is fatal.
func NewShellController(cfg *config.Config, execPath, gitVersion string) *ShellController {
	sc := newController(cfg, execPath, gitVersion, os.Stderr)
	if bp := cfg.GetString(config.ConfigBookPath); bp != "" {
		b, err := book.Cached(bp)
		if err != nil {
			log.Fatal().Err(err).Str("path", bp).Msg("could not load book")
		}
		sc.setBook(b)
	}

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[31mc4solver>\033[0m ",
		HistoryFile:     "/tmp/c4solver_readline.tmp",
		AutoComplete:    NewShellCompleter(sc),
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		panic(err)
	}
	sc.l = l
	sc.out = l.Stderr()
	return sc
}

func newController(cfg *config.Config, execPath, gitVersion string, out io.Writer) *ShellController {
	sc := &ShellController{
		out:        out,
		config:     cfg,
		execPath:   execPath,
		gitVersion: gitVersion,
		game:       turnplayer.NewGame(),
		settings:   turnplayer.SettingsFromConfig(cfg),
	}
	sc.solver = sc.settings.NewSolver(nil)
	if sp := cfg.GetString(config.ConfigStorePath); sp != "" {
		st, err := store.Open(sp)
		if err != nil {
			log.Error().Err(err).Str("path", sp).Msg("could not open store; solved positions will not be saved")
		} else {
			sc.store = st
		}
	}
	return sc
}

func (sc *ShellController) setBook(b *book.Book) {
	sc.book = b
	sc.solver.SetBook(b)
}

func (sc *ShellController) showMessage(msg string) {
	showMessage(msg, sc.out)
}

func (sc *ShellController) showError(err error) {
	sc.showMessage("Error: " + err.Error())
}

// extractFields splits a command line into the command, its positional
// arguments and its -key value options.
func extractFields(line string) (*shellcmd, error) {
	fields, err := shellquote.Split(line)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errNoData
	}
	cmd := fields[0]
	var args []string
	options := CmdOptions{}
	for idx := 1; idx < len(fields); idx++ {
		f := fields[idx]
		if strings.HasPrefix(f, "-") && len(f) > 1 && !isNumber(f) {
			if idx == len(fields)-1 {
				return nil, errWrongOptionSyntax
			}
			key := f[1:]
			options[key] = append(options[key], fields[idx+1])
			idx++
			continue
		}
		args = append(args, f)
	}
	return &shellcmd{cmd: cmd, args: args, options: options}, nil
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

// ProcessLine runs one command and returns what it has to say.
func (sc *ShellController) ProcessLine(ctx context.Context, line string) (*Response, error) {
	cmd, err := extractFields(line)
	if err != nil {
		return nil, err
	}
	return sc.handle(ctx, cmd)
}

func (sc *ShellController) handle(ctx context.Context, cmd *shellcmd) (*Response, error) {
	switch cmd.cmd {
	case "new", "n":
		return sc.newGame(cmd)
	case "moves", "m":
		return sc.moves(cmd)
	case "play", "p":
		return sc.play(cmd)
	case "undo", "u":
		return sc.undo(cmd)
	case "show", "s":
		return sc.show(cmd)
	case "solve":
		return sc.solve(ctx, cmd)
	case "aiplay", "ai":
		return sc.aiplay(ctx, cmd)
	case "pv":
		return sc.pv(ctx, cmd)
	case "analyze", "a":
		return sc.analyze(ctx, cmd)
	case "book":
		return sc.loadBook(cmd)
	case "set":
		return sc.set(cmd)
	case "autoplay":
		return sc.autoplay(ctx, cmd)
	case "bench":
		return sc.bench(ctx, cmd)
	case "script":
		return sc.script(ctx, cmd)
	case "help":
		return sc.help(cmd)
	default:
		msg := fmt.Sprintf("command %v not found", strconv.Quote(cmd.cmd))
		log.Info().Msg(msg)
		return nil, errors.New(msg)
	}
}

// Execute runs a single command given on the command line.
func (sc *ShellController) Execute(sig chan os.Signal, line string) {
	ctx, cancel := context.WithCancel(context.Background())
	sc.cancel = cancel
	defer cancel()
	go func() {
		select {
		case <-sig:
			cancel()
		case <-ctx.Done():
		}
	}()
	resp, err := sc.ProcessLine(ctx, line)
	if err != nil {
		sc.showError(err)
	} else if resp != nil {
		sc.showMessage(resp.message)
	}
}

func (sc *ShellController) Loop(sig chan os.Signal) {

	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				sig <- syscall.SIGINT
				break
			} else {
				continue
			}
		} else if err == io.EOF {
			sig <- syscall.SIGINT
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "exit" {
			sig <- syscall.SIGINT
			break
		}
		resp, err := sc.ProcessLine(context.Background(), line)
		if err != nil {
			sc.showError(err)
		} else if resp != nil {
			sc.showMessage(resp.message)
		}
	}
	log.Debug().Msgf("Exiting readline loop...")
}

// Cleanup stops anything still running.
func (sc *ShellController) Cleanup() {
	if sc.cancel != nil {
		sc.cancel()
	}
	if sc.store != nil {
		if err := sc.store.Close(); err != nil {
			log.Err(err).Msg("closing-store")
		}
	}
	log.Debug().Msg("shell-cleanup")
}
