package shell

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/stretchr/testify/assert"

	"github.com/domino14/c4solver/config"
	"github.com/domino14/c4solver/turnplayer"
)

func TestExtractFields(t *testing.T) {
	is := is.New(t)
	type testdata struct {
		line   string
		expCmd *shellcmd
		expErr error
	}
	cases := []testdata{
		{"", nil, errNoData},
		{"autoplay -out /path/to/log.txt",
			&shellcmd{"autoplay", nil, CmdOptions{"out": {"/path/to/log.txt"}}},
			nil},
		{"moves 4453",
			&shellcmd{"moves", []string{"4453"}, CmdOptions{}},
			nil},
		{"bench a.txt b.txt -threads 4 -weak true ",
			&shellcmd{"bench",
				[]string{"a.txt", "b.txt"},
				CmdOptions{"threads": {"4"}, "weak": {"true"}}},
			nil,
		},
		{"play -3",
			&shellcmd{"play", []string{"-3"}, CmdOptions{}},
			nil},
		{"autoplay -games",
			nil, errWrongOptionSyntax},
	}
	for _, t := range cases {
		cmd, err := extractFields(t.line)
		is.Equal(cmd, t.expCmd)
		is.Equal(err, t.expErr)
	}
}

func newTestController() (*ShellController, *bytes.Buffer) {
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigBookPath, "")
	cfg.Set(config.ConfigTTSize, 1009)
	out := &bytes.Buffer{}
	return newController(cfg, "", "test", out), out
}

func run(t *testing.T, sc *ShellController, line string) string {
	t.Helper()
	r, err := sc.ProcessLine(context.Background(), line)
	if err != nil {
		t.Fatalf("%v: %v", line, err)
	}
	return r.Message()
}

func TestGameCommands(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController()

	is.True(strings.Contains(run(t, sc, "moves 4453"), "moves: 4453"))
	is.True(strings.Contains(run(t, sc, "p 2"), "moves: 44532"))
	is.True(strings.Contains(run(t, sc, "undo"), "moves: 4453"))
	is.Equal(sc.game.MoveString(), "4453")

	run(t, sc, "new")
	is.Equal(sc.game.MoveString(), "")
	_, err := sc.ProcessLine(context.Background(), "undo")
	is.Equal(err, turnplayer.ErrNothingToUndo)

	_, err = sc.ProcessLine(context.Background(), "play 8")
	is.True(err != nil)
	_, err = sc.ProcessLine(context.Background(), "moves 12a")
	is.True(err != nil)
	_, err = sc.ProcessLine(context.Background(), "frobnicate")
	is.True(err != nil)
}

func TestSolveCommands(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController()

	run(t, sc, "moves 121212")
	out := run(t, sc, "solve")
	is.True(strings.HasPrefix(out, "Best move: 1 (+18, win on ply 7; exact)"))

	out = run(t, sc, "analyze -depth 2")
	assert.Contains(t, out, "* 1: +18")

	out = run(t, sc, "pv")
	is.Equal(out, "PV; val 18; 1 (+18, win on ply 7)\nmoves: 1212121")

	out = run(t, sc, "aiplay")
	assert.Contains(t, out, "moves: 1212121")
	_, err := sc.ProcessLine(context.Background(), "solve")
	is.True(err != nil)

	run(t, sc, "moves 12121")
	out = run(t, sc, "solve -depth 4")
	assert.Contains(t, out, "Best move: 1 (")
	assert.Contains(t, out, "depth 4, not exact")

	_, err = sc.ProcessLine(context.Background(), "solve -depth x")
	is.True(err != nil)
}

func TestResultPly(t *testing.T) {
	is := is.New(t)
	// Winning with the 7th disc.
	is.Equal(resultPly(18, 6), 7)
	// The opponent wins with the 9th disc.
	is.Equal(resultPly(-17, 7), 9)
	is.Equal(describeScore(18, 6), "+18, win on ply 7")
	is.Equal(describeScore(-17, 7), "-17, loss on ply 9")
	is.Equal(describeScore(0, 20), "0, draw")
}

func TestSet(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController()

	run(t, sc, "set "+config.ConfigMaxDepth+" 6")
	is.Equal(sc.settings.MaxDepth, 6)

	old := sc.solver
	run(t, sc, "set "+config.ConfigTTSize+" 2003")
	is.True(sc.solver != old)
	is.Equal(sc.solver.TranspositionTable().Size(), 2003)

	_, err := sc.ProcessLine(context.Background(), "set bogus 1")
	is.True(err != nil)
	_, err = sc.ProcessLine(context.Background(), "set "+config.ConfigThreads+" -2")
	is.True(err != nil)

	assert.Contains(t, run(t, sc, "set"), config.ConfigMaxDepth)
}

func TestHelp(t *testing.T) {
	sc, _ := newTestController()
	assert.Contains(t, run(t, sc, "help"), "Commands:")
	assert.Contains(t, run(t, sc, "help script"), "c4_solve")
	assert.Equal(t, "There is no help text for the topic nope", run(t, sc, "help nope"))
	assert.Equal(t, "no book loaded", run(t, sc, "book"))
}

func TestBookCommand(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController()
	fn := filepath.Join(t.TempDir(), "tiny.book")
	is.NoErr(os.WriteFile(fn, []byte("1 2\n2 1\n3 0\n4 -1\n5 0\n6 1\n7 2\n"), 0644))

	assert.Contains(t, run(t, sc, "book "+fn), "loaded 7 entries, depth 1")
	is.True(sc.solver.Book() != nil)
	assert.Contains(t, run(t, sc, "book"), "book: 7 entries")
	is.Equal(run(t, sc, "book off"), "book disabled")
	is.True(sc.solver.Book() == nil)
}

func TestScript(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController()
	dir := t.TempDir()

	fn := filepath.Join(dir, "win.lua")
	is.NoErr(os.WriteFile(fn, []byte(`
c4_run("moves 121212")
local col, score = c4_solve("")
if col ~= 1 or score ~= 18 then
  error("unexpected solve result " .. tostring(col) .. " " .. tostring(score))
end
local scores = c4_analyze("-depth 2")
if scores[1] ~= 18 then
  error("unexpected analysis")
end
c4_run("play " .. col)
if c4_moves() ~= "1212121" then
  error("unexpected moves " .. c4_moves())
end
local res = c4_run("play 3")
if string.sub(res, 1, 7) ~= "ERROR: " then
  error("play after a win should fail")
end
`), 0644))

	r, err := sc.ProcessLine(context.Background(), "script "+fn)
	is.NoErr(err)
	is.Equal(r.Message(), "script "+fn+" finished")
	is.Equal(sc.game.MoveString(), "1212121")

	bad := filepath.Join(dir, "bad.lua")
	is.NoErr(os.WriteFile(bad, []byte(`error("boom")`), 0644))
	_, err = sc.ProcessLine(context.Background(), "script "+bad)
	is.True(err != nil)

	_, err = sc.ProcessLine(context.Background(), "script")
	is.True(err != nil)
}

func TestCompleter(t *testing.T) {
	is := is.New(t)
	c := NewShellCompleter(nil)

	m, n := c.Do([]rune("so"), 2)
	is.Equal(n, 2)
	is.Equal(m, [][]rune{[]rune("lve")})

	m, n = c.Do([]rune("autoplay -pl"), 12)
	is.Equal(n, 3)
	is.Equal(m, [][]rune{[]rune("ayer1"), []rune("ayer2")})

	m, n = c.Do([]rune("autoplay -player1 "), 18)
	is.Equal(n, 0)
	is.Equal(m, [][]rune{[]rune("solver"), []rune("random")})

	m, _ = c.Do([]rune("set null-window "), 16)
	is.Equal(len(m), 2)
}

func TestSolveUsesStore(t *testing.T) {
	is := is.New(t)
	cfg := config.DefaultConfig()
	cfg.Set(config.ConfigBookPath, "")
	cfg.Set(config.ConfigTTSize, 1009)
	cfg.Set(config.ConfigStorePath, filepath.Join(t.TempDir(), "evals.db"))
	sc := newController(cfg, "", "test", &bytes.Buffer{})
	defer sc.Cleanup()
	is.True(sc.store != nil)

	run(t, sc, "moves 121212")
	out := run(t, sc, "solve")
	assert.Contains(t, out, "; exact)")
	out = run(t, sc, "solve")
	is.Equal(out, "Best move: 1 (+18, win on ply 7; exact, stored)")

	// Depth-limited results are not saved.
	run(t, sc, "moves 12121")
	run(t, sc, "solve -depth 4")
	n, err := sc.store.Count(context.Background(), 0)
	is.NoErr(err)
	is.Equal(n, 1)
}

func TestAutoplayTools(t *testing.T) {
	is := is.New(t)
	sc, _ := newTestController()
	dir := t.TempDir()
	seeds := filepath.Join(dir, "seeds.txt")
	logf := filepath.Join(dir, "games.csv")

	is.Equal(run(t, sc, "autoplay seeds 3 "+seeds), "wrote 3 seeds to "+seeds)
	out := run(t, sc, "autoplay -games 4 -threads 2 -player1 random -player2 random -seeds "+seeds+" -out "+logf)
	assert.Contains(t, out, "Games played: 4")

	out = run(t, sc, "autoplay log "+logf)
	assert.Contains(t, out, "Games played: 4")
	assert.Contains(t, out, "random")

	_, err := sc.ProcessLine(context.Background(), "autoplay seeds x "+seeds)
	is.True(err != nil)
	_, err = sc.ProcessLine(context.Background(), "autoplay frob")
	is.True(err != nil)
}
