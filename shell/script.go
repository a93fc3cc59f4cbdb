package shell

import (
	"context"
	"errors"
	"net/http"

	"github.com/cjoudrey/gluahttp"
	"github.com/rs/zerolog/log"
	lua "github.com/yuin/gopher-lua"
	luajson "layeh.com/gopher-json"
)

const luaShellGlobal = "c4_shell"

func getShell(L *lua.LState) *ShellController {
	shell := L.GetGlobal(luaShellGlobal)
	ud, ok := shell.(*lua.LUserData)
	if !ok {
		panic("luserdata not right type")
	}
	sc, ok := ud.Value.(*ShellController)
	if !ok {
		panic("shellcontroller not right type")
	}
	return sc
}

// Run executes any shell command and returns its output, or "ERROR: ..."
func Run(L *lua.LState) int {
	line := L.ToString(1)
	sc := getShell(L)
	r, err := sc.ProcessLine(L.Context(), line)
	if err != nil {
		log.Err(err).Str("line", line).Msg("error-executing-script-line")
		L.Push(lua.LString("ERROR: " + err.Error()))
		return 1
	}
	if r == nil {
		L.Push(lua.LString(""))
		return 1
	}
	L.Push(lua.LString(r.message))
	// return number of results pushed to stack.
	return 1
}

// Solve returns the best column (1-indexed) and its score, or nil and an
// error message.
func Solve(L *lua.LState) int {
	sc := getShell(L)
	cmd, err := extractFields("solve " + L.OptString(1, ""))
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	ctx, cancel, err := sc.searchContext(L.Context(), cmd)
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	defer cancel()
	col, score, err := sc.solver.Solve(ctx, sc.game.Position())
	if err != nil {
		L.Push(lua.LNil)
		L.Push(lua.LString(err.Error()))
		return 2
	}
	L.Push(lua.LNumber(col + 1))
	L.Push(lua.LNumber(score))
	return 2
}

// Analyze returns a table indexed by column 1-7; full columns are absent.
func Analyze(L *lua.LState) int {
	sc := getShell(L)
	cmd, err := extractFields("analyze " + L.OptString(1, ""))
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	ctx, cancel, err := sc.searchContext(L.Context(), cmd)
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	defer cancel()
	scores, err := sc.solver.Analyze(ctx, sc.game.Position())
	if err != nil {
		L.RaiseError("%v", err)
		return 0
	}
	tbl := L.NewTable()
	for _, cs := range scores {
		if cs.Legal {
			tbl.RawSetInt(cs.Column+1, lua.LNumber(cs.Score))
		}
	}
	L.Push(tbl)
	return 1
}

// Moves returns the current game as a move string.
func Moves(L *lua.LState) int {
	L.Push(lua.LString(getShell(L).game.MoveString()))
	return 1
}

func (sc *ShellController) script(ctx context.Context, cmd *shellcmd) (*Response, error) {
	if cmd.args == nil {
		return nil, errors.New("need arguments for script")
	}

	filepath := cmd.args[0]

	L := lua.NewState()
	defer L.Close()
	L.SetContext(ctx)

	luajson.Preload(L)
	L.PreloadModule("http", gluahttp.NewHttpModule(&http.Client{}).Loader)

	lsc := L.NewUserData()
	lsc.Value = sc

	L.SetGlobal(luaShellGlobal, lsc)
	L.SetGlobal("c4_run", L.NewFunction(Run))
	L.SetGlobal("c4_solve", L.NewFunction(Solve))
	L.SetGlobal("c4_analyze", L.NewFunction(Analyze))
	L.SetGlobal("c4_moves", L.NewFunction(Moves))

	if err := L.DoFile(filepath); err != nil {
		log.Err(err).Msg("there was a error")
		return nil, err
	}
	return msg("script " + filepath + " finished"), nil
}
