package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// newSandboxState builds a fresh Lua VM exposing only base, table, string,
// math, and coroutine — never io, os, debug, or the package loader, which
// would grant raw filesystem/process access. Spec §7: "The sandbox given to
// guest scripts denies raw filesystem, raw network, and process APIs except
// via the vetted ShellRun/ShellExist requests." Grounded on gopher-lua's own
// OpenLibs, which opens each stdlib the same way: push the loader function
// and its module name, then call it.
func newSandboxState() *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
		{lua.CoroutineLibName, lua.OpenCoroutine},
	} {
		L.Push(L.NewFunction(lib.fn))
		L.Push(lua.LString(lib.name))
		L.Call(1, 0)
	}
	// OpenBase also installs dofile/loadfile, which read arbitrary files.
	L.SetGlobal("dofile", lua.LNil)
	L.SetGlobal("loadfile", lua.LNil)
	return L
}

// installRequire gives the script a `require` limited to sibling .lua files
// in its own directory (spec §4.C "extend its module search path to include
// the script's directory"), never the full filesystem package loader.
func installRequire(L *lua.LState, dir string) {
	loaded := map[string]bool{}
	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if loaded[name] {
			return 0
		}
		path := filepath.Join(dir, name+".lua")
		data, err := os.ReadFile(path)
		if err != nil {
			L.RaiseError("module %q not found alongside plugin", name)
			return 0
		}
		if err := L.DoString(string(data)); err != nil {
			L.RaiseError("module %q: %v", name, err)
			return 0
		}
		loaded[name] = true
		return 0
	}))
}

// offendingLine extracts a script-relative line reference from a gopher-lua
// error, the same way the original's err_regex strips the chunk name prefix
// `[string "..."]:` before logging (spec §4.C "Failure semantics ... the
// offending line extracted").
var chunkPrefix = regexp.MustCompile(`.*:\s*\[string ".*"\]:`)

func offendingLine(err error) string {
	if err == nil {
		return ""
	}
	return chunkPrefix.ReplaceAllString(err.Error(), "")
}

// waitKind is what a suspended call is blocked on between scheduler turns.
type waitKind int

const (
	waitNone waitKind = iota
	waitSleep
	waitShell
	waitSerialRecv
)

// coroutineCall is one live entry-point invocation: a fresh Lua thread
// resuming a script function, per spec §4.C "each function is a coroutine
// body" and the plugin call context lifecycle (created on invoke, destroyed
// on Finish).
type coroutineCall struct {
	id      uint64
	plugin  string
	thread  *lua.LState
	fn      *lua.LFunction
	started bool

	initialArgs []lua.LValue

	// pendingResult is what the next resume is called with; set by the
	// engine once it has serviced the previously yielded request.
	pendingResult *Response

	waitingOn waitKind
	waitUntil time.Time
	shellDone chan Response
}

func newCoroutineCall(id uint64, pluginName string, L *lua.LState, fn *lua.LFunction) *coroutineCall {
	return &coroutineCall{
		id:     id,
		plugin: pluginName,
		thread: L.NewThread(),
		fn:     fn,
	}
}

// resume drives the coroutine one turn forward, returning either a yielded
// request value, a final return (call complete), or an error.
func (c *coroutineCall) resume(owner *lua.LState, args ...lua.LValue) (yielded lua.LValue, done bool, err error) {
	st, values, rerr := owner.Resume(c.thread, c.fn, args...)
	c.started = true
	switch st {
	case lua.ResumeYield:
		if len(values) == 0 {
			return nil, false, fmt.Errorf("plugin: coroutine yielded no value")
		}
		return values[0], false, nil
	case lua.ResumeOK:
		return nil, true, nil
	default:
		return nil, true, rerr
	}
}
