package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/mwhite/scope-go/internal/bus"
	"github.com/mwhite/scope-go/internal/messages"
)

// UnloadMode tracks why a plugin's on_unload was scheduled, per spec §4.C
// "Unloading": None while live, Unload to drop the record on Finish,
// Reload to recompile from file_path on Finish.
type UnloadMode int

const (
	UnloadNone UnloadMode = iota
	UnloadUnload
	UnloadReload
)

// LogLevel gates which :log.* calls a plugin's SetLogLevel command lets
// through (original's Plugin::set_log_level), independent of the global
// log stream's own level.
type LogLevel int

const (
	LogDebug LogLevel = iota
	LogInfo
	LogSuccess
	LogWarning
	LogError
)

// Record is one loaded plugin: its sandboxed Lua state (module-level
// globals persist across calls, spec §4.C "cache the resulting module"),
// the set of named entry points it defines, and its lifecycle state.
type Record struct {
	Name     string
	FilePath string
	Dir      string

	state *lua.LState

	unloadMode UnloadMode
	logLevel   LogLevel

	// txConsumer is this plugin's own subscription to the tx bus, used so
	// SerialSend's publish_except can suppress this plugin's own
	// on_serial_send callback while other plugins still see the frame
	// (spec §4.C "SerialSend").
	txConsumer bus.Consumer[messages.TimedFrame]

	calls map[uint64]*coroutineCall
}

// HasEntryPoint reports whether the script defines a global function with
// this name (spec §4.C "Dispatch ... fanned out to every loaded plugin that
// defines the corresponding entry point").
func (r *Record) HasEntryPoint(name string) bool {
	fn, ok := r.state.GetGlobal(name).(*lua.LFunction)
	return ok && fn != nil
}

func (r *Record) entryPoint(name string) *lua.LFunction {
	fn, _ := r.state.GetGlobal(name).(*lua.LFunction)
	return fn
}

func (r *Record) UnloadMode() UnloadMode    { return r.unloadMode }
func (r *Record) SetUnloadMode(m UnloadMode) { r.unloadMode = m }
func (r *Record) LogLevel() LogLevel         { return r.logLevel }
func (r *Record) SetLogLevel(l LogLevel)     { r.logLevel = l }

// loadRecord compiles filepath under a sandboxed state and derives the
// plugin name from its basename, per spec §4.C "Loading": "derive a name
// from the filename ... compile the script under a sandboxed standard
// library ... extend its module search path to include the script's
// directory". Grounded on original_source/src/plugin/engine.rs's
// Self::load_plugin / Self::get_plugin_name.
func loadRecord(path string) (*Record, error) {
	if ext := filepath.Ext(path); ext != "" && ext != ".lua" {
		return nil, fmt.Errorf("invalid plugin extension: %s", ext)
	}
	if filepath.Ext(path) == "" {
		path += ".lua"
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("filepath %q doesn't exist", path)
	}
	code, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	dir := filepath.Dir(path)

	L := newSandboxState()
	installRequire(L, dir)
	if err := L.DoString(string(code)); err != nil {
		L.Close()
		return nil, err
	}

	return &Record{
		Name:     name,
		FilePath: path,
		Dir:      dir,
		state:    L,
		calls:    make(map[uint64]*coroutineCall),
	}, nil
}

// lifecycleHooks are the entry points the engine itself invokes; they are
// never offered as autocomplete candidates alongside a plugin's own user
// commands (spec §4.E "user commands per plugin").
var lifecycleHooks = map[string]bool{
	"on_load": true, "on_unload": true, "on_serial_send": true,
	"on_serial_recv": true, "on_serial_connect": true, "on_serial_disconnect": true,
}

// baseGlobals are the functions newSandboxState's base library installs;
// excluded so autocomplete offers only names the script itself defined.
var baseGlobals = map[string]bool{
	"print": true, "tostring": true, "tonumber": true, "pairs": true,
	"ipairs": true, "next": true, "type": true, "error": true,
	"assert": true, "pcall": true, "xpcall": true, "select": true,
	"rawget": true, "rawset": true, "rawequal": true, "rawlen": true,
	"setmetatable": true, "getmetatable": true, "unpack": true,
	"collectgarbage": true, "load": true, "loadstring": true, "_VERSION": true,
	"module": true, "require": true,
	"getfenv": true, "setfenv": true, "newproxy": true, "_printregs": true,
}

// userCommandNames enumerates the script's top-level functions that are
// not a lifecycle hook or a base-library builtin — i.e. the commands
// `!plugin <name>.<user_command>` can reach.
func (r *Record) userCommandNames() []string {
	var names []string
	r.state.Globals.ForEach(func(k, v lua.LValue) {
		name, ok := k.(lua.LString)
		if !ok {
			return
		}
		if _, ok := v.(*lua.LFunction); !ok {
			return
		}
		if lifecycleHooks[string(name)] || baseGlobals[string(name)] {
			return
		}
		names = append(names, string(name))
	})
	return names
}

func (r *Record) close() {
	if r.state != nil {
		r.state.Close()
	}
}
