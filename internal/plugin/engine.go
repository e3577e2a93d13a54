// Package plugin implements spec §4.C: a single-threaded cooperative
// scheduler hosting sandboxed guest scripts. Grounded on
// original_source/src/plugin/engine.rs's PluginEngine::task_async loop,
// translated from tokio's LocalSet + mpsc channels onto one goroutine
// draining the teacher's broadcast-bus pattern (internal/bus) plus a
// private command channel, matching how internal/transport workers are
// structured (one goroutine, non-blocking drains, explicit Exit command).
package plugin

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"os/exec"
	"regexp"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/mwhite/scope-go/internal/bus"
	"github.com/mwhite/scope-go/internal/messages"
	"github.com/mwhite/scope-go/internal/transport"
)

// Command drives the engine from the outside (user commands, load/unload
// requests issued by the input interpreter's `!` dispatch).
type Command struct {
	Kind        CommandKind
	PluginName  string
	FilePath    string
	UserCommand string
	Options     []string
	LogLevel    LogLevel
}

type CommandKind int

const (
	CmdLoad CommandKind = iota
	CmdUnload
	CmdSetLogLevel
	CmdUserCommand
	CmdExit
)

// MemoryReader is the seam the RTT transport's ReadMemory feeds into the
// engine's `:rtt.read_memory` request (spec §4.B "Supports an additional
// ReadMemory(address,size) request that returns bytes to the caller (via a
// response to the plugin engine...)").
type MemoryReader func(address uint32, size int) ([]byte, error)

// SerialInfoFunc answers a script's `:serial.info` request with the active
// endpoint's port/baud, as reported by whichever transport is live.
type SerialInfoFunc func() (port string, baud uint32)

// Engine is the §4.C plugin engine.
type Engine struct {
	buses   transport.Buses
	cmds    chan Command
	latency time.Duration

	memRead    MemoryReader
	serialInfo SerialInfoFunc

	rx  bus.Consumer[messages.TimedFrame]
	log bus.Consumer[messages.LogRecord]

	plugins map[string]*Record

	nextGlobalID uint64
}

// New creates an Engine. latency mirrors spec §4.B/§5's configurable
// scheduling quantum; zero means yield as fast as possible. memRead and
// serialInfo may be nil; wiring them lets `:rtt.read_memory` and
// `:serial.info` answer from whichever transport is live.
func New(buses transport.Buses, latency time.Duration, memRead MemoryReader, serialInfo SerialInfoFunc) (*Engine, error) {
	rx, err := buses.RX.Subscribe()
	if err != nil {
		return nil, err
	}
	logc, err := buses.Log.Subscribe()
	if err != nil {
		return nil, err
	}
	return &Engine{
		buses:      buses,
		cmds:       make(chan Command, 64),
		latency:    latency,
		memRead:    memRead,
		serialInfo: serialInfo,
		rx:         rx,
		log:        logc,
		plugins:    make(map[string]*Record),
	}, nil
}

func (e *Engine) Commands() chan<- Command { return e.cmds }

// Names returns every currently loaded plugin's name, unordered (feeds
// input.Candidates.PluginNames for autocomplete).
func (e *Engine) Names() []string {
	names := make([]string, 0, len(e.plugins))
	for name := range e.plugins {
		names = append(names, name)
	}
	return names
}

// UserCommands returns the candidate autocomplete needs: for each loaded
// plugin, the user-facing entry points defined beyond the on_* lifecycle
// hooks the engine invokes itself (spec §4.E "user commands per plugin").
func (e *Engine) UserCommands() map[string][]string {
	out := make(map[string][]string, len(e.plugins))
	for name, r := range e.plugins {
		out[name] = r.userCommandNames()
	}
	return out
}

// Run is the scheduler loop: drain one command, dispatch one event from
// each bus, step every live coroutine call one turn, then yield/sleep by
// the configured latency (spec §4.C, §4.B step 7, §5 "Scheduling model").
func (e *Engine) Run(ctx context.Context) {
	defer e.closeAll()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-e.cmds:
			if e.handleCommand(cmd) {
				return
			}
		default:
		}

		e.dispatchRxFrame()
		e.dispatchTxFrames()
		e.dispatchConnectionNotifications()
		e.stepAllCalls()
		e.expireSerialRecv()

		e.wait()
	}
}

func (e *Engine) wait() {
	if e.latency > 0 {
		time.Sleep(e.latency)
		return
	}
	time.Sleep(time.Microsecond)
}

func (e *Engine) closeAll() {
	for _, r := range e.plugins {
		r.close()
	}
}

func (e *Engine) handleCommand(cmd Command) bool {
	switch cmd.Kind {
	case CmdExit:
		return true
	case CmdLoad:
		e.loadPlugin(cmd.FilePath)
	case CmdUnload:
		e.scheduleUnload(cmd.PluginName, UnloadUnload)
	case CmdSetLogLevel:
		if r, ok := e.plugins[cmd.PluginName]; ok {
			r.SetLogLevel(cmd.LogLevel)
		} else {
			e.logf(messages.LevelError, "engine", "plugin %q not loaded", cmd.PluginName)
		}
	case CmdUserCommand:
		r, ok := e.plugins[cmd.PluginName]
		if !ok {
			e.logf(messages.LevelError, "engine", "plugin %q not loaded", cmd.PluginName)
			return false
		}
		if !r.HasEntryPoint(cmd.UserCommand) {
			e.logf(messages.LevelError, "engine", "plugin %q has no %q command", cmd.PluginName, cmd.UserCommand)
			return false
		}
		e.spawnCall(r, cmd.UserCommand, stringsToLua(r.state, cmd.Options))
	}
	return false
}

// loadPlugin implements spec §4.C "Loading": reload in place if the name is
// already registered, otherwise compile fresh and schedule on_load.
func (e *Engine) loadPlugin(path string) {
	name := pluginNameOf(path)
	if existing, ok := e.plugins[name]; ok {
		existing.SetUnloadMode(UnloadReload)
		e.spawnCall(existing, "on_unload", nil)
		return
	}

	r, err := loadRecord(path)
	if err != nil {
		e.logf(messages.LevelError, "engine", "%s", offendingLine(err))
		return
	}
	txc, err := e.buses.TX.Subscribe()
	if err != nil {
		r.close()
		e.logf(messages.LevelError, "engine", "cannot subscribe plugin %q to tx: %v", name, err)
		return
	}
	r.txConsumer = txc
	e.plugins[name] = r
	e.logf(messages.LevelSuccess, "engine", "plugin %q loaded", name)
	e.spawnCall(r, "on_load", nil)
}

func (e *Engine) scheduleUnload(name string, mode UnloadMode) {
	r, ok := e.plugins[name]
	if !ok {
		e.logf(messages.LevelError, "engine", "plugin %q not loaded", name)
		return
	}
	r.SetUnloadMode(mode)
	e.spawnCall(r, "on_unload", nil)
}

func pluginNameOf(path string) string {
	base := path
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '/' {
			base = base[i+1:]
			break
		}
	}
	for i := len(base) - 1; i >= 0; i-- {
		if base[i] == '.' {
			return base[:i]
		}
	}
	return base
}

// spawnCall starts a new coroutine invocation if the plugin defines the
// entry point and its unload_mode allows new calls (spec §4.C "While
// unload_mode ≠ None, no new calls are spawned on that plugin" — except
// on_unload itself, which is what drives the unload/reload transition).
func (e *Engine) spawnCall(r *Record, entryPoint string, initialArgs []lua.LValue) {
	if entryPoint != "on_unload" && r.UnloadMode() != UnloadNone {
		return
	}
	fn := r.entryPoint(entryPoint)
	if fn == nil {
		return
	}
	e.nextGlobalID++
	id := callDigest(r.Name, entryPoint, e.nextGlobalID)
	call := newCoroutineCall(id, r.Name, r.state, fn)
	call.initialArgs = initialArgs
	r.calls[id] = call
	e.driveCall(r, call)
}

// callDigest matches spec §2's "call_id: 64-bit digest of (name, function,
// index)".
func callDigest(name, fn string, index uint64) uint64 {
	h := fnv.New64a()
	fmt.Fprintf(h, "%s:%s:%d", name, fn, index)
	return h.Sum64()
}

// driveCall resumes a coroutine until it suspends on an external request it
// cannot resolve this turn, finishes, or errors (spec §4.C "Call protocol").
func (e *Engine) driveCall(r *Record, c *coroutineCall) {
	var resumeArgs []lua.LValue
	if c.pendingResult != nil {
		resumeArgs = c.pendingResult.ToLua(r.state)
		c.pendingResult = nil
	} else if !c.started {
		resumeArgs = c.initialArgs
	}

	for {
		yielded, done, err := c.resume(r.state, resumeArgs...)
		if err != nil {
			e.logf(messages.LevelError, r.Name, "%s", offendingLine(err))
			delete(r.calls, c.id)
			return
		}
		if done {
			delete(r.calls, c.id)
			return
		}

		req, perr := ParseRequest(yielded)
		if perr != nil {
			e.logf(messages.LevelError, r.Name, "%v", perr)
			delete(r.calls, c.id)
			return
		}

		if req.Kind.IsInternal() {
			resp, waiting := e.resolveInternal(r, c, req)
			if waiting {
				return
			}
			resumeArgs = resp.ToLua(r.state)
			continue
		}

		resp, ready := e.resolveExternal(r, c, req)
		if req.Kind == ReqFinish {
			delete(r.calls, c.id)
			return
		}
		if !ready {
			return
		}
		resumeArgs = resp.ToLua(r.state)
	}
}

// resolveInternal handles spec §4.C's engine-local requests. SysSleep and
// ShellRun are asynchronous (resolved on a later turn); the rest resolve
// immediately.
func (e *Engine) resolveInternal(r *Record, c *coroutineCall, req Request) (Response, bool) {
	switch req.Kind {
	case ReqSysSleep:
		c.waitUntil = time.Now().Add(time.Duration(req.SleepMS) * time.Millisecond)
		c.waitingOn = waitSleep
		return Response{}, true
	case ReqReLiteral:
		return Response{Kind: ReqReLiteral, Literal: regexp.QuoteMeta(req.Pattern)}, false
	case ReqReMatches:
		for _, p := range req.PatternTable {
			if ok, _ := regexp.MatchString(p, req.Pattern); ok {
				return Response{Kind: ReqReMatches, HasMatch: true, Matched: p}, false
			}
		}
		return Response{Kind: ReqReMatches}, false
	case ReqReMatch:
		ok, _ := regexp.MatchString(req.Pattern, req.Message)
		return Response{Kind: ReqReMatch, IsMatch: ok}, false
	case ReqShellExist:
		_, err := exec.LookPath(req.Program)
		return Response{Kind: ReqShellExist, Exists: err == nil}, false
	case ReqShellRun:
		done := make(chan Response, 1)
		go func() {
			cmd := exec.Command("sh", "-c", req.Cmd)
			var stdout, stderr bytes.Buffer
			cmd.Stdout = &stdout
			cmd.Stderr = &stderr
			_ = cmd.Run()
			done <- Response{Kind: ReqShellRun, Stdout: stdout.String(), Stderr: stderr.String()}
		}()
		c.shellDone = done
		c.waitingOn = waitShell
		return Response{}, true
	default:
		return Response{}, false
	}
}

// resolveExternal handles spec §4.C's engine-arbitrated requests.
// SerialInfo/SerialSend/Log resolve synchronously; SerialRecv suspends
// until a matching rx frame or deadline; Finish never yields a response.
func (e *Engine) resolveExternal(r *Record, c *coroutineCall, req Request) (Response, bool) {
	switch req.Kind {
	case ReqSerialInfo:
		var port string
		var baud uint32
		if e.serialInfo != nil {
			port, baud = e.serialInfo()
		}
		return Response{Kind: ReqSerialInfo, Port: port, Baud: baud}, true
	case ReqSerialSend:
		// publish_except this plugin's own tx consumer so its on_serial_send
		// does not re-fire for its own injection (spec §4.C "SerialSend").
		e.buses.TX.PublishExcept(messages.TimedFrame{Timestamp: time.Now(), Payload: req.Bytes}, r.txConsumer.ID)
		return Response{Kind: ReqSerialSend}, true
	case ReqSerialRecv:
		if req.TimeoutMS == 0 {
			return Response{Kind: ReqSerialRecv, Err: "timeout"}, true
		}
		c.waitUntil = time.Now().Add(time.Duration(req.TimeoutMS) * time.Millisecond)
		c.waitingOn = waitSerialRecv
		return Response{}, false
	case ReqReadMemory:
		if e.memRead == nil {
			return Response{Kind: ReqReadMemory, Err: "rtt: not attached"}, true
		}
		data, err := e.memRead(req.Address, req.Size)
		if err != nil {
			return Response{Kind: ReqReadMemory, Err: err.Error()}, true
		}
		return Response{Kind: ReqReadMemory, Bytes: data}, true
	case ReqLog:
		if req.Level >= levelFor(r.LogLevel()) {
			e.buses.Log.Publish(messages.LogRecord{
				Timestamp: time.Now(),
				Level:     req.Level,
				Source:    r.Name,
				Message:   req.Message,
			})
		}
		return Response{Kind: ReqLog}, true
	case ReqFinish:
		e.finish(r, req.FnName)
		return Response{}, true
	default:
		return Response{}, true
	}
}

func levelFor(l LogLevel) messages.Level {
	switch l {
	case LogDebug:
		return messages.LevelDebug
	case LogInfo:
		return messages.LevelInfo
	case LogSuccess:
		return messages.LevelSuccess
	case LogWarning:
		return messages.LevelWarning
	default:
		return messages.LevelError
	}
}

// finish implements spec §4.C "On Finish('on_unload') the engine either
// drops the record (Unload) or reloads from file_path (Reload)."
func (e *Engine) finish(r *Record, fnName string) {
	if fnName != "on_unload" {
		return
	}
	switch r.UnloadMode() {
	case UnloadReload:
		path := r.FilePath
		name := r.Name
		delete(e.plugins, name)
		r.close()
		fresh, err := loadRecord(path)
		if err != nil {
			e.logf(messages.LevelError, "engine", "%s", offendingLine(err))
			return
		}
		txc, err := e.buses.TX.Subscribe()
		if err != nil {
			fresh.close()
			return
		}
		fresh.txConsumer = txc
		e.plugins[name] = fresh
		e.logf(messages.LevelSuccess, "engine", "plugin %q reloaded", name)
		e.spawnCall(fresh, "on_load", nil)
	default:
		delete(e.plugins, r.Name)
		r.close()
		e.logf(messages.LevelWarning, "engine", "plugin %q unloaded", r.Name)
	}
}

// stepAllCalls advances every call that was waiting on a sleep or shell
// deadline that has now elapsed/completed (spec §4.C "the coroutine resumes
// on the next turn").
func (e *Engine) stepAllCalls() {
	now := time.Now()
	for _, r := range e.plugins {
		for _, c := range r.calls {
			switch c.waitingOn {
			case waitSleep:
				if now.After(c.waitUntil) || now.Equal(c.waitUntil) {
					c.waitingOn = waitNone
					c.pendingResult = &Response{Kind: ReqSysSleep}
					e.driveCall(r, c)
				}
			case waitShell:
				select {
				case resp := <-c.shellDone:
					c.waitingOn = waitNone
					c.pendingResult = &resp
					e.driveCall(r, c)
				default:
				}
			case waitSerialRecv:
				// resolved from dispatchRxFrame/expireSerialRecv
			}
		}
	}
}

// dispatchRxFrame fans an incoming frame out to every plugin's
// on_serial_recv, and resolves every pending SerialRecv with it (spec §4.C
// "Arbitrating SerialRecv": "On each bus rx-frame delivery, every pending
// request is answered with that frame and cleared").
func (e *Engine) dispatchRxFrame() {
	select {
	case frame := <-e.rx.C:
		for _, r := range e.plugins {
			e.spawnCall(r, "on_serial_recv", []lua.LValue{lua.LString(frame.Payload)})
			for _, c := range r.calls {
				if c.waitingOn == waitSerialRecv {
					c.waitingOn = waitNone
					c.pendingResult = &Response{Kind: ReqSerialRecv, Bytes: frame.Payload}
					e.driveCall(r, c)
				}
			}
		}
	default:
	}
}

// dispatchTxFrames fans each plugin's own tx subscription out to
// on_serial_send (spec §4.C "Dispatch"). Each plugin subscribes to tx
// independently so SerialSend's publish_except can suppress the originating
// plugin's own callback while still notifying the rest (spec §4.C
// "SerialSend").
func (e *Engine) dispatchTxFrames() {
	for _, r := range e.plugins {
		select {
		case frame := <-r.txConsumer.C:
			e.spawnCall(r, "on_serial_send", []lua.LValue{lua.LString(frame.Payload)})
		default:
		}
	}
}

// dispatchConnectionNotifications watches the log stream for the
// connect/disconnect lines transport workers publish (internal/transport's
// Buses.logf) and fires on_serial_connect/on_serial_disconnect, matching
// spec §4.C's "serial-connect notification" dispatch without inventing a
// transport->plugin channel the teacher's bus model doesn't otherwise need.
func (e *Engine) dispatchConnectionNotifications() {
	select {
	case rec := <-e.log.C:
		if rec.Source != "serial" && rec.Source != "rtt" && rec.Source != "loopback" {
			return
		}
		switch {
		case rec.Level == messages.LevelSuccess:
			for _, r := range e.plugins {
				e.spawnCall(r, "on_serial_connect", []lua.LValue{lua.LString(rec.Source)})
			}
		case rec.Level == messages.LevelWarning:
			for _, r := range e.plugins {
				e.spawnCall(r, "on_serial_disconnect", []lua.LValue{lua.LString(rec.Source)})
			}
		}
	default:
	}
}

// expireSerialRecv answers every pending SerialRecv whose deadline has
// passed with a timeout error (spec §4.C "On each scheduler turn, requests
// whose deadline has passed are answered with a timeout error").
func (e *Engine) expireSerialRecv() {
	now := time.Now()
	for _, r := range e.plugins {
		for _, c := range r.calls {
			if c.waitingOn == waitSerialRecv && now.After(c.waitUntil) {
				c.waitingOn = waitNone
				c.pendingResult = &Response{Kind: ReqSerialRecv, Err: "timeout"}
				e.driveCall(r, c)
			}
		}
	}
}

func (e *Engine) logf(level messages.Level, source, format string, args ...any) {
	e.buses.Log.Publish(messages.LogRecord{
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   fmt.Sprintf(format, args...),
	})
}

func stringsToLua(L *lua.LState, args []string) []lua.LValue {
	out := make([]lua.LValue, len(args))
	for i, a := range args {
		out[i] = lua.LString(a)
	}
	return out
}
