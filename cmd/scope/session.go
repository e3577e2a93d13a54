package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/mwhite/scope-go/internal/bus"
	"github.com/mwhite/scope-go/internal/config"
	"github.com/mwhite/scope-go/internal/infra"
	"github.com/mwhite/scope-go/internal/input"
	"github.com/mwhite/scope-go/internal/logging"
	"github.com/mwhite/scope-go/internal/messages"
	"github.com/mwhite/scope-go/internal/plugin"
	"github.com/mwhite/scope-go/internal/screen"
	"github.com/mwhite/scope-go/internal/transport"
)

func runSerial(params transport.SerialParams) error {
	buses := newBuses()
	tr, err := transport.NewSerial(params, buses)
	if err != nil {
		return err
	}
	serialInfo := func() (string, uint32) { return params.Port, params.Baud }
	return runSession(buses, tr, nil, serialInfo)
}

func runRTT(params transport.RTTParams) error {
	buses := newBuses()
	tr, err := transport.NewRTT(params, &unavailableProbe{}, buses)
	if err != nil {
		return err
	}
	return runSession(buses, tr, nil, nil)
}

func runLoopback() error {
	buses := newBuses()
	tr, err := transport.NewLoopback(transport.LoopbackParams{
		Generate:     func() []byte { return []byte(fmt.Sprintf("tick %d", rand.Intn(1000))) },
		SendInterval: time.Second,
	}, buses)
	if err != nil {
		return err
	}
	return runSession(buses, tr, nil, nil)
}

// unavailableProbe is the RTT backend seam transport.Probe names: nothing
// in the retrieval pack ships a probe-rs equivalent (CMSIS-DAP/J-Link
// driver), so this always fails to attach and the transport simply stays
// Reconnecting — a real backend slots in behind the same interface.
type unavailableProbe struct{}

func (unavailableProbe) Attach(ctx context.Context, target string) (transport.ProbeSession, error) {
	return nil, fmt.Errorf("cmd/scope: no debug probe backend configured for %q", target)
}

func newBuses() transport.Buses {
	return transport.Buses{
		RX:  bus.New[messages.TimedFrame](),
		TX:  bus.New[messages.TimedFrame](),
		Log: bus.New[messages.LogRecord](),
	}
}

// runSession wires buses, transport, plugin engine, screen, and input
// together and runs the render/input loop until reading a key from stdin
// fails, e.g. at EOF (spec §5 "Scheduling model": rendering loop, input loop,
// transport, and plugin engine each run on their own worker).
func runSession(buses transport.Buses, tr transport.Contract, memRead plugin.MemoryReader, serialInfo plugin.SerialInfoFunc) error {
	logPath, err := config.DataDir()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(logPath, 0o755); err != nil {
		return err
	}
	if err := logging.Initialize(logPath + "/scope.log"); err != nil {
		return &configError{err}
	}
	defer logging.Sync()

	cmdTable, err := config.LoadCommandTable(flags.CommandFile)
	if err != nil {
		return &configError{err}
	}
	tagTable, err := config.LoadTagTable(flags.TagFile)
	if err != nil {
		return &configError{err}
	}

	engine, err := plugin.New(buses, time.Duration(flags.LatencyMicros)*time.Microsecond, memRead, serialInfo)
	if err != nil {
		return err
	}

	ring := screen.NewRing(flags.Capacity)
	screenState := screen.NewState()
	saveStats, err := infra.NewSaveStats(flags.SaveFile)
	if err != nil {
		return err
	}

	histPath, err := config.HistoryFilePath()
	if err != nil {
		return err
	}
	history, err := input.OpenPersistHistory(histPath)
	if err != nil {
		return err
	}

	term, err := openTerminalSession()
	if err != nil {
		return err
	}
	defer term.restore()
	defer func() {
		if r := recover(); r != nil {
			term.restore()
			panic(r)
		}
	}()

	cols, rows := term.size()
	screenState.Viewport = screen.Viewport{Width: cols, Height: rows - 2}
	inputState := input.NewState(history, rows/2)
	inputState.SetCandidates(candidatesFrom(cmdTable, tagTable, engine))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go tr.Spawn(ctx)
	go engine.Run(ctx)

	s := &sessionLoop{
		buses: buses, tr: tr, engine: engine,
		ring: ring, screenState: screenState, saveStats: saveStats,
		inputState: inputState, cmdTable: cmdTable, tagTable: tagTable,
		term: term,
	}
	return s.run(ctx, cancel)
}

func candidatesFrom(cmdTable *config.CommandTable, tagTable *config.TagTable, engine *plugin.Engine) input.Candidates {
	return input.Candidates{
		MetaCommands:       []string{"clear", "commands", "plugin"},
		PluginNames:        engine.Names(),
		PluginUserCommands: engine.UserCommands(),
		TagKeys:            tagTable.Keys(),
		CommandKeys:        cmdTable.Keys(),
	}
}

// sessionLoop holds the live state the render/input loop reads and
// mutates each frame.
type sessionLoop struct {
	buses  transport.Buses
	tr     transport.Contract
	engine *plugin.Engine

	ring        *screen.Ring
	screenState *screen.State
	saveStats   *infra.SaveStats
	inputState  *input.State
	cmdTable    *config.CommandTable
	tagTable    *config.TagTable
	term        *terminalSession
}

func (s *sessionLoop) run(ctx context.Context, cancel context.CancelFunc) error {
	rx, err := s.buses.RX.Subscribe()
	if err != nil {
		return err
	}
	tx, err := s.buses.TX.Subscribe()
	if err != nil {
		return err
	}
	logc, err := s.buses.Log.Subscribe()
	if err != nil {
		return err
	}

	winch := make(chan os.Signal, 1)
	signal.Notify(winch, syscall.SIGWINCH)
	defer signal.Stop(winch)

	keys := make(chan input.Key, 16)
	keyErrs := make(chan error, 1)
	go func() {
		r := bufio.NewReader(os.Stdin)
		for {
			k, err := decodeKey(r)
			if err != nil {
				keyErrs <- err
				return
			}
			keys <- k
		}
	}()

	latency := time.Duration(flags.LatencyMicros) * time.Microsecond
	if latency <= 0 {
		latency = time.Millisecond
	}
	ticker := time.NewTicker(latency)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-keyErrs:
			cancel()
			return nil
		case frame := <-rx.C:
			s.drainAndPush(screen.Line{Timestamp: frame.Timestamp, Kind: screen.KindRx, Raw: frame.Payload}, rx, tx, logc)
		case frame := <-tx.C:
			s.drainAndPush(screen.Line{Timestamp: frame.Timestamp, Kind: screen.KindTx, Raw: frame.Payload}, rx, tx, logc)
		case rec := <-logc.C:
			logging.FromRecord(rec)
			s.drainAndPush(screen.Line{Timestamp: rec.Timestamp, Kind: screen.KindLog, LogLevel: rec.Level, Raw: []byte(rec.Message)}, rx, tx, logc)
		case <-winch:
			cols, rows := s.term.size()
			s.screenState.Viewport = screen.Viewport{Width: cols, Height: rows - 2}
		case k := <-keys:
			if !s.handleKey(k) {
				cancel()
				return nil
			}
		case <-ticker.C:
			s.saveStats.Tick(time.Now())
			s.draw()
		}
	}
}

// drainAndPush collects first plus whatever else is already queued on rx/tx/log
// without blocking, stable-sorts the batch by timestamp (tie-break: arrival
// order, preserved by sort.SliceStable), and appends it to the ring in one
// shot (spec §5 "Ordering guarantees": "the renderer stable-sorts each batch
// of newly dequeued messages by timestamp before appending to the ring").
func (s *sessionLoop) drainAndPush(first screen.Line, rx, tx bus.Consumer[messages.TimedFrame], logc bus.Consumer[messages.LogRecord]) {
	batch := []screen.Line{first}
drain:
	for {
		select {
		case frame := <-rx.C:
			batch = append(batch, screen.Line{Timestamp: frame.Timestamp, Kind: screen.KindRx, Raw: frame.Payload})
		case frame := <-tx.C:
			batch = append(batch, screen.Line{Timestamp: frame.Timestamp, Kind: screen.KindTx, Raw: frame.Payload})
		case rec := <-logc.C:
			logging.FromRecord(rec)
			batch = append(batch, screen.Line{Timestamp: rec.Timestamp, Kind: screen.KindLog, LogLevel: rec.Level, Raw: []byte(rec.Message)})
		default:
			break drain
		}
	}
	sort.SliceStable(batch, func(i, j int) bool { return batch[i].Timestamp.Before(batch[j].Timestamp) })
	s.ring.PushAll(batch)
	s.screenState.OnNewLines(s.ring.Len())
}

func (s *sessionLoop) handleKey(k input.Key) bool {
	if s.inputState.Mode == input.ModeSearch {
		switch s.inputState.HandleSearch(k) {
		case input.SearchEditQueryChanged:
			s.screenState.SetQuery(s.inputState.Query(), s.inputState.CaseSensitive, s.ring)
		case input.SearchEditCommit:
			s.screenState.EnterSearch(s.inputState.Query(), s.inputState.CaseSensitive, s.ring)
		case input.SearchEditCancel:
			s.screenState.ExitSearch(s.ring.Len())
		case input.SearchEditNext:
			s.screenState.NextSearch(s.ring.Len())
		case input.SearchEditPrev:
			s.screenState.PrevSearch(s.ring.Len())
		}
		return true
	}

	action := s.inputState.HandleNormal(k)
	switch action.Kind {
	case input.ActionData:
		s.sendData(action.Body)
	case input.ActionCommand:
		s.dispatchCommand(action.Name, action.Body)
	case input.ActionMetaClear:
		s.screenState.Clear()
		s.ring.Clear()
	case input.ActionMetaCommands:
		if err := s.cmdTable.Reload(); err != nil {
			s.logError(err.Error())
		}
		s.logInfo(fmt.Sprintf("commands: %v", s.cmdTable.Keys()))
	case input.ActionPluginLoad:
		s.engine.Commands() <- plugin.Command{Kind: plugin.CmdLoad, FilePath: action.Body}
	case input.ActionPluginReload:
		s.engine.Commands() <- plugin.Command{Kind: plugin.CmdLoad, FilePath: action.Body}
	case input.ActionPluginUnload:
		s.engine.Commands() <- plugin.Command{Kind: plugin.CmdUnload, PluginName: action.Name}
	case input.ActionPluginUserCommand:
		userCmd, argStr, _ := strings.Cut(action.Body, " ")
		var options []string
		if argStr != "" {
			options = strings.Fields(argStr)
		}
		s.engine.Commands() <- plugin.Command{
			Kind:        plugin.CmdUserCommand,
			PluginName:  action.Name,
			UserCommand: userCmd,
			Options:     options,
		}
	case input.ActionTag:
		if v, ok := s.tagTable.Lookup(action.Name); ok {
			s.sendData(v)
		} else {
			s.logError(fmt.Sprintf("unknown tag: @%s", action.Name))
		}
	case input.ActionSearchNext:
		s.screenState.NextSearch(s.ring.Len())
	case input.ActionSearchPrev:
		s.screenState.PrevSearch(s.ring.Len())
	case input.ActionMetaError:
		s.logError(action.Body)
	}
	return true
}

func (s *sessionLoop) dispatchCommand(name, body string) {
	payload, ok := s.cmdTable.Lookup(name)
	if !ok {
		s.logError(fmt.Sprintf("unknown command: /%s", name))
		return
	}
	if body != "" {
		payload = payload + " " + body
	}
	s.sendData(payload)
}

func (s *sessionLoop) sendData(text string) {
	frame := messages.TimedFrame{Timestamp: time.Now(), Payload: []byte(text + "\r\n")}
	s.buses.TX.Publish(frame)
}

func (s *sessionLoop) logInfo(msg string)  { s.logAt(messages.LevelInfo, msg) }
func (s *sessionLoop) logError(msg string) { s.logAt(messages.LevelError, msg) }

func (s *sessionLoop) logAt(level messages.Level, msg string) {
	s.buses.Log.Publish(messages.LogRecord{Timestamp: time.Now(), Level: level, Message: msg})
}

func (s *sessionLoop) draw() {
	header := s.saveStats.Header()
	rows := screen.Render(s.ring, s.screenState, header)

	var out []byte
	out = append(out, "\x1b[H"...)
	for _, row := range rows {
		out = append(out, row.Text...)
		out = append(out, "\x1b[K\r\n"...)
	}
	out = append(out, renderCommandLine(s.inputState)...)
	os.Stdout.Write(out)
}
