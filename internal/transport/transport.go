// Package transport implements spec §4.B: a long-lived worker owning one
// physical connection, with a connect/disconnect/reconnect state machine,
// line reassembly with idle-flush, and cooperative cancellation.
//
// The three concrete transports (serial, rtt, loopback) are a closed variant
// behind the Contract interface (Design Notes §9: "Dynamic dispatch over
// transports") — callers (the renderer, the plugin engine) depend on the
// contract, not on which variant is live. This mirrors the teacher's
// internal/agent.Controller, which wraps one *pty.PTY behind a mutex-guarded
// state field and exposes Write/Resize/Signal without its callers ever
// touching the underlying process.
package transport

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mwhite/scope-go/internal/bus"
	"github.com/mwhite/scope-go/internal/messages"
)

// Mode is the transport's connection state (spec §3 Transport state).
type Mode int

const (
	DoNotConnect Mode = iota
	Reconnecting
	Connected
)

func (m Mode) String() string {
	switch m {
	case DoNotConnect:
		return "not connected"
	case Reconnecting:
		return "reconnecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}

// Command is a command sent to a transport worker (§4.B transitions).
type Command struct {
	Kind  CommandKind
	Setup any // variant-specific setup parameters, e.g. SerialParams (a value, not a pointer)
}

type CommandKind int

const (
	CmdConnect CommandKind = iota
	CmdDisconnect
	CmdExit
	CmdSetup
)

// Contract is the shared shape every transport variant implements (Design
// Notes §9). The renderer and plugin engine depend only on this.
type Contract interface {
	// Spawn starts the worker loop; it returns once the loop exits (on
	// CmdExit or ctx cancellation).
	Spawn(ctx context.Context)
	// Commands returns the channel used to drive the state machine.
	Commands() chan<- Command
	// Describe returns a short human-readable description of the current
	// endpoint parameters, for the screen header.
	Describe() string
	// Mode reports the current connection mode.
	Mode() Mode
}

const (
	// LineIdleFlush is the idle-flush timeout for an in-progress,
	// unterminated line (spec §5 Timeouts).
	LineIdleFlush = 1000 * time.Millisecond
	// SerialIOTimeout bounds a single blocking read so the loop can
	// interleave tx writes (spec §4.B, §5).
	SerialIOTimeout = 100 * time.Millisecond
)

// lineAccumulator implements the line-reassembly rule in spec §4.B step 5-6:
// bytes append to pending; on '\n' publish and reset; on 1s idle with a
// non-empty pending, flush it unterminated.
type lineAccumulator struct {
	pending   []byte
	firstByte time.Time
	lastByte  time.Time
}

// Feed appends one byte and reports a frame to publish, if any.
func (a *lineAccumulator) Feed(b byte, now time.Time) (messages.TimedFrame, bool) {
	if len(a.pending) == 0 {
		a.firstByte = now
	}
	a.pending = append(a.pending, b)
	a.lastByte = now

	if b == '\n' {
		return a.flush()
	}
	return messages.TimedFrame{}, false
}

// IdleFlush reports a frame to publish if the accumulator has pending bytes
// and has been idle at least LineIdleFlush.
func (a *lineAccumulator) IdleFlush(now time.Time) (messages.TimedFrame, bool) {
	if len(a.pending) == 0 {
		return messages.TimedFrame{}, false
	}
	if now.Sub(a.lastByte) < LineIdleFlush {
		return messages.TimedFrame{}, false
	}
	return a.flush()
}

func (a *lineAccumulator) flush() (messages.TimedFrame, bool) {
	frame := messages.TimedFrame{Timestamp: a.firstByte, Payload: a.pending}
	a.pending = nil
	return frame, true
}

// sharedState is the reader/writer-lock-guarded mode + endpoint parameters
// every variant embeds, matching the Rust original's Arc<RwLock<...Shared>>.
type sharedState[P any] struct {
	mu     sync.RWMutex
	mode   Mode
	params P
}

func (s *sharedState[P]) getMode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

func (s *sharedState[P]) setMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = m
}

func (s *sharedState[P]) getParams() P {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.params
}

func (s *sharedState[P]) setParams(p P) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.params = p
}

// wait sleeps for latency, or yields if latency is 0 (spec §4.B step 7).
// The transports pass fixed durations; the --latency flag does not reach
// them.
func wait(latency time.Duration) {
	if latency > 0 {
		time.Sleep(latency)
		return
	}
	time.Sleep(time.Microsecond)
}

// Buses bundles the rx/tx/log topics a transport worker drains/feeds. All
// three transports share these.
type Buses struct {
	RX  *bus.Bus[messages.TimedFrame]
	TX  *bus.Bus[messages.TimedFrame]
	Log *bus.Bus[messages.LogRecord]
}

func (b Buses) logf(level messages.Level, source, format string, args ...any) {
	b.Log.Publish(messages.LogRecord{
		Timestamp: time.Now(),
		Level:     level,
		Source:    source,
		Message:   fmt.Sprintf(format, args...),
	})
}
