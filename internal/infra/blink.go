// Package infra mirrors original_source/src/infra/*: the blink timer state
// machine, the append-only TypeWriter/Recorder sinks behind the save/record
// files, and the byte-count formatter the screen header uses. None of it
// runs on its own goroutine or self-referential timer callback — each piece
// is ticked explicitly by the render loop, per spec §9 Design Notes:
// "Cyclic timer callbacks ... model as two one-shot deadlines held in a
// small state machine with explicit tick() calls from the render loop — no
// self-referential ownership, no background thread."
package infra

import "time"

// Blink drives the border recoloring during a save flash: N on/off cycles
// of period D, then back to steady "on" (spec §4.D "a time-limited blink
// animation recolors the border (configurable N blinks of period D)").
// Grounded on original_source/src/infra/blink.rs's Blink<T>, translated from
// two self-scheduling Timer<TimerOn>/Timer<TimerOff> callbacks onto one
// plain deadline advanced by Tick.
type Blink struct {
	period      time.Duration
	totalBlinks int

	on       bool
	numBlinks int
	deadline time.Time
	running  bool
}

// NewBlink creates a Blink with the given period and total blink count
// (spec §5 Timeouts: "save-blink period = 200 ms, 2 blinks").
func NewBlink(period time.Duration, totalBlinks int) *Blink {
	return &Blink{period: period, totalBlinks: totalBlinks, on: true}
}

// Start begins a fresh blink sequence from "on" (Blink::start).
func (b *Blink) Start(now time.Time) {
	b.numBlinks = 0
	b.on = true
	b.running = true
	b.deadline = now.Add(b.period)
}

// Tick advances the state machine against the current time; call once per
// render frame (Blink::tick, but collapsed to one deadline instead of two
// parallel timers since only one phase is ever active at a time).
func (b *Blink) Tick(now time.Time) {
	if !b.running || now.Before(b.deadline) {
		return
	}
	if b.on {
		b.on = false
		b.deadline = now.Add(b.period)
		return
	}
	b.numBlinks++
	b.on = true
	if b.numBlinks >= b.totalBlinks {
		b.running = false
		return
	}
	b.deadline = now.Add(b.period)
}

// IsOn reports the current phase for the screen header to render.
func (b *Blink) IsOn() bool { return b.on }

// Active reports whether a blink sequence is still in progress.
func (b *Blink) Active() bool { return b.running }
