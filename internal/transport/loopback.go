package transport

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/mwhite/scope-go/internal/bus"
	"github.com/mwhite/scope-go/internal/messages"
)

// LoopbackParams configures the §4.B optional Loopback transport, used for
// testing the engine without real hardware.
type LoopbackParams struct {
	// Generate produces the payload for each synthesized rx frame.
	Generate func() []byte
	// SendInterval is the cadence at which synthesized rx frames appear.
	SendInterval time.Duration
}

const (
	loopbackReconnectRate           = 0.5
	loopbackDisconnectRate          = 0.02
	loopbackUpdateConnectionInterval = 2 * time.Second
)

// Loopback synthesises rx frames at a configured cadence, randomly toggles
// its "connected" flag, and echoes tx frames back as confirmed or failed —
// matching src/loop_back.rs's LoopBackIF while conforming to the shared
// Contract so it is interchangeable with Serial/RTT everywhere else.
type Loopback struct {
	params LoopbackParams
	buses  Buses
	cmds   chan Command
	tx     bus.Consumer[messages.TimedFrame]

	shared sharedState[LoopbackParams]
}

func NewLoopback(params LoopbackParams, buses Buses) (*Loopback, error) {
	if params.SendInterval <= 0 {
		params.SendInterval = time.Second
	}
	if params.Generate == nil {
		params.Generate = func() []byte { return []byte("loopback\n") }
	}
	tx, err := buses.TX.Subscribe()
	if err != nil {
		return nil, err
	}
	l := &Loopback{
		params: params,
		buses:  buses,
		cmds:   make(chan Command, 16),
		tx:     tx,
	}
	l.shared.params = params
	l.shared.mode = Reconnecting
	return l, nil
}

func (l *Loopback) Commands() chan<- Command { return l.cmds }
func (l *Loopback) Mode() Mode               { return l.shared.getMode() }

func (l *Loopback) Describe() string {
	return fmt.Sprintf("loopback %dms", l.params.SendInterval.Milliseconds())
}

func (l *Loopback) Spawn(ctx context.Context) {
	lastSend := time.Now()
	lastToggle := time.Now()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-l.cmds:
			if l.handleCommand(cmd) {
				return
			}
		default:
		}

		now := time.Now()

		switch l.shared.getMode() {
		case DoNotConnect:
			wait(SerialIOTimeout)
			continue
		case Reconnecting:
			if rng.Float32() < loopbackReconnectRate {
				l.shared.setMode(Connected)
				l.buses.logf(messages.LevelSuccess, "loopback", "Connected")
			}
		case Connected:
			if now.Sub(lastToggle) >= loopbackUpdateConnectionInterval {
				lastToggle = now
				if rng.Float32() < loopbackDisconnectRate {
					l.shared.setMode(Reconnecting)
					l.buses.logf(messages.LevelWarning, "loopback", "Disconnected")
				}
			}
		}

		if l.shared.getMode() == Connected && now.Sub(lastSend) >= l.params.SendInterval {
			lastSend = now
			l.buses.RX.Publish(messages.TimedFrame{Timestamp: now, Payload: l.params.Generate()})
		}

		l.drainOneTX()

		wait(10 * time.Millisecond)
	}
}

func (l *Loopback) handleCommand(cmd Command) bool {
	switch cmd.Kind {
	case CmdExit:
		return true
	case CmdConnect:
		l.shared.setMode(Reconnecting)
	case CmdDisconnect:
		l.shared.setMode(DoNotConnect)
	case CmdSetup:
		if p, ok := cmd.Setup.(LoopbackParams); ok {
			l.shared.setParams(p)
		}
	}
	return false
}

// drainOneTX echoes a tx frame back as an rx line, marked confirmed while
// connected and failed otherwise (spec §4.B
// "echoes tx frames as either confirmed or failed").
func (l *Loopback) drainOneTX() {
	select {
	case frame := <-l.tx.C:
		status := "confirmed"
		if l.shared.getMode() != Connected {
			status = "failed"
		}
		l.buses.RX.Publish(messages.TimedFrame{
			Timestamp: time.Now(),
			Payload:   []byte(fmt.Sprintf("[echo:%s] %s", status, frame.Payload)),
		})
	default:
	}
}
