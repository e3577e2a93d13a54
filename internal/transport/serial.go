package transport

import (
	"context"
	"errors"
	"io"
	"time"

	serial "github.com/daedaluz/goserial"
	"github.com/mwhite/scope-go/internal/bus"
	"github.com/mwhite/scope-go/internal/messages"
)

// Parity mirrors the serialport crate's Parity enum the original Rust
// SerialSetup carried (spec §4.B "Serial" parameters).
type Parity int

const (
	ParityNone Parity = iota
	ParityOdd
	ParityEven
)

// StopBits mirrors serialport::StopBits.
type StopBits int

const (
	StopBitsOne StopBits = iota
	StopBitsTwo
)

// DataBits mirrors serialport::DataBits.
type DataBits int

const (
	DataBits5 DataBits = 5
	DataBits6 DataBits = 6
	DataBits7 DataBits = 7
	DataBits8 DataBits = 8
)

// FlowControl mirrors serialport::FlowControl.
type FlowControl int

const (
	FlowNone FlowControl = iota
	FlowSoftware
	FlowHardware
)

// SerialParams is the §4.B "Serial" endpoint parameter set.
type SerialParams struct {
	Port        string
	Baud        uint32
	DataBits    DataBits
	Parity      Parity
	StopBits    StopBits
	FlowControl FlowControl
}

// Serial is the §4.B Serial transport: one worker owning exactly one
// termios-backed port, opened via github.com/daedaluz/goserial.
type Serial struct {
	shared sharedState[SerialParams]
	buses  Buses
	cmds   chan Command
	tx     bus.Consumer[messages.TimedFrame]

	port *serial.Port
}

// NewSerial creates a Serial transport. If params.Port/Baud are both set,
// the initial mode is Reconnecting, matching SerialShared::new in the
// original implementation; otherwise it starts DoNotConnect. Fails only if
// the tx bus has already been shut down.
func NewSerial(params SerialParams, buses Buses) (*Serial, error) {
	tx, err := buses.TX.Subscribe()
	if err != nil {
		return nil, err
	}
	s := &Serial{
		buses: buses,
		cmds:  make(chan Command, 16),
		tx:    tx,
	}
	s.shared.params = params
	if params.Port != "" && params.Baud != 0 {
		s.shared.mode = Reconnecting
	} else {
		s.shared.mode = DoNotConnect
	}
	return s, nil
}

func (s *Serial) Commands() chan<- Command { return s.cmds }
func (s *Serial) Mode() Mode               { return s.shared.getMode() }

func (s *Serial) Describe() string {
	p := s.shared.getParams()
	if p.Port == "" {
		return "serial: not configured"
	}
	return p.Port
}

// Spawn runs the §4.B task loop until CmdExit or ctx is cancelled.
func (s *Serial) Spawn(ctx context.Context) {
	acc := &lineAccumulator{}
	buf := make([]byte, 1)

	for {
		select {
		case <-ctx.Done():
			s.closePort()
			return
		case cmd := <-s.cmds:
			if s.handleCommand(ctx, cmd) {
				s.closePort()
				return
			}
		default:
		}

		switch s.shared.getMode() {
		case DoNotConnect:
			wait(SerialIOTimeout)
			continue
		case Reconnecting:
			s.tryOpen()
		case Connected:
		}

		if s.port == nil {
			wait(SerialIOTimeout)
			continue
		}

		s.drainOneTX()

		n, err := s.port.ReadTimeout(buf, SerialIOTimeout)
		now := time.Now()
		switch {
		case err == nil && n > 0:
			if frame, ok := acc.Feed(buf[0], now); ok {
				s.buses.RX.Publish(frame)
			}
		case isTimeout(err):
			// Transient: retried silently (spec §7).
		case isRecoverable(err):
			s.disconnect()
			s.shared.setMode(Reconnecting)
			continue
		default:
			// Other transient read errors are dropped per-iteration,
			// never crash the worker (spec §7).
		}

		if frame, ok := acc.IdleFlush(time.Now()); ok {
			s.buses.RX.Publish(frame)
		}
	}
}

// handleCommand applies one command to the state machine; returns true if
// the worker should exit.
func (s *Serial) handleCommand(ctx context.Context, cmd Command) bool {
	switch cmd.Kind {
	case CmdExit:
		return true
	case CmdConnect:
		s.shared.setMode(Reconnecting)
	case CmdDisconnect:
		s.disconnect()
		s.shared.setMode(DoNotConnect)
	case CmdSetup:
		if p, ok := cmd.Setup.(SerialParams); ok {
			s.disconnect()
			s.shared.setParams(p)
			s.shared.setMode(Reconnecting)
		}
	}
	return false
}

func (s *Serial) tryOpen() {
	p := s.shared.getParams()
	opts := serial.NewOptions().SetReadTimeout(SerialIOTimeout)
	port, err := serial.Open(p.Port, opts)
	if err != nil {
		// Stay Reconnecting; caller paces via wait().
		return
	}
	if err := configurePort(port, p); err != nil {
		port.Close()
		return
	}
	s.port = port
	s.shared.setMode(Connected)
	s.buses.logf(messages.LevelSuccess, "serial", "Connected at %q with %dbps", p.Port, p.Baud)
}

func (s *Serial) disconnect() {
	wasConnected := s.shared.getMode() == Connected
	s.closePort()
	if wasConnected {
		p := s.shared.getParams()
		s.buses.logf(messages.LevelWarning, "serial", "Disconnected from %q with %dbps", p.Port, p.Baud)
	}
}

func (s *Serial) closePort() {
	if s.port != nil {
		s.port.Close()
		s.port = nil
	}
}

func (s *Serial) drainOneTX() {
	select {
	case frame := <-s.tx.C:
		if _, err := s.port.Write(frame.Payload); err != nil {
			s.buses.logf(messages.LevelError, "serial", "cannot send: %v", frame.Payload)
		}
	default:
	}
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	var to interface{ Timeout() bool }
	if errors.As(err, &to) {
		return to.Timeout()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func isRecoverable(err error) bool {
	return errors.Is(err, io.ErrClosedPipe) || errors.Is(err, io.EOF)
}

func configurePort(port *serial.Port, p SerialParams) error {
	attrs, err := port.GetAttr2()
	if err != nil {
		return err
	}
	attrs.MakeRaw()

	attrs.Cflag &^= serial.CSIZE | serial.PARENB | serial.PARODD | serial.CSTOPB | serial.CRTSCTS
	switch p.DataBits {
	case DataBits5:
		attrs.Cflag |= serial.CS5
	case DataBits6:
		attrs.Cflag |= serial.CS6
	case DataBits7:
		attrs.Cflag |= serial.CS7
	default:
		attrs.Cflag |= serial.CS8
	}
	switch p.Parity {
	case ParityOdd:
		attrs.Cflag |= serial.PARENB | serial.PARODD
	case ParityEven:
		attrs.Cflag |= serial.PARENB
	}
	if p.StopBits == StopBitsTwo {
		attrs.Cflag |= serial.CSTOPB
	}
	if p.FlowControl == FlowHardware {
		attrs.Cflag |= serial.CRTSCTS
	}
	if p.FlowControl == FlowSoftware {
		attrs.Iflag |= serial.IXON | serial.IXOFF
	}
	attrs.SetCustomSpeed(p.Baud)

	return port.SetAttr2(serial.TCSANOW, attrs)
}
