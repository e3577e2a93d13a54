package transport

import (
	"context"
	"testing"
	"time"

	"github.com/mwhite/scope-go/internal/bus"
	"github.com/mwhite/scope-go/internal/messages"
	"github.com/stretchr/testify/require"
)

func newTestFrameBus(t *testing.T) *bus.Bus[messages.TimedFrame] {
	t.Helper()
	return bus.New[messages.TimedFrame]()
}

func newTestLogBus(t *testing.T) *bus.Bus[messages.LogRecord] {
	t.Helper()
	return bus.New[messages.LogRecord]()
}

// TestLineReassemblyAndIdleFlush is scenario S1 from spec §8: "AB" at t=0,
// "C\n" at t=50ms, "D" at t=100ms, no more bytes. Expected: frame
// {t=0, "ABC\n"} published at t=50ms; frame {t=100ms, "D"} published once
// idle for 1000ms.
func TestLineReassemblyAndIdleFlush(t *testing.T) {
	base := time.Unix(0, 0)
	acc := &lineAccumulator{}

	for _, b := range []byte("AB") {
		_, ok := acc.Feed(b, base)
		require.False(t, ok)
	}

	t50 := base.Add(50 * time.Millisecond)
	for _, b := range []byte("C\n") {
		frame, ok := acc.Feed(b, t50)
		if b == '\n' {
			require.True(t, ok)
			require.Equal(t, base, frame.Timestamp)
			require.Equal(t, "ABC\n", string(frame.Payload))
		} else {
			require.False(t, ok)
		}
	}

	t100 := base.Add(100 * time.Millisecond)
	_, ok := acc.Feed('D', t100)
	require.False(t, ok)

	// Before LineIdleFlush elapses, nothing is flushed.
	_, ok = acc.IdleFlush(t100.Add(500 * time.Millisecond))
	require.False(t, ok)

	// At/after the 1000ms idle threshold, "D" flushes unterminated.
	t1100 := t100.Add(LineIdleFlush)
	frame, ok := acc.IdleFlush(t1100)
	require.True(t, ok)
	require.Equal(t, "D", string(frame.Payload))
	require.Equal(t, t100, frame.Timestamp)
}

func TestLineAccumulatorNoLossNoDuplication(t *testing.T) {
	acc := &lineAccumulator{}
	now := time.Now()
	input := "line one\nline two\nline three"

	var published [][]byte
	for _, b := range []byte(input) {
		if frame, ok := acc.Feed(b, now); ok {
			published = append(published, frame.Payload)
		}
	}
	if frame, ok := acc.IdleFlush(now.Add(LineIdleFlush)); ok {
		published = append(published, frame.Payload)
	}

	var rebuilt []byte
	for _, p := range published {
		rebuilt = append(rebuilt, p...)
	}
	require.Equal(t, input, string(rebuilt))
}

func TestTransportsImplementContract(t *testing.T) {
	var _ Contract = (*Loopback)(nil)
	var _ Contract = (*Serial)(nil)
	var _ Contract = (*RTT)(nil)
}

func TestLoopbackConnectsAndEmitsFrames(t *testing.T) {
	buses := Buses{
		RX:  newTestFrameBus(t),
		TX:  newTestFrameBus(t),
		Log: newTestLogBus(t),
	}
	rx, err := buses.RX.Subscribe()
	require.NoError(t, err)

	l, err := NewLoopback(LoopbackParams{SendInterval: 20 * time.Millisecond}, buses)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Spawn(ctx)

	select {
	case frame := <-rx.C:
		require.NotEmpty(t, frame.Payload)
	case <-time.After(3 * time.Second):
		t.Fatal("loopback never produced a frame")
	}
}
