package infra

import (
	"time"

	"github.com/mwhite/scope-go/internal/screen"
)

// SaveStats is the passive observer spec §4.D names: "reading from two
// companion sinks — a TypeWriter ... and a Recorder". It owns the Blink
// animation that the header uses while a save is in flight, and exposes
// exactly the fields screen.HeaderInfo needs so the screen package never
// has to import infra (spec §4.D "Rendering is a pure function of
// (ring-slice-within-viewport, screen_state, save_stats)").
type SaveStats struct {
	TypeWriter *TypeWriter
	Recorder   *Recorder
	blink      *Blink
}

// NewSaveStats wires a TypeWriter/Recorder pair behind the configured
// save-blink timing (spec §5 Timeouts: "save-blink period = 200 ms, 2
// blinks").
func NewSaveStats(saveFile string) (*SaveStats, error) {
	rec, err := NewRecorder(saveFile)
	if err != nil {
		return nil, err
	}
	return &SaveStats{
		TypeWriter: NewTypeWriter(saveFile + ".txt"),
		Recorder:   rec,
		blink:      NewBlink(200*time.Millisecond, 2),
	}, nil
}

// NotifySaved starts the blink flash; call after a successful Flush.
func (s *SaveStats) NotifySaved(now time.Time) { s.blink.Start(now) }

// Tick advances the blink state machine; call once per render frame (§9
// Design Notes "explicit tick() calls from the render loop").
func (s *SaveStats) Tick(now time.Time) { s.blink.Tick(now) }

// Header renders the screen.HeaderInfo this frame's state implies.
func (s *SaveStats) Header() screen.HeaderInfo {
	filename := s.TypeWriter.Filename()
	size := FormatByteSize(s.TypeWriter.Size())
	if s.Recorder.IsRecording() {
		filename = s.Recorder.Filename()
		size = FormatByteSize(s.Recorder.Size())
	}
	return screen.HeaderInfo{
		Filename:  filename,
		Size:      size,
		Recording: s.Recorder.IsRecording(),
		Saving:    s.blink.Active(),
		BlinkOn:   s.blink.IsOn(),
	}
}
