package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Recorder holds an open append-handle for the duration of a record session
// (spec §3 "Persistence stats": "a Recorder that holds an open
// append-handle during a recording session (start/stop/rotate-filename-
// suffix)"). Grounded on original_source/src/infra/recorder.rs.
type Recorder struct {
	base   string
	suffix int
	file   *os.File
	size   int64
}

// NewRecorder derives the base filename from filename's stem (spec §6
// "Record file": "base name + _rec<N>.txt with N starting at 1").
func NewRecorder(filename string) (*Recorder, error) {
	stem := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if stem == "" {
		return nil, fmt.Errorf("infra: cannot derive record base filename from %q", filename)
	}
	return &Recorder{base: stem, suffix: 1}, nil
}

// Filename reports the current record file's name.
func (r *Recorder) Filename() string {
	return fmt.Sprintf("%s_rec%d.txt", r.base, r.suffix)
}

// Size reports the bytes written in the current session.
func (r *Recorder) Size() int64 { return r.size }

// IsRecording reports whether a session is open.
func (r *Recorder) IsRecording() bool { return r.file != nil }

// Start opens a fresh record file for this suffix (Recorder::start_record).
func (r *Recorder) Start() error {
	f, err := os.Create(r.Filename())
	if err != nil {
		return err
	}
	r.file = f
	r.size = 0
	return nil
}

// Stop closes the current file and advances the suffix for the next session
// (Recorder::stop_record's "rotate-filename-suffix").
func (r *Recorder) Stop() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.suffix++
	return err
}

// Add writes one already-formatted, CRLF-terminated line directly to the
// open file (spec §5 "The recording file is open for the duration of a
// record session").
func (r *Recorder) Add(line string) error {
	if r.file == nil {
		return fmt.Errorf("infra: not recording")
	}
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n") + "\r\n"
	}
	n, err := r.file.WriteString(line)
	r.size += int64(n)
	return err
}

// Close releases the handle on shutdown regardless of session state (spec
// §5 "closed on stop, on plugin-engine shutdown, or on drop").
func (r *Recorder) Close() error {
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}
