package infra

import (
	"os"
	"strings"
)

// TypeWriter buffers serialized lines in memory and flushes them to the
// save file on demand (spec §3 "Persistence stats": "a TypeWriter that
// buffers serialized lines and flushes on demand"). Grounded on
// original_source/src/infra/typewriter.rs.
type TypeWriter struct {
	pending  []string
	filename string
	size     int64
}

// NewTypeWriter creates a TypeWriter targeting filename (spec §6 "Save
// file": base name + ".txt").
func NewTypeWriter(filename string) *TypeWriter {
	return &TypeWriter{filename: filename}
}

// Filename reports the target path.
func (t *TypeWriter) Filename() string { return t.filename }

// Size reports the cumulative byte count written plus pending.
func (t *TypeWriter) Size() int64 { return t.size }

// Add appends one already-formatted line, CRLF-terminating it if it isn't
// already (spec §6 "each line terminated \r\n").
func (t *TypeWriter) Add(line string) {
	if !strings.HasSuffix(line, "\r\n") {
		line = strings.TrimSuffix(line, "\n") + "\r\n"
	}
	t.size += int64(len(line))
	t.pending = append(t.pending, line)
}

// Flush appends every pending line to the save file and clears the buffer
// (spec §5 "The save file is opened, appended, and closed on each flush; no
// fsync is required").
func (t *TypeWriter) Flush() error {
	if len(t.pending) == 0 {
		return nil
	}
	f, err := os.OpenFile(t.filename, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	content := strings.Join(t.pending, "")
	if _, err := f.WriteString(content); err != nil {
		return err
	}
	t.pending = nil
	return nil
}
