package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mwhite/scope-go/internal/screen"
)

func TestBlinkCyclesThenSettles(t *testing.T) {
	b := NewBlink(10*time.Millisecond, 2)
	now := time.Now()
	b.Start(now)
	require.True(t, b.IsOn())
	require.True(t, b.Active())

	now = now.Add(11 * time.Millisecond)
	b.Tick(now) // on -> off
	require.False(t, b.IsOn())

	now = now.Add(11 * time.Millisecond)
	b.Tick(now) // off -> on, blink 1 of 2
	require.True(t, b.IsOn())
	require.True(t, b.Active())

	now = now.Add(11 * time.Millisecond)
	b.Tick(now) // on -> off
	now = now.Add(11 * time.Millisecond)
	b.Tick(now) // off -> on, blink 2 of 2, settles
	require.True(t, b.IsOn())
	require.False(t, b.Active())
}

func TestFormatByteSize(t *testing.T) {
	require.Equal(t, "512 Bytes", FormatByteSize(512))
	require.Equal(t, "1.0 KB", FormatByteSize(1024))
	require.Equal(t, "1.0 MB", FormatByteSize(1024*1024))
}

func TestTypeWriterFlushAppendsCRLF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "save.txt")
	tw := NewTypeWriter(path)
	tw.Add("[12:00:00.000][ <=] hello")
	require.NoError(t, tw.Flush())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "[12:00:00.000][ <=] hello\r\n", string(data))
}

func TestRecorderRotatesSuffixOnStopStart(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	rec, err := NewRecorder("trace.bin")
	require.NoError(t, err)
	require.Equal(t, "trace_rec1.txt", rec.Filename())

	require.NoError(t, rec.Start())
	require.NoError(t, rec.Add("line one"))
	require.NoError(t, rec.Stop())
	require.Equal(t, "trace_rec2.txt", rec.Filename())

	data, err := os.ReadFile("trace_rec1.txt")
	require.NoError(t, err)
	require.Equal(t, "line one\r\n", string(data))
}

func TestFormatSaveLineUsesKindLabel(t *testing.T) {
	ts := time.Date(2026, 1, 1, 12, 30, 0, 0, time.UTC)
	line := screen.Line{Timestamp: ts, Kind: screen.KindTx, Raw: []byte("RST")}
	require.Equal(t, "[12:30:00.000][ =>] RST", FormatSaveLine(line))
}
