package infra

import (
	"fmt"

	"github.com/mwhite/scope-go/internal/screen"
)

// FormatSaveLine renders one ring line in the save/record-file format (spec
// §6 "Save file": "each line prefixed [HH:MM:SS.mmm][KIND] " where KIND ∈ {
// =>, <=, ERR, WRN, OK, INF, DBG}"), matching
// original_source/src/graphics/buffer.rs's Serialize impl for BufferLine.
func FormatSaveLine(line screen.Line) string {
	ts := line.Timestamp.Format("15:04:05.000")
	text := screen.DecoderAscii.Decode(line.Raw)

	kind := kindLabel(line)
	return fmt.Sprintf("[%s][%s] %s", ts, kind, text)
}

func kindLabel(line screen.Line) string {
	if line.Kind == screen.KindLog {
		return line.LogLevel.String()
	}
	if line.Kind == screen.KindTx {
		return " =>"
	}
	return " <="
}
