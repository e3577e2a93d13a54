package screen

import (
	"fmt"
	"strings"
)

// ansi foreground codes for the restricted 16-color palette (spec §6
// "otherwise restricted to the 16-color palette").
const (
	fgBlack   = 30
	fgRed     = 31
	fgGreen   = 32
	fgYellow  = 33
	fgBlue    = 34
	fgMagenta = 35
	fgCyan    = 36
	fgWhite   = 37

	inverse = "\x1b[7m"
	reset   = "\x1b[0m"
	bold    = "\x1b[1m"
)

// Row is one rendered terminal row: a timestamp prefix plus styled content,
// already cropped to the viewport per spec §4.D "Rendering is a pure
// function of (ring-slice-within-viewport, screen_state, save_stats)".
type Row struct {
	Text string
}

// HeaderInfo carries the decorations Render needs from infra's SaveStats
// without screen depending on the infra package (spec §4.D "The screen
// decorates the header with filename, size, and a record/save/blink
// indicator").
type HeaderInfo struct {
	Filename    string
	Size        string
	Recording   bool
	Saving      bool
	BlinkOn     bool
}

// Render produces the lines to draw this frame: a header line followed by
// one row per visible ring line, pure given (ring, state, header). Grounded
// on original_source/src/graphics/screen.rs's Screen::draw/build_block,
// translated from ratatui widgets to plain ANSI-escaped strings since
// nothing in the retrieval pack carries a TUI widget dependency (§ Design
// Notes: enrich only where the pack offers something to enrich with).
func Render(ring *Ring, s *State, header HeaderInfo) []Row {
	rows := make([]Row, 0, s.visibleHeight()+1)
	rows = append(rows, Row{Text: renderHeader(ring, s, header)})

	start := s.TopLine
	end := start + s.visibleHeight()
	for i, line := range ring.Range(start, end) {
		rows = append(rows, Row{Text: renderLine(start+i, line, s)})
	}
	return rows
}

func renderHeader(ring *Ring, s *State, h HeaderInfo) string {
	borderColor := fgWhite
	switch {
	case h.Recording:
		borderColor = fgRed
	case h.Saving && h.BlinkOn:
		borderColor = fgYellow
	case s.Mode == ModeSearch:
		borderColor = fgYellow
	}
	rec := ""
	if h.Recording {
		rec = " ◉"
	}
	return fmt.Sprintf("\x1b[%dm[%03d][%s]%s %s\x1b[0m [%s]",
		borderColor, ring.Len(), s.Decoder, rec, h.Filename, h.Size)
}

func renderLine(index int, line Line, s *State) string {
	ts := line.Timestamp.Format("15:04:05.000")
	text := cropPlain(s.Decoder.Decode(line.Raw), s.LeftCol, s.Viewport.Width)

	var body string
	switch {
	case s.Mode == ModeSearch:
		body = renderSearchSpans(index, text, s)
	case line.Kind == KindLog:
		body = colorFor(logColor(line.LogLevel)) + text + reset
	case line.Kind == KindTx:
		body = inverse + text + reset
	default:
		body = renderANSISpans(text)
	}

	return ts + " " + body
}

func renderANSISpans(text string) string {
	var b strings.Builder
	for _, span := range ParseANSI(text) {
		if span.Color != ColorDefault {
			b.WriteString(colorFor(int(span.Color)))
		}
		if span.Bold {
			b.WriteString(bold)
		}
		b.WriteString(span.Text)
		b.WriteString(reset)
	}
	if b.Len() == 0 {
		return text
	}
	return b.String()
}

// renderSearchSpans highlights every hit on this line, and double-inverts
// the active hit (spec §4.D "in search mode, match spans are rendered with
// an inverted style, and the active hit with a further-inverted style").
func renderSearchSpans(index int, text string, s *State) string {
	if s.Search.Query == "" {
		return text
	}
	query := s.Search.Query
	haystack := text
	if !s.Search.CaseSensitive {
		haystack = strings.ToLower(haystack)
		query = strings.ToLower(query)
	}

	var b strings.Builder
	col := 0
	for col < len(text) {
		idx := strings.Index(haystack[col:], query)
		if idx < 0 {
			b.WriteString(text[col:])
			break
		}
		b.WriteString(text[col : col+idx])
		hitCol := col + idx
		isActive := isActiveHit(index, hitCol, s)
		if isActive {
			b.WriteString(inverse + inverse)
		} else {
			b.WriteString(inverse)
		}
		b.WriteString(text[hitCol : hitCol+len(query)])
		b.WriteString(reset)
		col = hitCol + len(query)
	}
	return b.String()
}

func isActiveHit(lineIdx, col int, s *State) bool {
	if len(s.Search.Hits) == 0 {
		return false
	}
	hit := s.Search.Hits[s.Search.CurrentHit]
	return hit.Line == lineIdx && hit.Column == col
}

func colorFor(c int) string {
	return fmt.Sprintf("\x1b[%dm", c)
}

func logColor(l interface{ String() string }) int {
	switch l.String() {
	case "ERR":
		return fgRed
	case "WRN":
		return fgYellow
	case "OK":
		return fgGreen
	case "INF":
		return fgCyan
	default:
		return fgWhite
	}
}

// cropPlain trims already-decoded (unstyled) text to [leftCol,
// leftCol+width), matching screen.rs's Screen::crop. Styling is applied
// afterward, over the cropped text, so color escapes never get cut
// mid-sequence by the crop itself.
func cropPlain(s string, leftCol, width int) string {
	if width <= 0 {
		return s
	}
	runes := []rune(s)
	if leftCol >= len(runes) {
		return ""
	}
	end := leftCol + width
	if end > len(runes) {
		end = len(runes)
	}
	return string(runes[leftCol:end])
}
