package screen

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAsciiDecodeSubstitutesNonPrintable(t *testing.T) {
	got := DecoderAscii.Decode([]byte{'A', 0x01, '\n', 'B'})
	require.Equal(t, `A\x01\nB`, got)
}

func TestUtf8DecodeKeepsValidRunes(t *testing.T) {
	got := DecoderUtf8.Decode([]byte("héllo\n"))
	require.Equal(t, `héllo\n`, got)
}

func TestUtf8DecodeEscapesInvalidBytes(t *testing.T) {
	got := DecoderUtf8.Decode([]byte{0xff, 'A'})
	require.Equal(t, `\xffA`, got)
}

func TestParseANSISplitsIntoColoredSpans(t *testing.T) {
	spans := ParseANSI("\x1b[31mred\x1b[0mplain")
	require.Len(t, spans, 2)
	require.Equal(t, "red", spans[0].Text)
	require.Equal(t, AnsiColor(31), spans[0].Color)
	require.Equal(t, "plain", spans[1].Text)
	require.Equal(t, ColorDefault, spans[1].Color)
}
