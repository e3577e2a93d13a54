package main

import (
	"bufio"
	"errors"
	"unicode/utf8"

	"github.com/mwhite/scope-go/internal/input"
)

var errInvalidUTF8 = errors.New("cmd/scope: invalid utf-8 byte sequence on stdin")

// decodeKey reads one keystroke from r, resolving the common ANSI escape
// sequences (arrows, Home/End, Delete) into input.Key values. cmd/scope is
// the only place that understands raw terminal bytes — internal/input
// stays decoupled from any one decoding scheme (see keys.go's package
// doc).
func decodeKey(r *bufio.Reader) (input.Key, error) {
	b, err := r.ReadByte()
	if err != nil {
		return input.Key{}, err
	}

	switch b {
	case 0x1b:
		return decodeEscape(r)
	case '\r', '\n':
		return input.Key{Kind: input.KeyEnter}, nil
	case 0x7f, 0x08:
		return input.Key{Kind: input.KeyBackspace}, nil
	case '\t':
		return input.Key{Kind: input.KeyTab}, nil
	case 0x0e: // Ctrl-N: the spec's "configured key" for NextSearch
		return input.Key{Kind: input.KeySearchNext}, nil
	case 0x10: // Ctrl-P: PrevSearch
		return input.Key{Kind: input.KeySearchPrev}, nil
	case 0x06: // Ctrl-F: enter Search mode ('/' is already the command prefix)
		return input.Key{Kind: input.KeySearchEnter}, nil
	}

	r2, size := decodeRune(b, r)
	return input.Key{Kind: input.KeyChar, Rune: r2}, sizeErr(size)
}

func sizeErr(size int) error {
	if size < 0 {
		return errInvalidUTF8
	}
	return nil
}

// decodeRune reassembles a UTF-8 rune starting at the already-read leading
// byte b, pulling continuation bytes from r as needed.
func decodeRune(b byte, r *bufio.Reader) (rune, int) {
	if b < utf8.RuneSelf {
		return rune(b), 1
	}
	n := utf8SeqLen(b)
	if n <= 1 {
		return utf8.RuneError, -1
	}
	buf := make([]byte, n)
	buf[0] = b
	for i := 1; i < n; i++ {
		nb, err := r.ReadByte()
		if err != nil {
			return utf8.RuneError, -1
		}
		buf[i] = nb
	}
	ru, size := utf8.DecodeRune(buf)
	if ru == utf8.RuneError && size <= 1 {
		return utf8.RuneError, -1
	}
	return ru, size
}

// utf8SeqLen reports how many bytes a UTF-8 sequence starting with leading
// byte b occupies, or 0 if b is not a valid leading byte.
func utf8SeqLen(b byte) int {
	switch {
	case b&0x80 == 0x00:
		return 1
	case b&0xE0 == 0xC0:
		return 2
	case b&0xF0 == 0xE0:
		return 3
	case b&0xF8 == 0xF0:
		return 4
	default:
		return 0
	}
}

// decodeEscape handles the CSI sequences a standard terminal emits for
// arrow/navigation keys: ESC [ A/B/C/D (arrows), ESC [ H / F (Home/End),
// ESC [ 3 ~ (Delete). A bare ESC with nothing following is KeyEscape.
func decodeEscape(r *bufio.Reader) (input.Key, error) {
	if r.Buffered() == 0 {
		return input.Key{Kind: input.KeyEscape}, nil
	}
	b1, err := r.ReadByte()
	if err != nil {
		return input.Key{Kind: input.KeyEscape}, nil
	}
	if b1 != '[' && b1 != 'O' {
		return input.Key{Kind: input.KeyEscape}, nil
	}
	b2, err := r.ReadByte()
	if err != nil {
		return input.Key{Kind: input.KeyEscape}, nil
	}
	switch b2 {
	case 'A':
		return input.Key{Kind: input.KeyUp}, nil
	case 'B':
		return input.Key{Kind: input.KeyDown}, nil
	case 'C':
		return input.Key{Kind: input.KeyRight}, nil
	case 'D':
		return input.Key{Kind: input.KeyLeft}, nil
	case 'H':
		return input.Key{Kind: input.KeyHome}, nil
	case 'F':
		return input.Key{Kind: input.KeyEnd}, nil
	case '3':
		// ESC [ 3 ~
		if b3, err := r.ReadByte(); err == nil && b3 != '~' {
			_ = r.UnreadByte()
		}
		return input.Key{Kind: input.KeyDelete}, nil
	default:
		return input.Key{Kind: input.KeyEscape}, nil
	}
}
