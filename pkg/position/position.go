package position

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/walteh/kaklsp/pkg/lsp/protocol"
	"gitlab.com/tozd/go/errors"
)

// OffsetEncoding is the unit LSP character offsets are counted in.
type OffsetEncoding string

const (
	UTF8  OffsetEncoding = "utf-8"
	UTF16 OffsetEncoding = "utf-16"
)

// ParseOffsetEncoding accepts the names used by the position encoding
// capability; the empty string means the protocol default.
func ParseOffsetEncoding(s string) (OffsetEncoding, error) {
	switch strings.ToLower(s) {
	case "", "utf-16", "utf16":
		return UTF16, nil
	case "utf-8", "utf8":
		return UTF8, nil
	default:
		return "", errors.Errorf("unsupported offset encoding %q", s)
	}
}

// KakounePosition is an editor coordinate: 1-based line, 1-based byte column.
type KakounePosition struct {
	Line   uint32
	Column uint32
}

func (p KakounePosition) String() string {
	return fmt.Sprintf("%d.%d", p.Line, p.Column)
}

// ParseKakounePosition parses the "line.column" form Kakoune uses for
// selection descriptions.
func ParseKakounePosition(s string) (KakounePosition, error) {
	lineStr, colStr, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return KakounePosition{}, errors.Errorf("invalid position %q: expected line.column", s)
	}
	line, err := strconv.ParseUint(lineStr, 10, 32)
	if err != nil {
		return KakounePosition{}, errors.Errorf("invalid line in position %q: %w", s, err)
	}
	col, err := strconv.ParseUint(colStr, 10, 32)
	if err != nil {
		return KakounePosition{}, errors.Errorf("invalid column in position %q: %w", s, err)
	}
	if line == 0 || col == 0 {
		return KakounePosition{}, errors.Errorf("invalid position %q: line and column are 1-based", s)
	}
	return KakounePosition{Line: uint32(line), Column: uint32(col)}, nil
}

func lineAt(text string, line uint32) (string, bool) {
	for i := uint32(0); i < line; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return "", false
		}
		text = text[idx+1:]
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return text, true
}

// units counts the code units of s in the given encoding.
func units(s string, enc OffsetEncoding) uint32 {
	if enc == UTF8 {
		return uint32(len(s))
	}
	var n uint32
	for _, r := range s {
		n += uint32(utf16.RuneLen(r))
	}
	return n
}

// byteIndex returns how many bytes of line cover the first n code units,
// clamped to the line length.
func byteIndex(line string, n uint32, enc OffsetEncoding) int {
	if enc == UTF8 {
		return min(int(n), len(line))
	}
	var seen uint32
	for i, r := range line {
		if seen >= n {
			return i
		}
		seen += uint32(utf16.RuneLen(r))
	}
	return len(line)
}

// ToLSP converts an editor position into protocol space for the given text.
func ToLSP(text string, pos KakounePosition, enc OffsetEncoding) (protocol.Position, error) {
	if pos.Line == 0 || pos.Column == 0 {
		return protocol.Position{}, errors.Errorf("invalid editor position %s", pos)
	}
	line, ok := lineAt(text, pos.Line-1)
	if !ok {
		return protocol.Position{}, errors.Errorf("line %d is beyond the end of the document", pos.Line)
	}
	col := min(int(pos.Column-1), len(line))
	// never split a multi-byte rune
	for col > 0 && col < len(line) && !utf8.RuneStart(line[col]) {
		col--
	}
	return protocol.Position{
		Line:      pos.Line - 1,
		Character: units(line[:col], enc),
	}, nil
}

// FromLSP converts a protocol position back into an editor position.
func FromLSP(text string, pos protocol.Position, enc OffsetEncoding) (KakounePosition, error) {
	line, ok := lineAt(text, pos.Line)
	if !ok {
		return KakounePosition{}, errors.Errorf("line %d is beyond the end of the document", pos.Line)
	}
	return KakounePosition{
		Line:   pos.Line + 1,
		Column: uint32(byteIndex(line, pos.Character, enc)) + 1,
	}, nil
}

// Offset returns the byte offset of pos in text. A position on the line just
// past the last one addresses the end of the document.
func Offset(text string, pos protocol.Position, enc OffsetEncoding) (int, error) {
	offset := 0
	rest := text
	for i := uint32(0); i < pos.Line; i++ {
		idx := strings.IndexByte(rest, '\n')
		if idx < 0 {
			if i+1 == pos.Line {
				return len(text), nil
			}
			return 0, errors.Errorf("line %d is beyond the end of the document", pos.Line)
		}
		offset += idx + 1
		rest = rest[idx+1:]
	}
	line := rest
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return offset + byteIndex(line, pos.Character, enc), nil
}
