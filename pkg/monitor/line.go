package monitor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Line is a single line received from the port. Valid reports whether the raw
// bytes decoded as UTF-8; Text is the decoded, right-trimmed form and is empty
// when Valid is false.
type Line struct {
	Raw   []byte
	Text  string
	Valid bool
}

// DecodeLine decodes one raw line. Trailing whitespace (including the newline
// delimiter) is stripped from the decoded text. Invalid UTF-8 anywhere in the
// line marks the whole line as raw.
func DecodeLine(raw []byte) Line {
	if !utf8.Valid(raw) {
		return Line{Raw: raw}
	}
	return Line{
		Raw:   raw,
		Text:  strings.TrimRightFunc(string(raw), unicode.IsSpace),
		Valid: true,
	}
}
