package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name  string
		raw   []byte
		text  string
		valid bool
	}{
		{"plain", []byte("hello\n"), "hello", true},
		{"crlf", []byte("temp: 23.5 C\r\n"), "temp: 23.5 C", true},
		{"trailing whitespace", []byte("  spaced  \t\n"), "  spaced", true},
		{"multibyte", []byte("héllo\n"), "héllo", true},
		{"empty", []byte("\n"), "", true},
		{"invalid utf8", []byte{0xff, 0xfe, '\n'}, "", false},
		{"invalid mid-line", []byte{'o', 'k', 0xc3, 0x28, '\n'}, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := DecodeLine(tt.raw)
			assert.Equal(t, tt.valid, l.Valid)
			assert.Equal(t, tt.text, l.Text)
			assert.Equal(t, tt.raw, l.Raw)
		})
	}
}
