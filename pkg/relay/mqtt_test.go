package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/esplan/serialmon/pkg/monitor"
)

func TestLinePayload(t *testing.T) {
	decoded := monitor.Line{Raw: []byte("hello\n"), Text: "hello", Valid: true}
	assert.Equal(t, "hello", linePayload(decoded))

	raw := monitor.Line{Raw: []byte{0xff, 0xfe, '\n'}}
	assert.Equal(t, `"\xff\xfe\n"`, linePayload(raw))
}
