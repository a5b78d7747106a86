package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssembler(t *testing.T) {
	var a Assembler

	assert.Nil(t, a.Feed([]byte("*ID")))
	assert.Equal(t, 3, a.Pending())

	lines := a.Feed([]byte("N?\nMEAS"))
	assert.Equal(t, []string{"*IDN?"}, lines)
	assert.Equal(t, 4, a.Pending())

	lines = a.Feed([]byte("?\r\nSYST:ERR?\n"))
	assert.Equal(t, []string{"MEAS?", "SYST:ERR?"}, lines)
	assert.Equal(t, 0, a.Pending())

	lines = a.Feed([]byte("\n\n"))
	assert.Equal(t, []string{"", ""}, lines)

	a.Feed([]byte("partial"))
	a.Reset()
	assert.Equal(t, 0, a.Pending())
}
