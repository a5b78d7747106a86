package scpidev

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHistoryRing(t *testing.T) {
	h := newHistory(3)
	require.Empty(t, h.list())

	h.add("a")
	h.add("b")
	require.Equal(t, []string{"a", "b"}, h.list())

	h.add("c")
	h.add("d")
	// the oldest entry yields once full
	require.Equal(t, []string{"b", "c", "d"}, h.list())
}

func TestHistoryWrapAround(t *testing.T) {
	h := newHistory(4)
	for i := 0; i < 10; i++ {
		h.add(fmt.Sprint(i))
	}
	require.Equal(t, []string{"6", "7", "8", "9"}, h.list())
}
