package scpidev

import "sync"

// A history is a bounded ring of successfully executed command lines.
// Once full, the oldest entry yields to the newest.
type history struct {
	mu    sync.Mutex
	ring  []string
	next  int
	count int
}

func newHistory(size int) *history {
	return &history{ring: make([]string, size)}
}

func (h *history) add(line string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.ring[h.next] = line
	h.next = (h.next + 1) % len(h.ring)
	if h.count < len(h.ring) {
		h.count++
	}
}

// List returns the entries oldest first.
func (h *history) list() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	lines := make([]string, 0, h.count)
	start := h.next - h.count
	if start < 0 {
		start += len(h.ring)
	}
	for i := 0; i < h.count; i++ {
		lines = append(lines, h.ring[(start+i)%len(h.ring)])
	}
	return lines
}
