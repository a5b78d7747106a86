// Package transport provides line-oriented SCPI channels over TCP, UDP,
// serial devices and in-memory pipes. Transports assemble raw bytes into
// complete newline-terminated command lines and hand them to a single
// receive queue; replies travel back over the originating connection.
package transport

import (
	"context"
	"errors"
)

var (
	// ErrClosed signals use after Close.
	ErrClosed = errors.New("scpidev: transport closed")

	// ErrNoPeer signals a reply without a known remote, such as an UDP
	// response before the first inbound datagram.
	ErrNoPeer = errors.New("scpidev: no remote peer to write to")
)

// A LineWriter sends one reply line to the remote end. The TCP, UDP and
// serial implementations append the newline terminator when missing; a
// PipeEnd delivers the line without it.
type LineWriter interface {
	WriteLine(s string) error
}

// An Inbound is one received command line paired with the channel for its
// reply.
type Inbound struct {
	Conn LineWriter
	Line string // complete line without the terminator
}

// An Interface is a server-side transport. Serve feeds complete lines into
// sink until ctx is done or the transport fails fatally. The TCP and UDP
// transports observe cancellation within one poll timeout; a Serial observes
// it on the next received byte or on Close. Close releases the listening and any
// accepted sockets. Interfaces are single-use: once Serve returns the
// transport is spent.
type Interface interface {
	// String identifies the transport in logs, like "tcp [::]:5025".
	String() string

	Serve(ctx context.Context, sink chan<- Inbound) error

	Close() error
}

// An Assembler buffers stream bytes and emits complete lines. The partial
// tail is held until its terminator arrives. A carriage return before the
// newline is dropped.
type Assembler struct {
	rest []byte
}

// Feed appends p and returns the complete lines, without terminators.
func (a *Assembler) Feed(p []byte) []string {
	a.rest = append(a.rest, p...)

	var lines []string
	for {
		i := -1
		for j, b := range a.rest {
			if b == '\n' {
				i = j
				break
			}
		}
		if i < 0 {
			return lines
		}
		line := a.rest[:i]
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
		}
		lines = append(lines, string(line))
		a.rest = a.rest[i+1:]
	}
}

// Pending returns the byte count of the buffered partial tail.
func (a *Assembler) Pending() int { return len(a.rest) }

// Reset discards any partial tail, for connection teardown.
func (a *Assembler) Reset() { a.rest = nil }
