package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strings"
	"sync"
	"time"
)

// UDPConfig defines an UDP receiver. The default is applied for each
// unspecified value.
type UDPConfig struct {
	// IP is the local address to bind to. The default binds to all
	// local addresses.
	IP string

	// Port defaults to TCPPort. A negative port selects an ephemeral
	// port.
	Port int

	// BufferSize bounds one datagram, 1024 by default.
	BufferSize int

	// ReadTimeout bounds each blocking read so that cancellation is
	// observed. The default is 1 second.
	ReadTimeout time.Duration
}

// Check applies the default for each unspecified value.
func (c *UDPConfig) check() *UDPConfig {
	if c.Port == 0 {
		c.Port = TCPPort
	} else if c.Port < 0 {
		c.Port = 0
	}
	if c.BufferSize == 0 {
		c.BufferSize = 1024
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = time.Second
	}
	return c
}

// An UDP transport receives command datagrams. Replies go to the most recent
// sender, since datagram sockets carry no session.
type UDP struct {
	config UDPConfig
	conn   *net.UDPConn
	log    *slog.Logger

	mu   sync.Mutex
	peer *net.UDPAddr // most recent sender
}

// ListenUDP binds the datagram socket.
func ListenUDP(config UDPConfig) (*UDP, error) {
	config.check()
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(config.IP, fmt.Sprint(config.Port)))
	if err != nil {
		return nil, fmt.Errorf("scpidev: resolve UDP address: %w", err)
	}
	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("scpidev: bind UDP socket: %w", err)
	}
	u := &UDP{
		config: config,
		conn:   conn,
		log:    slog.With("transport", "udp", "addr", conn.LocalAddr().String()),
	}
	u.log.Info("UDP socket bound")
	return u, nil
}

// String identifies the transport in logs.
func (u *UDP) String() string { return "udp " + u.conn.LocalAddr().String() }

// Addr returns the bound socket address.
func (u *UDP) Addr() net.Addr { return u.conn.LocalAddr() }

// Serve reads datagrams and feeds their lines into sink until ctx is done.
// A datagram may hold multiple newline-terminated commands; a datagram
// without any newline counts as one complete command.
func (u *UDP) Serve(ctx context.Context, sink chan<- Inbound) error {
	buf := make([]byte, u.config.BufferSize)
	for {
		if ctx.Err() != nil {
			return nil
		}
		u.conn.SetReadDeadline(time.Now().Add(u.config.ReadTimeout))
		n, addr, err := u.conn.ReadFromUDP(buf)
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("scpidev: UDP read: %w", err)
		}

		u.mu.Lock()
		u.peer = addr
		u.mu.Unlock()

		for _, line := range strings.Split(string(buf[:n]), "\n") {
			line = strings.TrimSuffix(line, "\r")
			if line == "" {
				continue
			}
			select {
			case sink <- Inbound{Conn: u, Line: line}:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

// WriteLine implements the LineWriter interface with a datagram to the most
// recent sender. ErrNoPeer denies replies before the first reception.
func (u *UDP) WriteLine(s string) error {
	u.mu.Lock()
	peer := u.peer
	u.mu.Unlock()
	if peer == nil {
		return ErrNoPeer
	}
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	if _, err := u.conn.WriteToUDP([]byte(s), peer); err != nil {
		return fmt.Errorf("scpidev: UDP write: %w", err)
	}
	return nil
}

// Close releases the datagram socket.
func (u *UDP) Close() error { return u.conn.Close() }
