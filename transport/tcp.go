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

	"github.com/google/uuid"
)

// TCPPort is the IANA registered port number for SCPI raw socket control.
const TCPPort = 5025

// TCPConfig defines a TCP listener. The default is applied for each
// unspecified value.
type TCPConfig struct {
	// IP is the local address to bind to. The default binds to all
	// local addresses.
	IP string

	// Port defaults to TCPPort. A negative port selects an ephemeral
	// port, which suits tests and embedded use.
	Port int

	// BufferSize is the read buffer per connection, 1024 by default.
	BufferSize int

	// ReadTimeout bounds each blocking accept and read so that
	// cancellation is observed. The default is 1 second.
	ReadTimeout time.Duration
}

// Check applies the default for each unspecified value.
func (c *TCPConfig) check() *TCPConfig {
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

// A TCP transport serves any number of concurrent client sessions on one
// listening socket.
type TCP struct {
	config   TCPConfig
	listener *net.TCPListener
	log      *slog.Logger

	mu    sync.Mutex
	conns map[*net.TCPConn]struct{}
}

// ListenTCP binds the listening socket. Serve accepts clients from it.
func ListenTCP(config TCPConfig) (*TCP, error) {
	config.check()
	addr, err := net.ResolveTCPAddr("tcp", net.JoinHostPort(config.IP, fmt.Sprint(config.Port)))
	if err != nil {
		return nil, fmt.Errorf("scpidev: resolve TCP address: %w", err)
	}
	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("scpidev: bind TCP socket: %w", err)
	}
	t := &TCP{
		config:   config,
		listener: l,
		log:      slog.With("transport", "tcp", "addr", l.Addr().String()),
		conns:    make(map[*net.TCPConn]struct{}),
	}
	t.log.Info("TCP socket bound")
	return t, nil
}

// String identifies the transport in logs.
func (t *TCP) String() string { return "tcp " + t.listener.Addr().String() }

// Addr returns the bound listener address.
func (t *TCP) Addr() net.Addr { return t.listener.Addr() }

// Serve accepts clients and feeds their lines into sink until ctx is done.
func (t *TCP) Serve(ctx context.Context, sink chan<- Inbound) error {
	var sessions sync.WaitGroup
	defer sessions.Wait()

	for {
		t.listener.SetDeadline(time.Now().Add(t.config.ReadTimeout))
		conn, err := t.listener.AcceptTCP()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("scpidev: TCP accept: %w", err)
		}

		t.track(conn, true)
		sessions.Add(1)
		go func() {
			defer sessions.Done()
			defer t.track(conn, false)
			t.serveConn(ctx, conn, sink)
		}()
	}
}

func (t *TCP) track(conn *net.TCPConn, add bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if add {
		t.conns[conn] = struct{}{}
	} else {
		delete(t.conns, conn)
	}
}

func (t *TCP) serveConn(ctx context.Context, conn *net.TCPConn, sink chan<- Inbound) {
	defer conn.Close()

	session := uuid.NewString()[:8]
	log := t.log.With("session", session, "remote", conn.RemoteAddr().String())
	log.Info("client connected")
	defer log.Info("client gone")

	var assemble Assembler
	buf := make([]byte, t.config.BufferSize)
	for {
		conn.SetReadDeadline(time.Now().Add(t.config.ReadTimeout))
		n, err := conn.Read(buf)
		if n > 0 {
			for _, line := range assemble.Feed(buf[:n]) {
				select {
				case sink <- Inbound{Conn: &tcpConn{conn}, Line: line}:
				case <-ctx.Done():
					return
				}
			}
		}
		if err != nil {
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			if ctx.Err() == nil && !errors.Is(err, net.ErrClosed) &&
				!strings.Contains(err.Error(), "EOF") {
				log.Warn("read failed", "err", err)
			}
			return
		}
	}
}

// Close releases the listening socket and every accepted connection.
func (t *TCP) Close() error {
	err := t.listener.Close()
	t.mu.Lock()
	defer t.mu.Unlock()
	for conn := range t.conns {
		conn.Close()
	}
	t.conns = make(map[*net.TCPConn]struct{})
	return err
}

// PollOnce runs one single-task service cycle: accept one client, read one
// buffer, execute each complete command with exec, write the replies, and
// close the remote socket. Commands split on newlines and semicolons; a
// trailing fragment without terminator is discarded. An empty exec result
// sends no reply. The call blocks until a client connects or the listener
// closes.
func (t *TCP) PollOnce(exec func(line string) string) error {
	t.listener.SetDeadline(time.Time{})
	conn, err := t.listener.AcceptTCP()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("scpidev: TCP accept: %w", err)
	}
	defer conn.Close()

	buf := make([]byte, t.config.BufferSize)
	n, err := conn.Read(buf)
	if err != nil && n == 0 {
		return nil
	}
	data := string(buf[:n])
	terminated := strings.HasSuffix(data, "\n")
	commands := strings.FieldsFunc(data, func(r rune) bool {
		return r == '\n' || r == ';'
	})
	if !terminated && len(commands) > 0 {
		commands = commands[:len(commands)-1]
	}

	w := tcpConn{conn}
	for _, command := range commands {
		if resp := exec(command); resp != "" {
			if err := w.WriteLine(resp); err != nil {
				return err
			}
		}
	}
	return nil
}

// tcpConn adapts an accepted socket to the LineWriter interface.
type tcpConn struct {
	conn *net.TCPConn
}

// WriteLine implements the LineWriter interface. A failed write closes the
// session.
func (w *tcpConn) WriteLine(s string) error {
	if !strings.HasSuffix(s, "\n") {
		s += "\n"
	}
	if _, err := w.conn.Write([]byte(s)); err != nil {
		w.conn.Close()
		return fmt.Errorf("scpidev: TCP write: %w", err)
	}
	return nil
}
