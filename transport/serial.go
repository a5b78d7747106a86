package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// SerialConfig defines a line-oriented serial channel. The default is
// applied for each unspecified value.
type SerialConfig struct {
	// Device is the terminal device path, like "/dev/ttyUSB0".
	Device string

	// Baud is informational; the line speed is taken as configured on
	// the device. The default notes 9600.
	Baud int

	// BufferSize is the read buffer, 1024 by default.
	BufferSize int
}

// Check applies the default for each unspecified value.
func (c *SerialConfig) check() *SerialConfig {
	if c.Baud == 0 {
		c.Baud = 9600
	}
	if c.BufferSize == 0 {
		c.BufferSize = 1024
	}
	return c
}

// A Serial transport is a single full-duplex line channel on a terminal
// device.
type Serial struct {
	config SerialConfig
	file   *os.File
	log    *slog.Logger

	restore *term.State // nil when the caller configured the device
}

// OpenSerial opens the device and puts it in raw mode. Close restores the
// previous terminal state.
func OpenSerial(config SerialConfig) (*Serial, error) {
	config.check()
	f, err := os.OpenFile(config.Device, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("scpidev: open serial device: %w", err)
	}
	state, err := term.MakeRaw(int(f.Fd()))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("scpidev: raw mode on %s: %w", config.Device, err)
	}
	s := NewSerialFile(f, config)
	s.restore = state
	return s, nil
}

// NewSerialFile wraps an already configured terminal file, such as one end
// of a pseudo-terminal pair. The caller keeps ownership of the line
// discipline; Close only closes the file.
func NewSerialFile(f *os.File, config SerialConfig) *Serial {
	config.check()
	if config.Device == "" {
		config.Device = f.Name()
	}
	return &Serial{
		config: config,
		file:   f,
		log:    slog.With("transport", "serial", "device", config.Device),
	}
}

// String identifies the transport in logs.
func (s *Serial) String() string {
	return fmt.Sprintf("serial (%s, %d)", s.config.Device, s.config.Baud)
}

// Serve feeds complete lines into sink until ctx is done or the device
// closes. Terminal reads have no portable deadline, so cancellation is
// observed on the next received byte or on Close.
func (s *Serial) Serve(ctx context.Context, sink chan<- Inbound) error {
	s.log.Info("serial channel open")

	var assemble Assembler
	buf := make([]byte, s.config.BufferSize)
	for {
		n, err := s.file.Read(buf)
		if n > 0 {
			for _, line := range assemble.Feed(buf[:n]) {
				select {
				case sink <- Inbound{Conn: s, Line: line}:
				case <-ctx.Done():
					return nil
				}
			}
		}
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) || errors.Is(err, os.ErrClosed) {
				return nil
			}
			return fmt.Errorf("scpidev: serial read: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// WriteLine implements the LineWriter interface.
func (s *Serial) WriteLine(line string) error {
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	if _, err := s.file.Write([]byte(line)); err != nil {
		return fmt.Errorf("scpidev: serial write: %w", err)
	}
	return nil
}

// Close releases the device and restores its terminal state when OpenSerial
// changed it.
func (s *Serial) Close() error {
	if s.restore != nil {
		term.Restore(int(s.file.Fd()), s.restore)
		s.restore = nil
	}
	return s.file.Close()
}
