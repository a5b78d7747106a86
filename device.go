// Package scpidev implements a programmable instrument-control endpoint
// speaking SCPI over network and serial transports. A Device holds a set of
// compiled command specifications with their action handlers, accepts lines
// from its transports, matches them against the registered grammar, runs the
// matching action and writes the response back to the originating channel.
//
// The grammar itself lives in the scpi subpackage and the channels in the
// transport subpackage; this package ties them together with the dispatch
// loop, the alarm trace and the lifecycle management.
package scpidev

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/mrberti/scpidev/scpi"
	"github.com/mrberti/scpidev/transport"
)

var (
	// ErrRunning denies configuration changes while the device serves.
	ErrRunning = errors.New("scpidev: device is running")

	// ErrNoInterface signals a start attempt without a usable transport.
	ErrNoInterface = errors.New("scpidev: no interface could be instantiated")

	// ErrStopTimeout signals workers still busy after the grace period.
	ErrStopTimeout = errors.New("scpidev: stop timeout expired with workers still running")
)

// A Device is an SCPI instrument endpoint. The zero value is not usable;
// see New.
type Device struct {
	config   Config
	registry scpi.Registry
	history  *history
	log      *slog.Logger

	mu       sync.Mutex
	alarmSet bool
	alarms   []string
	sre, stb byte

	runMu   sync.Mutex
	running bool
	cancel  context.CancelFunc
	group   *errgroup.Group
	ifaces  []transport.Interface
	alive   atomic.Int32

	poller *transport.TCP // single-task mode, lazily instantiated
}

// New returns an idle device. Interface definitions from the configuration
// register as if passed to CreateInterface.
func New(config Config) *Device {
	config.check()
	d := &Device{
		config:  config,
		history: newHistory(config.HistorySize),
		log:     slog.With("device", config.Name),
	}
	return d
}

// AddCommand compiles a specification and registers it with the action.
// The returned command accepts a Label and Description before the device
// starts. Registration is denied while the device is running, since the
// dispatcher reads the registry without locking.
func (d *Device) AddCommand(spec string, action scpi.Action) (*scpi.Command, error) {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.running {
		return nil, ErrRunning
	}
	cmd, err := scpi.Parse(spec, action)
	if err != nil {
		return nil, err
	}
	d.registry.Add(cmd)
	return cmd, nil
}

// AddCommandFunc is AddCommand with a plain function.
func (d *Device) AddCommandFunc(spec string, fn func(scpi.Request) (string, error)) (*scpi.Command, error) {
	return d.AddCommand(spec, scpi.ActionFunc(fn))
}

// MustAddCommand is AddCommand, yet it panics on rejection.
func (d *Device) MustAddCommand(spec string, action scpi.Action) *scpi.Command {
	cmd, err := d.AddCommand(spec, action)
	if err != nil {
		panic(err)
	}
	return cmd
}

// ListCommands returns the canonical specification of each registered
// command in registration order.
func (d *Device) ListCommands() []string {
	specs := make([]string, 0, d.registry.Len())
	for _, c := range d.registry.Commands() {
		specs = append(specs, c.String())
	}
	return specs
}

// History returns the successfully executed command lines, oldest first,
// capped at the configured history size.
func (d *Device) History() []string { return d.history.list() }

// CreateInterface records a transport definition. Instantiation is deferred
// to Start or Poll so that each start constructs fresh sockets and a failed
// run leaks nothing into the next.
func (d *Device) CreateInterface(config InterfaceConfig) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.running {
		return ErrRunning
	}
	switch config.Type {
	case "tcp", "udp", "serial":
		d.config.Interfaces = append(d.config.Interfaces, config)
		return nil
	default:
		return fmt.Errorf("scpidev: interface type %q is not supported", config.Type)
	}
}

// Instantiate builds the transports for one run. Individual failures are
// logged and skipped; only a fully unusable definition set is an error.
func (d *Device) instantiate() ([]transport.Interface, error) {
	var ifaces []transport.Interface
	for _, c := range d.config.Interfaces {
		iface, err := c.open()
		if err != nil {
			d.log.Error("could not instantiate interface", "type", c.Type, "err", err)
			continue
		}
		ifaces = append(ifaces, iface)
	}
	if len(ifaces) == 0 {
		return nil, ErrNoInterface
	}
	return ifaces, nil
}

// Start instantiates the transports and launches the service: one worker
// per transport feeding a single bounded receive queue, one dispatcher
// consuming it, and a watchdog. Actions thus execute one at a time and see
// a consistent registry and alarm trace.
func (d *Device) Start() error {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	if d.running {
		return ErrRunning
	}

	ifaces, err := d.instantiate()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(ctx)
	queue := make(chan transport.Inbound, d.config.QueueSize)

	for _, iface := range ifaces {
		iface := iface
		d.alive.Add(1)
		group.Go(func() error {
			defer d.alive.Add(-1)
			return iface.Serve(gctx, queue)
		})
	}
	group.Go(func() error {
		d.dispatch(gctx, queue)
		return nil
	})
	group.Go(func() error {
		d.watchdog(gctx, len(ifaces))
		return nil
	})

	d.cancel = cancel
	d.group = group
	d.ifaces = ifaces
	d.running = true
	d.log.Info("device started", "interfaces", len(ifaces))
	return nil
}

// Stop requests termination and joins all workers. A zero timeout waits
// indefinitely. The transports' sockets are released either way.
func (d *Device) Stop(timeout time.Duration) error {
	d.runMu.Lock()
	defer d.runMu.Unlock()

	if d.poller != nil {
		d.poller.Close()
		d.poller = nil
	}
	if !d.running {
		return nil
	}

	d.cancel()
	for _, iface := range d.ifaces {
		iface.Close()
	}

	done := make(chan error, 1)
	go func() { done <- d.group.Wait() }()
	var err error
	if timeout == 0 {
		err = <-done
	} else {
		select {
		case err = <-done:
		case <-time.After(timeout):
			err = ErrStopTimeout
		}
	}

	d.running = false
	d.ifaces = nil
	d.log.Info("device stopped")
	return err
}

// Dispatch is the sole consumer of the receive queue.
func (d *Device) dispatch(ctx context.Context, queue <-chan transport.Inbound) {
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-queue:
			d.handleLine(in.Conn, in.Line)
		}
	}
}

// HandleLine runs every command on one wire line and writes the replies in
// order. Commands share a line separated by semicolons.
func (d *Device) handleLine(w transport.LineWriter, line string) {
	if !utf8.ValidString(line) {
		d.SetAlarm("Dropped a line with ill-formed encoding.")
		return
	}
	for _, command := range strings.Split(line, ";") {
		resp := d.Execute(command)
		if resp == "" {
			continue
		}
		if err := w.WriteLine(resp); err != nil {
			d.log.Info("could not send data", "err", err)
			d.SetAlarm(fmt.Sprintf("Could not send data. %s.", err))
		}
	}
}

// Execute runs one command line and returns the reply, or the empty string
// when there is none. Failures never reach the wire: a failed match or a
// failed action records an alarm instead.
func (d *Device) Execute(line string) string {
	line = scpi.Sanitize(line, false)
	if line == "" {
		return ""
	}

	resp, err := d.registry.Execute(line)
	if err == nil {
		d.history.add(line)
		metricCommands.Inc()
		return resp
	}

	var reason string
	var actionErr *scpi.ActionError
	switch {
	case errors.Is(err, scpi.ErrNoMatch):
		reason = "No match found."
	case errors.Is(err, scpi.ErrParamMismatch):
		reason = "Parameter mismatch."
	case errors.As(err, &actionErr):
		reason = fmt.Sprintf("Exception during execution of %q: %s.", actionErr.Label, actionErr.Err)
	default:
		reason = err.Error()
	}
	d.SetAlarm(fmt.Sprintf("Could not execute command %q. %s", line, reason))
	return ""
}

// Poll runs one single-task service cycle: accept one client, read once,
// execute each complete command synchronously and close the remote socket.
// Single-task mode permits exactly one interface definition of type "tcp".
// The listening socket instantiates on the first call and stays bound
// across calls; Stop releases it.
func (d *Device) Poll() error {
	d.runMu.Lock()
	if d.running {
		d.runMu.Unlock()
		return ErrRunning
	}
	if d.poller == nil {
		if len(d.config.Interfaces) != 1 {
			d.runMu.Unlock()
			return errors.New("scpidev: single-task mode permits exactly one interface")
		}
		c := d.config.Interfaces[0]
		if c.Type != "tcp" {
			d.runMu.Unlock()
			return fmt.Errorf("scpidev: single-task mode does not support type %q", c.Type)
		}
		iface, err := transport.ListenTCP(c.tcp())
		if err != nil {
			d.runMu.Unlock()
			return err
		}
		d.poller = iface
	}
	poller := d.poller
	d.runMu.Unlock()

	return poller.PollOnce(d.Execute)
}

// Interfaces returns the live transport instances of the current run.
func (d *Device) Interfaces() []transport.Interface {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return append([]transport.Interface(nil), d.ifaces...)
}

// PollListener returns the bound single-task listener, or nil before the
// first Poll.
func (d *Device) PollListener() *transport.TCP {
	d.runMu.Lock()
	defer d.runMu.Unlock()
	return d.poller
}

// SetAlarm appends a message to the alarm trace. Actions may call this to
// report asynchronous conditions.
func (d *Device) SetAlarm(message string) {
	d.mu.Lock()
	d.alarmSet = true
	d.alarms = append(d.alarms, message)
	d.mu.Unlock()
	d.log.Info(message)
	metricAlarms.Inc()
}

// Alarm pops the most recent alarm, last in first out. With clearWhenEmpty
// the alarm flag resets once the trace drains.
func (d *Device) Alarm(clearWhenEmpty bool) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.alarms) == 0 {
		if clearWhenEmpty {
			d.alarmSet = false
		}
		return "", false
	}
	message := d.alarms[len(d.alarms)-1]
	d.alarms = d.alarms[:len(d.alarms)-1]
	if len(d.alarms) == 0 && clearWhenEmpty {
		d.alarmSet = false
	}
	return message, true
}

// ClearAlarm confirms the current alarm. With clearHistory the whole trace
// empties; all previous alarms are lost then.
func (d *Device) ClearAlarm(clearHistory bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.alarmSet = false
	if clearHistory {
		d.alarms = nil
	}
}

// HasAlarm tells whether an unconfirmed alarm is pending.
func (d *Device) HasAlarm() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.alarmSet
}

// AlarmCount returns the current trace depth.
func (d *Device) AlarmCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.alarms)
}

// The watchdog periodically verifies that the transport workers are alive
// and publishes the worker-liveness gauge.
func (d *Device) watchdog(ctx context.Context, workers int) {
	ticker := time.NewTicker(time.Duration(d.config.WatchdogPeriod))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			metricWorkersAlive.Set(0)
			return
		case <-ticker.C:
			alive := d.alive.Load()
			metricWorkersAlive.Set(float64(alive))
			if int(alive) < workers {
				d.log.Warn("transport worker gone", "alive", alive, "want", workers)
			} else {
				d.log.Debug("watchdog alive", "workers", alive, "alarms", d.AlarmCount())
			}
		}
	}
}
