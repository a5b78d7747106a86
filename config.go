package scpidev

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrberti/scpidev/transport"
)

// A Duration reads from YAML in time.ParseDuration notation, like "500ms",
// or as a whole number of seconds.
type Duration time.Duration

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var n int64
	if err := value.Decode(&n); err == nil {
		*d = Duration(time.Duration(n) * time.Second)
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("scpidev: illegal duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements the yaml.Marshaler interface.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Config defines a device. The default is applied for each unspecified
// value.
type Config struct {
	// Name tags log records of the device. The default is "SCPIDevice".
	Name string `yaml:"name"`

	// QueueSize bounds the shared receive queue between the transport
	// workers and the dispatcher, 32 by default.
	QueueSize int `yaml:"queue_size"`

	// HistorySize bounds the executed-command history, 100 by default.
	HistorySize int `yaml:"history_size"`

	// WatchdogPeriod is the liveness check interval, 10 seconds by
	// default.
	WatchdogPeriod Duration `yaml:"watchdog_period"`

	// Interfaces are the transport definitions, instantiated on Start.
	Interfaces []InterfaceConfig `yaml:"interfaces"`
}

// Check applies the default for each unspecified value.
func (c *Config) check() *Config {
	if c.Name == "" {
		c.Name = "SCPIDevice"
	}
	if c.QueueSize == 0 {
		c.QueueSize = 32
	}
	if c.HistorySize == 0 {
		c.HistorySize = 100
	}
	if c.WatchdogPeriod == 0 {
		c.WatchdogPeriod = Duration(10 * time.Second)
	}
	return c
}

// An InterfaceConfig defines one transport of a device.
type InterfaceConfig struct {
	// Type is "tcp", "udp" or "serial".
	Type string `yaml:"type"`

	// IP is the local address for tcp and udp. The default binds to
	// all local addresses.
	IP string `yaml:"ip"`

	// Port for tcp and udp, 5025 by default.
	Port int `yaml:"port"`

	// BufferSize per read, 1024 by default.
	BufferSize int `yaml:"buffer_size"`

	// Timeout bounds blocking accepts and reads, 1 second by default.
	Timeout Duration `yaml:"timeout"`

	// Device is the serial device path, like "/dev/ttyUSB0".
	Device string `yaml:"device"`

	// Baud is the serial line speed, 9600 by default.
	Baud int `yaml:"baudrate"`
}

func (c InterfaceConfig) tcp() transport.TCPConfig {
	return transport.TCPConfig{
		IP:          c.IP,
		Port:        c.Port,
		BufferSize:  c.BufferSize,
		ReadTimeout: time.Duration(c.Timeout),
	}
}

func (c InterfaceConfig) udp() transport.UDPConfig {
	return transport.UDPConfig{
		IP:          c.IP,
		Port:        c.Port,
		BufferSize:  c.BufferSize,
		ReadTimeout: time.Duration(c.Timeout),
	}
}

func (c InterfaceConfig) serial() transport.SerialConfig {
	return transport.SerialConfig{
		Device:     c.Device,
		Baud:       c.Baud,
		BufferSize: c.BufferSize,
	}
}

// Open instantiates the transport.
func (c InterfaceConfig) open() (transport.Interface, error) {
	switch c.Type {
	case "tcp":
		return transport.ListenTCP(c.tcp())
	case "udp":
		return transport.ListenUDP(c.udp())
	case "serial":
		return transport.OpenSerial(c.serial())
	default:
		return nil, fmt.Errorf("scpidev: interface type %q is not supported", c.Type)
	}
}

// LoadConfig reads a device definition from a YAML file.
func LoadConfig(path string) (Config, error) {
	var c Config
	data, err := os.ReadFile(path)
	if err != nil {
		return c, fmt.Errorf("scpidev: read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &c); err != nil {
		return c, fmt.Errorf("scpidev: parse config %s: %w", path, err)
	}
	for _, i := range c.Interfaces {
		switch i.Type {
		case "tcp", "udp", "serial":
		default:
			return c, fmt.Errorf("scpidev: config %s: interface type %q is not supported", path, i.Type)
		}
	}
	return c, nil
}
