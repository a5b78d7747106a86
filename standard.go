package scpidev

import (
	"fmt"
	"strings"

	"github.com/mrberti/scpidev/scpi"
)

// NoError is the system-error response with an empty alarm trace.
const NoError = `0,"No error"`

// AddStandardCommands registers the common command set recommended for any
// instrument: *IDN?, *RST, *CLS, *SRE, *STB? and the :SYSTem:ERRor and
// :SYSTem:HELP queries. The idn string is the *IDN? response, typically
// "<vendor>,<model>,<serial>,<firmware>". Registration panics on a running
// device, like AddCommand denies it.
func (d *Device) AddStandardCommands(idn string) {
	d.MustAddCommand("*IDN?", scpi.ActionFunc(func(scpi.Request) (string, error) {
		return idn, nil
	})).Label = "idn"

	d.MustAddCommand("*RST", scpi.ActionFunc(func(scpi.Request) (string, error) {
		d.ClearAlarm(true)
		d.setRegisters(0, 0)
		return "", nil
	})).Label = "rst"

	d.MustAddCommand("*CLS", scpi.ActionFunc(func(scpi.Request) (string, error) {
		d.ClearAlarm(true)
		return "", nil
	})).Label = "cls"

	d.MustAddCommand("*SRE <value>", scpi.ActionFunc(func(req scpi.Request) (string, error) {
		n, err := scpi.ParseInt(req.Args[0])
		if err != nil {
			return "", fmt.Errorf("illegal service request enable value: %w", err)
		}
		d.mu.Lock()
		d.sre = byte(n)
		d.mu.Unlock()
		return "", nil
	})).Label = "sre"

	d.MustAddCommand("*SRE?", scpi.ActionFunc(func(scpi.Request) (string, error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		return fmt.Sprint(d.sre), nil
	})).Label = "sre?"

	d.MustAddCommand("*STB?", scpi.ActionFunc(func(scpi.Request) (string, error) {
		d.mu.Lock()
		defer d.mu.Unlock()
		return fmt.Sprint(d.stb), nil
	})).Label = "stb?"

	d.MustAddCommand(":SYSTem:ERRor[:NEXT]?", scpi.ActionFunc(func(scpi.Request) (string, error) {
		message, ok := d.Alarm(true)
		if !ok {
			return NoError, nil
		}
		return message, nil
	})).Label = "system_error"

	d.MustAddCommand(":SYSTem:HELP?", scpi.ActionFunc(func(scpi.Request) (string, error) {
		specs := d.registry.Specs()
		return scpi.Block(strings.Join(specs, "\n") + "\n"), nil
	})).Label = "system_help"
}

func (d *Device) setRegisters(sre, stb byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sre, d.stb = sre, stb
}
