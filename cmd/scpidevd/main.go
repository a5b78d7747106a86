// Command scpidevd serves a demonstration multimeter over TCP, UDP and
// optionally a serial line. It registers the standard command set plus a few
// measurement commands with synthetic readings, which makes it a convenient
// remote end for scpicat and for instrument-driver development.
package main

import (
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mrberti/scpidev"
	"github.com/mrberti/scpidev/scpi"
)

var (
	configFlag  string
	portFlag    int
	verboseFlag bool
)

func main() {
	cmd := &cobra.Command{
		Use:           "scpidevd",
		Short:         "Serve a demonstration SCPI multimeter",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().StringVar(&configFlag, "config", "", "device definition in a YAML file")
	cmd.Flags().IntVar(&portFlag, "port", 5025, "TCP port when the configuration defines no interface")
	cmd.Flags().BoolVarP(&verboseFlag, "verbose", "v", false, "log at debug level")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scpidevd:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verboseFlag {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	config := scpidev.Config{Name: "demo-dmm"}
	if configFlag != "" {
		var err error
		config, err = scpidev.LoadConfig(configFlag)
		if err != nil {
			return err
		}
	}

	dev := scpidev.New(config)
	if len(config.Interfaces) == 0 {
		err := dev.CreateInterface(scpidev.InterfaceConfig{Type: "tcp", Port: portFlag})
		if err != nil {
			return err
		}
	}

	dev.AddStandardCommands("scpidev,demo-dmm,0,0.1.0")
	registerDemoCommands(dev)

	if err := dev.Start(); err != nil {
		return err
	}
	slog.Info("serving", "commands", len(dev.ListCommands()))

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	sig := <-signals
	slog.Info("got signal", "signal", sig.String())

	return dev.Stop(5 * time.Second)
}

const measParams = "[{<range>|AUTO|MIN|MAX|DEF}[,{<resolution>|MIN|MAX|DEF}]]"

func registerDemoCommands(dev *scpidev.Device) {
	reading := func(mid, spread float64) func(scpi.Request) (string, error) {
		return func(scpi.Request) (string, error) {
			return fmt.Sprintf("%.6E", mid+spread*(rand.Float64()-0.5)), nil
		}
	}

	dev.MustAddCommand("MEASure[:VOLTage][:DC]? "+measParams,
		scpi.ActionFunc(reading(12.0, 0.1))).Label = "meas_voltage_dc"
	dev.MustAddCommand("MEASure:CURRent[:DC]? "+measParams,
		scpi.ActionFunc(reading(0.21, 0.01))).Label = "meas_current_dc"

	var nullState bool
	dev.MustAddCommand("[SENSe:]VOLTage[:DC]:NULL[:STATe] {ON|OFF|1|0}",
		scpi.ActionFunc(func(req scpi.Request) (string, error) {
			v := strings.ToLower(req.Args[0])
			nullState = v == "on" || v == "1"
			return "", nil
		})).Label = "voltage_null_state"
	dev.MustAddCommand("[SENSe:]VOLTage[:DC]:NULL[:STATe]?",
		scpi.ActionFunc(func(scpi.Request) (string, error) {
			if nullState {
				return "1", nil
			}
			return "0", nil
		})).Label = "voltage_null_state?"

	function := "NULL"
	dev.MustAddCommand("CALCulate:FUNCtion {NULL|DB|DBM|AVERage|LIMit}",
		scpi.ActionFunc(func(req scpi.Request) (string, error) {
			function = strings.ToUpper(req.Args[0])
			return "", nil
		})).Label = "calculate_function"
	dev.MustAddCommand("CALCulate:FUNCtion?",
		scpi.ActionFunc(func(scpi.Request) (string, error) {
			return function, nil
		})).Label = "calculate_function?"
}
