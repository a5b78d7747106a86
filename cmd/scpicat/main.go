// Command scpicat sends SCPI commands to an instrument and prints the
// replies, for smoke testing a device over TCP or UDP.
//
//	scpicat --host 10.0.0.7 '*IDN?' 'MEAS:VOLT:DC? 10,MAX'
//	echo '*IDN?' | scpicat
package main

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	hostFlag    string
	portFlag    uint16
	udpFlag     bool
	timeoutFlag time.Duration
	repeatFlag  uint
)

func main() {
	cmd := &cobra.Command{
		Use:   "scpicat [command ...]",
		Short: "Send SCPI commands to an instrument and print the replies",
		Long: "scpicat connects to an SCPI instrument, sends each command and awaits\n" +
			"the reply for queries. Commands come from the arguments, or from the\n" +
			"standard input with one command per line.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}
	cmd.Flags().StringVar(&hostFlag, "host", "localhost", "host name or IP number of the instrument")
	cmd.Flags().Uint16Var(&portFlag, "port", 5025, "port number of the instrument")
	cmd.Flags().BoolVar(&udpFlag, "udp", false, "send datagrams instead of a TCP session")
	cmd.Flags().DurationVar(&timeoutFlag, "timeout", 2*time.Second, "reply deadline per query")
	cmd.Flags().UintVar(&repeatFlag, "repeat", 1, "number of rounds to send the command set")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "scpicat:", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	commands := args
	if len(commands) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" {
				commands = append(commands, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}
	if len(commands) == 0 {
		return fmt.Errorf("no commands to send")
	}

	network := "tcp"
	if udpFlag {
		network = "udp"
	}
	addr := net.JoinHostPort(hostFlag, fmt.Sprint(portFlag))
	conn, err := net.DialTimeout(network, addr, timeoutFlag)
	if err != nil {
		return err
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	for round := uint(0); round < repeatFlag; round++ {
		for _, command := range commands {
			if err := send(conn, r, command); err != nil {
				return err
			}
		}
	}
	return nil
}

func send(conn net.Conn, r *bufio.Reader, command string) error {
	if _, err := conn.Write([]byte(command + "\n")); err != nil {
		return fmt.Errorf("send %q: %w", command, err)
	}
	// setters get no reply; don't await one
	if !strings.Contains(command, "?") {
		return nil
	}

	conn.SetReadDeadline(time.Now().Add(timeoutFlag))
	reply, err := r.ReadString('\n')
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return fmt.Errorf("no reply to %q within %s", command, timeoutFlag)
		}
		return fmt.Errorf("receive for %q: %w", command, err)
	}
	fmt.Print(reply)
	return nil
}
