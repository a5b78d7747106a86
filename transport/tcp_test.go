package transport

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func startTCP(t *testing.T) (*TCP, chan Inbound) {
	t.Helper()
	tr, err := ListenTCP(TCPConfig{IP: "127.0.0.1", Port: -1, ReadTimeout: 50 * time.Millisecond})
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })

	sink := make(chan Inbound, 16)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go tr.Serve(ctx, sink)
	return tr, sink
}

func TestTCPServe(t *testing.T) {
	tr, sink := startTCP(t)

	conn, err := net.Dial("tcp", tr.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	// one line in two writes, then another complete line
	_, err = conn.Write([]byte("*ID"))
	require.NoError(t, err)
	_, err = conn.Write([]byte("N?\nsyst:err?\n"))
	require.NoError(t, err)

	in := awaitInbound(t, sink)
	require.Equal(t, "*IDN?", in.Line)
	in2 := awaitInbound(t, sink)
	require.Equal(t, "syst:err?", in2.Line)

	// reply travels back over the same session
	require.NoError(t, in.Conn.WriteLine("SCPIDevice,0.0"))
	reply, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "SCPIDevice,0.0\n", reply)
}

func TestTCPConcurrentSessions(t *testing.T) {
	tr, sink := startTCP(t)

	a, err := net.Dial("tcp", tr.Addr().String())
	require.NoError(t, err)
	defer a.Close()
	b, err := net.Dial("tcp", tr.Addr().String())
	require.NoError(t, err)
	defer b.Close()

	_, err = a.Write([]byte("from:a\n"))
	require.NoError(t, err)
	_, err = b.Write([]byte("from:b\n"))
	require.NoError(t, err)

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		got[awaitInbound(t, sink).Line] = true
	}
	require.True(t, got["from:a"] && got["from:b"], "got %v", got)
}

func TestTCPPollOnce(t *testing.T) {
	tr, err := ListenTCP(TCPConfig{IP: "127.0.0.1", Port: -1})
	require.NoError(t, err)
	defer tr.Close()

	go func() {
		conn, err := net.Dial("tcp", tr.Addr().String())
		if err != nil {
			return
		}
		defer conn.Close()
		conn.Write([]byte("*IDN?;*RST\nmeas?"))
		// the replies must arrive before the remote closes
		r := bufio.NewReader(conn)
		r.ReadString('\n')
		time.Sleep(50 * time.Millisecond)
	}()

	var lines []string
	err = tr.PollOnce(func(line string) string {
		lines = append(lines, line)
		if line == "*IDN?" {
			return "SCPIDevice,0.0\n"
		}
		return ""
	})
	require.NoError(t, err)
	// the unterminated "meas?" fragment is discarded
	require.Equal(t, []string{"*IDN?", "*RST"}, lines)
}

func awaitInbound(t *testing.T, sink chan Inbound) Inbound {
	t.Helper()
	select {
	case in := <-sink:
		return in
	case <-time.After(2 * time.Second):
		t.Fatal("no inbound line within 2s")
		return Inbound{}
	}
}
