package transport

import (
	"net"
	"time"
)

// LocalIP probes the primary local address by opening a throwaway datagram
// socket towards a well-known host. No traffic is sent. The loopback address
// is the fallback when the host has no route.
func LocalIP() string {
	conn, err := net.DialTimeout("udp", "1.1.1.1:80", time.Second)
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
