//go:build linux || darwin

package session

import (
	"context"
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

// listenReusableUDP binds a UDP6-only socket with SO_REUSEADDR set, per the
// peer-socket bind requirements in the concurrency model.
func listenReusableUDP(bindAddr *net.UDPAddr) (*net.UDPConn, error) {
	lc := net.ListenConfig{
		Control: func(_, _ string, c syscall.RawConn) error {
			var sockErr error
			if err := c.Control(func(fd uintptr) {
				sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
			}); err != nil {
				return err
			}
			return sockErr
		},
	}

	conn, err := lc.ListenPacket(context.Background(), "udp6", bindAddr.String())
	if err != nil {
		return nil, err
	}
	return conn.(*net.UDPConn), nil
}
