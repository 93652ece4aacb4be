//go:build !linux && !darwin

package session

import "net"

// listenReusableUDP binds a UDP6-only socket. SO_REUSEADDR is skipped on
// platforms without a straightforward syscall.RawConn story (e.g. Windows);
// the bridge only ever holds one peer socket at a time so the platform
// default is sufficient there.
func listenReusableUDP(bindAddr *net.UDPAddr) (*net.UDPConn, error) {
	return net.ListenUDP("udp6", bindAddr)
}
