// Package probe determines the kernel-selected source IPv6 address for a
// well-known destination without sending any traffic.
package probe

import (
	"fmt"
	"net"
)

// WellKnownDestination is a reachable public IPv6 address used only to make
// the kernel pick a source address via routing; connecting UDP sockets never
// sends a packet.
var WellKnownDestination = &net.UDPAddr{IP: net.ParseIP("2606:4700:4700::1111"), Port: 53}

// LocalSource opens an unbound IPv6 UDP socket, connects it to dest so the
// kernel selects a route and source address, reads that address back, and
// closes the socket. No datagram is ever transmitted.
func LocalSource(dest *net.UDPAddr) (*net.UDPAddr, error) {
	conn, err := net.DialUDP("udp6", nil, dest)
	if err != nil {
		return nil, fmt.Errorf("probe: dial %s: %w", dest, err)
	}
	defer conn.Close()

	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil, fmt.Errorf("probe: unexpected local address type %T", conn.LocalAddr())
	}
	return local, nil
}
