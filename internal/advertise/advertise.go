// Package advertise composes the shareable endpoint string a bridge hands
// back to its controller: STUN mapping first, then a local-source-probe
// fallback, then the bound local address as a last resort.
package advertise

import (
	"net"

	"github.com/loopback-bridge/bridge/internal/endpoint"
	"github.com/loopback-bridge/bridge/internal/logging"
	"github.com/loopback-bridge/bridge/internal/probe"
	"github.com/loopback-bridge/bridge/internal/stun"
)

// DefaultSTUNServer is the reference STUN server used for PUBLIC-mode
// endpoint discovery.
const DefaultSTUNServer = "stun.cloudflare.com:3478"

// Build composes the shareable endpoint text for conn, the peer socket.
// isPublic selects whether STUN is attempted at all: LOCAL-mode sockets
// (bound to ::1) never benefit from a public mapping.
func Build(conn *net.UDPConn, isPublic bool, logger *logging.Logger) (string, error) {
	local, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", &net.AddrError{Err: "unexpected local address type", Addr: conn.LocalAddr().String()}
	}

	if !isPublic {
		return endpoint.Format(local), nil
	}

	if mapped, err := tryStun(conn, logger); err == nil {
		return endpoint.Format(mapped), nil
	}

	if probed, err := probe.LocalSource(probe.WellKnownDestination); err == nil {
		// The probed address reveals the outbound-selected source IP; the
		// bound port is the one remote peers must actually send to.
		return endpoint.Format(&net.UDPAddr{IP: probed.IP, Port: local.Port}), nil
	}

	logger.Debug("endpoint advertiser: STUN and local-source probe both failed, falling back to bound address")
	return endpoint.Format(local), nil
}

func tryStun(conn *net.UDPConn, logger *logging.Logger) (*net.UDPAddr, error) {
	server, err := net.ResolveUDPAddr("udp6", DefaultSTUNServer)
	if err != nil {
		logger.Debug("endpoint advertiser: resolving STUN server failed: %v", err)
		return nil, err
	}

	mapped, err := stun.Bind(conn, server)
	if err != nil {
		logger.Debug("endpoint advertiser: STUN binding failed: %v", err)
		return nil, err
	}
	return mapped, nil
}
