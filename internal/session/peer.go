package session

import (
	"net"

	"github.com/loopback-bridge/bridge/internal/datagram"
	"github.com/loopback-bridge/bridge/internal/events"
)

// HandlePeer dispatches one datagram received from the remote peer socket.
// Once a remote peer has been saved, datagrams from any other address are
// ignored as hardening against the peer socket's connectionless exposure;
// this filter is optional, not a gate on dispatch itself, so MSG-----/
// EXIT---- are still processed even before this side's own SETPEER- has
// run.
func (s *Session) HandlePeer(tag datagram.Tag, payload []byte, from *net.UDPAddr) {
	if s.remotePeerReady && from.String() != s.remotePeer.String() {
		return
	}

	switch {
	case tag.Is(datagram.TagMsg):
		if err := s.SendToController(datagram.TagMsg, payload); err != nil {
			s.logger.Error("failed to forward peer message to controller: %v", err)
		}

	case tag.Is(datagram.TagExit):
		s.notifyInfo("remote peer ended the session")
		if s.emitter != nil {
			s.emitter.Emit(events.EventSessionEnd, events.SessionEndData{Reason: "remote peer exited"})
		}
		s.RequestExit()

	case tag.Is(datagram.TagPing):
		// Hole-punch and keepalive traffic; nothing to forward.

	default:
		// Unrecognized peer traffic is dropped silently.
	}
}
