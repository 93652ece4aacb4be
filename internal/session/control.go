package session

import (
	"github.com/loopback-bridge/bridge/internal/datagram"
	"github.com/loopback-bridge/bridge/internal/endpoint"
	"github.com/loopback-bridge/bridge/internal/events"
)

// HandleControl dispatches one datagram received from the controller
// socket. Unknown tags and malformed payloads are acknowledged with an
// INFO---- packet rather than treated as fatal.
func (s *Session) HandleControl(tag datagram.Tag, payload []byte) {
	switch {
	case tag.Is(datagram.TagMkLocal):
		s.handleMakeMode(ModeLocal)

	case tag.Is(datagram.TagMkPub):
		s.handleMakeMode(ModePublic)

	case tag.Is(datagram.TagSetPeer):
		s.handleSetPeer(payload)

	case tag.Is(datagram.TagMsg):
		s.handleControlMsg(payload)

	case tag.Is(datagram.TagExit):
		s.handleControlExit()

	default:
		s.notifyInfo("unknown control tag %q", tag.String())
	}
}

func (s *Session) handleMakeMode(mode Mode) {
	if err := s.SetMode(mode); err != nil {
		s.notifyInfo("failed to enter %s mode: %v", mode, err)
		return
	}

	addr, err := s.AdvertisedEndpoint()
	if err != nil {
		s.notifyInfo("failed to determine advertised endpoint: %v", err)
		return
	}

	if s.emitter != nil {
		s.emitter.Emit(events.EventEndpoint, events.EndpointData{Endpoint: addr})
	}
	if err := s.SendToController(datagram.TagMyEndp, []byte(addr)); err != nil {
		s.logger.Error("failed to send MYENDP to controller: %v", err)
	}
}

func (s *Session) handleSetPeer(payload []byte) {
	if !s.peerSocketReady {
		s.notifyInfo("create the peer socket first (send MKLOCAL- or MKPUB---)")
		return
	}

	addr, err := endpoint.Parse(string(payload))
	if err != nil {
		s.notifyInfo("malformed peer endpoint: %v", err)
		return
	}

	s.SetRemotePeer(addr)
	s.notifyInfo("peer set to %s", addr.String())
}

func (s *Session) handleControlMsg(payload []byte) {
	if !s.peerSocketReady || !s.remotePeerReady {
		s.notifyInfo("cannot send message before peer is bound")
		return
	}
	if err := s.SendToPeer(datagram.TagMsg, payload); err != nil {
		s.notifyInfo("failed to forward message to peer: %v", err)
	}
}

func (s *Session) handleControlExit() {
	if s.peerSocketReady && s.remotePeerReady {
		// Best-effort notice; the peer may already be gone.
		_ = s.SendToPeer(datagram.TagExit, nil)
	}
	s.notifyInfo("bridge exiting")
	if s.emitter != nil {
		s.emitter.Emit(events.EventSessionEnd, events.SessionEndData{Reason: "controller requested exit"})
	}
	s.RequestExit()
}
