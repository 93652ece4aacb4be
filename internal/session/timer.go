package session

import (
	"time"

	"github.com/loopback-bridge/bridge/internal/datagram"
	"github.com/loopback-bridge/bridge/internal/events"
)

// Tick runs the timer-driven half of a loop iteration: the initial
// hole-punch burst and the ongoing keepalive ping. It is a no-op until a
// remote peer has been set.
func (s *Session) Tick(now time.Time) {
	if !s.peerSocketReady || !s.remotePeerReady {
		return
	}

	s.runPunchBurst(now)
	s.runKeepalive(now)
}

func (s *Session) runPunchBurst(now time.Time) {
	if s.punchesLeft <= 0 {
		return
	}
	if !s.lastPunch.IsZero() && now.Sub(s.lastPunch) < PunchInterval {
		return
	}

	if err := s.SendToPeer(datagram.TagPing, []byte(punchPayload)); err != nil {
		s.logger.Debug("hole-punch send failed: %v", err)
	}
	s.lastPunch = now
	s.punchesLeft--

	if s.punchesLeft == 0 && s.emitter != nil {
		s.emitter.Emit(events.EventPunchBurst, events.PunchBurstData{Sent: InitialPunchCount})
	}
}

func (s *Session) runKeepalive(now time.Time) {
	if now.Sub(s.lastKeepalive) < KeepaliveInterval {
		return
	}

	if err := s.SendToPeer(datagram.TagPing, []byte(keepalivePayload)); err != nil {
		s.logger.Debug("keepalive send failed: %v", err)
		return
	}
	s.lastKeepalive = now

	if s.emitter != nil {
		s.emitter.Emit(events.EventKeepalive, events.KeepaliveData{RemotePeer: s.remotePeer.String()})
	}
}
