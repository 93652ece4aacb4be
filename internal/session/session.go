// Package session holds the bridge's single in-memory session: the two
// sockets, the mode, the remote peer binding, and the timer bookkeeping
// that the control dispatcher, peer dispatcher, and timer driver all
// operate on.
package session

import (
	"fmt"
	"net"
	"time"

	"github.com/loopback-bridge/bridge/internal/advertise"
	"github.com/loopback-bridge/bridge/internal/datagram"
	"github.com/loopback-bridge/bridge/internal/events"
	"github.com/loopback-bridge/bridge/internal/logging"
)

// Mode selects how (and whether) the peer socket is bound.
type Mode int

const (
	ModeNone Mode = iota
	ModeLocal
	ModePublic
)

func (m Mode) String() string {
	switch m {
	case ModeLocal:
		return "LOCAL"
	case ModePublic:
		return "PUBLIC"
	default:
		return "NONE"
	}
}

// Configuration constants, per spec section 4.8.
const (
	InitialPunchCount    = 5
	PunchInterval        = 500 * time.Millisecond
	KeepaliveInterval    = 15 * time.Second
	RecvBufferSize       = 8192
	punchPayload         = "hello"
	keepalivePayload     = "keepalive"
)

// Session is the single in-memory record owned by the event loop. Every
// field is mutated only from the event loop's goroutine; the loop is
// single-threaded and cooperative, so no internal locking is needed.
type Session struct {
	controlSock *net.UDPConn
	peerSock    *net.UDPConn

	mode            Mode
	peerSocketReady bool
	remotePeerReady bool

	controllerAddr *net.UDPAddr
	remotePeer     *net.UDPAddr

	lastKeepalive time.Time
	lastPunch     time.Time
	punchesLeft   int

	exitRequested bool

	logger  *logging.Logger
	emitter events.Emitter
}

// New creates a Session bound to the controller's address. The control
// socket itself is created by the caller (bootstrap owns its lifetime) and
// passed in already bound.
func New(controlSock *net.UDPConn, controllerAddr *net.UDPAddr, logger *logging.Logger, emitter events.Emitter) *Session {
	return &Session{
		controlSock:    controlSock,
		controllerAddr: controllerAddr,
		mode:           ModeNone,
		logger:         logger,
		emitter:        emitter,
	}
}

// Mode returns the current session mode.
func (s *Session) Mode() Mode { return s.mode }

// PeerSocketReady reports whether a peer socket is open and bound.
func (s *Session) PeerSocketReady() bool { return s.peerSocketReady }

// RemotePeerReady reports whether a valid remote endpoint has been saved.
func (s *Session) RemotePeerReady() bool { return s.remotePeerReady }

// ExitRequested reports whether a dispatcher has signaled the event loop to
// stop.
func (s *Session) ExitRequested() bool { return s.exitRequested }

// RequestExit signals the event loop to stop after this tick.
func (s *Session) RequestExit() { s.exitRequested = true }

// ControlSocket returns the bridge-controller UDP socket.
func (s *Session) ControlSocket() *net.UDPConn { return s.controlSock }

// PeerSocket returns the current peer socket, or nil if none is bound.
func (s *Session) PeerSocket() *net.UDPConn { return s.peerSock }

// ControllerAddr returns the controller's UDP endpoint.
func (s *Session) ControllerAddr() *net.UDPAddr { return s.controllerAddr }

// RemotePeer returns the saved remote peer endpoint. Only meaningful when
// RemotePeerReady is true.
func (s *Session) RemotePeer() *net.UDPAddr { return s.remotePeer }

// SetMode closes any existing peer socket and opens a new one for the
// requested mode: bound to [::1]:0 for LOCAL, [::]:0 for PUBLIC. Closing the
// old socket resets mode to NONE and drops the remote peer binding; a
// successful bind then restores mode and peerSocketReady. If the bind
// fails, the session is left in NONE with no peer socket and no remote
// peer bound, rather than a stale mode with a half-torn-down peer binding.
func (s *Session) SetMode(mode Mode) error {
	s.closePeerSocket()

	var bindAddr *net.UDPAddr
	switch mode {
	case ModeLocal:
		bindAddr = &net.UDPAddr{IP: net.IPv6loopback}
	case ModePublic:
		bindAddr = &net.UDPAddr{IP: net.IPv6zero}
	default:
		return fmt.Errorf("session: invalid mode %v", mode)
	}

	conn, err := listenReusableUDP(bindAddr)
	if err != nil {
		return fmt.Errorf("session: bind peer socket: %w", err)
	}

	s.peerSock = conn
	s.mode = mode
	s.peerSocketReady = true

	if s.emitter != nil {
		s.emitter.Emit(events.EventModeChanged, events.ModeChangedData{Mode: mode.String()})
	}
	return nil
}

// closePeerSocket closes and clears the current peer socket, if any, and
// resets every field that depends on it: mode reverts to NONE and the
// remote peer binding is dropped, matching close_peer_socket_if_open in the
// reference implementation. This keeps peerSocketReady <=> mode in
// {LOCAL,PUBLIC} and remotePeerReady => peerSocketReady true even when
// SetMode's subsequent bind fails and returns early.
func (s *Session) closePeerSocket() {
	if s.peerSock != nil {
		s.peerSock.Close()
		s.peerSock = nil
	}
	s.peerSocketReady = false
	s.mode = ModeNone
	s.remotePeerReady = false
	s.remotePeer = nil
	s.punchesLeft = 0
}

// SetRemotePeer saves addr as the remote peer endpoint and schedules the
// initial hole-punch burst. Callers must check PeerSocketReady first.
func (s *Session) SetRemotePeer(addr *net.UDPAddr) {
	s.remotePeer = addr
	s.remotePeerReady = true
	s.punchesLeft = InitialPunchCount
	s.lastPunch = time.Time{}
	s.lastKeepalive = time.Now()

	if s.emitter != nil {
		s.emitter.Emit(events.EventPeerSet, events.PeerSetData{RemotePeer: addr.String()})
	}
}

// AdvertisedEndpoint composes the shareable endpoint text for the current
// peer socket and mode, per the endpoint advertiser's STUN -> probe -> bound
// address fallback chain.
func (s *Session) AdvertisedEndpoint() (string, error) {
	if !s.peerSocketReady {
		return "", fmt.Errorf("session: no peer socket bound")
	}
	return advertise.Build(s.peerSock, s.mode == ModePublic, s.logger)
}

// SendToController encodes and sends a typed datagram to the controller.
func (s *Session) SendToController(tag datagram.Tag, payload []byte) error {
	buf, err := datagram.Encode(tag, payload, RecvBufferSize)
	if err != nil {
		return err
	}
	_, err = s.controlSock.WriteToUDP(buf, s.controllerAddr)
	return err
}

// SendToPeer encodes and sends a typed datagram to the saved remote peer.
// Callers must check RemotePeerReady first.
func (s *Session) SendToPeer(tag datagram.Tag, payload []byte) error {
	buf, err := datagram.Encode(tag, payload, RecvBufferSize)
	if err != nil {
		return err
	}
	_, err = s.peerSock.WriteToUDP(buf, s.remotePeer)
	return err
}

// notifyInfo sends an INFO---- packet to the controller with a plain-text
// message, logging (but not failing) any send error.
func (s *Session) notifyInfo(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if err := s.SendToController(datagram.TagInfo, []byte(msg)); err != nil {
		s.logger.Error("failed to send INFO to controller: %v", err)
	}
}

// Close tears down the peer socket (if any); the control socket is owned
// and closed by the bootstrap, which outlives every peer socket.
func (s *Session) Close() {
	s.closePeerSocket()
}
