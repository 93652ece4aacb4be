// Package events provides structured event emission for diagnostics.
package events

import "time"

// EventType identifies the kind of event.
type EventType string

const (
	EventModeChanged EventType = "mode_changed"
	EventEndpoint    EventType = "endpoint"
	EventPeerSet     EventType = "peer_set"
	EventPunchBurst  EventType = "punch_burst"
	EventKeepalive   EventType = "keepalive"
	EventSessionEnd  EventType = "session_end"
	EventError       EventType = "error"
)

// Envelope wraps every emitted event with type and timestamp.
type Envelope struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// ModeChangedData is the payload for mode_changed events.
type ModeChangedData struct {
	Mode string `json:"mode"`
}

// EndpointData is the payload for endpoint events, emitted whenever the
// bridge advertises a new shareable endpoint to the controller.
type EndpointData struct {
	Endpoint string `json:"endpoint"`
}

// PeerSetData is the payload for peer_set events.
type PeerSetData struct {
	RemotePeer string `json:"remote_peer"`
}

// PunchBurstData is the payload for punch_burst events, emitted once the
// initial hole-punch burst has fully drained.
type PunchBurstData struct {
	Sent int `json:"sent"`
}

// KeepaliveData is the payload for keepalive events.
type KeepaliveData struct {
	RemotePeer string `json:"remote_peer"`
}

// SessionEndData is the payload for session_end events.
type SessionEndData struct {
	Reason string `json:"reason"`
}

// ErrorData is the payload for error events.
type ErrorData struct {
	Message string `json:"message"`
}

// Emitter is the interface for emitting structured events.
type Emitter interface {
	Emit(eventType EventType, data interface{})
	Close() error
}
