package protocol

import (
	"encoding/json"
	"errors"
)

// Message types on the shared data channel
const (
	TypeSystemStatus = "system_status"
	TypeToolCall     = "tool_call"
	TypeToolResult   = "tool_result"
)

// Component identifies a backend subsystem reporting its status.
type Component string

const (
	ComponentSTT      Component = "stt"
	ComponentLLM      Component = "llm"
	ComponentTTS      Component = "tts"
	ComponentDatabase Component = "database"
	ComponentAvatar   Component = "avatar"
)

// KnownComponents lists the subsystems that count toward readiness.
// Status updates for anything else are recorded but never inspected.
var KnownComponents = []Component{
	ComponentSTT,
	ComponentLLM,
	ComponentTTS,
	ComponentDatabase,
	ComponentAvatar,
}

// Status is a subsystem's reported readiness level.
type Status string

const (
	StatusPending      Status = "pending"
	StatusInitializing Status = "initializing"
	StatusReady        Status = "ready"
	StatusError        Status = "error"
	StatusUnavailable  Status = "unavailable"
)

// ConnectionState is owned and advanced by the transport; everything else
// only observes transitions.
type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
	StateReconnecting ConnectionState = "reconnecting"
)

// TrackKind is the media kind of a subscribed track.
type TrackKind string

const (
	TrackKindAudio TrackKind = "audio"
	TrackKindVideo TrackKind = "video"
)

// TrackSource is where a track's media comes from.
type TrackSource string

const (
	TrackSourceCamera      TrackSource = "camera"
	TrackSourceMicrophone  TrackSource = "microphone"
	TrackSourceScreenShare TrackSource = "screen-share"
)

// TrackRef describes one currently subscribed media track. The transport
// reports the full current set on every change.
type TrackRef struct {
	Kind        TrackKind   `json:"kind"`
	Source      TrackSource `json:"source"`
	Participant string      `json:"participant"`
	Local       bool        `json:"local"`
}

// StatusMessage reports one subsystem's status.
type StatusMessage struct {
	Type      string `json:"type"`
	Component string `json:"component"`
	Status    string `json:"status"`
}

// ToolCallMessage announces a tool invocation by the agent.
type ToolCallMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ToolResultMessage reports the outcome of a tool invocation.
type ToolResultMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// ErrUnknownType is returned by ParseMessage for well-formed JSON whose type
// discriminator is not one we handle. Callers drop these silently: the data
// channel carries traffic for other consumers too.
var ErrUnknownType = errors.New("unknown message type")

// ParseMessage parses a JSON data-channel payload and returns the message
// type and the parsed message.
func ParseMessage(data []byte) (string, interface{}, error) {
	// First, extract just the type discriminator
	var peek struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &peek); err != nil {
		return "", nil, err
	}
	if peek.Type == "" {
		return "", nil, errors.New("missing type field")
	}

	switch peek.Type {
	case TypeSystemStatus:
		var msg StatusMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return "", nil, err
		}
		return peek.Type, &msg, nil

	case TypeToolCall:
		var msg ToolCallMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return "", nil, err
		}
		return peek.Type, &msg, nil

	case TypeToolResult:
		var msg ToolResultMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return "", nil, err
		}
		return peek.Type, &msg, nil

	default:
		return "", nil, ErrUnknownType
	}
}
