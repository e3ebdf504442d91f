package websocket

import "github.com/stemsi/exstem-interview/internal/model"

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	ActionVisibility  Action = "visibility"
	ActionClipboard   Action = "clipboard"
	ActionFrame       Action = "frame"
	ActionCameraError Action = "camera_error"
	ActionPing        Action = "ping"
)

// SignalRequest is one raw proctoring signal from the candidate's client.
// Only the fields relevant to Action are set; Frame is base64 in JSON.
// Signals are timestamped on arrival.
type SignalRequest struct {
	Action Action `json:"action"`
	Hidden bool   `json:"hidden,omitempty"`
	Clip   string `json:"clip,omitempty"`
	Frame  []byte `json:"frame,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventError   Event = "error"
	EventAck     Event = "ack"
	EventPong    Event = "pong"
	EventMonitor Event = "monitor"
)

type AckResponse struct {
	Event    Event  `json:"event"`
	Action   Action `json:"action"`
	Accepted bool   `json:"accepted"`
}

// MonitorResponse forwards a live monitor message, such as a violation
// warning, to the candidate.
type MonitorResponse struct {
	Event   Event                `json:"event"`
	Message model.MonitorMessage `json:"message"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
