package model

import (
	"time"

	"github.com/google/uuid"
)

// MonitorMessageType discriminates live monitor messages.
type MonitorMessageType string

const (
	MonitorSnapshot  MonitorMessageType = "snapshot"
	MonitorViolation MonitorMessageType = "violation"
	MonitorNotice    MonitorMessageType = "notice"
	MonitorStatus    MonitorMessageType = "status"
)

// DetectorNotice is a non-fatal detector condition, such as an unavailable camera.
type DetectorNotice struct {
	Detector string    `json:"detector"`
	Kind     string    `json:"kind"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// MonitorMessage is one entry of a session's live monitor stream.
type MonitorMessage struct {
	Type       MonitorMessageType `json:"type"`
	SessionID  uuid.UUID          `json:"session_id"`
	Status     SessionStatus      `json:"status,omitempty"`
	Proctoring ViolationCounters  `json:"proctoring,omitempty"`
	Risk       RiskStatus         `json:"risk,omitempty"`
	Event      *ViolationEvent    `json:"event,omitempty"`
	Notice     *DetectorNotice    `json:"notice,omitempty"`
}
