package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationType enumerates proctoring anomalies.
type ViolationType string

const (
	ViolationNoFace        ViolationType = "NO_FACE"
	ViolationMultipleFaces ViolationType = "MULTIPLE_FACES"
	ViolationLookingAway   ViolationType = "LOOKING_AWAY"
	ViolationTabSwitch     ViolationType = "TAB_SWITCH"
	ViolationCopyPaste     ViolationType = "COPY_PASTE"
)

// ViolationTypes lists every violation type in display order.
var ViolationTypes = []ViolationType{
	ViolationNoFace,
	ViolationMultipleFaces,
	ViolationLookingAway,
	ViolationTabSwitch,
	ViolationCopyPaste,
}

// Valid reports whether v is a known violation type.
func (v ViolationType) Valid() bool {
	for _, t := range ViolationTypes {
		if t == v {
			return true
		}
	}
	return false
}

// ViolationCounters maps each violation type to the number of times it fired.
type ViolationCounters map[ViolationType]int

// NewViolationCounters returns counters with every known type present at zero.
func NewViolationCounters() ViolationCounters {
	c := make(ViolationCounters, len(ViolationTypes))
	for _, t := range ViolationTypes {
		c[t] = 0
	}
	return c
}

// Total sums all counters.
func (c ViolationCounters) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Clone returns an independent copy with every known type present.
func (c ViolationCounters) Clone() ViolationCounters {
	out := NewViolationCounters()
	for t, n := range c {
		out[t] = n
	}
	return out
}

// RiskStatus is the aggregate classification of accumulated violations.
type RiskStatus string

const (
	RiskGood     RiskStatus = "GOOD"
	RiskWarning  RiskStatus = "WARNING"
	RiskCritical RiskStatus = "CRITICAL"
)

// ViolationEvent is one accepted violation as seen by monitor subscribers.
type ViolationEvent struct {
	SessionID uuid.UUID     `json:"session_id"`
	Type      ViolationType `json:"type"`
	At        time.Time     `json:"at"`
	Total     int           `json:"total"`
	Risk      RiskStatus    `json:"risk"`
}
