package proctor

import "time"

// SignalKind identifies a raw observation sent by the candidate's client.
type SignalKind string

const (
	SignalVisibility  SignalKind = "visibility"
	SignalClipboard   SignalKind = "clipboard"
	SignalFrame       SignalKind = "frame"
	SignalCameraError SignalKind = "camera_error"
)

// ClipboardAction is the clipboard operation reported by the client.
type ClipboardAction string

const (
	ClipboardCopy  ClipboardAction = "copy"
	ClipboardCut   ClipboardAction = "cut"
	ClipboardPaste ClipboardAction = "paste"
)

// Observation is one raw signal. Only the fields relevant to Kind are set.
type Observation struct {
	Kind   SignalKind
	Hidden bool
	Action ClipboardAction
	Frame  []byte
	Reason string
	At     time.Time
}

// Observer accepts observations it is interested in. Observe must not block
// and returns false when the observation was ignored or dropped.
type Observer interface {
	Observe(obs Observation) bool
}

// Sampler routes raw observations to the observers of one session.
type Sampler struct {
	observers []Observer
}

// NewSampler builds a sampler over the given observers.
func NewSampler(observers ...Observer) *Sampler {
	return &Sampler{observers: observers}
}

// Observe hands obs to every observer and reports whether any accepted it.
func (s *Sampler) Observe(obs Observation) bool {
	if obs.At.IsZero() {
		obs.At = time.Now()
	}
	accepted := false
	for _, o := range s.observers {
		if o.Observe(obs) {
			accepted = true
		}
	}
	return accepted
}
