package proctor

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

// Sink is the single ingestion point detectors push violations into.
type Sink interface {
	RecordViolation(t model.ViolationType) (int, error)
}

// Monitor aggregates violation events for one session into counters and
// fans accepted events out to subscribers in recording order.
type Monitor struct {
	mu        sync.Mutex
	sessionID uuid.UUID
	policy    RiskPolicy
	counters  model.ViolationCounters
	last      map[model.ViolationType]time.Time
	subs      []chan model.ViolationEvent
	dropped   int
	closed    bool
	now       func() time.Time
}

// MonitorOption customizes a Monitor.
type MonitorOption func(*Monitor)

// WithClock overrides the time source.
func WithClock(now func() time.Time) MonitorOption {
	return func(m *Monitor) { m.now = now }
}

// NewMonitor creates a Monitor with all counters at zero.
func NewMonitor(sessionID uuid.UUID, policy RiskPolicy, opts ...MonitorOption) *Monitor {
	m := &Monitor{
		sessionID: sessionID,
		policy:    policy,
		counters:  model.NewViolationCounters(),
		last:      make(map[model.ViolationType]time.Time),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RecordViolation increments the counter for t and returns the new total.
// Once the monitor is closed the call is a no-op returning the frozen total.
func (m *Monitor) RecordViolation(t model.ViolationType) (int, error) {
	if !t.Valid() {
		return 0, apperr.Validation("proctor.RecordViolation", "unknown violation type %q", t)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return m.counters.Total(), nil
	}

	// Events of one category must carry strictly increasing timestamps.
	at := m.now()
	if prev, ok := m.last[t]; ok && !at.After(prev) {
		at = prev.Add(time.Nanosecond)
	}
	m.last[t] = at

	m.counters[t]++
	total := m.counters.Total()

	ev := model.ViolationEvent{
		SessionID: m.sessionID,
		Type:      t,
		At:        at,
		Total:     total,
		Risk:      m.policy.Classify(total),
	}
	for _, ch := range m.subs {
		select {
		case ch <- ev:
		default:
			m.dropped++
		}
	}

	return total, nil
}

// Snapshot returns a copy of the current counters.
func (m *Monitor) Snapshot() model.ViolationCounters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters.Clone()
}

// Total returns the current total violation count.
func (m *Monitor) Total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters.Total()
}

// Risk derives the current RiskStatus from the counters.
func (m *Monitor) Risk() model.RiskStatus {
	return m.policy.Classify(m.Total())
}

// Policy returns the risk thresholds in use.
func (m *Monitor) Policy() RiskPolicy {
	return m.policy
}

// Subscribe returns a channel receiving every accepted event. Events are
// dropped for a subscriber whose buffer is full. The channel is closed by Close.
func (m *Monitor) Subscribe(buffer int) <-chan model.ViolationEvent {
	ch := make(chan model.ViolationEvent, buffer)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		close(ch)
		return ch
	}
	m.subs = append(m.subs, ch)
	return ch
}

// Dropped reports how many events were not delivered to full subscribers.
func (m *Monitor) Dropped() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dropped
}

// Close freezes the counters and closes all subscriber channels. Idempotent.
func (m *Monitor) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	m.closed = true
	for _, ch := range m.subs {
		close(ch)
	}
	m.subs = nil
}

// Closed reports whether Close has been called.
func (m *Monitor) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
