package proctor

import (
	"context"
	"sync"

	"github.com/stemsi/exstem-interview/internal/apperr"
)

// Supervisor owns the detectors of one session and their goroutines.
type Supervisor struct {
	mu        sync.RWMutex
	sink      Sink
	detectors []Detector
	sampler   *Sampler
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   bool
	stopped   bool
}

// NewSupervisor wires detectors to sink. Detectors that implement Observer
// receive observations passed to Observe.
func NewSupervisor(sink Sink, detectors ...Detector) *Supervisor {
	var observers []Observer
	for _, d := range detectors {
		if o, ok := d.(Observer); ok {
			observers = append(observers, o)
		}
	}
	return &Supervisor{
		sink:      sink,
		detectors: detectors,
		sampler:   NewSampler(observers...),
	}
}

// Start launches every detector. The detectors outlive ctx's cancellation
// and run until Stop.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running || s.stopped {
		return apperr.InvalidState("proctor.Supervisor.Start", "detectors already started")
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.running = true

	for _, d := range s.detectors {
		s.wg.Add(1)
		go func(d Detector) {
			defer s.wg.Done()
			d.Run(runCtx, s.sink)
		}(d)
	}
	return nil
}

// Observe routes obs to the detectors. Observations outside Start..Stop are dropped.
func (s *Supervisor) Observe(obs Observation) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return false
	}
	return s.sampler.Observe(obs)
}

// Running reports whether detectors are active.
func (s *Supervisor) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Stop cancels every detector and waits for all of them to return. Idempotent.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.running = false
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()
}
