package proctor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stemsi/exstem-interview/internal/apperr"
)

var (
	ErrCameraBusy   = errors.New("camera already in use")
	ErrNoFrame      = errors.New("no frame received before acquire timeout")
	ErrNoFreshFrame = errors.New("no new frame since last capture")
	ErrCameraClosed = errors.New("camera closed")
)

// Camera is an exclusively owned frame source.
type Camera interface {
	Open(ctx context.Context) error
	Capture(ctx context.Context) ([]byte, error)
	Close() error
}

// StreamCamera is a Camera fed by frames pushed from the candidate's client.
type StreamCamera struct {
	mu             sync.Mutex
	acquireTimeout time.Duration
	latest         []byte
	fresh          bool
	failure        error
	owned          bool
	closed         bool
	ready          chan struct{}
	readyOnce      sync.Once
}

// NewStreamCamera waits up to acquireTimeout in Open for the first frame.
func NewStreamCamera(acquireTimeout time.Duration) *StreamCamera {
	return &StreamCamera{
		acquireTimeout: acquireTimeout,
		ready:          make(chan struct{}),
	}
}

// Observe accepts frame and camera_error observations.
func (c *StreamCamera) Observe(obs Observation) bool {
	switch obs.Kind {
	case SignalFrame:
		return c.feed(obs.Frame)
	case SignalCameraError:
		reason := obs.Reason
		if reason == "" {
			reason = "client reported camera error"
		}
		return c.fail(errors.New(reason))
	}
	return false
}

func (c *StreamCamera) feed(frame []byte) bool {
	if len(frame) == 0 {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.failure != nil {
		return false
	}
	c.latest = append(c.latest[:0], frame...)
	c.fresh = true
	c.readyOnce.Do(func() { close(c.ready) })
	return true
}

func (c *StreamCamera) fail(err error) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || c.failure != nil {
		return false
	}
	c.failure = err
	c.latest = nil
	c.readyOnce.Do(func() { close(c.ready) })
	return true
}

// Open claims the camera and waits for the first frame.
func (c *StreamCamera) Open(ctx context.Context) error {
	const op = "proctor.StreamCamera.Open"

	c.mu.Lock()
	if c.owned {
		c.mu.Unlock()
		return apperr.Camera(op, ErrCameraBusy)
	}
	if c.closed {
		c.mu.Unlock()
		return apperr.Camera(op, ErrCameraClosed)
	}
	c.owned = true
	c.mu.Unlock()

	timer := time.NewTimer(c.acquireTimeout)
	defer timer.Stop()

	select {
	case <-c.ready:
	case <-timer.C:
		c.release()
		return apperr.Camera(op, ErrNoFrame)
	case <-ctx.Done():
		c.release()
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failure != nil {
		c.owned = false
		return apperr.Camera(op, c.failure)
	}
	return nil
}

func (c *StreamCamera) release() {
	c.mu.Lock()
	c.owned = false
	c.mu.Unlock()
}

// Capture returns a copy of the newest frame. It fails with ErrNoFreshFrame
// when nothing arrived since the previous capture.
func (c *StreamCamera) Capture(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.failure != nil:
		return nil, apperr.Camera("proctor.StreamCamera.Capture", c.failure)
	case c.closed || !c.owned:
		return nil, ErrCameraClosed
	case !c.fresh:
		return nil, ErrNoFreshFrame
	}
	c.fresh = false
	return append([]byte(nil), c.latest...), nil
}

// Close releases the handle and discards buffered frames. Further frames are ignored.
func (c *StreamCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.owned = false
	c.latest = nil
	c.fresh = false
	return nil
}

// Owned reports whether a detector currently holds the camera.
func (c *StreamCamera) Owned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owned
}
