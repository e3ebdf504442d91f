package proctor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

// Detector is an independently running producer of violations.
// Run blocks until ctx is cancelled or the detector gives up.
type Detector interface {
	Name() string
	Run(ctx context.Context, sink Sink)
}

const eventBuffer = 32

// VisibilityDetector records TabSwitch on every visible to hidden transition.
type VisibilityDetector struct {
	in chan Observation
}

func NewVisibilityDetector() *VisibilityDetector {
	return &VisibilityDetector{in: make(chan Observation, eventBuffer)}
}

func (d *VisibilityDetector) Name() string { return "visibility" }

func (d *VisibilityDetector) Observe(obs Observation) bool {
	if obs.Kind != SignalVisibility {
		return false
	}
	select {
	case d.in <- obs:
		return true
	default:
		return false
	}
}

func (d *VisibilityDetector) Run(ctx context.Context, sink Sink) {
	hidden := false
	for {
		select {
		case <-ctx.Done():
			return
		case obs := <-d.in:
			if obs.Hidden && !hidden {
				_, _ = sink.RecordViolation(model.ViolationTabSwitch)
			}
			hidden = obs.Hidden
		}
	}
}

// ClipboardDetector records CopyPaste once per copy, cut or paste action.
type ClipboardDetector struct {
	in chan Observation
}

func NewClipboardDetector() *ClipboardDetector {
	return &ClipboardDetector{in: make(chan Observation, eventBuffer)}
}

func (d *ClipboardDetector) Name() string { return "clipboard" }

func (d *ClipboardDetector) Observe(obs Observation) bool {
	if obs.Kind != SignalClipboard {
		return false
	}
	switch obs.Action {
	case ClipboardCopy, ClipboardCut, ClipboardPaste:
	default:
		return false
	}
	select {
	case d.in <- obs:
		return true
	default:
		return false
	}
}

func (d *ClipboardDetector) Run(ctx context.Context, sink Sink) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.in:
			_, _ = sink.RecordViolation(model.ViolationCopyPaste)
		}
	}
}

// NoticeKind classifies a detector condition surfaced to the operator.
type NoticeKind string

const (
	NoticeCameraUnavailable NoticeKind = "camera_unavailable"
	NoticeClassifierError   NoticeKind = "classifier_error"
)

// Notice is a non-fatal condition raised by a detector.
type Notice struct {
	Detector string
	Kind     NoticeKind
	Err      error
	At       time.Time
}

// VisionDetector samples the camera periodically and classifies each frame.
type VisionDetector struct {
	camera     Camera
	classifier Classifier
	interval   time.Duration
	notify     func(Notice)
	unavail    sync.Once
}

// NewVisionDetector samples camera every interval. notify may be nil.
func NewVisionDetector(camera Camera, classifier Classifier, interval time.Duration, notify func(Notice)) *VisionDetector {
	if notify == nil {
		notify = func(Notice) {}
	}
	return &VisionDetector{
		camera:     camera,
		classifier: classifier,
		interval:   interval,
		notify:     notify,
	}
}

func (d *VisionDetector) Name() string { return "vision" }

// Observe forwards frames and camera errors to the camera when it accepts them.
func (d *VisionDetector) Observe(obs Observation) bool {
	if o, ok := d.camera.(Observer); ok {
		return o.Observe(obs)
	}
	return false
}

func (d *VisionDetector) Run(ctx context.Context, sink Sink) {
	if err := d.camera.Open(ctx); err != nil {
		if ctx.Err() == nil {
			d.cameraUnavailable(err)
		}
		return
	}
	defer d.camera.Close()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !d.sample(ctx, sink) {
				return
			}
		}
	}
}

// sample classifies one frame; it returns false once the camera is gone.
func (d *VisionDetector) sample(ctx context.Context, sink Sink) bool {
	frame, err := d.camera.Capture(ctx)
	switch {
	case err == nil:
	case errors.Is(err, apperr.ErrCameraUnavailable):
		d.cameraUnavailable(err)
		return false
	default:
		return ctx.Err() == nil
	}

	sctx, cancel := context.WithTimeout(ctx, d.interval)
	defer cancel()

	t, ok, err := d.classifier.Classify(sctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			d.notify(Notice{Detector: d.Name(), Kind: NoticeClassifierError, Err: err, At: time.Now()})
		}
		return true
	}
	if ok && ctx.Err() == nil {
		_, _ = sink.RecordViolation(t)
	}
	return true
}

func (d *VisionDetector) cameraUnavailable(err error) {
	d.unavail.Do(func() {
		d.notify(Notice{Detector: d.Name(), Kind: NoticeCameraUnavailable, Err: err, At: time.Now()})
	})
}
