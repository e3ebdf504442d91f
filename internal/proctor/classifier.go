package proctor

import (
	"context"
	"math"
	"sync"

	"github.com/stemsi/exstem-interview/internal/model"
)

// Classifier maps one camera frame to at most one violation.
type Classifier interface {
	Classify(ctx context.Context, frame []byte) (model.ViolationType, bool, error)
}

// Face is a single detected face with its head pose in degrees.
type Face struct {
	Confidence float64
	Pan        float64
	Tilt       float64
}

// FaceDetector finds faces in an encoded image.
type FaceDetector interface {
	DetectFaces(ctx context.Context, image []byte) ([]Face, error)
}

const (
	DefaultMaxPan        = 30.0
	DefaultMaxTilt       = 20.0
	DefaultMinConfidence = 0.5
)

// FaceClassifier classifies frames from face detection results.
type FaceClassifier struct {
	detector      FaceDetector
	maxPan        float64
	maxTilt       float64
	minConfidence float64
}

// NewFaceClassifier uses the default head pose and confidence thresholds.
func NewFaceClassifier(detector FaceDetector) *FaceClassifier {
	return &FaceClassifier{
		detector:      detector,
		maxPan:        DefaultMaxPan,
		maxTilt:       DefaultMaxTilt,
		minConfidence: DefaultMinConfidence,
	}
}

// Classify returns NoFace, MultipleFaces or LookingAway, in that precedence.
func (c *FaceClassifier) Classify(ctx context.Context, frame []byte) (model.ViolationType, bool, error) {
	faces, err := c.detector.DetectFaces(ctx, frame)
	if err != nil {
		return "", false, err
	}

	var found []Face
	for _, f := range faces {
		if f.Confidence >= c.minConfidence {
			found = append(found, f)
		}
	}

	switch {
	case len(found) == 0:
		return model.ViolationNoFace, true, nil
	case len(found) > 1:
		return model.ViolationMultipleFaces, true, nil
	case math.Abs(found[0].Pan) > c.maxPan || math.Abs(found[0].Tilt) > c.maxTilt:
		return model.ViolationLookingAway, true, nil
	}
	return "", false, nil
}

// ScriptedClassifier replays a fixed sequence of results. An empty string
// entry means no violation; once exhausted it reports nothing.
type ScriptedClassifier struct {
	mu     sync.Mutex
	script []model.ViolationType
	calls  int
}

// NewScriptedClassifier returns a classifier replaying script in order.
func NewScriptedClassifier(script ...model.ViolationType) *ScriptedClassifier {
	return &ScriptedClassifier{script: script}
}

func (s *ScriptedClassifier) Classify(ctx context.Context, _ []byte) (model.ViolationType, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.calls
	s.calls++
	if i >= len(s.script) || s.script[i] == "" {
		return "", false, nil
	}
	return s.script[i], true, nil
}

// Calls reports how many frames were classified.
func (s *ScriptedClassifier) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}
