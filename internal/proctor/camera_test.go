package proctor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-interview/internal/apperr"
)

func TestStreamCameraOpenWaitsForFirstFrame(t *testing.T) {
	cam := NewStreamCamera(time.Second)

	go func() {
		time.Sleep(10 * time.Millisecond)
		cam.Observe(Observation{Kind: SignalFrame, Frame: []byte("jpeg-1")})
	}()

	require.NoError(t, cam.Open(context.Background()))
	assert.True(t, cam.Owned())

	frame, err := cam.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-1"), frame)

	_, err = cam.Capture(context.Background())
	assert.ErrorIs(t, err, ErrNoFreshFrame)

	cam.Observe(Observation{Kind: SignalFrame, Frame: []byte("jpeg-2")})
	frame, err = cam.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg-2"), frame)
}

func TestStreamCameraOpenTimesOut(t *testing.T) {
	cam := NewStreamCamera(20 * time.Millisecond)

	err := cam.Open(context.Background())
	assert.ErrorIs(t, err, apperr.ErrCameraUnavailable)
	assert.ErrorIs(t, err, ErrNoFrame)
	assert.False(t, cam.Owned())
}

func TestStreamCameraClientError(t *testing.T) {
	cam := NewStreamCamera(time.Second)
	assert.True(t, cam.Observe(Observation{Kind: SignalCameraError, Reason: "NotAllowedError"}))

	err := cam.Open(context.Background())
	assert.ErrorIs(t, err, apperr.ErrCameraUnavailable)
	assert.Contains(t, err.Error(), "NotAllowedError")
}

func TestStreamCameraIsExclusive(t *testing.T) {
	cam := NewStreamCamera(time.Second)
	cam.Observe(Observation{Kind: SignalFrame, Frame: []byte("x")})

	require.NoError(t, cam.Open(context.Background()))
	err := cam.Open(context.Background())
	assert.ErrorIs(t, err, ErrCameraBusy)
}

func TestStreamCameraCloseReleasesHandle(t *testing.T) {
	cam := NewStreamCamera(time.Second)
	cam.Observe(Observation{Kind: SignalFrame, Frame: []byte("x")})
	require.NoError(t, cam.Open(context.Background()))

	require.NoError(t, cam.Close())
	assert.False(t, cam.Owned())
	assert.False(t, cam.Observe(Observation{Kind: SignalFrame, Frame: []byte("y")}))

	_, err := cam.Capture(context.Background())
	assert.ErrorIs(t, err, ErrCameraClosed)
}

func TestStreamCameraIgnoresOtherSignals(t *testing.T) {
	cam := NewStreamCamera(time.Second)
	assert.False(t, cam.Observe(Observation{Kind: SignalVisibility, Hidden: true}))
	assert.False(t, cam.Observe(Observation{Kind: SignalFrame}))
}
