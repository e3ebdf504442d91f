package proctor

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

func TestRecordViolationCountsEveryCall(t *testing.T) {
	m := NewMonitor(uuid.New(), DefaultRiskPolicy())

	for i := 1; i <= 3; i++ {
		total, err := m.RecordViolation(model.ViolationNoFace)
		require.NoError(t, err)
		assert.Equal(t, i, total)
	}
	total, err := m.RecordViolation(model.ViolationTabSwitch)
	require.NoError(t, err)
	assert.Equal(t, 4, total)

	snap := m.Snapshot()
	assert.Equal(t, 3, snap[model.ViolationNoFace])
	assert.Equal(t, 1, snap[model.ViolationTabSwitch])
	assert.Equal(t, 0, snap[model.ViolationCopyPaste])
	assert.Equal(t, model.RiskWarning, m.Risk())
}

func TestRecordViolationRejectsUnknownType(t *testing.T) {
	m := NewMonitor(uuid.New(), DefaultRiskPolicy())

	_, err := m.RecordViolation(model.ViolationType("SNEEZE"))
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, 0, m.Total())
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	m := NewMonitor(uuid.New(), DefaultRiskPolicy())
	_, _ = m.RecordViolation(model.ViolationLookingAway)

	snap := m.Snapshot()
	snap[model.ViolationLookingAway] = 100

	_, _ = m.RecordViolation(model.ViolationLookingAway)

	assert.Equal(t, 100, snap[model.ViolationLookingAway])
	assert.Equal(t, 2, m.Snapshot()[model.ViolationLookingAway])
}

func TestRecordAfterCloseIsDropped(t *testing.T) {
	m := NewMonitor(uuid.New(), DefaultRiskPolicy())
	_, _ = m.RecordViolation(model.ViolationCopyPaste)
	events := m.Subscribe(4)

	m.Close()
	m.Close()

	total, err := m.RecordViolation(model.ViolationCopyPaste)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, 1, m.Snapshot()[model.ViolationCopyPaste])
	assert.True(t, m.Closed())

	_, open := <-events
	assert.False(t, open, "subscriber channel must be closed")
}

func TestSubscribeDeliversInRecordingOrder(t *testing.T) {
	id := uuid.New()
	base := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	m := NewMonitor(id, DefaultRiskPolicy(), WithClock(func() time.Time { return base }))
	events := m.Subscribe(8)

	order := []model.ViolationType{
		model.ViolationTabSwitch,
		model.ViolationNoFace,
		model.ViolationTabSwitch,
		model.ViolationTabSwitch,
		model.ViolationMultipleFaces,
	}
	for _, v := range order {
		_, err := m.RecordViolation(v)
		require.NoError(t, err)
	}
	m.Close()

	var got []model.ViolationEvent
	for ev := range events {
		got = append(got, ev)
	}
	require.Len(t, got, len(order))

	var lastTab time.Time
	for i, ev := range got {
		assert.Equal(t, id, ev.SessionID)
		assert.Equal(t, order[i], ev.Type)
		assert.Equal(t, i+1, ev.Total)
		if ev.Type == model.ViolationTabSwitch {
			assert.True(t, ev.At.After(lastTab), "tab switch timestamps must strictly increase")
			lastTab = ev.At
		}
	}
	assert.Equal(t, model.RiskCritical, got[4].Risk)
}

func TestFullSubscriberDoesNotBlockRecorder(t *testing.T) {
	m := NewMonitor(uuid.New(), DefaultRiskPolicy())
	_ = m.Subscribe(1)

	for i := 0; i < 5; i++ {
		_, err := m.RecordViolation(model.ViolationNoFace)
		require.NoError(t, err)
	}

	assert.Equal(t, 5, m.Total())
	assert.Equal(t, 4, m.Dropped())
}

func TestConcurrentRecordingLosesNothing(t *testing.T) {
	m := NewMonitor(uuid.New(), DefaultRiskPolicy())

	var wg sync.WaitGroup
	for _, v := range model.ViolationTypes {
		wg.Add(1)
		go func(v model.ViolationType) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				_, _ = m.RecordViolation(v)
			}
		}(v)
	}
	wg.Wait()

	assert.Equal(t, 50*len(model.ViolationTypes), m.Total())
}
