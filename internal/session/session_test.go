package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
	"github.com/stemsi/exstem-interview/internal/proctor"
)

func questions(n int) []model.Question {
	qs := make([]model.Question, n)
	for i := range qs {
		qs[i] = model.Question{
			ID:         uuid.NewString(),
			Category:   "Programming",
			Difficulty: model.DifficultyMedium,
			Text:       "Explain a goroutine leak you have debugged.",
		}
	}
	return qs
}

func newSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	s, err := New(uuid.New(), "candidate-42", proctor.DefaultRiskPolicy(), opts...)
	require.NoError(t, err)
	return s
}

func started(t *testing.T, n int, opts ...Option) *Session {
	t.Helper()
	s := newSession(t, opts...)
	require.NoError(t, s.Start(context.Background(), questions(n)))
	return s
}

func TestNewRequiresCandidate(t *testing.T) {
	_, err := New(uuid.New(), "  ", proctor.DefaultRiskPolicy())
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestStartTwiceIsInvalidState(t *testing.T) {
	s := started(t, 2)

	err := s.Start(context.Background(), questions(2))
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Equal(t, model.SessionStatusInProgress, s.Status())
}

func TestStartRejectsEmptyQuestions(t *testing.T) {
	s := newSession(t)

	err := s.Start(context.Background(), nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, model.SessionStatusNotStarted, s.Status())
	assert.Equal(t, 0.0, s.Progress())
}

func TestSubmitAnswerBeforeStart(t *testing.T) {
	s := newSession(t)

	_, err := s.SubmitAnswer(0, "hello")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestBlankAnswerDoesNotAdvance(t *testing.T) {
	s := started(t, 2)

	for _, text := range []string{"", "   ", "\n\t "} {
		_, err := s.SubmitAnswer(0, text)
		assert.ErrorIs(t, err, apperr.ErrValidation)
		assert.Equal(t, 0, s.CurrentIndex())
	}
	q, ok := s.CurrentQuestion()
	assert.True(t, ok)
	assert.NotEmpty(t, q.Text)
}

func TestOutOfOrderAnswerIsInvalidState(t *testing.T) {
	s := started(t, 3)

	_, err := s.SubmitAnswer(1, "skipping ahead")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = s.SubmitAnswer(0, "first")
	require.NoError(t, err)

	_, err = s.SubmitAnswer(0, "duplicate")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
	assert.Equal(t, 1, s.CurrentIndex())
}

func TestAnswersMatchCurrentIndexThroughout(t *testing.T) {
	s := started(t, 3)

	for i := 0; i < 3; i++ {
		done, err := s.SubmitAnswer(i, "  answer  ")
		require.NoError(t, err)
		assert.Equal(t, i == 2, done)

		rec := s.Record()
		assert.Len(t, rec.Answers, s.CurrentIndex())
	}

	_, err := s.SubmitAnswer(3, "extra")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, ok := s.CurrentQuestion()
	assert.False(t, ok)
	assert.Equal(t, 1.0, s.Progress())
	assert.Equal(t, model.SessionStatusInProgress, s.Status(), "completion is left to the caller")
}

func TestCompleteScenario(t *testing.T) {
	s := started(t, 3)
	mon := s.Monitor()

	_, _ = mon.RecordViolation(model.ViolationNoFace)
	for i := 0; i < 3; i++ {
		_, err := s.SubmitAnswer(i, "answer")
		require.NoError(t, err)
	}
	_, _ = mon.RecordViolation(model.ViolationTabSwitch)

	require.NoError(t, s.End(false))

	assert.Equal(t, 3, s.CurrentIndex())
	assert.Equal(t, model.SessionStatusCompleted, s.Status())
	assert.Equal(t, 2, s.Snapshot().Total())

	tr, err := s.Transcript()
	require.NoError(t, err)
	assert.Len(t, tr.Answers, 3)
	assert.Equal(t, "answer", tr.Answers[0].Text)
	assert.False(t, tr.EndedAt.Before(tr.StartedAt))
}

func TestEndRequiresAllAnswersUnlessEarly(t *testing.T) {
	s := started(t, 3)
	_, err := s.SubmitAnswer(0, "one")
	require.NoError(t, err)

	assert.ErrorIs(t, s.End(false), apperr.ErrInvalidState)
	assert.Equal(t, model.SessionStatusInProgress, s.Status())

	require.NoError(t, s.End(true))
	assert.Equal(t, model.SessionStatusCompleted, s.Status())
	assert.InDelta(t, 1.0/3.0, s.Progress(), 1e-9)
}

func TestEndTwiceKeepsEndedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := started(t, 1, WithClock(clock))
	_, err := s.SubmitAnswer(0, "done")
	require.NoError(t, err)

	now = now.Add(10 * time.Minute)
	require.NoError(t, s.End(false))
	first := *s.View().EndedAt

	now = now.Add(time.Hour)
	assert.ErrorIs(t, s.End(false), apperr.ErrInvalidState)
	assert.ErrorIs(t, s.End(true), apperr.ErrInvalidState)
	assert.Equal(t, first, *s.View().EndedAt)

	tr, err := s.Transcript()
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, tr.Duration())
}

func TestLastActivityFollowsCandidate(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := newSession(t, WithClock(clock))
	assert.Equal(t, now, s.LastActivity())

	now = now.Add(time.Minute)
	require.NoError(t, s.Start(context.Background(), questions(2)))
	assert.Equal(t, now, s.LastActivity())

	now = now.Add(time.Minute)
	_, err := s.SubmitAnswer(0, "first")
	require.NoError(t, err)
	assert.Equal(t, now, s.LastActivity())

	now = now.Add(time.Minute)
	s.Observe(proctor.Observation{Kind: proctor.SignalVisibility, Hidden: true})
	assert.Equal(t, now, s.LastActivity())
}

func TestEndBeforeStartIsInvalidState(t *testing.T) {
	s := newSession(t)
	assert.ErrorIs(t, s.End(true), apperr.ErrInvalidState)
}

func TestCriticalScenarioSnapshot(t *testing.T) {
	s := started(t, 1)
	mon := s.Monitor()
	for i := 0; i < 4; i++ {
		_, _ = mon.RecordViolation(model.ViolationNoFace)
	}
	_, _ = mon.RecordViolation(model.ViolationTabSwitch)

	require.NoError(t, s.End(true))

	snap := s.Snapshot()
	assert.Equal(t, 4, snap[model.ViolationNoFace])
	assert.Equal(t, 1, snap[model.ViolationTabSwitch])
	assert.Equal(t, 0, snap[model.ViolationMultipleFaces])
	assert.Equal(t, 0, snap[model.ViolationLookingAway])
	assert.Equal(t, 0, snap[model.ViolationCopyPaste])
	assert.Equal(t, model.RiskCritical, s.View().Risk)
}

func TestViolationsRacingEndNeverChangeSnapshot(t *testing.T) {
	s := started(t, 1, WithDetectors(proctor.NewClipboardDetector()))
	mon := s.Monitor()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					_, _ = mon.RecordViolation(model.ViolationLookingAway)
					s.Observe(proctor.Observation{Kind: proctor.SignalClipboard, Action: proctor.ClipboardPaste})
				}
			}
		}()
	}

	time.Sleep(5 * time.Millisecond)
	require.NoError(t, s.End(true))
	frozen := s.Snapshot()

	time.Sleep(5 * time.Millisecond)
	close(stop)
	wg.Wait()

	assert.Equal(t, frozen, s.Snapshot())
	assert.Equal(t, frozen.Total(), mon.Total())
	assert.False(t, s.Observe(proctor.Observation{Kind: proctor.SignalClipboard, Action: proctor.ClipboardCopy}))
}

func TestEndStopsDetectors(t *testing.T) {
	s := started(t, 1, WithDetectors(proctor.NewVisibilityDetector()))

	assert.True(t, s.Observe(proctor.Observation{Kind: proctor.SignalVisibility, Hidden: true}))
	require.Eventually(t, func() bool {
		return s.Snapshot()[model.ViolationTabSwitch] == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, s.End(true))

	assert.False(t, s.Observe(proctor.Observation{Kind: proctor.SignalVisibility, Hidden: false}))
	assert.False(t, s.Observe(proctor.Observation{Kind: proctor.SignalVisibility, Hidden: true}))
	assert.Equal(t, 1, s.Snapshot().Total())
}

func TestTranscriptRequiresCompleted(t *testing.T) {
	s := started(t, 1)

	_, err := s.Transcript()
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestTranscriptIsIndependentCopy(t *testing.T) {
	s := started(t, 1)
	_, _ = s.SubmitAnswer(0, "original")
	require.NoError(t, s.End(false))

	tr, err := s.Transcript()
	require.NoError(t, err)
	tr.Answers[0].Text = "tampered"
	tr.Proctoring[model.ViolationNoFace] = 9

	again, err := s.Transcript()
	require.NoError(t, err)
	assert.Equal(t, "original", again.Answers[0].Text)
	assert.Equal(t, 0, again.Proctoring[model.ViolationNoFace])
}

func TestAttachReportOnlyAfterCompletion(t *testing.T) {
	s := started(t, 1)
	id := uuid.New()

	assert.ErrorIs(t, s.AttachReport(id), apperr.ErrInvalidState)

	require.NoError(t, s.End(true))
	require.NoError(t, s.AttachReport(id))
	require.NotNil(t, s.View().ReportID)
	assert.Equal(t, id, *s.View().ReportID)
}

func TestRestoreCompletedRecord(t *testing.T) {
	s := started(t, 2)
	_, _ = s.Monitor().RecordViolation(model.ViolationMultipleFaces)
	_, _ = s.SubmitAnswer(0, "a")
	_, _ = s.SubmitAnswer(1, "b")
	require.NoError(t, s.End(false))

	restored, err := Restore(s.Record(), proctor.DefaultRiskPolicy())
	require.NoError(t, err)

	want, _ := s.Transcript()
	got, err := restored.Transcript()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, model.RiskWarning, restored.View().Risk)

	_, err = restored.SubmitAnswer(2, "late")
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}

func TestRestoreRejectsUnfinishedRecord(t *testing.T) {
	s := started(t, 2)

	_, err := Restore(s.Record(), proctor.DefaultRiskPolicy())
	assert.ErrorIs(t, err, apperr.ErrInvalidState)
}
