// Package session implements the interview lifecycle state machine.
//
// A Session moves NotStarted -> InProgress -> Completed and never leaves
// Completed. It owns the proctoring Monitor for the attempt and, when
// configured with detectors, the Supervisor running them. Ending the session
// closes the monitor and stops every detector before End returns, so the
// captured proctoring snapshot can no longer change.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
	"github.com/stemsi/exstem-interview/internal/proctor"
)

// Session is one interview attempt. All methods are safe for concurrent use.
type Session struct {
	mu           sync.Mutex
	id           uuid.UUID
	candidateRef string
	status       model.SessionStatus
	questions    []model.Question
	answers      []model.Answer
	startedAt    time.Time
	endedAt      time.Time
	snapshot     model.ViolationCounters
	reportID     *uuid.UUID
	createdAt    time.Time
	lastActivity time.Time

	monitor    *proctor.Monitor
	supervisor *proctor.Supervisor
	now        func() time.Time
}

type options struct {
	now       func() time.Time
	detectors []proctor.Detector
}

// Option customizes a new Session.
type Option func(*options)

// WithClock overrides the time source for the session and its monitor.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithDetectors attaches the detectors started by Start and stopped by End.
func WithDetectors(detectors ...proctor.Detector) Option {
	return func(o *options) { o.detectors = append(o.detectors, detectors...) }
}

// New constructs a NotStarted session.
func New(id uuid.UUID, candidateRef string, policy proctor.RiskPolicy, opts ...Option) (*Session, error) {
	if strings.TrimSpace(candidateRef) == "" {
		return nil, apperr.Validation("session.New", "candidate reference is required")
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Session{
		id:           id,
		candidateRef: candidateRef,
		status:       model.SessionStatusNotStarted,
		createdAt:    o.now(),
		monitor:      proctor.NewMonitor(id, policy, proctor.WithClock(o.now)),
		now:          o.now,
	}
	s.lastActivity = s.createdAt
	if len(o.detectors) > 0 {
		s.supervisor = proctor.NewSupervisor(s.monitor, o.detectors...)
	}
	return s, nil
}

// Restore rebuilds a Completed session from its persisted record so a report
// can be generated again after the live session is gone.
func Restore(rec model.SessionRecord, policy proctor.RiskPolicy) (*Session, error) {
	const op = "session.Restore"

	if rec.Status != model.SessionStatusCompleted || rec.StartedAt == nil || rec.EndedAt == nil {
		return nil, apperr.InvalidState(op, "session %s is not completed", rec.ID)
	}
	if len(rec.Answers) > len(rec.Questions) {
		return nil, apperr.Validation(op, "session %s has more answers than questions", rec.ID)
	}

	mon := proctor.NewMonitor(rec.ID, policy)
	mon.Close()

	s := &Session{
		id:           rec.ID,
		candidateRef: rec.CandidateRef,
		status:       model.SessionStatusCompleted,
		questions:    append([]model.Question(nil), rec.Questions...),
		answers:      append([]model.Answer(nil), rec.Answers...),
		startedAt:    *rec.StartedAt,
		endedAt:      *rec.EndedAt,
		snapshot:     rec.Proctoring.Clone(),
		createdAt:    rec.CreatedAt,
		monitor:      mon,
		now:          time.Now,
	}
	if rec.ReportID != nil {
		id := *rec.ReportID
		s.reportID = &id
	}
	return s, nil
}

func (s *Session) ID() uuid.UUID { return s.id }

func (s *Session) CandidateRef() string { return s.candidateRef }

// Monitor exposes the session's proctoring monitor for subscription.
func (s *Session) Monitor() *proctor.Monitor { return s.monitor }

func (s *Session) Status() model.SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start fixes the question set, starts the clock and launches the detectors.
func (s *Session) Start(ctx context.Context, questions []model.Question) error {
	const op = "session.Start"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.SessionStatusNotStarted {
		return apperr.InvalidState(op, "session is %s", s.status)
	}
	if len(questions) == 0 {
		return apperr.Validation(op, "question list is empty")
	}

	if s.supervisor != nil {
		if err := s.supervisor.Start(ctx); err != nil {
			return err
		}
	}

	s.questions = append([]model.Question(nil), questions...)
	s.answers = s.answers[:0]
	s.startedAt = s.now()
	s.lastActivity = s.startedAt
	s.status = model.SessionStatusInProgress
	return nil
}

// SubmitAnswer records the answer for the current question. It reports
// whether every question has now been answered; ending is left to the caller.
func (s *Session) SubmitAnswer(questionIndex int, text string) (bool, error) {
	const op = "session.SubmitAnswer"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.SessionStatusInProgress {
		return false, apperr.InvalidState(op, "session is %s", s.status)
	}
	current := len(s.answers)
	if current >= len(s.questions) {
		return true, apperr.InvalidState(op, "all questions already answered")
	}
	if questionIndex != current {
		return false, apperr.InvalidState(op, "expected answer for question %d, got %d", current, questionIndex)
	}
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, apperr.Validation(op, "answer text is empty")
	}

	s.answers = append(s.answers, model.Answer{
		QuestionIndex: current,
		Text:          trimmed,
		SubmittedAt:   s.now(),
	})
	s.lastActivity = s.answers[len(s.answers)-1].SubmittedAt
	return len(s.answers) == len(s.questions), nil
}

// End freezes the session. Unless early is set every question must have
// been answered. Detectors are stopped before End returns.
func (s *Session) End(early bool) error {
	const op = "session.End"

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.SessionStatusInProgress {
		return apperr.InvalidState(op, "session is %s", s.status)
	}
	if !early && len(s.answers) < len(s.questions) {
		return apperr.InvalidState(op, "%d of %d questions unanswered", len(s.questions)-len(s.answers), len(s.questions))
	}

	// Detector goroutines never take s.mu, so stopping them here cannot deadlock.
	s.monitor.Close()
	if s.supervisor != nil {
		s.supervisor.Stop()
	}

	s.snapshot = s.monitor.Snapshot()
	s.endedAt = s.now()
	if s.endedAt.Before(s.startedAt) {
		s.endedAt = s.startedAt
	}
	s.status = model.SessionStatusCompleted
	return nil
}

// Observe forwards a raw client signal to the session's detectors.
// Signals are dropped when no detector is running.
func (s *Session) Observe(obs proctor.Observation) bool {
	s.mu.Lock()
	s.lastActivity = s.now()
	s.mu.Unlock()

	if s.supervisor == nil {
		return false
	}
	return s.supervisor.Observe(obs)
}

// LastActivity is when the candidate last started, answered or sent a signal.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// CurrentQuestion returns the question awaiting an answer.
func (s *Session) CurrentQuestion() (model.Question, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentQuestionLocked()
}

func (s *Session) currentQuestionLocked() (model.Question, bool) {
	if s.status != model.SessionStatusInProgress || len(s.answers) >= len(s.questions) {
		return model.Question{}, false
	}
	return s.questions[len(s.answers)], true
}

// CurrentIndex is the number of answered questions.
func (s *Session) CurrentIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

// Progress is the answered fraction in [0,1].
func (s *Session) Progress() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progressLocked()
}

func (s *Session) progressLocked() float64 {
	if len(s.questions) == 0 {
		return 0
	}
	p := float64(len(s.answers)) / float64(len(s.questions))
	if p > 1 {
		return 1
	}
	return p
}

// Snapshot returns the frozen counters once Completed, the live ones before.
func (s *Session) Snapshot() model.ViolationCounters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() model.ViolationCounters {
	if s.status == model.SessionStatusCompleted {
		return s.snapshot.Clone()
	}
	return s.monitor.Snapshot()
}

// Transcript returns the finalized, independent view of a Completed session.
func (s *Session) Transcript() (*model.Transcript, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.SessionStatusCompleted {
		return nil, apperr.InvalidState("session.Transcript", "session is %s", s.status)
	}
	return &model.Transcript{
		SessionID:    s.id,
		CandidateRef: s.candidateRef,
		StartedAt:    s.startedAt,
		EndedAt:      s.endedAt,
		Questions:    append([]model.Question(nil), s.questions...),
		Answers:      append([]model.Answer(nil), s.answers...),
		Proctoring:   s.snapshot.Clone(),
	}, nil
}

// AttachReport links a generated report. It is the only change allowed
// after completion; a later report replaces an earlier one.
func (s *Session) AttachReport(reportID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != model.SessionStatusCompleted {
		return apperr.InvalidState("session.AttachReport", "session is %s", s.status)
	}
	s.reportID = &reportID
	return nil
}

// View renders the session for API responses.
func (s *Session) View() model.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	counters := s.snapshotLocked()
	v := model.SessionView{
		ID:             s.id,
		CandidateRef:   s.candidateRef,
		Status:         s.status,
		CurrentIndex:   len(s.answers),
		TotalQuestions: len(s.questions),
		Progress:       s.progressLocked(),
		Proctoring:     counters,
		Risk:           s.monitor.Policy().Classify(counters.Total()),
		ReportID:       s.reportID,
	}
	if q, ok := s.currentQuestionLocked(); ok {
		v.CurrentQuestion = &q
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		v.StartedAt = &t
	}
	if !s.endedAt.IsZero() {
		t := s.endedAt
		v.EndedAt = &t
	}
	return v
}

// Record renders the session for persistence.
func (s *Session) Record() model.SessionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := model.SessionRecord{
		ID:           s.id,
		CandidateRef: s.candidateRef,
		Status:       s.status,
		Questions:    append([]model.Question(nil), s.questions...),
		Answers:      append([]model.Answer(nil), s.answers...),
		Proctoring:   s.snapshotLocked(),
		ReportID:     s.reportID,
		CreatedAt:    s.createdAt,
	}
	if !s.startedAt.IsZero() {
		t := s.startedAt
		rec.StartedAt = &t
	}
	if !s.endedAt.IsZero() {
		t := s.endedAt
		rec.EndedAt = &t
	}
	return rec
}
