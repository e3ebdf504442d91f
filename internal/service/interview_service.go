package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/event"
	"github.com/stemsi/exstem-interview/internal/logger"
	"github.com/stemsi/exstem-interview/internal/metrics"
	"github.com/stemsi/exstem-interview/internal/model"
	"github.com/stemsi/exstem-interview/internal/proctor"
	"github.com/stemsi/exstem-interview/internal/session"
)

// QuestionSource is the question bank collaborator.
type QuestionSource interface {
	ListQuestions(ctx context.Context) ([]model.Question, error)
	ListPersonalized(ctx context.Context, interests []string, skillLevel string, count int) ([]model.Question, error)
}

// Speaker voices prompts and warnings. Implementations must not block.
type Speaker interface {
	Speak(sessionID, text string)
	SpeakWarning(sessionID string, t model.ViolationType)
}

// Transcriber converts a recorded answer to text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// SessionStore persists session records.
type SessionStore interface {
	Save(ctx context.Context, rec model.SessionRecord) error
	Get(ctx context.Context, id uuid.UUID) (*model.SessionRecord, error)
	AttachReport(ctx context.Context, sessionID, reportID uuid.UUID) error
	ListByCandidate(ctx context.Context, candidateRef string, limit int) ([]model.SessionRecord, error)
}

// ViolationStore reads violations persisted by the violation worker.
type ViolationStore interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ViolationEvent, error)
	CountsBySession(ctx context.Context, sessionID uuid.UUID) (model.ViolationCounters, error)
}

// Caller is the authenticated principal of a request.
type Caller struct {
	CandidateRef string
	Proctor      bool
}

func (c Caller) canAccess(candidateRef string) bool {
	return c.Proctor || c.CandidateRef == candidateRef
}

// ProctorSettings configures the detectors attached to each new session.
type ProctorSettings struct {
	Policy         proctor.RiskPolicy
	VisionEnabled  bool
	SampleInterval time.Duration
	AcquireTimeout time.Duration
	Classifier     proctor.Classifier
}

// busTimeout bounds every side-channel Redis call made on behalf of a session.
const busTimeout = 2 * time.Second

const defaultListLimit = 20

// Reasons a session is retired by the service rather than by its candidate.
const (
	retireIdle     = "idle"
	retireShutdown = "shutdown"
	retireDetached = "detached"
)

// SubmitResult is the outcome of an accepted answer.
type SubmitResult struct {
	Session     model.SessionView `json:"session"`
	AllAnswered bool              `json:"all_answered"`
}

// AudioAnswerResult is a spoken answer after transcription.
type AudioAnswerResult struct {
	SubmitResult
	Transcript string `json:"transcript"`
}

// InterviewService orchestrates live interview sessions.
type InterviewService struct {
	registry    *Registry
	store       SessionStore
	violations  ViolationStore
	questions   QuestionSource
	bus         Bus
	events      event.Publisher
	speaker     Speaker
	transcriber Transcriber
	proctor     ProctorSettings
	log         zerolog.Logger
}

func NewInterviewService(
	registry *Registry,
	store SessionStore,
	violations ViolationStore,
	questions QuestionSource,
	bus Bus,
	events event.Publisher,
	speaker Speaker,
	transcriber Transcriber,
	settings ProctorSettings,
	log zerolog.Logger,
) *InterviewService {
	if speaker == nil {
		speaker = silentSpeaker{}
	}
	return &InterviewService{
		registry:    registry,
		store:       store,
		violations:  violations,
		questions:   questions,
		bus:         bus,
		events:      events,
		speaker:     speaker,
		transcriber: transcriber,
		proctor:     settings,
		log:         logger.Component(log, "interview_service"),
	}
}

// Create registers a new NotStarted session for the candidate. A candidate
// may hold only one unfinished session at a time.
func (s *InterviewService) Create(ctx context.Context, candidateRef string) (*model.SessionView, error) {
	const op = "service.Create"

	id := uuid.New()
	claimed, err := s.bus.ClaimCandidate(ctx, candidateRef, id)
	if err != nil {
		return nil, fmt.Errorf("claim candidate: %w", err)
	}
	if !claimed {
		if claimed, err = s.reclaim(ctx, candidateRef, id); err != nil {
			return nil, err
		}
	}
	if !claimed {
		return nil, apperr.InvalidState(op, "candidate already has an unfinished interview")
	}

	sess, err := session.New(id, candidateRef, s.proctor.Policy, session.WithDetectors(s.detectors(id)...))
	if err != nil {
		s.release(candidateRef, id)
		return nil, err
	}
	if err := s.store.Save(ctx, sess.Record()); err != nil {
		s.release(candidateRef, id)
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.registry.Put(sess)

	s.log.Info().Str("session_id", id.String()).Str("candidate_ref", candidateRef).Msg("Session created")
	v := sess.View()
	return &v, nil
}

// Start fetches the question set and starts the interview and its detectors.
func (s *InterviewService) Start(ctx context.Context, id uuid.UUID, caller Caller, req model.StartInterviewRequest) (*model.SessionView, error) {
	sess, err := s.live(id, caller)
	if err != nil {
		return nil, err
	}
	if st := sess.Status(); st != model.SessionStatusNotStarted {
		return nil, apperr.InvalidState("service.Start", "session is %s", st)
	}

	questions, err := s.fetchQuestions(ctx, req)
	if err != nil {
		return nil, err
	}

	feed := sess.Monitor().Subscribe(256)
	if err := sess.Start(ctx, questions); err != nil {
		return nil, err
	}
	go s.pump(id, feed)

	s.persist(ctx, sess)
	metrics.SessionStarted()
	s.publishStatus(sess)
	s.publishEvent(ctx, event.Event{Type: event.SessionStarted, SessionID: id, CandidateRef: sess.CandidateRef()})

	if q, ok := sess.CurrentQuestion(); ok {
		s.speaker.Speak(id.String(), q.Text)
	}

	s.log.Info().Str("session_id", id.String()).Int("questions", len(questions)).Msg("Session started")
	v := sess.View()
	return &v, nil
}

func (s *InterviewService) fetchQuestions(ctx context.Context, req model.StartInterviewRequest) ([]model.Question, error) {
	var (
		questions []model.Question
		err       error
	)
	if len(req.Interests) > 0 || req.SkillLevel != "" || req.Count > 0 {
		questions, err = s.questions.ListPersonalized(ctx, req.Interests, req.SkillLevel, req.Count)
	} else {
		questions, err = s.questions.ListQuestions(ctx)
	}
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, apperr.Unavailable("service.fetchQuestions", errors.New("question bank returned no questions"))
	}
	return questions, nil
}

// SubmitAnswer records the answer for the current question.
func (s *InterviewService) SubmitAnswer(ctx context.Context, id uuid.UUID, caller Caller, req model.SubmitAnswerRequest) (*SubmitResult, error) {
	sess, err := s.live(id, caller)
	if err != nil {
		return nil, err
	}
	if req.QuestionIndex == nil {
		return nil, apperr.Validation("service.SubmitAnswer", "question_index is required")
	}

	done, err := sess.SubmitAnswer(*req.QuestionIndex, req.Text)
	if err != nil {
		return nil, err
	}

	rec := sess.Record()
	answer := rec.Answers[len(rec.Answers)-1]
	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), busTimeout)
	defer cancel()
	if err := s.bus.EnqueueAnswer(bctx, id, answer); err != nil {
		s.log.Error().Err(err).Str("session_id", id.String()).Int("question_index", answer.QuestionIndex).Msg("Failed to enqueue answer")
	}

	if q, ok := sess.CurrentQuestion(); ok {
		s.speaker.Speak(id.String(), q.Text)
	}

	return &SubmitResult{Session: sess.View(), AllAnswered: done}, nil
}

// SubmitAudioAnswer transcribes a spoken answer and records the transcript
// as the answer to the current question.
func (s *InterviewService) SubmitAudioAnswer(ctx context.Context, id uuid.UUID, caller Caller, questionIndex *int, audio []byte, mimeType string) (*AudioAnswerResult, error) {
	const op = "service.SubmitAudioAnswer"

	sess, err := s.live(id, caller)
	if err != nil {
		return nil, err
	}
	if questionIndex == nil {
		return nil, apperr.Validation(op, "question_index is required")
	}
	if len(audio) == 0 {
		return nil, apperr.Validation(op, "audio is empty")
	}
	// Checked before transcribing so a finished session costs no recognition.
	if st := sess.Status(); st != model.SessionStatusInProgress {
		return nil, apperr.InvalidState(op, "session is %s", st)
	}
	if s.transcriber == nil {
		return nil, apperr.Unavailable(op, errors.New("speech-to-text is not configured"))
	}

	text, err := s.transcriber.Transcribe(ctx, audio, mimeType)
	if err != nil {
		if apperr.KindOf(err) == "" {
			err = apperr.Unavailable(op, err)
		}
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperr.Validation(op, "no speech recognized")
	}

	res, err := s.SubmitAnswer(ctx, id, caller, model.SubmitAnswerRequest{QuestionIndex: questionIndex, Text: text})
	if err != nil {
		return nil, err
	}
	s.log.Debug().Str("session_id", id.String()).Int("question_index", *questionIndex).Int("chars", len(text)).Msg("Audio answer transcribed")
	return &AudioAnswerResult{SubmitResult: *res, Transcript: text}, nil
}

// End completes the session, stopping its detectors and persisting the
// frozen record. A session left InProgress by a previous process is completed
// from its persisted record.
func (s *InterviewService) End(ctx context.Context, id uuid.UUID, caller Caller, early bool) (*model.SessionView, error) {
	sess, ok := s.registry.Get(id)
	if !ok {
		return s.endDetached(ctx, id, caller, early)
	}
	if !caller.canAccess(sess.CandidateRef()) {
		return nil, apperr.NotFound("service.End", "no active session %s", id)
	}
	return s.finish(ctx, sess, early)
}

func (s *InterviewService) finish(ctx context.Context, sess *session.Session, early bool) (*model.SessionView, error) {
	id := sess.ID()
	if err := sess.End(early); err != nil {
		return nil, err
	}

	if err := s.store.Save(ctx, sess.Record()); err != nil {
		// Keep the session in memory so reports can still be generated from it.
		s.log.Error().Err(err).Str("session_id", id.String()).Msg("Failed to persist completed session")
	} else {
		s.registry.Remove(id)
	}
	s.release(sess.CandidateRef(), id)

	metrics.SessionCompleted()
	metrics.MonitorDropped(sess.Monitor().Dropped())
	s.completed(ctx, sess, early)
	v := sess.View()
	return &v, nil
}

// endDetached completes an InProgress record that no process holds live,
// usually because the service restarted mid-interview. The persisted
// violation log becomes the frozen proctoring snapshot.
func (s *InterviewService) endDetached(ctx context.Context, id uuid.UUID, caller Caller, early bool) (*model.SessionView, error) {
	const op = "service.End"

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.canAccess(rec.CandidateRef) {
		return nil, apperr.NotFound(op, "no active session %s", id)
	}
	if rec.Status != model.SessionStatusInProgress || rec.StartedAt == nil {
		return nil, apperr.InvalidState(op, "session is %s", rec.Status)
	}
	if !early && len(rec.Answers) < len(rec.Questions) {
		return nil, apperr.InvalidState(op, "%d of %d questions unanswered", len(rec.Questions)-len(rec.Answers), len(rec.Questions))
	}

	counts, err := s.violations.CountsBySession(ctx, id)
	if err != nil {
		return nil, err
	}
	ended := time.Now()
	if ended.Before(*rec.StartedAt) {
		ended = *rec.StartedAt
	}
	rec.Status = model.SessionStatusCompleted
	rec.EndedAt = &ended
	rec.Proctoring = counts

	sess, err := session.Restore(*rec, s.proctor.Policy)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess.Record()); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	s.release(rec.CandidateRef, id)

	metrics.SessionRecovered()
	metrics.SessionRetired(retireDetached)
	s.completed(ctx, sess, early)
	v := sess.View()
	return &v, nil
}

func (s *InterviewService) completed(ctx context.Context, sess *session.Session, early bool) {
	id := sess.ID()
	s.publishStatus(sess)
	s.publishEvent(ctx, event.Event{Type: event.SessionCompleted, SessionID: id, CandidateRef: sess.CandidateRef(), Data: map[string]any{
		"early":      early,
		"violations": sess.Snapshot().Total(),
	}})

	v := sess.View()
	s.log.Info().
		Str("session_id", id.String()).
		Bool("early", early).
		Int("answers", v.CurrentIndex).
		Str("risk", string(v.Risk)).
		Msg("Session completed")
}

// ReapIdle retires live sessions without candidate activity for longer than
// idle and returns how many it retired.
func (s *InterviewService) ReapIdle(ctx context.Context, idle time.Duration) int {
	cutoff := time.Now().Add(-idle)
	n := 0
	for _, sess := range s.registry.List() {
		if sess.LastActivity().After(cutoff) {
			continue
		}
		if s.retire(ctx, sess, retireIdle) {
			n++
		}
	}
	return n
}

// RunReaper calls ReapIdle every interval until ctx is done.
func (s *InterviewService) RunReaper(ctx context.Context, interval, idle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.ReapIdle(ctx, idle); n > 0 {
				s.log.Info().Int("sessions", n).Dur("idle", idle).Msg("Reaped idle sessions")
			}
		}
	}
}

// Shutdown retires every live session so none is left InProgress by this
// process. It returns how many it retired.
func (s *InterviewService) Shutdown(ctx context.Context) int {
	n := 0
	for _, sess := range s.registry.List() {
		if s.retire(ctx, sess, retireShutdown) {
			n++
		}
	}
	return n
}

// retire ends an InProgress session early, drops a NotStarted one and retries
// the save of a Completed one that failed to persist.
func (s *InterviewService) retire(ctx context.Context, sess *session.Session, reason string) bool {
	id := sess.ID()
	l := s.log.With().Str("session_id", id.String()).Str("reason", reason).Logger()

	switch sess.Status() {
	case model.SessionStatusInProgress:
		if _, err := s.finish(ctx, sess, true); err != nil {
			l.Warn().Err(err).Msg("Failed to retire session")
			return false
		}
	case model.SessionStatusNotStarted:
		s.registry.Remove(id)
		sess.Monitor().Close()
		s.release(sess.CandidateRef(), id)
	default:
		if err := s.store.Save(ctx, sess.Record()); err != nil {
			l.Warn().Err(err).Msg("Completed session still not persisted")
			return false
		}
		s.registry.Remove(id)
	}

	metrics.SessionRetired(reason)
	l.Info().Msg("Session retired")
	return true
}

// reclaim frees a candidate claim left behind by a session that cannot make
// progress: one this process does not hold that never started, already
// completed or no longer exists. An InProgress one must be ended first.
func (s *InterviewService) reclaim(ctx context.Context, candidateRef string, id uuid.UUID) (bool, error) {
	holder, ok, err := s.bus.ClaimedSession(ctx, candidateRef)
	if err != nil {
		return false, fmt.Errorf("read claim: %w", err)
	}
	if !ok {
		return s.bus.ClaimCandidate(ctx, candidateRef, id)
	}
	if _, live := s.registry.Get(holder); live {
		return false, nil
	}

	rec, err := s.store.Get(ctx, holder)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
	case err != nil:
		return false, err
	case rec.Status == model.SessionStatusInProgress:
		return false, nil
	}

	s.log.Warn().Str("candidate_ref", candidateRef).Str("session_id", holder.String()).Msg("Releasing stale candidate claim")
	if err := s.bus.ReleaseCandidate(ctx, candidateRef, holder); err != nil {
		return false, fmt.Errorf("release claim: %w", err)
	}
	return s.bus.ClaimCandidate(ctx, candidateRef, id)
}

// Get returns the current view of a session, live or persisted.
func (s *InterviewService) Get(ctx context.Context, id uuid.UUID, caller Caller) (*model.SessionView, error) {
	if sess, ok := s.registry.Get(id); ok {
		if !caller.canAccess(sess.CandidateRef()) {
			return nil, apperr.NotFound("service.Get", "session %s not found", id)
		}
		v := sess.View()
		return &v, nil
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.canAccess(rec.CandidateRef) {
		return nil, apperr.NotFound("service.Get", "session %s not found", id)
	}
	// A record left unfinished by another process carries stale counters;
	// the persisted violation log is authoritative for it.
	if rec.Status != model.SessionStatusCompleted {
		counts, err := s.violations.CountsBySession(ctx, id)
		if err != nil {
			return nil, err
		}
		rec.Proctoring = counts
	}
	v := recordView(rec, s.proctor.Policy)
	return &v, nil
}

// List returns the caller's own sessions, newest first.
func (s *InterviewService) List(ctx context.Context, caller Caller, limit int) ([]model.SessionView, error) {
	if caller.CandidateRef == "" {
		return nil, apperr.Validation("service.List", "candidate reference is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	recs, err := s.store.ListByCandidate(ctx, caller.CandidateRef, limit)
	if err != nil {
		return nil, err
	}
	views := make([]model.SessionView, 0, len(recs))
	for i := range recs {
		if sess, ok := s.registry.Get(recs[i].ID); ok {
			views = append(views, sess.View())
			continue
		}
		views = append(views, recordView(&recs[i], s.proctor.Policy))
	}
	return views, nil
}

// Violations lists the persisted violation log of a session.
func (s *InterviewService) Violations(ctx context.Context, id uuid.UUID, caller Caller) ([]model.ViolationEvent, error) {
	if _, err := s.Get(ctx, id, caller); err != nil {
		return nil, err
	}
	return s.violations.ListBySession(ctx, id)
}

// Session resolves a session for report generation: the live one if this
// process holds it, otherwise a completed session restored from storage.
func (s *InterviewService) Session(ctx context.Context, id uuid.UUID, caller Caller) (*session.Session, error) {
	if sess, ok := s.registry.Get(id); ok {
		if !caller.canAccess(sess.CandidateRef()) {
			return nil, apperr.NotFound("service.Session", "session %s not found", id)
		}
		return sess, nil
	}

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !caller.canAccess(rec.CandidateRef) {
		return nil, apperr.NotFound("service.Session", "session %s not found", id)
	}
	return session.Restore(*rec, s.proctor.Policy)
}

// Observe feeds a raw client signal to the session's detectors.
func (s *InterviewService) Observe(id uuid.UUID, caller Caller, obs proctor.Observation) (bool, error) {
	sess, err := s.live(id, caller)
	if err != nil {
		return false, err
	}
	return sess.Observe(obs), nil
}

// MonitorSnapshot is the first message of a live monitor stream.
func (s *InterviewService) MonitorSnapshot(ctx context.Context, id uuid.UUID, caller Caller) (*model.MonitorMessage, error) {
	v, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	return &model.MonitorMessage{
		Type:       model.MonitorSnapshot,
		SessionID:  v.ID,
		Status:     v.Status,
		Proctoring: v.Proctoring,
		Risk:       v.Risk,
	}, nil
}

// live returns a session held by this process.
func (s *InterviewService) live(id uuid.UUID, caller Caller) (*session.Session, error) {
	sess, ok := s.registry.Get(id)
	if !ok || !caller.canAccess(sess.CandidateRef()) {
		return nil, apperr.NotFound("service.live", "no active session %s", id)
	}
	return sess, nil
}

func (s *InterviewService) detectors(id uuid.UUID) []proctor.Detector {
	detectors := []proctor.Detector{
		proctor.NewVisibilityDetector(),
		proctor.NewClipboardDetector(),
	}
	if s.proctor.VisionEnabled && s.proctor.Classifier != nil {
		cam := proctor.NewStreamCamera(s.proctor.AcquireTimeout)
		detectors = append(detectors, proctor.NewVisionDetector(cam, s.proctor.Classifier, s.proctor.SampleInterval, s.noticeHandler(id)))
	}
	return detectors
}

func (s *InterviewService) noticeHandler(id uuid.UUID) func(proctor.Notice) {
	return func(n proctor.Notice) {
		s.log.Warn().
			Err(n.Err).
			Str("session_id", id.String()).
			Str("detector", n.Detector).
			Str("kind", string(n.Kind)).
			Msg("Detector notice")
		metrics.DetectorNotice(n.Detector, string(n.Kind))

		msg := ""
		if n.Err != nil {
			msg = n.Err.Error()
		}
		ctx, cancel := context.WithTimeout(context.Background(), busTimeout)
		defer cancel()
		_ = s.bus.PublishMonitor(ctx, model.MonitorMessage{
			Type:      model.MonitorNotice,
			SessionID: id,
			Notice:    &model.DetectorNotice{Detector: n.Detector, Kind: string(n.Kind), Message: msg, At: n.At},
		})
	}
}

// pump fans accepted violations out to persistence, the live monitor and
// speech. It returns when the session's monitor is closed.
func (s *InterviewService) pump(id uuid.UUID, events <-chan model.ViolationEvent) {
	for ev := range events {
		metrics.ViolationRecorded(string(ev.Type))

		ctx, cancel := context.WithTimeout(context.Background(), busTimeout)
		if err := s.bus.EnqueueViolation(ctx, ev); err != nil {
			s.log.Error().Err(err).Str("session_id", id.String()).Str("type", string(ev.Type)).Msg("Failed to enqueue violation")
		}
		if err := s.bus.PublishMonitor(ctx, model.MonitorMessage{
			Type:      model.MonitorViolation,
			SessionID: id,
			Risk:      ev.Risk,
			Event:     &ev,
		}); err != nil {
			s.log.Debug().Err(err).Str("session_id", id.String()).Msg("Monitor publish failed")
		}
		cancel()

		s.speaker.SpeakWarning(id.String(), ev.Type)
	}
}

func (s *InterviewService) persist(ctx context.Context, sess *session.Session) {
	if err := s.store.Save(ctx, sess.Record()); err != nil {
		s.log.Error().Err(err).Str("session_id", sess.ID().String()).Msg("Failed to persist session")
	}
}

func (s *InterviewService) publishStatus(sess *session.Session) {
	v := sess.View()
	ctx, cancel := context.WithTimeout(context.Background(), busTimeout)
	defer cancel()
	if err := s.bus.PublishMonitor(ctx, model.MonitorMessage{
		Type:       model.MonitorStatus,
		SessionID:  v.ID,
		Status:     v.Status,
		Proctoring: v.Proctoring,
		Risk:       v.Risk,
	}); err != nil {
		s.log.Debug().Err(err).Str("session_id", v.ID.String()).Msg("Monitor publish failed")
	}
}

func (s *InterviewService) publishEvent(ctx context.Context, ev event.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), busTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event_type", string(ev.Type)).Msg("Failed to publish domain event")
	}
}

func (s *InterviewService) release(candidateRef string, id uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), busTimeout)
	defer cancel()
	if err := s.bus.ReleaseCandidate(ctx, candidateRef, id); err != nil {
		s.log.Warn().Err(err).Str("candidate_ref", candidateRef).Msg("Failed to release candidate claim")
	}
}

// recordView renders a persisted record whose live session is not held here.
func recordView(rec *model.SessionRecord, policy proctor.RiskPolicy) model.SessionView {
	counters := rec.Proctoring.Clone()
	v := model.SessionView{
		ID:             rec.ID,
		CandidateRef:   rec.CandidateRef,
		Status:         rec.Status,
		CurrentIndex:   len(rec.Answers),
		TotalQuestions: len(rec.Questions),
		StartedAt:      rec.StartedAt,
		EndedAt:        rec.EndedAt,
		Proctoring:     counters,
		Risk:           policy.Classify(counters.Total()),
		ReportID:       rec.ReportID,
	}
	if v.TotalQuestions > 0 {
		v.Progress = float64(v.CurrentIndex) / float64(v.TotalQuestions)
		if v.Progress > 1 {
			v.Progress = 1
		}
	}
	return v
}

type silentSpeaker struct{}

func (silentSpeaker) Speak(string, string)                    {}
func (silentSpeaker) SpeakWarning(string, model.ViolationType) {}
