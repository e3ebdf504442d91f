package service

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

type memSessionStore struct {
	mu      sync.Mutex
	records map[uuid.UUID]model.SessionRecord
	saves   int
}

func newMemSessionStore() *memSessionStore {
	return &memSessionStore{records: make(map[uuid.UUID]model.SessionRecord)}
}

func (m *memSessionStore) Save(_ context.Context, rec model.SessionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[rec.ID] = rec
	m.saves++
	return nil
}

func (m *memSessionStore) Get(_ context.Context, id uuid.UUID) (*model.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return nil, apperr.NotFound("memSessionStore.Get", "session %s not found", id)
	}
	return &rec, nil
}

func (m *memSessionStore) AttachReport(_ context.Context, sessionID, reportID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[sessionID]
	if !ok {
		return apperr.NotFound("memSessionStore.AttachReport", "session %s not found", sessionID)
	}
	rec.ReportID = &reportID
	m.records[sessionID] = rec
	return nil
}

func (m *memSessionStore) ListByCandidate(_ context.Context, candidateRef string, limit int) ([]model.SessionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.SessionRecord
	for _, rec := range m.records {
		if rec.CandidateRef == candidateRef {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memSessionStore) record(id uuid.UUID) model.SessionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.records[id]
}

type memViolationStore struct {
	events []model.ViolationEvent
}

func (m *memViolationStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.ViolationEvent, error) {
	out := make([]model.ViolationEvent, 0)
	for _, ev := range m.events {
		if ev.SessionID == sessionID {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (m *memViolationStore) CountsBySession(_ context.Context, sessionID uuid.UUID) (model.ViolationCounters, error) {
	counts := model.NewViolationCounters()
	for _, ev := range m.events {
		if ev.SessionID == sessionID {
			counts[ev.Type]++
		}
	}
	return counts, nil
}

type stubQuestions struct {
	mu           sync.Mutex
	questions    []model.Question
	err          error
	personalized int
	plain        int
}

func (s *stubQuestions) ListQuestions(context.Context) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.plain++
	return s.questions, s.err
}

func (s *stubQuestions) ListPersonalized(_ context.Context, _ []string, _ string, count int) ([]model.Question, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personalized++
	if count > 0 && count < len(s.questions) {
		return s.questions[:count], s.err
	}
	return s.questions, s.err
}

type memBus struct {
	mu         sync.Mutex
	claims     map[string]uuid.UUID
	answers    []model.Answer
	violations []model.ViolationEvent
	monitor    []model.MonitorMessage
	reports    map[uuid.UUID]*model.Report
}

func newMemBus() *memBus {
	return &memBus{
		claims:  make(map[string]uuid.UUID),
		reports: make(map[uuid.UUID]*model.Report),
	}
}

func (b *memBus) ClaimCandidate(_ context.Context, candidateRef string, sessionID uuid.UUID) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.claims[candidateRef]; ok {
		return false, nil
	}
	b.claims[candidateRef] = sessionID
	return true, nil
}

func (b *memBus) ReleaseCandidate(_ context.Context, candidateRef string, sessionID uuid.UUID) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.claims[candidateRef] == sessionID {
		delete(b.claims, candidateRef)
	}
	return nil
}

func (b *memBus) ClaimedSession(_ context.Context, candidateRef string) (uuid.UUID, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.claims[candidateRef]
	return id, ok, nil
}

func (b *memBus) EnqueueAnswer(_ context.Context, _ uuid.UUID, a model.Answer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.answers = append(b.answers, a)
	return nil
}

func (b *memBus) EnqueueViolation(_ context.Context, ev model.ViolationEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.violations = append(b.violations, ev)
	return nil
}

func (b *memBus) PublishMonitor(_ context.Context, msg model.MonitorMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.monitor = append(b.monitor, msg)
	return nil
}

func (b *memBus) CacheReport(_ context.Context, rep *model.Report) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.reports[rep.ID] = rep.Clone()
	return nil
}

func (b *memBus) CachedReport(_ context.Context, id uuid.UUID) (*model.Report, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reports[id].Clone(), nil
}

func (b *memBus) violationCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.violations)
}

func (b *memBus) answerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.answers)
}

func (b *memBus) claimed(candidateRef string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.claims[candidateRef]
	return ok
}

type recordingSpeaker struct {
	mu       sync.Mutex
	spoken   []string
	warnings []model.ViolationType
}

func (r *recordingSpeaker) Speak(_ string, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.spoken = append(r.spoken, text)
}

func (r *recordingSpeaker) SpeakWarning(_ string, t model.ViolationType) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warnings = append(r.warnings, t)
}

func (r *recordingSpeaker) warningCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warnings)
}

type stubTranscriber struct {
	mu       sync.Mutex
	text     string
	err      error
	calls    int
	lastType string
}

func (s *stubTranscriber) Transcribe(_ context.Context, _ []byte, mimeType string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastType = mimeType
	return s.text, s.err
}

type memReportStore struct {
	mu        sync.Mutex
	reports   map[uuid.UUID]*model.Report
	artifacts map[string]*model.Artifact
}

func newMemReportStore() *memReportStore {
	return &memReportStore{
		reports:   make(map[uuid.UUID]*model.Report),
		artifacts: make(map[string]*model.Artifact),
	}
}

func (m *memReportStore) Create(_ context.Context, rep *model.Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[rep.ID] = rep.Clone()
	return nil
}

func (m *memReportStore) Get(_ context.Context, id uuid.UUID) (*model.Report, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.reports[id]
	if !ok {
		return nil, apperr.NotFound("memReportStore.Get", "report %s not found", id)
	}
	return rep.Clone(), nil
}

func (m *memReportStore) SaveArtifact(_ context.Context, a *model.Artifact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.artifacts[a.Filename] = &cp
	return nil
}

func (m *memReportStore) GetArtifact(_ context.Context, filename string) (*model.Artifact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.artifacts[filename]
	if !ok {
		return nil, apperr.NotFound("memReportStore.GetArtifact", "artifact %s not found", filename)
	}
	cp := *a
	return &cp, nil
}

type stubScorer struct {
	result *model.ScoringResult
	err    error
}

func (s *stubScorer) Score(context.Context, model.ScoringRequest) (*model.ScoringResult, error) {
	if s.err != nil {
		return nil, s.err
	}
	res := *s.result
	return &res, nil
}

// memFiles renders artifacts into memory and serves them back.
type memFiles struct {
	mu    sync.Mutex
	files map[string][]byte
}

func newMemFiles() *memFiles {
	return &memFiles{files: make(map[string][]byte)}
}

func (m *memFiles) Render(_ context.Context, filename string, rep *model.Report, _ *model.Transcript) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filename] = []byte("report " + rep.ID.String())
	return nil
}

func (m *memFiles) Open(filename string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[filename]
	if !ok {
		return nil, apperr.NotFound("memFiles.Open", "artifact %s not found", filename)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
