// Package report turns completed interview transcripts into scored reports
// through an external scoring collaborator, and optionally into rendered
// downloadable documents. There is no local scoring fallback: when the
// scorer cannot answer, Generate fails with CollaboratorUnavailable.
package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

// ErrMalformedResult marks a scoring response that failed validation.
var ErrMalformedResult = errors.New("malformed scoring result")

// Source yields the finalized transcript of a session.
type Source interface {
	Transcript() (*model.Transcript, error)
}

// Scorer is the external scoring collaborator.
type Scorer interface {
	Score(ctx context.Context, req model.ScoringRequest) (*model.ScoringResult, error)
}

// Renderer produces a downloadable document for a report under filename.
// The transcript may be nil.
type Renderer interface {
	Render(ctx context.Context, filename string, report *model.Report, tr *model.Transcript) error
}

const DefaultScoringTimeout = 30 * time.Second

// Pipeline generates reports. It is stateless and safe for concurrent use.
type Pipeline struct {
	scorer        Scorer
	renderer      Renderer
	timeout       time.Duration
	artifactRoute string
	now           func() time.Time
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithArtifactRoute sets the URL prefix artifacts are served under.
func WithArtifactRoute(route string) Option {
	return func(p *Pipeline) { p.artifactRoute = strings.TrimRight(route, "/") }
}

// NewPipeline builds a pipeline. renderer may be nil when artifacts are disabled.
func NewPipeline(scorer Scorer, renderer Renderer, timeout time.Duration, opts ...Option) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultScoringTimeout
	}
	p := &Pipeline{
		scorer:        scorer,
		renderer:      renderer,
		timeout:       timeout,
		artifactRoute: "/api/v1/reports/artifacts",
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Generate scores a completed session. Each call returns a new Report.
func (p *Pipeline) Generate(ctx context.Context, src Source) (*model.Report, error) {
	const op = "report.Generate"

	tr, err := src.Transcript()
	if err != nil {
		return nil, err
	}

	req := BuildScoringRequest(tr)

	sctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	res, err := p.scorer.Score(sctx, req)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindUnavailable {
			return nil, err
		}
		return nil, apperr.Unavailable(op, err)
	}
	if err := ValidateResult(res); err != nil {
		return nil, apperr.Unavailable(op, err)
	}

	rep := &model.Report{
		ID:           uuid.New(),
		SessionID:    tr.SessionID,
		OverallScore: res.OverallScore,
		Summary:      res.Summary,
		Strengths:    res.Strengths,
		Improvements: res.Improvements,
		SkillScores:  res.SkillScores,
		GeneratedAt:  p.now(),
	}
	return rep.Clone(), nil
}

// BuildScoringRequest assembles the scoring payload from a transcript.
func BuildScoringRequest(tr *model.Transcript) model.ScoringRequest {
	answers := make([]model.ScoringAnswer, 0, len(tr.Answers))
	for _, a := range tr.Answers {
		answers = append(answers, model.ScoringAnswer{QuestionIndex: a.QuestionIndex, Text: a.Text})
	}
	return model.ScoringRequest{
		CandidateRef:    tr.CandidateRef,
		DurationSeconds: int64(tr.Duration() / time.Second),
		Answers:         answers,
		Proctoring:      tr.Proctoring.Clone(),
	}
}

// ValidateResult checks ranges and required fields of a scoring result.
func ValidateResult(res *model.ScoringResult) error {
	if res == nil {
		return fmt.Errorf("%w: empty body", ErrMalformedResult)
	}
	if res.OverallScore < 0 || res.OverallScore > 100 {
		return fmt.Errorf("%w: overall score %d out of range", ErrMalformedResult, res.OverallScore)
	}
	if strings.TrimSpace(res.Summary) == "" {
		return fmt.Errorf("%w: summary is empty", ErrMalformedResult)
	}
	if err := requireItems("strengths", res.Strengths); err != nil {
		return err
	}
	if err := requireItems("improvements", res.Improvements); err != nil {
		return err
	}
	for name, score := range res.SkillScores {
		if score < 0 || score > 100 {
			return fmt.Errorf("%w: skill %q score %d out of range", ErrMalformedResult, name, score)
		}
	}
	return nil
}

// requireItems rejects an empty list or one holding a blank entry.
func requireItems(field string, items []string) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrMalformedResult, field)
	}
	for i, item := range items {
		if strings.TrimSpace(item) == "" {
			return fmt.Errorf("%w: %s[%d] is blank", ErrMalformedResult, field, i)
		}
	}
	return nil
}

// ArtifactFilename is the opaque name a report's document is stored under.
func ArtifactFilename(reportID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("interview_report_%s_%d.pdf", reportID, at.Unix())
}

// RequestArtifact renders report into a downloadable document.
func (p *Pipeline) RequestArtifact(ctx context.Context, rep *model.Report, tr *model.Transcript) (*model.Artifact, error) {
	const op = "report.RequestArtifact"

	if rep == nil {
		return nil, apperr.Validation(op, "report is required")
	}
	if p.renderer == nil {
		return nil, apperr.Unavailable(op, errors.New("renderer not configured"))
	}

	now := p.now()
	filename := ArtifactFilename(rep.ID, now)
	if err := p.renderer.Render(ctx, filename, rep.Clone(), tr); err != nil {
		return nil, apperr.Unavailable(op, err)
	}

	return &model.Artifact{
		ReportID:  rep.ID,
		Filename:  filename,
		URL:       p.artifactRoute + "/" + filename,
		CreatedAt: now,
	}, nil
}
