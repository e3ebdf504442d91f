package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/event"
	"github.com/stemsi/exstem-interview/internal/logger"
	"github.com/stemsi/exstem-interview/internal/metrics"
	"github.com/stemsi/exstem-interview/internal/model"
	"github.com/stemsi/exstem-interview/internal/report"
)

// ReportStore persists reports and their rendered artifacts.
type ReportStore interface {
	Create(ctx context.Context, rep *model.Report) error
	Get(ctx context.Context, id uuid.UUID) (*model.Report, error)
	SaveArtifact(ctx context.Context, a *model.Artifact) error
	GetArtifact(ctx context.Context, filename string) (*model.Artifact, error)
}

// ArtifactOpener opens a rendered artifact for download.
type ArtifactOpener interface {
	Open(filename string) (io.ReadCloser, error)
}

// ReportService generates, stores and serves interview reports.
type ReportService struct {
	interviews *InterviewService
	pipeline   *report.Pipeline
	reports    ReportStore
	sessions   SessionStore
	bus        Bus
	events     event.Publisher
	files      ArtifactOpener
	log        zerolog.Logger
}

func NewReportService(
	interviews *InterviewService,
	pipeline *report.Pipeline,
	reports ReportStore,
	sessions SessionStore,
	bus Bus,
	events event.Publisher,
	files ArtifactOpener,
	log zerolog.Logger,
) *ReportService {
	return &ReportService{
		interviews: interviews,
		pipeline:   pipeline,
		reports:    reports,
		sessions:   sessions,
		bus:        bus,
		events:     events,
		files:      files,
		log:        logger.Component(log, "report_service"),
	}
}

// Generate scores a completed session. Each successful call yields a new
// report, which replaces the session's previous report link.
func (s *ReportService) Generate(ctx context.Context, sessionID uuid.UUID, caller Caller) (*model.Report, error) {
	sess, err := s.interviews.Session(ctx, sessionID, caller)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rep, err := s.pipeline.Generate(ctx, sess)
	metrics.ReportGenerated(outcome(err), time.Since(start))
	if err != nil {
		s.log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("Report generation failed")
		return nil, err
	}

	if err := s.reports.Create(ctx, rep); err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	if err := sess.AttachReport(rep.ID); err != nil {
		return nil, err
	}
	if err := s.sessions.AttachReport(ctx, sessionID, rep.ID); err != nil {
		s.log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to link report to session")
	}

	s.cache(ctx, rep)
	s.publish(ctx, event.Event{
		Type:         event.ReportGenerated,
		SessionID:    sessionID,
		CandidateRef: sess.CandidateRef(),
		ReportID:     &rep.ID,
		Data:         map[string]any{"overall_score": rep.OverallScore},
	})

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("report_id", rep.ID.String()).
		Int("overall_score", rep.OverallScore).
		Dur("elapsed", time.Since(start)).
		Msg("Report generated")
	return rep, nil
}

// Get returns a report the caller may read.
func (s *ReportService) Get(ctx context.Context, id uuid.UUID, caller Caller) (*model.Report, error) {
	rep, err := s.bus.CachedReport(ctx, id)
	if err != nil {
		s.log.Warn().Err(err).Str("report_id", id.String()).Msg("Report cache read failed")
	}
	if rep == nil {
		rep, err = s.reports.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		s.cache(ctx, rep)
	}

	if !caller.Proctor {
		if _, err := s.interviews.Get(ctx, rep.SessionID, caller); err != nil {
			return nil, apperr.NotFound("service.GetReport", "report %s not found", id)
		}
	}
	return rep, nil
}

// RequestArtifact renders a stored report into a downloadable document.
func (s *ReportService) RequestArtifact(ctx context.Context, reportID uuid.UUID, caller Caller) (*model.Artifact, error) {
	rep, err := s.Get(ctx, reportID, caller)
	if err != nil {
		return nil, err
	}

	// The transcript only enriches the document; a report outlives its session.
	var tr *model.Transcript
	if sess, err := s.interviews.Session(ctx, rep.SessionID, caller); err == nil {
		tr, _ = sess.Transcript()
	}

	art, err := s.pipeline.RequestArtifact(ctx, rep, tr)
	if err != nil {
		return nil, err
	}
	if err := s.reports.SaveArtifact(ctx, art); err != nil {
		return nil, fmt.Errorf("save artifact: %w", err)
	}

	s.publish(ctx, event.Event{
		Type:      event.ArtifactRendered,
		SessionID: rep.SessionID,
		ReportID:  &rep.ID,
		Data:      map[string]any{"filename": art.Filename},
	})
	return art, nil
}

// OpenArtifact resolves and opens an artifact the caller may download.
func (s *ReportService) OpenArtifact(ctx context.Context, filename string, caller Caller) (io.ReadCloser, error) {
	art, err := s.reports.GetArtifact(ctx, filename)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, art.ReportID, caller); err != nil {
		return nil, err
	}
	return s.files.Open(art.Filename)
}

func (s *ReportService) cache(ctx context.Context, rep *model.Report) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), busTimeout)
	defer cancel()
	if err := s.bus.CacheReport(ctx, rep); err != nil {
		s.log.Warn().Err(err).Str("report_id", rep.ID.String()).Msg("Report cache write failed")
	}
}

func (s *ReportService) publish(ctx context.Context, ev event.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), busTimeout)
	defer cancel()
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn().Err(err).Str("event_type", string(ev.Type)).Msg("Failed to publish domain event")
	}
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	return string(apperr.KindOf(err))
}
