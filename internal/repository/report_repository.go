package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

// ReportRepository handles generated reports and their rendered artifacts.
type ReportRepository struct {
	pool *pgxpool.Pool
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(pool *pgxpool.Pool) *ReportRepository {
	return &ReportRepository{pool: pool}
}

// Create inserts a report. Reports are never updated.
func (r *ReportRepository) Create(ctx context.Context, rep *model.Report) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO interview_reports
		     (id, session_id, overall_score, summary, strengths, improvements, skill_scores, generated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rep.ID, rep.SessionID, rep.OverallScore, rep.Summary,
		nonNilStrings(rep.Strengths), nonNilStrings(rep.Improvements), nonNilScores(rep.SkillScores), rep.GeneratedAt,
	)
	return err
}

// Get retrieves a report by id.
func (r *ReportRepository) Get(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	rep := &model.Report{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, session_id, overall_score, summary, strengths, improvements, skill_scores, generated_at
		 FROM interview_reports
		 WHERE id = $1`, id,
	).Scan(&rep.ID, &rep.SessionID, &rep.OverallScore, &rep.Summary,
		&rep.Strengths, &rep.Improvements, &rep.SkillScores, &rep.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("repository.GetReport", "report %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return rep, nil
}

// SaveArtifact records a rendered document for a report.
func (r *ReportRepository) SaveArtifact(ctx context.Context, a *model.Artifact) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO report_artifacts (filename, report_id, url, created_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (filename) DO NOTHING`,
		a.Filename, a.ReportID, a.URL, a.CreatedAt,
	)
	return err
}

// GetArtifact resolves an artifact filename.
func (r *ReportRepository) GetArtifact(ctx context.Context, filename string) (*model.Artifact, error) {
	a := &model.Artifact{}
	err := r.pool.QueryRow(ctx,
		`SELECT filename, report_id, url, created_at
		 FROM report_artifacts
		 WHERE filename = $1`, filename,
	).Scan(&a.Filename, &a.ReportID, &a.URL, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("repository.GetArtifact", "artifact %s not found", filename)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilScores(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
