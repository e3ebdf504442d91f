package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-interview/internal/apperr"
	"github.com/stemsi/exstem-interview/internal/model"
)

// InterviewSessionRepository handles interview session data access.
type InterviewSessionRepository struct {
	pool *pgxpool.Pool
}

// NewInterviewSessionRepository creates a new InterviewSessionRepository.
func NewInterviewSessionRepository(pool *pgxpool.Pool) *InterviewSessionRepository {
	return &InterviewSessionRepository{pool: pool}
}

// Save upserts the session row and every answer it holds in one transaction.
// Answers already written by the answer worker are left untouched.
func (r *InterviewSessionRepository) Save(ctx context.Context, rec model.SessionRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	proctoring := rec.Proctoring
	if proctoring == nil {
		proctoring = model.NewViolationCounters()
	}
	questions := rec.Questions
	if questions == nil {
		questions = []model.Question{}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO interview_sessions
		     (id, candidate_ref, status, questions, proctoring, started_at, ended_at, report_id, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		 ON CONFLICT (id) DO UPDATE SET
		     status     = EXCLUDED.status,
		     questions  = EXCLUDED.questions,
		     proctoring = EXCLUDED.proctoring,
		     started_at = EXCLUDED.started_at,
		     ended_at   = EXCLUDED.ended_at,
		     report_id  = EXCLUDED.report_id,
		     updated_at = NOW()`,
		rec.ID, rec.CandidateRef, rec.Status, questions, proctoring,
		rec.StartedAt, rec.EndedAt, rec.ReportID, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if len(rec.Answers) > 0 {
		batch := &pgx.Batch{}
		for _, a := range rec.Answers {
			batch.Queue(
				`INSERT INTO interview_answers (session_id, question_index, text, submitted_at)
				 VALUES ($1, $2, $3, $4)
				 ON CONFLICT (session_id, question_index) DO NOTHING`,
				rec.ID, a.QuestionIndex, a.Text, a.SubmittedAt,
			)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert answers: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// Get loads a session with its answers ordered by question index.
func (r *InterviewSessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.SessionRecord, error) {
	rec := &model.SessionRecord{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, candidate_ref, status, questions, proctoring, started_at, ended_at, report_id, created_at
		 FROM interview_sessions
		 WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.CandidateRef, &rec.Status, &rec.Questions, &rec.Proctoring,
		&rec.StartedAt, &rec.EndedAt, &rec.ReportID, &rec.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("repository.GetSession", "session %s not found", id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT question_index, text, submitted_at
		 FROM interview_answers
		 WHERE session_id = $1
		 ORDER BY question_index`, id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.QuestionIndex, &a.Text, &a.SubmittedAt); err != nil {
			return nil, err
		}
		rec.Answers = append(rec.Answers, a)
	}
	return rec, rows.Err()
}

// AttachReport links the latest report to a completed session.
func (r *InterviewSessionRepository) AttachReport(ctx context.Context, sessionID, reportID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE interview_sessions
		 SET report_id = $1, updated_at = NOW()
		 WHERE id = $2 AND status = $3`,
		reportID, sessionID, model.SessionStatusCompleted)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("repository.AttachReport", "completed session %s not found", sessionID)
	}
	return nil
}

// ListByCandidate returns a candidate's sessions, newest first, without answers.
func (r *InterviewSessionRepository) ListByCandidate(ctx context.Context, candidateRef string, limit int) ([]model.SessionRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, candidate_ref, status, questions, proctoring, started_at, ended_at, report_id, created_at
		 FROM interview_sessions
		 WHERE candidate_ref = $1
		 ORDER BY created_at DESC
		 LIMIT $2`, candidateRef, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SessionRecord
	for rows.Next() {
		var rec model.SessionRecord
		if err := rows.Scan(&rec.ID, &rec.CandidateRef, &rec.Status, &rec.Questions, &rec.Proctoring,
			&rec.StartedAt, &rec.EndedAt, &rec.ReportID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
