package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stemsi/exstem-interview/internal/model"
)

// ViolationRepository reads the persisted proctoring audit trail.
// Writes go through the violation worker.
type ViolationRepository struct {
	pool *pgxpool.Pool
}

// NewViolationRepository creates a new ViolationRepository.
func NewViolationRepository(pool *pgxpool.Pool) *ViolationRepository {
	return &ViolationRepository{pool: pool}
}

// ListBySession returns a session's violation events in recording order.
func (r *ViolationRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.ViolationEvent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT session_id, violation_type, total, risk, recorded_at
		 FROM interview_violations
		 WHERE session_id = $1
		 ORDER BY recorded_at, id`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]model.ViolationEvent, 0)
	for rows.Next() {
		var ev model.ViolationEvent
		if err := rows.Scan(&ev.SessionID, &ev.Type, &ev.Total, &ev.Risk, &ev.At); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// CountsBySession aggregates persisted violations per type.
func (r *ViolationRepository) CountsBySession(ctx context.Context, sessionID uuid.UUID) (model.ViolationCounters, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT violation_type, COUNT(*)
		 FROM interview_violations
		 WHERE session_id = $1
		 GROUP BY violation_type`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := model.NewViolationCounters()
	for rows.Next() {
		var t model.ViolationType
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, err
		}
		counts[t] = n
	}
	return counts, rows.Err()
}
