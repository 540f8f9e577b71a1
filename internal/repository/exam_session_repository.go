package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// ExamSessionRepository handles exam session data access.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

// Create inserts an ACTIVE session for the student. A partial unique index on
// (exam_id, student_id) WHERE status = 'ACTIVE' makes concurrent starts
// converge: the loser's insert hits the conflict, and we refetch the winner's
// row so both callers resume the same session.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions (exam_id, student_id, status, ip_address)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (exam_id, student_id) WHERE status = 'ACTIVE' DO NOTHING
		 RETURNING id, started_at`,
		s.ExamID, s.StudentID, model.SessionStatusActive, s.IPAddress,
	).Scan(&s.ID, &s.StartedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		existing, ferr := r.GetActiveByExamAndStudent(ctx, s.ExamID, s.StudentID)
		if ferr != nil {
			return ferr
		}
		*s = *existing
		return nil
	}
	if err != nil {
		return err
	}
	s.Status = model.SessionStatusActive
	return nil
}

// GetByID retrieves a session by ID.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, status, started_at, submitted_at, ip_address, final_score
		 FROM exam_sessions
		 WHERE id = $1`, id,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.Status, &s.StartedAt, &s.SubmittedAt, &s.IPAddress, &s.FinalScore)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// GetActiveByExamAndStudent retrieves the student's ACTIVE session for an
// exam, if any.
func (r *ExamSessionRepository) GetActiveByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, exam_id, student_id, status, started_at, submitted_at, ip_address, final_score
		 FROM exam_sessions
		 WHERE exam_id = $1 AND student_id = $2 AND status = $3`,
		examID, studentID, model.SessionStatusActive,
	).Scan(&s.ID, &s.ExamID, &s.StudentID, &s.Status, &s.StartedAt, &s.SubmittedAt, &s.IPAddress, &s.FinalScore)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CountTerminalAttempts counts the student's SUBMITTED and TERMINATED
// sessions for an exam. ACTIVE sessions do not count toward the limit.
func (r *ExamSessionRepository) CountTerminalAttempts(ctx context.Context, examID, studentID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions
		 WHERE exam_id = $1 AND student_id = $2 AND status IN ($3, $4)`,
		examID, studentID, model.SessionStatusSubmitted, model.SessionStatusTerminated,
	).Scan(&count)
	return count, err
}

// CountByExam counts every session of an exam regardless of status. Used to
// block exam deletion once students have attempted it.
func (r *ExamSessionRepository) CountByExam(ctx context.Context, examID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_sessions WHERE exam_id = $1`, examID,
	).Scan(&count)
	return count, err
}

// Finish transitions an ACTIVE session to the given terminal status. The
// status guard makes the transition idempotent under races: only one caller
// observes RowsAffected == 1. Returns pgx.ErrNoRows when the session was not
// ACTIVE anymore.
func (r *ExamSessionRepository) Finish(ctx context.Context, id uuid.UUID, status model.SessionStatus, at time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, submitted_at = $2
		 WHERE id = $3 AND status = $4`,
		status, at, id, model.SessionStatusActive)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SetFinalScore records the graded score on a terminal session.
func (r *ExamSessionRepository) SetFinalScore(ctx context.Context, id uuid.UUID, score float64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions SET final_score = $1 WHERE id = $2`, score, id)
	return err
}

// ListExpired retrieves ACTIVE sessions whose hard deadline (started_at plus
// exam duration plus grace, capped at the exam window end plus grace) has
// passed. The deadline worker sweeps these into SUBMITTED.
func (r *ExamSessionRepository) ListExpired(ctx context.Context, now time.Time, grace time.Duration, limit int) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.exam_id, s.student_id, s.status, s.started_at, s.submitted_at, s.ip_address, s.final_score
		 FROM exam_sessions s
		 JOIN exams e ON e.id = s.exam_id
		 WHERE s.status = $1
		   AND LEAST(s.started_at + e.duration_minutes * INTERVAL '1 minute', e.end_at) + $2 < $3
		 ORDER BY s.started_at ASC
		 LIMIT $4`,
		model.SessionStatusActive, grace, now, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		var s model.ExamSession
		if err := rows.Scan(&s.ID, &s.ExamID, &s.StudentID, &s.Status, &s.StartedAt, &s.SubmittedAt, &s.IPAddress, &s.FinalScore); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// ListByExam retrieves all sessions for an exam joined with student identity,
// newest first. Used by the faculty results view.
func (r *ExamSessionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.SessionResult, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT s.id, s.status, s.started_at, s.submitted_at, s.final_score,
		        u.id, u.email, u.first_name, u.last_name
		 FROM exam_sessions s
		 JOIN users u ON u.id = s.student_id
		 WHERE s.exam_id = $1
		 ORDER BY s.started_at DESC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []model.SessionResult
	for rows.Next() {
		var res model.SessionResult
		if err := rows.Scan(
			&res.SessionID, &res.Status, &res.StartedAt, &res.SubmittedAt, &res.FinalScore,
			&res.StudentID, &res.Email, &res.FirstName, &res.LastName,
		); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, rows.Err()
}
