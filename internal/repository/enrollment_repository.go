package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// EnrollmentRepository handles enrollment data access.
type EnrollmentRepository struct {
	pool *pgxpool.Pool
}

// NewEnrollmentRepository creates a new EnrollmentRepository.
func NewEnrollmentRepository(pool *pgxpool.Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

// GetByCourseAndStudent retrieves the enrollment row for one student in one
// course, dropped or not. Returns pgx.ErrNoRows if the student never enrolled.
func (r *EnrollmentRepository) GetByCourseAndStudent(ctx context.Context, courseID, studentID uuid.UUID) (*model.Enrollment, error) {
	e := &model.Enrollment{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, student_id, enrolled_at, dropped_at
		 FROM enrollments
		 WHERE course_id = $1 AND student_id = $2`, courseID, studentID,
	).Scan(&e.ID, &e.CourseID, &e.StudentID, &e.EnrolledAt, &e.DroppedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Upsert enrolls a student, reactivating a previously dropped enrollment if
// one exists. The UNIQUE(course_id, student_id) constraint makes concurrent
// enrolls converge on a single row.
func (r *EnrollmentRepository) Upsert(ctx context.Context, e *model.Enrollment) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO enrollments (course_id, student_id)
		 VALUES ($1, $2)
		 ON CONFLICT (course_id, student_id)
		 DO UPDATE SET dropped_at = NULL, enrolled_at = NOW()
		 RETURNING id, enrolled_at, dropped_at`,
		e.CourseID, e.StudentID,
	).Scan(&e.ID, &e.EnrolledAt, &e.DroppedAt)
}

// Drop marks an active enrollment as dropped. Returns pgx.ErrNoRows if the
// student has no active enrollment in the course.
func (r *EnrollmentRepository) Drop(ctx context.Context, courseID, studentID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE enrollments
		 SET dropped_at = NOW()
		 WHERE course_id = $1 AND student_id = $2 AND dropped_at IS NULL`,
		courseID, studentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListRoster retrieves the active enrollments of a course joined with
// student identity, ordered by enrollment time.
func (r *EnrollmentRepository) ListRoster(ctx context.Context, courseID uuid.UUID) ([]model.RosterEntry, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT e.id, e.enrolled_at,
		        u.id, u.email, u.first_name, u.last_name, u.role, u.created_at, u.updated_at
		 FROM enrollments e
		 JOIN users u ON u.id = e.student_id
		 WHERE e.course_id = $1 AND e.dropped_at IS NULL
		 ORDER BY e.enrolled_at ASC`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roster []model.RosterEntry
	for rows.Next() {
		var entry model.RosterEntry
		if err := rows.Scan(
			&entry.EnrollmentID, &entry.EnrolledAt,
			&entry.Student.ID, &entry.Student.Email, &entry.Student.FirstName,
			&entry.Student.LastName, &entry.Student.Role,
			&entry.Student.CreatedAt, &entry.Student.UpdatedAt,
		); err != nil {
			return nil, err
		}
		roster = append(roster, entry)
	}
	return roster, rows.Err()
}
