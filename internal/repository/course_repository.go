package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// CourseRepository handles course data access.
type CourseRepository struct {
	pool *pgxpool.Pool
}

// NewCourseRepository creates a new CourseRepository.
func NewCourseRepository(pool *pgxpool.Pool) *CourseRepository {
	return &CourseRepository{pool: pool}
}

// Create inserts a new course and fills in the generated ID and timestamps.
func (r *CourseRepository) Create(ctx context.Context, c *model.Course) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO courses (code, name, description, faculty_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, is_active, created_at, updated_at`,
		c.Code, c.Name, c.Description, c.FacultyID,
	).Scan(&c.ID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
}

// GetByID retrieves a course by ID. Soft-deleted courses are excluded.
func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, name, description, faculty_id, is_active, created_at, updated_at
		 FROM courses
		 WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.FacultyID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// GetByCode retrieves a course by its join code.
func (r *CourseRepository) GetByCode(ctx context.Context, code string) (*model.Course, error) {
	c := &model.Course{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, code, name, description, faculty_id, is_active, created_at, updated_at
		 FROM courses
		 WHERE code = $1 AND deleted_at IS NULL`, code,
	).Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.FacultyID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// CodeExists reports whether a join code is already taken, including by
// soft-deleted courses, since codes must stay unique forever.
func (r *CourseRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM courses WHERE code = $1)`, code,
	).Scan(&exists)
	return exists, err
}

// ListByFaculty retrieves all active courses owned by a faculty member.
func (r *CourseRepository) ListByFaculty(ctx context.Context, facultyID uuid.UUID) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, code, name, description, faculty_id, is_active, created_at, updated_at
		 FROM courses
		 WHERE faculty_id = $1 AND deleted_at IS NULL
		 ORDER BY created_at DESC`, facultyID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCourses(rows)
}

// ListByStudent retrieves all courses a student is actively enrolled in.
func (r *CourseRepository) ListByStudent(ctx context.Context, studentID uuid.UUID) ([]model.Course, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.code, c.name, c.description, c.faculty_id, c.is_active, c.created_at, c.updated_at
		 FROM courses c
		 JOIN enrollments e ON e.course_id = c.id
		 WHERE e.student_id = $1 AND e.dropped_at IS NULL AND c.deleted_at IS NULL
		 ORDER BY e.enrolled_at DESC`, studentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanCourses(rows)
}

// Update applies name/description/is_active changes to a course.
func (r *CourseRepository) Update(ctx context.Context, c *model.Course) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE courses
		 SET name = $1, description = $2, is_active = $3, updated_at = NOW()
		 WHERE id = $4 AND deleted_at IS NULL`,
		c.Name, c.Description, c.IsActive, c.ID)
	return err
}

// SoftDelete marks a course deleted without removing rows that reference it.
func (r *CourseRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE courses SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

func scanCourses(rows pgx.Rows) ([]model.Course, error) {
	var courses []model.Course
	for rows.Next() {
		var c model.Course
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Description, &c.FacultyID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		courses = append(courses, c)
	}
	return courses, rows.Err()
}
