package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Arpan7125/procto-3.0/internal/model"
	"github.com/Arpan7125/procto-3.0/internal/repository"
)

// Common course errors.
var (
	ErrCourseNotFound = errors.New("course not found")
	ErrCourseInactive = errors.New("course is not accepting enrollments")
	ErrNotCourseOwner = errors.New("not the course owner")
	ErrNotEnrolled    = errors.New("not enrolled in this course")
	ErrCodeExhausted  = errors.New("could not generate a unique course code")
)

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

// CourseService handles course lifecycle and enrollment.
type CourseService struct {
	courses     *repository.CourseRepository
	enrollments *repository.EnrollmentRepository
	log         zerolog.Logger
}

// NewCourseService creates a new CourseService.
func NewCourseService(courses *repository.CourseRepository, enrollments *repository.EnrollmentRepository, log zerolog.Logger) *CourseService {
	return &CourseService{
		courses:     courses,
		enrollments: enrollments,
		log:         log.With().Str("component", "course_service").Logger(),
	}
}

// generateCode produces a join code shaped xxx-xxxx-xxx from the lowercase
// alphanumeric alphabet.
func generateCode() (string, error) {
	var b strings.Builder
	for _, segment := range []int{3, 4, 3} {
		if b.Len() > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < segment; i++ {
			n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
			if err != nil {
				return "", err
			}
			b.WriteByte(codeAlphabet[n.Int64()])
		}
	}
	return b.String(), nil
}

// Create registers a new course under the faculty member, retrying code
// generation on the rare collision.
func (s *CourseService) Create(ctx context.Context, facultyID uuid.UUID, req *model.CreateCourseRequest) (*model.Course, error) {
	for attempt := 0; attempt < 5; attempt++ {
		code, err := generateCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}

		taken, err := s.courses.CodeExists(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("check code: %w", err)
		}
		if taken {
			continue
		}

		c := &model.Course{
			Code:        code,
			Name:        req.Name,
			Description: req.Description,
			FacultyID:   facultyID,
		}
		if err := s.courses.Create(ctx, c); err != nil {
			return nil, fmt.Errorf("create course: %w", err)
		}

		s.log.Info().Str("course_id", c.ID.String()).Str("code", c.Code).Msg("course created")
		return c, nil
	}
	return nil, ErrCodeExhausted
}

// Get retrieves a course by ID.
func (s *CourseService) Get(ctx context.Context, id uuid.UUID) (*model.Course, error) {
	c, err := s.courses.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("get course: %w", err)
	}
	return c, nil
}

// ListForUser retrieves the courses visible to the caller: owned courses for
// faculty, enrolled courses for students.
func (s *CourseService) ListForUser(ctx context.Context, userID uuid.UUID, role model.Role) ([]model.Course, error) {
	if role == model.RoleStudent {
		return s.courses.ListByStudent(ctx, userID)
	}
	return s.courses.ListByFaculty(ctx, userID)
}

// Update applies changes to a course after an ownership check. Admins bypass
// the check.
func (s *CourseService) Update(ctx context.Context, id, callerID uuid.UUID, role model.Role, req *model.UpdateCourseRequest) (*model.Course, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if role != model.RoleAdmin && c.FacultyID != callerID {
		return nil, ErrNotCourseOwner
	}

	if req.Name != "" {
		c.Name = req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}

	if err := s.courses.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	return c, nil
}

// Delete soft-deletes a course after an ownership check.
func (s *CourseService) Delete(ctx context.Context, id, callerID uuid.UUID, role model.Role) error {
	c, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if role != model.RoleAdmin && c.FacultyID != callerID {
		return ErrNotCourseOwner
	}
	return s.courses.SoftDelete(ctx, id)
}

// EnrollByCode enrolls a student using a course join code. Re-enrolling after
// a drop reactivates the original enrollment row.
func (s *CourseService) EnrollByCode(ctx context.Context, studentID uuid.UUID, code string) (*model.Course, *model.Enrollment, error) {
	c, err := s.courses.GetByCode(ctx, strings.ToLower(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, ErrCourseNotFound
		}
		return nil, nil, fmt.Errorf("get course by code: %w", err)
	}
	if !c.IsActive {
		return nil, nil, ErrCourseInactive
	}

	e := &model.Enrollment{CourseID: c.ID, StudentID: studentID}
	if err := s.enrollments.Upsert(ctx, e); err != nil {
		return nil, nil, fmt.Errorf("enroll: %w", err)
	}

	s.log.Info().
		Str("course_id", c.ID.String()).
		Str("student_id", studentID.String()).
		Msg("student enrolled")
	return c, e, nil
}

// Unenroll drops a student's active enrollment.
func (s *CourseService) Unenroll(ctx context.Context, courseID, studentID uuid.UUID) error {
	if err := s.enrollments.Drop(ctx, courseID, studentID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotEnrolled
		}
		return fmt.Errorf("drop enrollment: %w", err)
	}
	return nil
}

// RemoveStudent drops a student from a course on behalf of the owning
// faculty member (or an admin).
func (s *CourseService) RemoveStudent(ctx context.Context, courseID, studentID, callerID uuid.UUID, role model.Role) error {
	c, err := s.Get(ctx, courseID)
	if err != nil {
		return err
	}
	if role != model.RoleAdmin && c.FacultyID != callerID {
		return ErrNotCourseOwner
	}
	return s.Unenroll(ctx, courseID, studentID)
}

// Roster retrieves the active roster of a course. Only the owning faculty
// member or an admin may view it.
func (s *CourseService) Roster(ctx context.Context, courseID, callerID uuid.UUID, role model.Role) ([]model.RosterEntry, error) {
	c, err := s.Get(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if role != model.RoleAdmin && c.FacultyID != callerID {
		return nil, ErrNotCourseOwner
	}
	return s.enrollments.ListRoster(ctx, courseID)
}
