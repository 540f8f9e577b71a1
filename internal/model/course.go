package model

import (
	"time"

	"github.com/google/uuid"
)

// Course represents a faculty-owned course that students enroll in.
type Course struct {
	ID          uuid.UUID  `json:"id"`
	Code        string     `json:"code"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	FacultyID   uuid.UUID  `json:"faculty_id"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	DeletedAt   *time.Time `json:"-"`
}

// CreateCourseRequest is the payload for creating a course.
// The join code is generated server-side.
type CreateCourseRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=255"`
	Description string `json:"description" binding:"omitempty,max=2000"`
}

// UpdateCourseRequest is the payload for editing a course.
type UpdateCourseRequest struct {
	Name        string  `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	IsActive    *bool   `json:"is_active" binding:"omitempty"`
}

// EnrollByCodeRequest is the payload for joining a course by its code.
type EnrollByCodeRequest struct {
	CourseCode string `json:"course_code" binding:"required,min=3,max=20"`
}

// RosterEntry is one student row in a course roster.
type RosterEntry struct {
	EnrollmentID uuid.UUID `json:"enrollment_id"`
	EnrolledAt   time.Time `json:"enrolled_at"`
	Student      User      `json:"student"`
}
