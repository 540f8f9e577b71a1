package model

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment relates a student to a course. A non-nil DroppedAt excludes the
// student from exam eligibility regardless of enrollment history.
type Enrollment struct {
	ID         uuid.UUID  `json:"id"`
	CourseID   uuid.UUID  `json:"course_id"`
	StudentID  uuid.UUID  `json:"student_id"`
	EnrolledAt time.Time  `json:"enrolled_at"`
	DroppedAt  *time.Time `json:"dropped_at,omitempty"`
}

// Active reports whether the enrollment currently grants course access.
func (e *Enrollment) Active() bool {
	return e != nil && e.DroppedAt == nil
}
