package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states. ACTIVE is the only
// non-terminal state; SUBMITTED and TERMINATED both count as attempts.
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "ACTIVE"
	SessionStatusSubmitted  SessionStatus = "SUBMITTED"
	SessionStatusTerminated SessionStatus = "TERMINATED"
)

// Terminal reports whether the status counts toward the attempt limit.
func (s SessionStatus) Terminal() bool {
	return s == SessionStatusSubmitted || s == SessionStatusTerminated
}

// ExamSession represents one student's attempt at one exam.
type ExamSession struct {
	ID          uuid.UUID     `json:"id"`
	ExamID      uuid.UUID     `json:"exam_id"`
	StudentID   uuid.UUID     `json:"student_id"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	IPAddress   string        `json:"ip_address,omitempty"`
	FinalScore  *float64      `json:"final_score,omitempty"`
}

// Deadline returns the instant at which the session hard-stops: the attempt
// duration measured from start, never past the exam window end.
func (s *ExamSession) Deadline(exam *Exam) time.Time {
	d := s.StartedAt.Add(time.Duration(exam.DurationMinutes) * time.Minute)
	if d.After(exam.EndAt) {
		return exam.EndAt
	}
	return d
}

// StartSessionRequest is the payload for starting (or resuming) a session.
type StartSessionRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}

// AnswerInput is one (question, response) pair in a save batch.
type AnswerInput struct {
	QuestionID uuid.UUID       `json:"question_id" binding:"required"`
	Response   json.RawMessage `json:"response" binding:"required"`
}

// SaveAnswersRequest is the autosave payload.
type SaveAnswersRequest struct {
	Answers []AnswerInput `json:"answers" binding:"required,min=1,dive"`
}

// SessionResult is one row of the faculty results view: a session joined
// with student identity.
type SessionResult struct {
	SessionID   uuid.UUID     `json:"session_id"`
	Status      SessionStatus `json:"status"`
	StartedAt   time.Time     `json:"started_at"`
	SubmittedAt *time.Time    `json:"submitted_at,omitempty"`
	FinalScore  *float64      `json:"final_score,omitempty"`
	StudentID   uuid.UUID     `json:"student_id"`
	Email       string        `json:"email"`
	FirstName   string        `json:"first_name"`
	LastName    string        `json:"last_name"`
}

// SessionDetail is the full read view of a session: the session row, the
// student-facing paper, and every saved answer.
type SessionDetail struct {
	Session ExamSession `json:"session"`
	Exam    *ExamPaper  `json:"exam,omitempty"`
	Answers []Answer    `json:"answers"`
}
