package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Answer is a student's stored response for one question within one session.
// At most one row exists per (session, question); saves overwrite in place.
type Answer struct {
	ID         uuid.UUID       `json:"id"`
	SessionID  uuid.UUID       `json:"session_id"`
	QuestionID uuid.UUID       `json:"question_id"`
	Response   json.RawMessage `json:"response"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
