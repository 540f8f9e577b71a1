package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// QuestionType enumerates the supported question formats.
type QuestionType string

const (
	QuestionTypeMultipleChoice QuestionType = "MULTIPLE_CHOICE"
	QuestionTypeMultipleSelect QuestionType = "MULTIPLE_SELECT"
	QuestionTypeTrueFalse      QuestionType = "TRUE_FALSE"
	QuestionTypeShortAnswer    QuestionType = "SHORT_ANSWER"
	QuestionTypeEssay          QuestionType = "ESSAY"
	QuestionTypeFillBlank      QuestionType = "FILL_BLANK"
	QuestionTypeNumerical      QuestionType = "NUMERICAL"
	QuestionTypeCode           QuestionType = "CODE"
)

// Question represents a question-bank entry owned by a course.
type Question struct {
	ID         uuid.UUID       `json:"id"`
	CourseID   uuid.UUID       `json:"course_id"`
	Type       QuestionType    `json:"type"`
	Content    json.RawMessage `json:"content"`
	Points     float64         `json:"points"`
	Difficulty *string         `json:"difficulty,omitempty"`
	TopicTags  []string        `json:"topic_tags"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
	DeletedAt  *time.Time      `json:"-"`
}

// QuestionContent is the typed shape of Question.Content. The answer-key
// fields never leave the faculty surface.
type QuestionContent struct {
	Question        string          `json:"question"`
	Options         []string        `json:"options,omitempty"`
	CorrectAnswer   json.RawMessage `json:"correct_answer,omitempty"`
	Explanation     string          `json:"explanation,omitempty"`
	CaseInsensitive bool            `json:"case_insensitive,omitempty"`
	AcceptedAnswers []string        `json:"accepted_answers,omitempty"`
}

// Redacted returns a copy of the question with the answer-key fields removed
// from its content. Unparseable content is replaced by the bare prompt-less
// shape rather than leaked as-is.
func (q Question) Redacted() Question {
	var content QuestionContent
	if err := json.Unmarshal(q.Content, &content); err != nil {
		q.Content = json.RawMessage(`{}`)
		return q
	}
	content.CorrectAnswer = nil
	content.AcceptedAnswers = nil
	content.Explanation = ""

	raw, err := json.Marshal(content)
	if err != nil {
		q.Content = json.RawMessage(`{}`)
		return q
	}
	q.Content = raw
	return q
}

// QuestionForStudent is a question stripped of its answer key, as delivered
// inside an exam paper.
type QuestionForStudent struct {
	ID         uuid.UUID    `json:"id"`
	Type       QuestionType `json:"type"`
	Prompt     string       `json:"prompt"`
	Options    []string     `json:"options,omitempty"`
	Points     float64      `json:"points"`
	OrderIndex int          `json:"order_index"`
}

// CreateQuestionRequest is the payload for adding a question to a course bank.
type CreateQuestionRequest struct {
	CourseID   uuid.UUID       `json:"course_id" binding:"required"`
	Type       QuestionType    `json:"type" binding:"required,oneof=MULTIPLE_CHOICE MULTIPLE_SELECT TRUE_FALSE SHORT_ANSWER ESSAY FILL_BLANK NUMERICAL CODE"`
	Content    json.RawMessage `json:"content" binding:"required"`
	Points     float64         `json:"points" binding:"required,gt=0"`
	Difficulty *string         `json:"difficulty" binding:"omitempty,max=50"`
	TopicTags  []string        `json:"topic_tags" binding:"omitempty,dive,min=1,max=100"`
}

// ImportQuestionItem is one entry of a bulk import batch.
type ImportQuestionItem struct {
	Type       QuestionType    `json:"type" binding:"required,oneof=MULTIPLE_CHOICE MULTIPLE_SELECT TRUE_FALSE SHORT_ANSWER ESSAY FILL_BLANK NUMERICAL CODE"`
	Content    json.RawMessage `json:"content" binding:"required"`
	Points     float64         `json:"points" binding:"required,gt=0"`
	Difficulty *string         `json:"difficulty" binding:"omitempty,max=50"`
	TopicTags  []string        `json:"topic_tags" binding:"omitempty,dive,min=1,max=100"`
}

// ImportQuestionsRequest is the payload for bulk-importing questions into a
// course bank, typically AI-generated drafts approved by faculty.
type ImportQuestionsRequest struct {
	CourseID  uuid.UUID            `json:"course_id" binding:"required"`
	Questions []ImportQuestionItem `json:"questions" binding:"required,min=1,max=100,dive"`
}

// UpdateQuestionRequest is the payload for editing an existing question.
type UpdateQuestionRequest struct {
	Type       QuestionType    `json:"type" binding:"omitempty,oneof=MULTIPLE_CHOICE MULTIPLE_SELECT TRUE_FALSE SHORT_ANSWER ESSAY FILL_BLANK NUMERICAL CODE"`
	Content    json.RawMessage `json:"content" binding:"omitempty"`
	Points     *float64        `json:"points" binding:"omitempty,gt=0"`
	Difficulty *string         `json:"difficulty" binding:"omitempty,max=50"`
	TopicTags  []string        `json:"topic_tags" binding:"omitempty,dive,min=1,max=100"`
}
