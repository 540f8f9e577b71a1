package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamStatus enumerates the lifecycle states of an exam definition.
type ExamStatus string

const (
	ExamStatusDraft     ExamStatus = "DRAFT"
	ExamStatusScheduled ExamStatus = "SCHEDULED"
)

// Exam represents a timed exam attached to a course.
type Exam struct {
	ID              uuid.UUID  `json:"id"`
	CourseID        uuid.UUID  `json:"course_id"`
	Title           string     `json:"title"`
	Instructions    string     `json:"instructions,omitempty"`
	DurationMinutes int        `json:"duration_minutes"`
	StartAt         time.Time  `json:"start_at"`
	EndAt           time.Time  `json:"end_at"`
	ProctoringLevel string     `json:"proctoring_level"`
	Status          ExamStatus `json:"status"`
	IsPublished     bool       `json:"is_published"`
	Rules           *ExamRules `json:"rules,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"-"`
}

// ExamRules is the per-exam attempt and presentation policy.
type ExamRules struct {
	ExamID                uuid.UUID `json:"-"`
	ShuffleQuestions      bool      `json:"shuffle_questions"`
	ShuffleChoices        bool      `json:"shuffle_choices"`
	MaxAttempts           int       `json:"max_attempts"`
	NegativeMarkingFactor float64   `json:"negative_marking_factor"`
	PassThreshold         float64   `json:"pass_threshold"`
	AllowCalculator       bool      `json:"allow_calculator"`
	AllowFormulaSheet     bool      `json:"allow_formula_sheet"`
}

// DefaultExamRules returns the policy applied when an exam carries no
// explicit rules row.
func DefaultExamRules() ExamRules {
	return ExamRules{
		ShuffleQuestions: true,
		ShuffleChoices:   true,
		MaxAttempts:      1,
		PassThreshold:    60,
	}
}

// MaxAttemptsOrDefault resolves the attempt limit for an exam.
func (e *Exam) MaxAttemptsOrDefault() int {
	if e.Rules == nil || e.Rules.MaxAttempts < 1 {
		return 1
	}
	return e.Rules.MaxAttempts
}

// ExamQuestion links a question into an exam at a fixed position.
type ExamQuestion struct {
	ExamID     uuid.UUID `json:"exam_id"`
	QuestionID uuid.UUID `json:"question_id"`
	OrderIndex int       `json:"order_index"`
}

// ExamPaper is the student-facing view of a published exam, cached in Redis
// at publish time. It never contains answer keys.
type ExamPaper struct {
	ExamID          uuid.UUID            `json:"exam_id"`
	Title           string               `json:"title"`
	Instructions    string               `json:"instructions,omitempty"`
	DurationMinutes int                  `json:"duration_minutes"`
	Questions       []QuestionForStudent `json:"questions"`
}

// ExamRulesRequest is the nested rules payload on exam create/update.
type ExamRulesRequest struct {
	ShuffleQuestions      *bool    `json:"shuffle_questions" binding:"omitempty"`
	ShuffleChoices        *bool    `json:"shuffle_choices" binding:"omitempty"`
	MaxAttempts           *int     `json:"max_attempts" binding:"omitempty,min=1,max=100"`
	NegativeMarkingFactor *float64 `json:"negative_marking_factor" binding:"omitempty,min=0"`
	PassThreshold         *float64 `json:"pass_threshold" binding:"omitempty,min=0,max=100"`
	AllowCalculator       *bool    `json:"allow_calculator" binding:"omitempty"`
	AllowFormulaSheet     *bool    `json:"allow_formula_sheet" binding:"omitempty"`
}

// Apply overlays the request on top of base and returns the result.
func (r *ExamRulesRequest) Apply(base ExamRules) ExamRules {
	if r == nil {
		return base
	}
	if r.ShuffleQuestions != nil {
		base.ShuffleQuestions = *r.ShuffleQuestions
	}
	if r.ShuffleChoices != nil {
		base.ShuffleChoices = *r.ShuffleChoices
	}
	if r.MaxAttempts != nil {
		base.MaxAttempts = *r.MaxAttempts
	}
	if r.NegativeMarkingFactor != nil {
		base.NegativeMarkingFactor = *r.NegativeMarkingFactor
	}
	if r.PassThreshold != nil {
		base.PassThreshold = *r.PassThreshold
	}
	if r.AllowCalculator != nil {
		base.AllowCalculator = *r.AllowCalculator
	}
	if r.AllowFormulaSheet != nil {
		base.AllowFormulaSheet = *r.AllowFormulaSheet
	}
	return base
}

// CreateExamRequest is the payload for creating a draft exam.
type CreateExamRequest struct {
	CourseID        uuid.UUID         `json:"course_id" binding:"required"`
	Title           string            `json:"title" binding:"required,min=1,max=255"`
	Instructions    string            `json:"instructions" binding:"omitempty,max=5000"`
	DurationMinutes int               `json:"duration_minutes" binding:"required,min=1,max=480"`
	StartAt         time.Time         `json:"start_at" binding:"required"`
	EndAt           time.Time         `json:"end_at" binding:"required,gtfield=StartAt"`
	ProctoringLevel string            `json:"proctoring_level" binding:"omitempty,oneof=NONE STANDARD STRICT"`
	Rules           *ExamRulesRequest `json:"rules" binding:"omitempty"`
}

// UpdateExamRequest is the payload for editing a draft or not-yet-started exam.
type UpdateExamRequest struct {
	Title           string            `json:"title" binding:"omitempty,min=1,max=255"`
	Instructions    *string           `json:"instructions" binding:"omitempty,max=5000"`
	DurationMinutes int               `json:"duration_minutes" binding:"omitempty,min=1,max=480"`
	StartAt         *time.Time        `json:"start_at" binding:"omitempty"`
	EndAt           *time.Time        `json:"end_at" binding:"omitempty"`
	ProctoringLevel string            `json:"proctoring_level" binding:"omitempty,oneof=NONE STANDARD STRICT"`
	Rules           *ExamRulesRequest `json:"rules" binding:"omitempty"`
}

// AddQuestionsRequest attaches existing bank questions to an exam.
type AddQuestionsRequest struct {
	QuestionIDs []uuid.UUID `json:"question_ids" binding:"required,min=1"`
}
