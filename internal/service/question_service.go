package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// Common question errors.
var (
	ErrQuestionNotFound = errors.New("question not found")
	ErrInvalidContent   = errors.New("invalid question content")
)

// QuestionStore is the question persistence the service needs.
type QuestionStore interface {
	Create(ctx context.Context, q *model.Question) error
	CreateBatch(ctx context.Context, questions []*model.Question) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID, qType *model.QuestionType, page, perPage int) ([]model.Question, int64, error)
	Update(ctx context.Context, q *model.Question) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

// CourseStore is the course read access the service needs.
type CourseStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Course, error)
}

// QuestionService handles the course question bank. Faculty manage their own
// banks; enrolled students get read access with the answer keys stripped.
type QuestionService struct {
	questions   QuestionStore
	courses     CourseStore
	enrollments EnrollmentStore
}

// NewQuestionService creates a new QuestionService.
func NewQuestionService(questions QuestionStore, courses CourseStore, enrollments EnrollmentStore) *QuestionService {
	return &QuestionService{questions: questions, courses: courses, enrollments: enrollments}
}

// validateContent checks the type-specific content shape. Every type needs a
// prompt; choice types additionally need options and a correct answer.
func validateContent(qType model.QuestionType, raw json.RawMessage) error {
	var content model.QuestionContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidContent, err)
	}
	if content.Question == "" {
		return fmt.Errorf("%w: missing question text", ErrInvalidContent)
	}

	switch qType {
	case model.QuestionTypeMultipleChoice, model.QuestionTypeMultipleSelect:
		if len(content.Options) < 2 {
			return fmt.Errorf("%w: choice questions need at least 2 options", ErrInvalidContent)
		}
		if len(content.CorrectAnswer) == 0 {
			return fmt.Errorf("%w: missing correct answer", ErrInvalidContent)
		}
	case model.QuestionTypeTrueFalse, model.QuestionTypeNumerical:
		if len(content.CorrectAnswer) == 0 {
			return fmt.Errorf("%w: missing correct answer", ErrInvalidContent)
		}
	case model.QuestionTypeShortAnswer, model.QuestionTypeFillBlank:
		if len(content.CorrectAnswer) == 0 && len(content.AcceptedAnswers) == 0 {
			return fmt.Errorf("%w: missing accepted answers", ErrInvalidContent)
		}
	case model.QuestionTypeEssay, model.QuestionTypeCode:
		// Manually graded; no answer key required.
	}
	return nil
}

// checkCourseOwnership loads the course and verifies the caller may manage
// its bank.
func (s *QuestionService) checkCourseOwnership(ctx context.Context, courseID, callerID uuid.UUID, role model.Role) error {
	c, err := s.courses.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrCourseNotFound
		}
		return fmt.Errorf("get course: %w", err)
	}
	if role != model.RoleAdmin && c.FacultyID != callerID {
		return ErrNotCourseOwner
	}
	return nil
}

// checkReadAccess verifies the caller may read a course's bank: owning
// faculty and admins see everything, enrolled students see redacted entries.
func (s *QuestionService) checkReadAccess(ctx context.Context, courseID, callerID uuid.UUID, role model.Role) error {
	if role != model.RoleStudent {
		return s.checkCourseOwnership(ctx, courseID, callerID, role)
	}

	enrollment, err := s.enrollments.GetByCourseAndStudent(ctx, courseID, callerID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("get enrollment: %w", err)
	}
	if !enrollment.Active() {
		return ErrNotEnrolled
	}
	return nil
}

// Create adds a question to a course bank after ownership and content checks.
func (s *QuestionService) Create(ctx context.Context, callerID uuid.UUID, role model.Role, req *model.CreateQuestionRequest) (*model.Question, error) {
	if err := s.checkCourseOwnership(ctx, req.CourseID, callerID, role); err != nil {
		return nil, err
	}
	if err := validateContent(req.Type, req.Content); err != nil {
		return nil, err
	}

	q := &model.Question{
		CourseID:   req.CourseID,
		Type:       req.Type,
		Content:    req.Content,
		Points:     req.Points,
		Difficulty: req.Difficulty,
		TopicTags:  req.TopicTags,
	}
	if err := s.questions.Create(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// Import bulk-creates a batch of questions, the usual sink for approved AI
// drafts. Every item is validated before anything is written, so a bad entry
// rejects the whole batch.
func (s *QuestionService) Import(ctx context.Context, callerID uuid.UUID, role model.Role, req *model.ImportQuestionsRequest) ([]model.Question, error) {
	if err := s.checkCourseOwnership(ctx, req.CourseID, callerID, role); err != nil {
		return nil, err
	}

	batch := make([]*model.Question, 0, len(req.Questions))
	for i, item := range req.Questions {
		if err := validateContent(item.Type, item.Content); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		batch = append(batch, &model.Question{
			CourseID:   req.CourseID,
			Type:       item.Type,
			Content:    item.Content,
			Points:     item.Points,
			Difficulty: item.Difficulty,
			TopicTags:  item.TopicTags,
		})
	}

	if err := s.questions.CreateBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("import questions: %w", err)
	}

	out := make([]model.Question, len(batch))
	for i, q := range batch {
		out[i] = *q
	}
	return out, nil
}

// Get retrieves a question. Students read enrolled courses' questions with
// the answer key stripped.
func (s *QuestionService) Get(ctx context.Context, id, callerID uuid.UUID, role model.Role) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	if err := s.checkReadAccess(ctx, q.CourseID, callerID, role); err != nil {
		return nil, err
	}
	if role == model.RoleStudent {
		redacted := q.Redacted()
		return &redacted, nil
	}
	return q, nil
}

// List retrieves a page of a course's question bank. Students get redacted
// entries.
func (s *QuestionService) List(ctx context.Context, courseID, callerID uuid.UUID, role model.Role, qType *model.QuestionType, page, perPage int) ([]model.Question, int64, error) {
	if err := s.checkReadAccess(ctx, courseID, callerID, role); err != nil {
		return nil, 0, err
	}

	questions, total, err := s.questions.ListByCourse(ctx, courseID, qType, page, perPage)
	if err != nil {
		return nil, 0, err
	}
	if role == model.RoleStudent {
		for i := range questions {
			questions[i] = questions[i].Redacted()
		}
	}
	return questions, total, nil
}

// getOwned retrieves a question after an ownership check on its course. Used
// by the mutating operations.
func (s *QuestionService) getOwned(ctx context.Context, id, callerID uuid.UUID, role model.Role) (*model.Question, error) {
	q, err := s.questions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	if err := s.checkCourseOwnership(ctx, q.CourseID, callerID, role); err != nil {
		return nil, err
	}
	return q, nil
}

// Update edits a question after ownership and content checks.
func (s *QuestionService) Update(ctx context.Context, id, callerID uuid.UUID, role model.Role, req *model.UpdateQuestionRequest) (*model.Question, error) {
	q, err := s.getOwned(ctx, id, callerID, role)
	if err != nil {
		return nil, err
	}

	if req.Type != "" {
		q.Type = req.Type
	}
	if len(req.Content) > 0 {
		q.Content = req.Content
	}
	if req.Points != nil {
		q.Points = *req.Points
	}
	if req.Difficulty != nil {
		q.Difficulty = req.Difficulty
	}
	if req.TopicTags != nil {
		q.TopicTags = req.TopicTags
	}

	if err := validateContent(q.Type, q.Content); err != nil {
		return nil, err
	}
	if err := s.questions.Update(ctx, q); err != nil {
		return nil, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// Delete soft-deletes a question after an ownership check.
func (s *QuestionService) Delete(ctx context.Context, id, callerID uuid.UUID, role model.Role) error {
	if _, err := s.getOwned(ctx, id, callerID, role); err != nil {
		return err
	}
	return s.questions.SoftDelete(ctx, id)
}
