package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Arpan7125/procto-3.0/internal/config"
	"github.com/Arpan7125/procto-3.0/internal/model"
)

// Common exam errors.
var (
	ErrExamNotFound      = errors.New("exam not found")
	ErrExamStarted       = errors.New("exam window already started")
	ErrExamHasSessions   = errors.New("exam has existing sessions")
	ErrNoQuestions       = errors.New("exam has no questions")
	ErrQuestionsMismatch = errors.New("some questions do not belong to this course")
)

// examPaperTTL keeps cached papers around for the longest plausible exam
// window plus slack.
const examPaperTTL = 24 * time.Hour

// ExamStorage is the exam persistence the service needs.
type ExamStorage interface {
	Create(ctx context.Context, e *model.Exam) error
	Update(ctx context.Context, e *model.Exam) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Exam, error)
	SetPublished(ctx context.Context, id uuid.UUID, published bool) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
	AddQuestions(ctx context.Context, examID uuid.UUID, questionIDs []uuid.UUID) error
	RemoveQuestion(ctx context.Context, examID, questionID uuid.UUID) error
	ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.QuestionForStudent, error)
	CountQuestions(ctx context.Context, examID uuid.UUID) (int, error)
}

// QuestionCounter verifies question-to-course membership for attachment
// batches.
type QuestionCounter interface {
	CountByCourseAndIDs(ctx context.Context, courseID uuid.UUID, ids []uuid.UUID) (int, error)
}

// SessionReader is the session read access the service needs: the delete
// guard and the faculty results view.
type SessionReader interface {
	CountByExam(ctx context.Context, examID uuid.UUID) (int, error)
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.SessionResult, error)
}

// ExamService handles exam lifecycle, question attachment, and paper delivery.
type ExamService struct {
	exams     ExamStorage
	questions QuestionCounter
	courses   CourseStore
	sessions  SessionReader
	rdb       *redis.Client
	log       zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(
	exams ExamStorage,
	questions QuestionCounter,
	courses CourseStore,
	sessions SessionReader,
	rdb *redis.Client,
	log zerolog.Logger,
) *ExamService {
	return &ExamService{
		exams:     exams,
		questions: questions,
		courses:   courses,
		sessions:  sessions,
		rdb:       rdb,
		log:       log.With().Str("component", "exam_service").Logger(),
	}
}

// checkOwnership verifies the caller owns the course the exam lives under.
func (s *ExamService) checkOwnership(ctx context.Context, courseID, callerID uuid.UUID, role model.Role) error {
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

// Create registers a draft exam with its rules.
func (s *ExamService) Create(ctx context.Context, callerID uuid.UUID, role model.Role, req *model.CreateExamRequest) (*model.Exam, error) {
	if err := s.checkOwnership(ctx, req.CourseID, callerID, role); err != nil {
		return nil, err
	}

	level := req.ProctoringLevel
	if level == "" {
		level = "STANDARD"
	}
	rules := req.Rules.Apply(model.DefaultExamRules())

	e := &model.Exam{
		CourseID:        req.CourseID,
		Title:           req.Title,
		Instructions:    req.Instructions,
		DurationMinutes: req.DurationMinutes,
		StartAt:         req.StartAt,
		EndAt:           req.EndAt,
		ProctoringLevel: level,
		Status:          model.ExamStatusDraft,
		Rules:           &rules,
	}
	if err := s.exams.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create exam: %w", err)
	}

	s.log.Info().Str("exam_id", e.ID.String()).Str("title", e.Title).Msg("exam created")
	return e, nil
}

// Get retrieves an exam by ID with rules.
func (s *ExamService) Get(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e, err := s.exams.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	return e, nil
}

// ListByCourse retrieves the exams of a course. Students only see published
// ones.
func (s *ExamService) ListByCourse(ctx context.Context, courseID uuid.UUID, role model.Role) ([]model.Exam, error) {
	exams, err := s.exams.ListByCourse(ctx, courseID)
	if err != nil {
		return nil, fmt.Errorf("list exams: %w", err)
	}
	if role != model.RoleStudent {
		return exams, nil
	}
	published := exams[:0]
	for _, e := range exams {
		if e.IsPublished {
			published = append(published, e)
		}
	}
	return published, nil
}

// Update edits an exam. Edits are refused once the window has started, since
// students may already hold sessions against the old definition.
func (s *ExamService) Update(ctx context.Context, id, callerID uuid.UUID, role model.Role, req *model.UpdateExamRequest) (*model.Exam, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, e.CourseID, callerID, role); err != nil {
		return nil, err
	}
	if e.IsPublished && time.Now().After(e.StartAt) {
		return nil, ErrExamStarted
	}

	if req.Title != "" {
		e.Title = req.Title
	}
	if req.Instructions != nil {
		e.Instructions = *req.Instructions
	}
	if req.DurationMinutes > 0 {
		e.DurationMinutes = req.DurationMinutes
	}
	if req.StartAt != nil {
		e.StartAt = *req.StartAt
	}
	if req.EndAt != nil {
		e.EndAt = *req.EndAt
	}
	if !e.EndAt.After(e.StartAt) {
		return nil, fmt.Errorf("%w: end_at must be after start_at", ErrInvalidContent)
	}
	if req.ProctoringLevel != "" {
		e.ProctoringLevel = req.ProctoringLevel
	}
	if req.Rules != nil {
		base := model.DefaultExamRules()
		if e.Rules != nil {
			base = *e.Rules
		}
		rules := req.Rules.Apply(base)
		rules.ExamID = e.ID
		e.Rules = &rules
	}

	if err := s.exams.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update exam: %w", err)
	}

	// Stale papers must not survive a definition change.
	s.invalidatePaper(ctx, e.ID)
	return e, nil
}

// Delete soft-deletes an exam and drops its cached paper. Refused once any
// student has a session against it, so results are never orphaned.
func (s *ExamService) Delete(ctx context.Context, id, callerID uuid.UUID, role model.Role) error {
	e, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(ctx, e.CourseID, callerID, role); err != nil {
		return err
	}

	count, err := s.sessions.CountByExam(ctx, id)
	if err != nil {
		return fmt.Errorf("count sessions: %w", err)
	}
	if count > 0 {
		return ErrExamHasSessions
	}

	if err := s.exams.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("delete exam: %w", err)
	}
	s.invalidatePaper(ctx, id)
	return nil
}

// AddQuestions attaches bank questions to an exam. Every ID must belong to
// the exam's course.
func (s *ExamService) AddQuestions(ctx context.Context, examID, callerID uuid.UUID, role model.Role, questionIDs []uuid.UUID) error {
	e, err := s.Get(ctx, examID)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(ctx, e.CourseID, callerID, role); err != nil {
		return err
	}
	if e.IsPublished && time.Now().After(e.StartAt) {
		return ErrExamStarted
	}

	count, err := s.questions.CountByCourseAndIDs(ctx, e.CourseID, questionIDs)
	if err != nil {
		return fmt.Errorf("verify questions: %w", err)
	}
	if count != len(questionIDs) {
		return ErrQuestionsMismatch
	}

	if err := s.exams.AddQuestions(ctx, examID, questionIDs); err != nil {
		return fmt.Errorf("add questions: %w", err)
	}
	s.invalidatePaper(ctx, examID)
	return nil
}

// RemoveQuestion detaches a question from an exam.
func (s *ExamService) RemoveQuestion(ctx context.Context, examID, questionID, callerID uuid.UUID, role model.Role) error {
	e, err := s.Get(ctx, examID)
	if err != nil {
		return err
	}
	if err := s.checkOwnership(ctx, e.CourseID, callerID, role); err != nil {
		return err
	}
	if e.IsPublished && time.Now().After(e.StartAt) {
		return ErrExamStarted
	}

	if err := s.exams.RemoveQuestion(ctx, examID, questionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrQuestionNotFound
		}
		return fmt.Errorf("remove question: %w", err)
	}
	s.invalidatePaper(ctx, examID)
	return nil
}

// Publish makes an exam visible to students and warms the paper cache.
// Publishing an exam with an empty paper is refused.
func (s *ExamService) Publish(ctx context.Context, id, callerID uuid.UUID, role model.Role) (*model.Exam, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, e.CourseID, callerID, role); err != nil {
		return nil, err
	}

	count, err := s.exams.CountQuestions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if count == 0 {
		return nil, ErrNoQuestions
	}

	if err := s.exams.SetPublished(ctx, id, true); err != nil {
		return nil, fmt.Errorf("publish exam: %w", err)
	}
	e.IsPublished = true
	e.Status = model.ExamStatusScheduled

	if _, err := s.buildAndCachePaper(ctx, e); err != nil {
		// The cache is an optimization; delivery falls back to the database.
		s.log.Warn().Err(err).Str("exam_id", id.String()).Msg("paper cache warm failed")
	}

	s.log.Info().Str("exam_id", id.String()).Int("questions", count).Msg("exam published")
	return e, nil
}

// Unpublish hides an exam from students again. Refused once the window has
// started.
func (s *ExamService) Unpublish(ctx context.Context, id, callerID uuid.UUID, role model.Role) (*model.Exam, error) {
	e, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, e.CourseID, callerID, role); err != nil {
		return nil, err
	}
	if time.Now().After(e.StartAt) && e.IsPublished {
		return nil, ErrExamStarted
	}

	if err := s.exams.SetPublished(ctx, id, false); err != nil {
		return nil, fmt.Errorf("unpublish exam: %w", err)
	}
	e.IsPublished = false
	e.Status = model.ExamStatusDraft
	s.invalidatePaper(ctx, id)
	return e, nil
}

// GetPaper returns the student-facing paper for an exam, served from Redis
// with a database fallback that re-warms the cache.
func (s *ExamService) GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	key := config.CacheKey.ExamPaperKey(examID.String())

	cached, err := s.rdb.Get(ctx, key).Result()
	if err == nil {
		paper := &model.ExamPaper{}
		if jerr := json.Unmarshal([]byte(cached), paper); jerr == nil {
			return paper, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("paper cache read failed")
	}

	e, err := s.Get(ctx, examID)
	if err != nil {
		return nil, err
	}
	return s.buildAndCachePaper(ctx, e)
}

// Results retrieves the per-student session results for an exam.
func (s *ExamService) Results(ctx context.Context, examID, callerID uuid.UUID, role model.Role) ([]model.SessionResult, error) {
	e, err := s.Get(ctx, examID)
	if err != nil {
		return nil, err
	}
	if err := s.checkOwnership(ctx, e.CourseID, callerID, role); err != nil {
		return nil, err
	}
	return s.sessions.ListByExam(ctx, examID)
}

func (s *ExamService) buildAndCachePaper(ctx context.Context, e *model.Exam) (*model.ExamPaper, error) {
	questions, err := s.exams.ListQuestions(ctx, e.ID)
	if err != nil {
		return nil, fmt.Errorf("list exam questions: %w", err)
	}

	paper := &model.ExamPaper{
		ExamID:          e.ID,
		Title:           e.Title,
		Instructions:    e.Instructions,
		DurationMinutes: e.DurationMinutes,
		Questions:       questions,
	}

	raw, err := json.Marshal(paper)
	if err != nil {
		return nil, fmt.Errorf("marshal paper: %w", err)
	}
	if err := s.rdb.Set(ctx, config.CacheKey.ExamPaperKey(e.ID.String()), raw, examPaperTTL).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", e.ID.String()).Msg("paper cache write failed")
	}
	return paper, nil
}

func (s *ExamService) invalidatePaper(ctx context.Context, examID uuid.UUID) {
	if err := s.rdb.Del(ctx, config.CacheKey.ExamPaperKey(examID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Str("exam_id", examID.String()).Msg("paper cache invalidate failed")
	}
}
