package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/Arpan7125/procto-3.0/internal/authz"
	"github.com/Arpan7125/procto-3.0/internal/model"
	"github.com/Arpan7125/procto-3.0/internal/observability"
)

// Common session errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrNotSessionOwner  = errors.New("not the session owner")
	ErrForbidden        = errors.New("operation not permitted for role")
	ErrExamNotAvailable = errors.New("exam not available")
	ErrExamNotStarted   = errors.New("exam has not started yet")
	ErrExamWindowEnded  = errors.New("exam window has ended")
	ErrMaxAttempts      = errors.New("maximum attempts reached")
	ErrSessionNotActive = errors.New("session is not active")
	ErrSessionSubmitted = errors.New("session already submitted")
)

// DeadlineGrace is the slack added to the hard deadline before the server
// refuses writes, absorbing client clock skew and network latency on
// last-second autosaves.
const DeadlineGrace = 30 * time.Second

// SessionStore is the session persistence the service needs.
type SessionStore interface {
	Create(ctx context.Context, s *model.ExamSession) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	GetActiveByExamAndStudent(ctx context.Context, examID, studentID uuid.UUID) (*model.ExamSession, error)
	CountTerminalAttempts(ctx context.Context, examID, studentID uuid.UUID) (int, error)
	Finish(ctx context.Context, id uuid.UUID, status model.SessionStatus, at time.Time) error
}

// ExamStore is the exam read access the service needs.
type ExamStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
}

// EnrollmentStore is the enrollment read access the service needs.
type EnrollmentStore interface {
	GetByCourseAndStudent(ctx context.Context, courseID, studentID uuid.UUID) (*model.Enrollment, error)
}

// AnswerStore is the answer persistence the service needs.
type AnswerStore interface {
	UpsertBatch(ctx context.Context, sessionID uuid.UUID, answers []model.AnswerInput) (int, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error)
}

// PaperProvider delivers the student-facing exam paper.
type PaperProvider interface {
	GetPaper(ctx context.Context, examID uuid.UUID) (*model.ExamPaper, error)
}

// EventPublisher broadcasts session lifecycle events for live monitoring.
type EventPublisher interface {
	PublishSessionEvent(ctx context.Context, examID uuid.UUID, event string, session *model.ExamSession)
}

// GradingEnqueuer hands submitted sessions to the grading pipeline.
type GradingEnqueuer interface {
	EnqueueGrading(ctx context.Context, sessionID uuid.UUID) error
}

// ExamSessionService implements the exam attempt lifecycle: start/resume,
// autosave, submit, and read. All deadline decisions use server time only.
type ExamSessionService struct {
	sessions    SessionStore
	exams       ExamStore
	enrollments EnrollmentStore
	answers     AnswerStore
	papers      PaperProvider
	events      EventPublisher
	grading     GradingEnqueuer
	log         zerolog.Logger

	// now is swappable for tests.
	now func() time.Time
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(
	sessions SessionStore,
	exams ExamStore,
	enrollments EnrollmentStore,
	answers AnswerStore,
	papers PaperProvider,
	events EventPublisher,
	grading GradingEnqueuer,
	log zerolog.Logger,
) *ExamSessionService {
	return &ExamSessionService{
		sessions:    sessions,
		exams:       exams,
		enrollments: enrollments,
		answers:     answers,
		papers:      papers,
		events:      events,
		grading:     grading,
		log:         log.With().Str("component", "exam_session_service").Logger(),
		now:         time.Now,
	}
}

// Start begins a new attempt or resumes the student's ACTIVE session.
// The resumed return is true when an existing session was reused.
//
// Preconditions run in a fixed order so each failure maps to one stable
// error: exam exists, published, window open on both ends, active
// enrollment, attempts left.
func (s *ExamSessionService) Start(ctx context.Context, studentID uuid.UUID, role model.Role, examID uuid.UUID, ip string) (*model.ExamSession, bool, error) {
	if !authz.Allowed(authz.SessionStart, role, true) {
		return nil, false, ErrForbidden
	}

	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, ErrExamNotFound
		}
		return nil, false, fmt.Errorf("get exam: %w", err)
	}

	now := s.now()
	if !exam.IsPublished {
		return nil, false, ErrExamNotAvailable
	}
	if now.Before(exam.StartAt) {
		return nil, false, ErrExamNotStarted
	}
	if now.After(exam.EndAt) {
		return nil, false, ErrExamWindowEnded
	}

	enrollment, err := s.enrollments.GetByCourseAndStudent(ctx, exam.CourseID, studentID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("get enrollment: %w", err)
	}
	if !enrollment.Active() {
		return nil, false, ErrNotEnrolled
	}

	// Resume before counting attempts: an ACTIVE session never burns one.
	if existing, err := s.sessions.GetActiveByExamAndStudent(ctx, examID, studentID); err == nil {
		if expired, ferr := s.expireIfPastDeadline(ctx, existing, exam); ferr != nil {
			return nil, false, ferr
		} else if !expired {
			return existing, true, nil
		}
		// The stale session was just swept into SUBMITTED; fall through to
		// the attempt check for a fresh one.
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, false, fmt.Errorf("get active session: %w", err)
	}

	attempts, err := s.sessions.CountTerminalAttempts(ctx, examID, studentID)
	if err != nil {
		return nil, false, fmt.Errorf("count attempts: %w", err)
	}
	if attempts >= exam.MaxAttemptsOrDefault() {
		return nil, false, ErrMaxAttempts
	}

	session := &model.ExamSession{
		ExamID:    examID,
		StudentID: studentID,
		Status:    model.SessionStatusActive,
		IPAddress: ip,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, false, fmt.Errorf("create session: %w", err)
	}

	s.events.PublishSessionEvent(ctx, examID, "session_started", session)
	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", examID.String()).
		Str("student_id", studentID.String()).
		Msg("session started")
	return session, false, nil
}

// SaveAnswers upserts an answer batch on an ACTIVE session. Each pair is
// written independently, so a mid-batch failure leaves earlier pairs saved;
// the returned count says how many landed.
func (s *ExamSessionService) SaveAnswers(ctx context.Context, sessionID, callerID uuid.UUID, role model.Role, answers []model.AnswerInput) (int, error) {
	session, err := s.loadOwned(ctx, sessionID, callerID, role, authz.SessionSave)
	if err != nil {
		return 0, err
	}

	if err := s.requireActive(ctx, session); err != nil {
		return 0, err
	}

	saved, err := s.answers.UpsertBatch(ctx, sessionID, answers)
	if err != nil {
		return saved, fmt.Errorf("save answers: %w", err)
	}
	return saved, nil
}

// Submit finalizes an ACTIVE session. Answers already saved are untouched;
// submit carries no payload. Submitting twice fails with ErrSessionSubmitted.
func (s *ExamSessionService) Submit(ctx context.Context, sessionID, callerID uuid.UUID, role model.Role) (*model.ExamSession, error) {
	session, err := s.loadOwned(ctx, sessionID, callerID, role, authz.SessionSubmit)
	if err != nil {
		return nil, err
	}

	if session.Status.Terminal() {
		if session.Status == model.SessionStatusSubmitted {
			return nil, ErrSessionSubmitted
		}
		return nil, ErrSessionNotActive
	}

	now := s.now()
	if err := s.sessions.Finish(ctx, sessionID, model.SessionStatusSubmitted, now); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost a race with another submit or the deadline sweeper.
			return nil, ErrSessionSubmitted
		}
		return nil, fmt.Errorf("finish session: %w", err)
	}
	session.Status = model.SessionStatusSubmitted
	session.SubmittedAt = &now

	s.afterSubmit(ctx, session)
	return session, nil
}

// Get returns the session with its paper and saved answers. Students read
// only their own sessions; faculty and admins read any.
func (s *ExamSessionService) Get(ctx context.Context, sessionID, callerID uuid.UUID, role model.Role) (*model.SessionDetail, error) {
	session, err := s.loadOwned(ctx, sessionID, callerID, role, authz.SessionRead)
	if err != nil {
		return nil, err
	}

	// Reads also settle expired sessions so nobody observes a deadline-past
	// ACTIVE state.
	if session.Status == model.SessionStatusActive {
		exam, err := s.exams.GetByID(ctx, session.ExamID)
		if err == nil {
			if _, ferr := s.expireIfPastDeadline(ctx, session, exam); ferr != nil {
				return nil, ferr
			}
		}
	}

	answers, err := s.answers.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}

	detail := &model.SessionDetail{Session: *session, Answers: answers}
	if paper, err := s.papers.GetPaper(ctx, session.ExamID); err == nil {
		detail.Exam = paper
	}
	return detail, nil
}

// loadOwned fetches the session and runs the capability check for op.
func (s *ExamSessionService) loadOwned(ctx context.Context, sessionID, callerID uuid.UUID, role model.Role, op authz.Operation) (*model.ExamSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	isOwner := session.StudentID == callerID
	if !authz.Allowed(op, role, isOwner) {
		if !isOwner && authz.CapabilityFor(op, role) == authz.OwnerOnly {
			return nil, ErrNotSessionOwner
		}
		return nil, ErrForbidden
	}
	return session, nil
}

// requireActive fails unless the session is ACTIVE and inside its deadline,
// settling it first if the deadline has passed.
func (s *ExamSessionService) requireActive(ctx context.Context, session *model.ExamSession) error {
	if session.Status.Terminal() {
		return ErrSessionNotActive
	}

	exam, err := s.exams.GetByID(ctx, session.ExamID)
	if err != nil {
		return fmt.Errorf("get exam: %w", err)
	}
	expired, err := s.expireIfPastDeadline(ctx, session, exam)
	if err != nil {
		return err
	}
	if expired {
		return ErrSessionNotActive
	}
	return nil
}

// expireIfPastDeadline auto-submits an ACTIVE session whose deadline plus
// grace has passed, using the deadline itself as the submit timestamp.
// Returns true when the session left the ACTIVE state.
func (s *ExamSessionService) expireIfPastDeadline(ctx context.Context, session *model.ExamSession, exam *model.Exam) (bool, error) {
	if session.Status != model.SessionStatusActive {
		return true, nil
	}

	deadline := session.Deadline(exam)
	if s.now().Before(deadline.Add(DeadlineGrace)) {
		return false, nil
	}

	if err := s.sessions.Finish(ctx, session.ID, model.SessionStatusSubmitted, deadline); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Someone else settled it first.
			return true, nil
		}
		return false, fmt.Errorf("expire session: %w", err)
	}
	session.Status = model.SessionStatusSubmitted
	session.SubmittedAt = &deadline

	observability.CountSessionSubmitted("lazy")
	s.log.Info().
		Str("session_id", session.ID.String()).
		Time("deadline", deadline).
		Msg("session auto-submitted past deadline")
	s.afterSubmit(ctx, session)
	return true, nil
}

// afterSubmit runs the post-submission side effects: grading handoff and the
// monitor event. Neither failure rolls back the submit.
func (s *ExamSessionService) afterSubmit(ctx context.Context, session *model.ExamSession) {
	if err := s.grading.EnqueueGrading(ctx, session.ID); err != nil {
		s.log.Error().Err(err).Str("session_id", session.ID.String()).Msg("grading enqueue failed")
	}
	s.events.PublishSessionEvent(ctx, session.ExamID, "session_submitted", session)
}
