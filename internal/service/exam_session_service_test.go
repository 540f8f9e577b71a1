package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// ─── In-memory fakes ───

type fakeSessionStore struct {
	sessions map[uuid.UUID]*model.ExamSession
	now      func() time.Time
}

func newFakeSessionStore(now func() time.Time) *fakeSessionStore {
	return &fakeSessionStore{sessions: make(map[uuid.UUID]*model.ExamSession), now: now}
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.ExamSession) error {
	// Mirror the partial unique index: one ACTIVE row per (exam, student).
	for _, existing := range f.sessions {
		if existing.ExamID == s.ExamID && existing.StudentID == s.StudentID && existing.Status == model.SessionStatusActive {
			*s = *existing
			return nil
		}
	}
	s.ID = uuid.New()
	s.StartedAt = f.now()
	s.Status = model.SessionStatusActive
	cp := *s
	f.sessions[s.ID] = &cp
	return nil
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (f *fakeSessionStore) GetActiveByExamAndStudent(_ context.Context, examID, studentID uuid.UUID) (*model.ExamSession, error) {
	for _, s := range f.sessions {
		if s.ExamID == examID && s.StudentID == studentID && s.Status == model.SessionStatusActive {
			cp := *s
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSessionStore) CountTerminalAttempts(_ context.Context, examID, studentID uuid.UUID) (int, error) {
	count := 0
	for _, s := range f.sessions {
		if s.ExamID == examID && s.StudentID == studentID && s.Status.Terminal() {
			count++
		}
	}
	return count, nil
}

func (f *fakeSessionStore) Finish(_ context.Context, id uuid.UUID, status model.SessionStatus, at time.Time) error {
	s, ok := f.sessions[id]
	if !ok || s.Status != model.SessionStatusActive {
		return pgx.ErrNoRows
	}
	s.Status = status
	s.SubmittedAt = &at
	return nil
}

type fakeExamStore struct {
	exams map[uuid.UUID]*model.Exam
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *e
	return &cp, nil
}

type fakeEnrollmentStore struct {
	enrollments map[uuid.UUID]*model.Enrollment // keyed by student
}

func (f *fakeEnrollmentStore) GetByCourseAndStudent(_ context.Context, courseID, studentID uuid.UUID) (*model.Enrollment, error) {
	e, ok := f.enrollments[studentID]
	if !ok || e.CourseID != courseID {
		return nil, pgx.ErrNoRows
	}
	return e, nil
}

type fakeAnswerStore struct {
	answers map[uuid.UUID]map[uuid.UUID]json.RawMessage // session → question → response
	failAt  int                                         // fail the Nth pair (1-based), 0 disables
}

func newFakeAnswerStore() *fakeAnswerStore {
	return &fakeAnswerStore{answers: make(map[uuid.UUID]map[uuid.UUID]json.RawMessage)}
}

func (f *fakeAnswerStore) UpsertBatch(_ context.Context, sessionID uuid.UUID, answers []model.AnswerInput) (int, error) {
	if f.answers[sessionID] == nil {
		f.answers[sessionID] = make(map[uuid.UUID]json.RawMessage)
	}
	saved := 0
	for i, a := range answers {
		if f.failAt > 0 && i+1 == f.failAt {
			return saved, context.DeadlineExceeded
		}
		f.answers[sessionID][a.QuestionID] = a.Response
		saved++
	}
	return saved, nil
}

func (f *fakeAnswerStore) ListBySession(_ context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	var out []model.Answer
	for qid, resp := range f.answers[sessionID] {
		out = append(out, model.Answer{SessionID: sessionID, QuestionID: qid, Response: resp})
	}
	return out, nil
}

type fakePaperProvider struct{}

func (fakePaperProvider) GetPaper(_ context.Context, examID uuid.UUID) (*model.ExamPaper, error) {
	return &model.ExamPaper{ExamID: examID, Title: "paper"}, nil
}

type fakeEventPublisher struct {
	events []string
}

func (f *fakeEventPublisher) PublishSessionEvent(_ context.Context, _ uuid.UUID, event string, _ *model.ExamSession) {
	f.events = append(f.events, event)
}

type fakeGradingEnqueuer struct {
	enqueued []uuid.UUID
}

func (f *fakeGradingEnqueuer) EnqueueGrading(_ context.Context, sessionID uuid.UUID) error {
	f.enqueued = append(f.enqueued, sessionID)
	return nil
}

// ─── Fixture ───

type sessionFixture struct {
	svc      *ExamSessionService
	sessions *fakeSessionStore
	exams    *fakeExamStore
	enrolls  *fakeEnrollmentStore
	answers  *fakeAnswerStore
	events   *fakeEventPublisher
	grading  *fakeGradingEnqueuer

	examID    uuid.UUID
	courseID  uuid.UUID
	studentID uuid.UUID
	now       time.Time
}

func newSessionFixture(t *testing.T) *sessionFixture {
	t.Helper()

	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	examID := uuid.New()
	courseID := uuid.New()
	studentID := uuid.New()

	rules := model.DefaultExamRules()
	exam := &model.Exam{
		ID:              examID,
		CourseID:        courseID,
		Title:           "Midterm",
		DurationMinutes: 60,
		StartAt:         now.Add(-time.Hour),
		EndAt:           now.Add(2 * time.Hour),
		IsPublished:     true,
		Rules:           &rules,
	}

	f := &sessionFixture{
		exams:     &fakeExamStore{exams: map[uuid.UUID]*model.Exam{examID: exam}},
		enrolls:   &fakeEnrollmentStore{enrollments: map[uuid.UUID]*model.Enrollment{studentID: {CourseID: courseID, StudentID: studentID}}},
		answers:   newFakeAnswerStore(),
		events:    &fakeEventPublisher{},
		grading:   &fakeGradingEnqueuer{},
		examID:    examID,
		courseID:  courseID,
		studentID: studentID,
		now:       now,
	}
	f.sessions = newFakeSessionStore(func() time.Time { return f.now })
	f.svc = NewExamSessionService(f.sessions, f.exams, f.enrolls, f.answers, fakePaperProvider{}, f.events, f.grading, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *sessionFixture) exam() *model.Exam { return f.exams.exams[f.examID] }

func (f *sessionFixture) start(t *testing.T) *model.ExamSession {
	t.Helper()
	session, resumed, err := f.svc.Start(context.Background(), f.studentID, model.RoleStudent, f.examID, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, resumed)
	return session
}

// ─── Start ───

func TestStartCreatesSession(t *testing.T) {
	f := newSessionFixture(t)

	session := f.start(t)
	require.Equal(t, model.SessionStatusActive, session.Status)
	require.Equal(t, f.examID, session.ExamID)
	require.Equal(t, f.studentID, session.StudentID)
	require.Equal(t, "10.0.0.1", session.IPAddress)
	require.Equal(t, []string{"session_started"}, f.events.events)
}

func TestStartResumesActiveSession(t *testing.T) {
	f := newSessionFixture(t)

	first := f.start(t)

	second, resumed, err := f.svc.Start(context.Background(), f.studentID, model.RoleStudent, f.examID, "10.0.0.2")
	require.NoError(t, err)
	require.True(t, resumed)
	require.Equal(t, first.ID, second.ID)
}

func TestStartPreconditions(t *testing.T) {
	t.Run("exam not found", func(t *testing.T) {
		f := newSessionFixture(t)
		_, _, err := f.svc.Start(context.Background(), f.studentID, model.RoleStudent, uuid.New(), "")
		require.ErrorIs(t, err, ErrExamNotFound)
	})

	t.Run("not published", func(t *testing.T) {
		f := newSessionFixture(t)
		f.exam().IsPublished = false
		_, _, err := f.svc.Start(context.Background(), f.studentID, model.RoleStudent, f.examID, "")
		require.ErrorIs(t, err, ErrExamNotAvailable)
	})

	t.Run("before window", func(t *testing.T) {
		f := newSessionFixture(t)
		f.exam().StartAt = f.now.Add(time.Hour)
		_, _, err := f.svc.Start(context.Background(), f.studentID, model.RoleStudent, f.examID, "")
		require.ErrorIs(t, err, ErrExamNotStarted)
	})

	t.Run("after window", func(t *testing.T) {
		f := newSessionFixture(t)
		f.exam().EndAt = f.now.Add(-time.Minute)
		_, _, err := f.svc.Start(context.Background(), f.studentID, model.RoleStudent, f.examID, "")
		require.ErrorIs(t, err, ErrExamWindowEnded)
	})

	t.Run("never enrolled", func(t *testing.T) {
		f := newSessionFixture(t)
		_, _, err := f.svc.Start(context.Background(), uuid.New(), model.RoleStudent, f.examID, "")
		require.ErrorIs(t, err, ErrNotEnrolled)
	})

	t.Run("dropped enrollment", func(t *testing.T) {
		f := newSessionFixture(t)
		dropped := f.now.Add(-time.Hour)
		f.enrolls.enrollments[f.studentID].DroppedAt = &dropped
		_, _, err := f.svc.Start(context.Background(), f.studentID, model.RoleStudent, f.examID, "")
		require.ErrorIs(t, err, ErrNotEnrolled)
	})

	t.Run("faculty cannot start", func(t *testing.T) {
		f := newSessionFixture(t)
		_, _, err := f.svc.Start(context.Background(), f.studentID, model.RoleFaculty, f.examID, "")
		require.ErrorIs(t, err, ErrForbidden)
	})
}

func TestStartMaxAttempts(t *testing.T) {
	f := newSessionFixture(t)

	session := f.start(t)
	_, err := f.svc.Submit(context.Background(), session.ID, f.studentID, model.RoleStudent)
	require.NoError(t, err)

	// Default max_attempts is 1 and the first attempt is spent.
	_, _, err = f.svc.Start(context.Background(), f.studentID, model.RoleStudent, f.examID, "")
	require.ErrorIs(t, err, ErrMaxAttempts)
}

func TestStartSecondAttemptAllowed(t *testing.T) {
	f := newSessionFixture(t)
	f.exam().Rules.MaxAttempts = 2

	first := f.start(t)
	_, err := f.svc.Submit(context.Background(), first.ID, f.studentID, model.RoleStudent)
	require.NoError(t, err)

	second, resumed, err := f.svc.Start(context.Background(), f.studentID, model.RoleStudent, f.examID, "")
	require.NoError(t, err)
	require.False(t, resumed)
	require.NotEqual(t, first.ID, second.ID)
}

// ─── SaveAnswers ───

func TestSaveAnswersUpserts(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)
	qid := uuid.New()

	saved, err := f.svc.SaveAnswers(context.Background(), session.ID, f.studentID, model.RoleStudent, []model.AnswerInput{
		{QuestionID: qid, Response: json.RawMessage(`"A"`)},
		{QuestionID: uuid.New(), Response: json.RawMessage(`"B"`)},
	})
	require.NoError(t, err)
	require.Equal(t, 2, saved)

	// Re-saving the same question overwrites, never duplicates.
	saved, err = f.svc.SaveAnswers(context.Background(), session.ID, f.studentID, model.RoleStudent, []model.AnswerInput{
		{QuestionID: qid, Response: json.RawMessage(`"C"`)},
	})
	require.NoError(t, err)
	require.Equal(t, 1, saved)

	require.Len(t, f.answers.answers[session.ID], 2)
	require.JSONEq(t, `"C"`, string(f.answers.answers[session.ID][qid]))
}

func TestSaveAnswersPartialFailure(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)
	f.answers.failAt = 2

	saved, err := f.svc.SaveAnswers(context.Background(), session.ID, f.studentID, model.RoleStudent, []model.AnswerInput{
		{QuestionID: uuid.New(), Response: json.RawMessage(`"A"`)},
		{QuestionID: uuid.New(), Response: json.RawMessage(`"B"`)},
	})
	require.Error(t, err)
	require.Equal(t, 1, saved)
	require.Len(t, f.answers.answers[session.ID], 1)
}

func TestSaveAnswersGuards(t *testing.T) {
	t.Run("unknown session", func(t *testing.T) {
		f := newSessionFixture(t)
		_, err := f.svc.SaveAnswers(context.Background(), uuid.New(), f.studentID, model.RoleStudent, nil)
		require.ErrorIs(t, err, ErrSessionNotFound)
	})

	t.Run("not the owner", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.start(t)
		_, err := f.svc.SaveAnswers(context.Background(), session.ID, uuid.New(), model.RoleStudent, nil)
		require.ErrorIs(t, err, ErrNotSessionOwner)
	})

	t.Run("already submitted", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.start(t)
		_, err := f.svc.Submit(context.Background(), session.ID, f.studentID, model.RoleStudent)
		require.NoError(t, err)

		_, err = f.svc.SaveAnswers(context.Background(), session.ID, f.studentID, model.RoleStudent, []model.AnswerInput{
			{QuestionID: uuid.New(), Response: json.RawMessage(`"A"`)},
		})
		require.ErrorIs(t, err, ErrSessionNotActive)
	})

	t.Run("faculty cannot save", func(t *testing.T) {
		f := newSessionFixture(t)
		session := f.start(t)
		_, err := f.svc.SaveAnswers(context.Background(), session.ID, uuid.New(), model.RoleFaculty, nil)
		require.ErrorIs(t, err, ErrForbidden)
	})
}

func TestSaveAnswersPastDeadlineAutoSubmits(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)

	// Jump past started_at + duration + grace.
	f.now = f.now.Add(61*time.Minute + DeadlineGrace)

	_, err := f.svc.SaveAnswers(context.Background(), session.ID, f.studentID, model.RoleStudent, []model.AnswerInput{
		{QuestionID: uuid.New(), Response: json.RawMessage(`"late"`)},
	})
	require.ErrorIs(t, err, ErrSessionNotActive)

	settled, err := f.sessions.GetByID(context.Background(), session.ID)
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusSubmitted, settled.Status)
	// The submit timestamp is the deadline, not the request time.
	require.Equal(t, session.StartedAt.Add(60*time.Minute), settled.SubmittedAt.UTC())
	require.Equal(t, []uuid.UUID{session.ID}, f.grading.enqueued)
}

func TestSaveAnswersWithinGrace(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)

	// Past the deadline but inside the grace window: the save still lands.
	f.now = f.now.Add(60*time.Minute + DeadlineGrace/2)

	saved, err := f.svc.SaveAnswers(context.Background(), session.ID, f.studentID, model.RoleStudent, []model.AnswerInput{
		{QuestionID: uuid.New(), Response: json.RawMessage(`"just in time"`)},
	})
	require.NoError(t, err)
	require.Equal(t, 1, saved)
}

func TestLazyExpiryCountsSubmission(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)
	before := submittedCount(t, "lazy")

	f.now = f.now.Add(61*time.Minute + DeadlineGrace)
	_, err := f.svc.SaveAnswers(context.Background(), session.ID, f.studentID, model.RoleStudent, []model.AnswerInput{
		{QuestionID: uuid.New(), Response: json.RawMessage(`"late"`)},
	})
	require.ErrorIs(t, err, ErrSessionNotActive)
	require.Equal(t, before+1, submittedCount(t, "lazy"))
}

// submittedCount reads the submitted-sessions counter for one trigger from
// the default Prometheus registry.
func submittedCount(t *testing.T, trigger string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != "procto_sessions_submitted_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, label := range m.GetLabel() {
				if label.GetName() == "trigger" && label.GetValue() == trigger {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

// ─── Submit ───

func TestSubmitFinalizesSession(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)

	submitted, err := f.svc.Submit(context.Background(), session.ID, f.studentID, model.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.SubmittedAt)
	require.Equal(t, []uuid.UUID{session.ID}, f.grading.enqueued)
	require.Contains(t, f.events.events, "session_submitted")
}

func TestSubmitTwice(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)

	_, err := f.svc.Submit(context.Background(), session.ID, f.studentID, model.RoleStudent)
	require.NoError(t, err)

	_, err = f.svc.Submit(context.Background(), session.ID, f.studentID, model.RoleStudent)
	require.ErrorIs(t, err, ErrSessionSubmitted)
	require.Len(t, f.grading.enqueued, 1)
}

func TestSubmitByNonOwner(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)

	_, err := f.svc.Submit(context.Background(), session.ID, uuid.New(), model.RoleStudent)
	require.ErrorIs(t, err, ErrNotSessionOwner)

	_, err = f.svc.Submit(context.Background(), session.ID, uuid.New(), model.RoleAdmin)
	require.ErrorIs(t, err, ErrForbidden)
}

// ─── Get ───

func TestGetSessionDetail(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)
	qid := uuid.New()
	_, err := f.svc.SaveAnswers(context.Background(), session.ID, f.studentID, model.RoleStudent, []model.AnswerInput{
		{QuestionID: qid, Response: json.RawMessage(`"A"`)},
	})
	require.NoError(t, err)

	detail, err := f.svc.Get(context.Background(), session.ID, f.studentID, model.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, session.ID, detail.Session.ID)
	require.Len(t, detail.Answers, 1)
	require.NotNil(t, detail.Exam)
}

func TestGetSessionAccess(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)

	// Faculty and admin read any session; other students read none.
	_, err := f.svc.Get(context.Background(), session.ID, uuid.New(), model.RoleFaculty)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), session.ID, uuid.New(), model.RoleAdmin)
	require.NoError(t, err)

	_, err = f.svc.Get(context.Background(), session.ID, uuid.New(), model.RoleStudent)
	require.ErrorIs(t, err, ErrNotSessionOwner)
}

func TestGetSettlesExpiredSession(t *testing.T) {
	f := newSessionFixture(t)
	session := f.start(t)

	f.now = f.now.Add(61*time.Minute + DeadlineGrace)

	detail, err := f.svc.Get(context.Background(), session.ID, f.studentID, model.RoleStudent)
	require.NoError(t, err)
	require.Equal(t, model.SessionStatusSubmitted, detail.Session.Status)
}

// ─── Deadline ───

func TestDeadlineCappedByWindowEnd(t *testing.T) {
	f := newSessionFixture(t)
	// End the window 30 minutes from now; the 60-minute duration must not
	// extend past it.
	f.exam().EndAt = f.now.Add(30 * time.Minute)

	session := f.start(t)
	deadline := session.Deadline(f.exam())
	require.Equal(t, f.exam().EndAt, deadline)

	f.now = f.now.Add(31*time.Minute + DeadlineGrace)
	_, err := f.svc.SaveAnswers(context.Background(), session.ID, f.studentID, model.RoleStudent, []model.AnswerInput{
		{QuestionID: uuid.New(), Response: json.RawMessage(`"late"`)},
	})
	require.ErrorIs(t, err, ErrSessionNotActive)
}
