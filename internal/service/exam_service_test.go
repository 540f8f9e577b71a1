package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Arpan7125/procto-3.0/internal/config"
	"github.com/Arpan7125/procto-3.0/internal/model"
)

type stubExamStorage struct {
	byID      map[uuid.UUID]*model.Exam
	deleted   map[uuid.UUID]bool
	published map[uuid.UUID]bool
	questions int
	paper     []model.QuestionForStudent
}

func newStubExamStorage() *stubExamStorage {
	return &stubExamStorage{
		byID:      make(map[uuid.UUID]*model.Exam),
		deleted:   make(map[uuid.UUID]bool),
		published: make(map[uuid.UUID]bool),
	}
}

func (s *stubExamStorage) Create(_ context.Context, e *model.Exam) error {
	e.ID = uuid.New()
	s.byID[e.ID] = e
	return nil
}

func (s *stubExamStorage) Update(_ context.Context, e *model.Exam) error {
	s.byID[e.ID] = e
	return nil
}

func (s *stubExamStorage) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := s.byID[id]
	if !ok || s.deleted[id] {
		return nil, pgx.ErrNoRows
	}
	return e, nil
}

func (s *stubExamStorage) ListByCourse(_ context.Context, courseID uuid.UUID) ([]model.Exam, error) {
	var out []model.Exam
	for _, e := range s.byID {
		if e.CourseID == courseID && !s.deleted[e.ID] {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (s *stubExamStorage) SetPublished(_ context.Context, id uuid.UUID, published bool) error {
	s.published[id] = published
	return nil
}

func (s *stubExamStorage) SoftDelete(_ context.Context, id uuid.UUID) error {
	s.deleted[id] = true
	return nil
}

func (s *stubExamStorage) AddQuestions(_ context.Context, _ uuid.UUID, _ []uuid.UUID) error {
	return nil
}

func (s *stubExamStorage) RemoveQuestion(_ context.Context, _, _ uuid.UUID) error {
	return nil
}

func (s *stubExamStorage) ListQuestions(_ context.Context, _ uuid.UUID) ([]model.QuestionForStudent, error) {
	return s.paper, nil
}

func (s *stubExamStorage) CountQuestions(_ context.Context, _ uuid.UUID) (int, error) {
	return s.questions, nil
}

type stubCourses struct {
	byID map[uuid.UUID]*model.Course
}

func (s *stubCourses) GetByID(_ context.Context, id uuid.UUID) (*model.Course, error) {
	c, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

type stubQuestionCounter struct{ count int }

func (s *stubQuestionCounter) CountByCourseAndIDs(_ context.Context, _ uuid.UUID, _ []uuid.UUID) (int, error) {
	return s.count, nil
}

type stubSessionReader struct {
	count   int
	results []model.SessionResult
}

func (s *stubSessionReader) CountByExam(_ context.Context, _ uuid.UUID) (int, error) {
	return s.count, nil
}

func (s *stubSessionReader) ListByExam(_ context.Context, _ uuid.UUID) ([]model.SessionResult, error) {
	return s.results, nil
}

type examFixture struct {
	svc       *ExamService
	storage   *stubExamStorage
	sessions  *stubSessionReader
	redis     *miniredis.Miniredis
	examID    uuid.UUID
	courseID  uuid.UUID
	facultyID uuid.UUID
}

func newExamFixture(t *testing.T) *examFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	facultyID := uuid.New()
	courseID := uuid.New()
	examID := uuid.New()

	storage := newStubExamStorage()
	storage.byID[examID] = &model.Exam{
		ID:              examID,
		CourseID:        courseID,
		Title:           "Midterm",
		DurationMinutes: 60,
		StartAt:         time.Now().Add(time.Hour),
		EndAt:           time.Now().Add(3 * time.Hour),
	}
	storage.questions = 5

	sessions := &stubSessionReader{}
	svc := NewExamService(
		storage,
		&stubQuestionCounter{count: 5},
		&stubCourses{byID: map[uuid.UUID]*model.Course{courseID: {ID: courseID, FacultyID: facultyID}}},
		sessions,
		rdb,
		zerolog.Nop(),
	)

	return &examFixture{
		svc:       svc,
		storage:   storage,
		sessions:  sessions,
		redis:     mr,
		examID:    examID,
		courseID:  courseID,
		facultyID: facultyID,
	}
}

func TestDeleteRefusedWithSessions(t *testing.T) {
	f := newExamFixture(t)
	f.sessions.count = 1

	err := f.svc.Delete(context.Background(), f.examID, f.facultyID, model.RoleFaculty)
	require.ErrorIs(t, err, ErrExamHasSessions)
	require.False(t, f.storage.deleted[f.examID])
}

func TestDeleteRemovesExamAndPaper(t *testing.T) {
	f := newExamFixture(t)
	key := config.CacheKey.ExamPaperKey(f.examID.String())
	require.NoError(t, f.redis.Set(key, `{"exam_id":"x"}`))

	err := f.svc.Delete(context.Background(), f.examID, f.facultyID, model.RoleFaculty)
	require.NoError(t, err)
	require.True(t, f.storage.deleted[f.examID])
	require.False(t, f.redis.Exists(key))
}

func TestDeleteRequiresOwnership(t *testing.T) {
	f := newExamFixture(t)

	err := f.svc.Delete(context.Background(), f.examID, uuid.New(), model.RoleFaculty)
	require.ErrorIs(t, err, ErrNotCourseOwner)

	// Admins bypass the ownership check but not the session guard.
	f.sessions.count = 2
	err = f.svc.Delete(context.Background(), f.examID, uuid.New(), model.RoleAdmin)
	require.ErrorIs(t, err, ErrExamHasSessions)
}

func TestPublishRefusedWithoutQuestions(t *testing.T) {
	f := newExamFixture(t)
	f.storage.questions = 0

	_, err := f.svc.Publish(context.Background(), f.examID, f.facultyID, model.RoleFaculty)
	require.ErrorIs(t, err, ErrNoQuestions)
}

func TestPublishWarmsPaperCache(t *testing.T) {
	f := newExamFixture(t)
	f.storage.paper = []model.QuestionForStudent{{ID: uuid.New(), Type: model.QuestionTypeMultipleChoice, Prompt: "2+2?"}}

	exam, err := f.svc.Publish(context.Background(), f.examID, f.facultyID, model.RoleFaculty)
	require.NoError(t, err)
	require.True(t, exam.IsPublished)
	require.True(t, f.redis.Exists(config.CacheKey.ExamPaperKey(f.examID.String())))
}

func TestResultsRequireOwnership(t *testing.T) {
	f := newExamFixture(t)
	f.sessions.results = []model.SessionResult{{SessionID: uuid.New(), Status: model.SessionStatusSubmitted}}

	_, err := f.svc.Results(context.Background(), f.examID, uuid.New(), model.RoleFaculty)
	require.ErrorIs(t, err, ErrNotCourseOwner)

	results, err := f.svc.Results(context.Background(), f.examID, f.facultyID, model.RoleFaculty)
	require.NoError(t, err)
	require.Len(t, results, 1)
}
