package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

type stubQuestionStore struct {
	byID    map[uuid.UUID]*model.Question
	created []*model.Question
}

func newStubQuestionStore() *stubQuestionStore {
	return &stubQuestionStore{byID: make(map[uuid.UUID]*model.Question)}
}

func (s *stubQuestionStore) Create(_ context.Context, q *model.Question) error {
	q.ID = uuid.New()
	s.byID[q.ID] = q
	s.created = append(s.created, q)
	return nil
}

func (s *stubQuestionStore) CreateBatch(_ context.Context, questions []*model.Question) error {
	for _, q := range questions {
		q.ID = uuid.New()
		s.byID[q.ID] = q
		s.created = append(s.created, q)
	}
	return nil
}

func (s *stubQuestionStore) GetByID(_ context.Context, id uuid.UUID) (*model.Question, error) {
	q, ok := s.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *q
	return &cp, nil
}

func (s *stubQuestionStore) ListByCourse(_ context.Context, courseID uuid.UUID, _ *model.QuestionType, _, _ int) ([]model.Question, int64, error) {
	var out []model.Question
	for _, q := range s.byID {
		if q.CourseID == courseID {
			out = append(out, *q)
		}
	}
	return out, int64(len(out)), nil
}

func (s *stubQuestionStore) Update(_ context.Context, q *model.Question) error {
	s.byID[q.ID] = q
	return nil
}

func (s *stubQuestionStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	delete(s.byID, id)
	return nil
}

type questionFixture struct {
	svc       *QuestionService
	store     *stubQuestionStore
	courseID  uuid.UUID
	facultyID uuid.UUID
	studentID uuid.UUID
}

func newQuestionFixture(t *testing.T) *questionFixture {
	t.Helper()

	facultyID := uuid.New()
	courseID := uuid.New()
	studentID := uuid.New()

	store := newStubQuestionStore()
	svc := NewQuestionService(
		store,
		&stubCourses{byID: map[uuid.UUID]*model.Course{courseID: {ID: courseID, FacultyID: facultyID}}},
		&fakeEnrollmentStore{enrollments: map[uuid.UUID]*model.Enrollment{
			studentID: {CourseID: courseID, StudentID: studentID},
		}},
	)

	return &questionFixture{
		svc:       svc,
		store:     store,
		courseID:  courseID,
		facultyID: facultyID,
		studentID: studentID,
	}
}

func (f *questionFixture) seedQuestion(t *testing.T) *model.Question {
	t.Helper()
	q := &model.Question{
		CourseID: f.courseID,
		Type:     model.QuestionTypeMultipleChoice,
		Content: json.RawMessage(`{"question":"2+2?","options":["3","4"],` +
			`"correct_answer":1,"explanation":"basic arithmetic"}`),
		Points: 2,
	}
	require.NoError(t, f.store.Create(context.Background(), q))
	return q
}

func TestStudentReadsRedactedQuestions(t *testing.T) {
	f := newQuestionFixture(t)
	seeded := f.seedQuestion(t)

	q, err := f.svc.Get(context.Background(), seeded.ID, f.studentID, model.RoleStudent)
	require.NoError(t, err)

	var content model.QuestionContent
	require.NoError(t, json.Unmarshal(q.Content, &content))
	require.Equal(t, "2+2?", content.Question)
	require.Equal(t, []string{"3", "4"}, content.Options)
	require.Empty(t, content.CorrectAnswer)
	require.Empty(t, content.AcceptedAnswers)
	require.Empty(t, content.Explanation)

	questions, total, err := f.svc.List(context.Background(), f.courseID, f.studentID, model.RoleStudent, nil, 1, 20)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.NoError(t, json.Unmarshal(questions[0].Content, &content))
	require.Empty(t, content.CorrectAnswer)
}

func TestStudentReadRequiresEnrollment(t *testing.T) {
	f := newQuestionFixture(t)
	seeded := f.seedQuestion(t)
	outsider := uuid.New()

	_, _, err := f.svc.List(context.Background(), f.courseID, outsider, model.RoleStudent, nil, 1, 20)
	require.ErrorIs(t, err, ErrNotEnrolled)

	_, err = f.svc.Get(context.Background(), seeded.ID, outsider, model.RoleStudent)
	require.ErrorIs(t, err, ErrNotEnrolled)
}

func TestFacultyReadsKeepAnswerKeys(t *testing.T) {
	f := newQuestionFixture(t)
	seeded := f.seedQuestion(t)

	q, err := f.svc.Get(context.Background(), seeded.ID, f.facultyID, model.RoleFaculty)
	require.NoError(t, err)

	var content model.QuestionContent
	require.NoError(t, json.Unmarshal(q.Content, &content))
	require.NotEmpty(t, content.CorrectAnswer)
	require.Equal(t, "basic arithmetic", content.Explanation)

	// Students never get write access regardless of enrollment.
	err = f.svc.Delete(context.Background(), seeded.ID, f.studentID, model.RoleStudent)
	require.ErrorIs(t, err, ErrNotCourseOwner)
}

func TestImportCreatesBatch(t *testing.T) {
	f := newQuestionFixture(t)

	req := &model.ImportQuestionsRequest{
		CourseID: f.courseID,
		Questions: []model.ImportQuestionItem{
			{
				Type:    model.QuestionTypeMultipleChoice,
				Content: json.RawMessage(`{"question":"Capital of France?","options":["Paris","Rome"],"correct_answer":0}`),
				Points:  1,
			},
			{
				Type:    model.QuestionTypeTrueFalse,
				Content: json.RawMessage(`{"question":"The sky is green.","correct_answer":false}`),
				Points:  1,
			},
		},
	}

	imported, err := f.svc.Import(context.Background(), f.facultyID, model.RoleFaculty, req)
	require.NoError(t, err)
	require.Len(t, imported, 2)
	require.Len(t, f.store.created, 2)
	for _, q := range imported {
		require.Equal(t, f.courseID, q.CourseID)
		require.NotEqual(t, uuid.Nil, q.ID)
	}
}

func TestImportRejectsWholeBatchOnBadItem(t *testing.T) {
	f := newQuestionFixture(t)

	req := &model.ImportQuestionsRequest{
		CourseID: f.courseID,
		Questions: []model.ImportQuestionItem{
			{
				Type:    model.QuestionTypeMultipleChoice,
				Content: json.RawMessage(`{"question":"Valid?","options":["yes","no"],"correct_answer":0}`),
				Points:  1,
			},
			{
				// Choice question with a single option is invalid.
				Type:    model.QuestionTypeMultipleChoice,
				Content: json.RawMessage(`{"question":"Broken?","options":["only"],"correct_answer":0}`),
				Points:  1,
			},
		},
	}

	_, err := f.svc.Import(context.Background(), f.facultyID, model.RoleFaculty, req)
	require.ErrorIs(t, err, ErrInvalidContent)
	require.Contains(t, err.Error(), "question 1")
	require.Empty(t, f.store.created)
}

func TestImportRequiresOwnership(t *testing.T) {
	f := newQuestionFixture(t)

	req := &model.ImportQuestionsRequest{
		CourseID: f.courseID,
		Questions: []model.ImportQuestionItem{{
			Type:    model.QuestionTypeEssay,
			Content: json.RawMessage(`{"question":"Discuss."}`),
			Points:  5,
		}},
	}

	_, err := f.svc.Import(context.Background(), uuid.New(), model.RoleFaculty, req)
	require.ErrorIs(t, err, ErrNotCourseOwner)
	require.Empty(t, f.store.created)
}
