package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// QuestionRepository handles question-bank data access.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a question and fills in the generated ID and timestamps.
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO questions (course_id, type, content, points, difficulty, topic_tags)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		q.CourseID, q.Type, q.Content, q.Points, q.Difficulty, q.TopicTags,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
}

// CreateBatch inserts a set of questions in one transaction, so an import is
// all-or-nothing.
func (r *QuestionRepository) CreateBatch(ctx context.Context, questions []*model.Question) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, q := range questions {
		if err := tx.QueryRow(ctx,
			`INSERT INTO questions (course_id, type, content, points, difficulty, topic_tags)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 RETURNING id, created_at, updated_at`,
			q.CourseID, q.Type, q.Content, q.Points, q.Difficulty, q.TopicTags,
		).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// GetByID retrieves a question by ID. Soft-deleted questions are excluded.
func (r *QuestionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Question, error) {
	q := &model.Question{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, course_id, type, content, points, difficulty, topic_tags, created_at, updated_at
		 FROM questions
		 WHERE id = $1 AND deleted_at IS NULL`, id,
	).Scan(&q.ID, &q.CourseID, &q.Type, &q.Content, &q.Points, &q.Difficulty, &q.TopicTags, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return q, nil
}

// ListByCourse retrieves a page of a course's question bank, optionally
// filtered by type, newest first.
func (r *QuestionRepository) ListByCourse(ctx context.Context, courseID uuid.UUID, qType *model.QuestionType, page, perPage int) ([]model.Question, int64, error) {
	baseQuery := ` FROM questions WHERE course_id = $1 AND deleted_at IS NULL`
	args := []any{courseID}

	if qType != nil {
		args = append(args, *qType)
		baseQuery += ` AND type = $2`
	}

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*)`+baseQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * perPage
	query := fmt.Sprintf(
		`SELECT id, course_id, type, content, points, difficulty, topic_tags, created_at, updated_at`+
			baseQuery+` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		len(args)+1, len(args)+2)
	args = append(args, perPage, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.CourseID, &q.Type, &q.Content, &q.Points, &q.Difficulty, &q.TopicTags, &q.CreatedAt, &q.UpdatedAt); err != nil {
			return nil, 0, err
		}
		questions = append(questions, q)
	}
	return questions, total, rows.Err()
}

// Update replaces the mutable fields of a question.
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions
		 SET type = $1, content = $2, points = $3, difficulty = $4, topic_tags = $5, updated_at = NOW()
		 WHERE id = $6 AND deleted_at IS NULL`,
		q.Type, q.Content, q.Points, q.Difficulty, q.TopicTags, q.ID)
	return err
}

// SoftDelete marks a question deleted. Exam papers already referencing it
// keep working because the row survives.
func (r *QuestionRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE questions SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

// CountByCourseAndIDs reports how many of the given question IDs belong to
// the course and are not deleted. Used to validate exam attachment batches.
func (r *QuestionRepository) CountByCourseAndIDs(ctx context.Context, courseID uuid.UUID, ids []uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM questions
		 WHERE course_id = $1 AND id = ANY($2) AND deleted_at IS NULL`,
		courseID, ids,
	).Scan(&count)
	return count, err
}
