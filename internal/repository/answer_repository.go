package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// AnswerRepository handles saved-answer data access.
type AnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAnswerRepository creates a new AnswerRepository.
func NewAnswerRepository(pool *pgxpool.Pool) *AnswerRepository {
	return &AnswerRepository{pool: pool}
}

// UpsertBatch saves a batch of answers, one upsert per pair so every pair is
// independent: a failure partway leaves earlier pairs saved. Returns the
// number of pairs written.
func (r *AnswerRepository) UpsertBatch(ctx context.Context, sessionID uuid.UUID, answers []model.AnswerInput) (int, error) {
	saved := 0
	for _, a := range answers {
		_, err := r.pool.Exec(ctx,
			`INSERT INTO answers (session_id, question_id, response)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (session_id, question_id)
			 DO UPDATE SET response = EXCLUDED.response, updated_at = NOW()`,
			sessionID, a.QuestionID, a.Response)
		if err != nil {
			return saved, err
		}
		saved++
	}
	return saved, nil
}

// ListBySession retrieves all saved answers of a session in question order.
func (r *AnswerRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]model.Answer, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, session_id, question_id, response, created_at, updated_at
		 FROM answers
		 WHERE session_id = $1
		 ORDER BY created_at ASC`, sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []model.Answer
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.SessionID, &a.QuestionID, &a.Response, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}
