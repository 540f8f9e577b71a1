package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// ExamRepository handles exam and exam-rules data access.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// Create inserts an exam together with its rules row in one transaction.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO exams (course_id, title, instructions, duration_minutes, start_at, end_at, proctoring_level, status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING id, is_published, created_at, updated_at`,
		e.CourseID, e.Title, e.Instructions, e.DurationMinutes, e.StartAt, e.EndAt, e.ProctoringLevel, e.Status,
	).Scan(&e.ID, &e.IsPublished, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return err
	}

	if e.Rules != nil {
		e.Rules.ExamID = e.ID
		if _, err := tx.Exec(ctx,
			`INSERT INTO exam_rules (exam_id, shuffle_questions, shuffle_choices, max_attempts, negative_marking_factor, pass_threshold, allow_calculator, allow_formula_sheet)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, e.Rules.ShuffleQuestions, e.Rules.ShuffleChoices, e.Rules.MaxAttempts,
			e.Rules.NegativeMarkingFactor, e.Rules.PassThreshold, e.Rules.AllowCalculator, e.Rules.AllowFormulaSheet,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// GetByID retrieves an exam with its rules row joined in. Rules stay nil when
// no row exists; callers fall back to defaults.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	rules := &model.ExamRules{}
	var hasRules *uuid.UUID

	err := r.pool.QueryRow(ctx,
		`SELECT e.id, e.course_id, e.title, e.instructions, e.duration_minutes,
		        e.start_at, e.end_at, e.proctoring_level, e.status, e.is_published,
		        e.created_at, e.updated_at,
		        er.exam_id,
		        COALESCE(er.shuffle_questions, TRUE), COALESCE(er.shuffle_choices, TRUE),
		        COALESCE(er.max_attempts, 1), COALESCE(er.negative_marking_factor, 0),
		        COALESCE(er.pass_threshold, 60), COALESCE(er.allow_calculator, FALSE),
		        COALESCE(er.allow_formula_sheet, FALSE)
		 FROM exams e
		 LEFT JOIN exam_rules er ON er.exam_id = e.id
		 WHERE e.id = $1 AND e.deleted_at IS NULL`, id,
	).Scan(
		&e.ID, &e.CourseID, &e.Title, &e.Instructions, &e.DurationMinutes,
		&e.StartAt, &e.EndAt, &e.ProctoringLevel, &e.Status, &e.IsPublished,
		&e.CreatedAt, &e.UpdatedAt,
		&hasRules,
		&rules.ShuffleQuestions, &rules.ShuffleChoices,
		&rules.MaxAttempts, &rules.NegativeMarkingFactor,
		&rules.PassThreshold, &rules.AllowCalculator,
		&rules.AllowFormulaSheet,
	)
	if err != nil {
		return nil, err
	}
	if hasRules != nil {
		rules.ExamID = e.ID
		e.Rules = rules
	}
	return e, nil
}

// ListByCourse retrieves all exams of a course, newest window first.
func (r *ExamRepository) ListByCourse(ctx context.Context, courseID uuid.UUID) ([]model.Exam, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, course_id, title, instructions, duration_minutes, start_at, end_at,
		        proctoring_level, status, is_published, created_at, updated_at
		 FROM exams
		 WHERE course_id = $1 AND deleted_at IS NULL
		 ORDER BY start_at DESC`, courseID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var exams []model.Exam
	for rows.Next() {
		var e model.Exam
		if err := rows.Scan(
			&e.ID, &e.CourseID, &e.Title, &e.Instructions, &e.DurationMinutes,
			&e.StartAt, &e.EndAt, &e.ProctoringLevel, &e.Status, &e.IsPublished,
			&e.CreatedAt, &e.UpdatedAt,
		); err != nil {
			return nil, err
		}
		exams = append(exams, e)
	}
	return exams, rows.Err()
}

// Update replaces the mutable exam fields and upserts the rules row.
func (r *ExamRepository) Update(ctx context.Context, e *model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`UPDATE exams
		 SET title = $1, instructions = $2, duration_minutes = $3, start_at = $4, end_at = $5,
		     proctoring_level = $6, status = $7, updated_at = NOW()
		 WHERE id = $8 AND deleted_at IS NULL`,
		e.Title, e.Instructions, e.DurationMinutes, e.StartAt, e.EndAt,
		e.ProctoringLevel, e.Status, e.ID,
	); err != nil {
		return err
	}

	if e.Rules != nil {
		if _, err := tx.Exec(ctx,
			`INSERT INTO exam_rules (exam_id, shuffle_questions, shuffle_choices, max_attempts, negative_marking_factor, pass_threshold, allow_calculator, allow_formula_sheet)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			 ON CONFLICT (exam_id) DO UPDATE SET
			     shuffle_questions = EXCLUDED.shuffle_questions,
			     shuffle_choices = EXCLUDED.shuffle_choices,
			     max_attempts = EXCLUDED.max_attempts,
			     negative_marking_factor = EXCLUDED.negative_marking_factor,
			     pass_threshold = EXCLUDED.pass_threshold,
			     allow_calculator = EXCLUDED.allow_calculator,
			     allow_formula_sheet = EXCLUDED.allow_formula_sheet`,
			e.ID, e.Rules.ShuffleQuestions, e.Rules.ShuffleChoices, e.Rules.MaxAttempts,
			e.Rules.NegativeMarkingFactor, e.Rules.PassThreshold, e.Rules.AllowCalculator, e.Rules.AllowFormulaSheet,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// SetPublished flips the publish flag. Publishing also moves the exam out of
// DRAFT so it shows up on student schedules.
func (r *ExamRepository) SetPublished(ctx context.Context, id uuid.UUID, published bool) error {
	status := model.ExamStatusDraft
	if published {
		status = model.ExamStatusScheduled
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET is_published = $1, status = $2, updated_at = NOW()
		 WHERE id = $3 AND deleted_at IS NULL`,
		published, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// SoftDelete marks an exam deleted.
func (r *ExamRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams SET deleted_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	return err
}

// AddQuestions appends questions to an exam after the current highest order
// index. Duplicate attachments are ignored.
func (r *ExamRepository) AddQuestions(ctx context.Context, examID uuid.UUID, questionIDs []uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var next int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(order_index), -1) + 1 FROM exam_questions WHERE exam_id = $1`,
		examID,
	).Scan(&next); err != nil {
		return err
	}

	for i, qid := range questionIDs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO exam_questions (exam_id, question_id, order_index)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (exam_id, question_id) DO NOTHING`,
			examID, qid, next+i,
		); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// RemoveQuestion detaches a question from an exam.
func (r *ExamRepository) RemoveQuestion(ctx context.Context, examID, questionID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM exam_questions WHERE exam_id = $1 AND question_id = $2`,
		examID, questionID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// ListQuestions retrieves the student-facing questions of an exam in order,
// with answer keys stripped at the SQL layer.
func (r *ExamRepository) ListQuestions(ctx context.Context, examID uuid.UUID) ([]model.QuestionForStudent, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT q.id, q.type,
		        COALESCE(q.content->>'question', ''),
		        COALESCE(q.content->'options', 'null'::jsonb),
		        q.points, eq.order_index
		 FROM exam_questions eq
		 JOIN questions q ON q.id = eq.question_id
		 WHERE eq.exam_id = $1
		 ORDER BY eq.order_index ASC`, examID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.QuestionForStudent
	for rows.Next() {
		var q model.QuestionForStudent
		if err := rows.Scan(&q.ID, &q.Type, &q.Prompt, &q.Options, &q.Points, &q.OrderIndex); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// CountQuestions returns the number of questions attached to an exam.
func (r *ExamRepository) CountQuestions(ctx context.Context, examID uuid.UUID) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM exam_questions WHERE exam_id = $1`, examID,
	).Scan(&count)
	return count, err
}
