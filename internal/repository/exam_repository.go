package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-taker/internal/model"
)

// ExamRepository handles exam and question data access in PostgreSQL.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetExam retrieves an exam with its questions ordered by number.
func (r *ExamRepository) GetExam(ctx context.Context, examID string) (*model.Exam, error) {
	id, err := uuid.Parse(examID)
	if err != nil {
		return nil, ErrExamNotFound
	}

	e := &model.Exam{ID: id.String()}
	err = r.pool.QueryRow(ctx,
		`SELECT title, duration_seconds FROM exams WHERE id = $1`, id,
	).Scan(&e.Title, &e.DurationSeconds)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrExamNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get exam: %w", err)
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, number, question_text, options, correct_option
		 FROM questions WHERE exam_id = $1
		 ORDER BY number`, id,
	)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var q model.BankQuestion
		if err := rows.Scan(&q.ID, &q.Number, &q.Text, &q.Options, &q.CorrectOption); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		e.Questions = append(e.Questions, q)
	}
	return e, rows.Err()
}

// Import upserts exams and replaces their question sets in one transaction.
func (r *ExamRepository) Import(ctx context.Context, exams []model.Exam) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range exams {
		id, err := uuid.Parse(e.ID)
		if err != nil {
			return fmt.Errorf("exam %q: %w", e.ID, err)
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO exams (id, title, duration_seconds)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (id) DO UPDATE
			 SET title = EXCLUDED.title, duration_seconds = EXCLUDED.duration_seconds, updated_at = NOW()`,
			id, e.Title, e.DurationSeconds,
		); err != nil {
			return fmt.Errorf("upsert exam %s: %w", e.ID, err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM questions WHERE exam_id = $1`, id); err != nil {
			return fmt.Errorf("clear questions %s: %w", e.ID, err)
		}

		questions := e.Questions
		if _, err := tx.CopyFrom(
			ctx,
			pgx.Identifier{"questions"},
			[]string{"exam_id", "id", "number", "question_text", "options", "correct_option"},
			pgx.CopyFromSlice(len(questions), func(i int) ([]interface{}, error) {
				q := questions[i]
				return []interface{}{id, q.ID, q.Number, q.Text, q.Options, q.CorrectOption}, nil
			}),
		); err != nil {
			return fmt.Errorf("copy questions %s: %w", e.ID, err)
		}
	}

	return tx.Commit(ctx)
}
