package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stemsi/exstem-taker/internal/model"
)

// SubmissionRepository persists graded submissions in PostgreSQL.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Record inserts a single submission. A row already stored for the same
// exam, instance and student is left untouched.
func (r *SubmissionRepository) Record(ctx context.Context, rec *model.SubmissionRecord) error {
	examID, err := uuid.Parse(rec.ExamID)
	if err != nil {
		return fmt.Errorf("parse exam id: %w", err)
	}
	instanceID, err := uuid.Parse(rec.InstanceID)
	if err != nil {
		return fmt.Errorf("parse instance id: %w", err)
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_submissions
		   (exam_id, instance_id, student_id, reason, answers, correct_answers, total_questions, score, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (exam_id, instance_id, student_id) DO NOTHING`,
		examID, instanceID, rec.StudentID, string(rec.Reason), rec.Answers,
		rec.CorrectAnswers, rec.TotalQuestions, rec.Score, rec.SubmittedAt,
	)
	return err
}

// RecordBatch inserts many submissions in one statement using UNNEST.
func (r *SubmissionRepository) RecordBatch(ctx context.Context, batch []*model.SubmissionRecord) error {
	n := len(batch)
	if n == 0 {
		return nil
	}

	examIDs := make([]uuid.UUID, 0, n)
	instanceIDs := make([]uuid.UUID, 0, n)
	students := make([]int, 0, n)
	reasons := make([]string, 0, n)
	answers := make([]string, 0, n)
	correct := make([]int, 0, n)
	totals := make([]int, 0, n)
	scores := make([]float64, 0, n)
	submittedAts := make([]time.Time, 0, n)

	for _, rec := range batch {
		eID, err := uuid.Parse(rec.ExamID)
		if err != nil {
			return err
		}
		iID, err := uuid.Parse(rec.InstanceID)
		if err != nil {
			return err
		}
		raw, err := json.Marshal(rec.Answers)
		if err != nil {
			return err
		}

		examIDs = append(examIDs, eID)
		instanceIDs = append(instanceIDs, iID)
		students = append(students, rec.StudentID)
		reasons = append(reasons, string(rec.Reason))
		answers = append(answers, string(raw))
		correct = append(correct, rec.CorrectAnswers)
		totals = append(totals, rec.TotalQuestions)
		scores = append(scores, rec.Score)
		submittedAts = append(submittedAts, rec.SubmittedAt)
	}

	query := `
		INSERT INTO exam_submissions
			(exam_id, instance_id, student_id, reason, answers, correct_answers, total_questions, score, submitted_at)
		SELECT
			u.exam_id,
			u.instance_id,
			u.student_id,
			u.reason,
			u.answers::jsonb,
			u.correct_answers,
			u.total_questions,
			u.score,
			u.submitted_at
		FROM UNNEST(
			$1::uuid[],
			$2::uuid[],
			$3::int[],
			$4::text[],
			$5::text[],
			$6::int[],
			$7::int[],
			$8::float8[],
			$9::timestamptz[]
		) AS u (exam_id, instance_id, student_id, reason, answers, correct_answers, total_questions, score, submitted_at)
		ON CONFLICT (exam_id, instance_id, student_id) DO NOTHING
	`

	_, err := r.pool.Exec(ctx, query,
		examIDs, instanceIDs, students, reasons, answers, correct, totals, scores, submittedAts)
	return err
}
