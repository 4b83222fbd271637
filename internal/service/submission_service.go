package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/model"
)

// Submission errors.
var (
	ErrAlreadySubmitted = errors.New("exam instance already submitted")
	ErrInvalidReason    = errors.New("invalid submission reason")
)

// SubmissionGuard marks an exam instance as submitted exactly once.
// Acquire returns false when the key is already held.
type SubmissionGuard interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

// ResultSink receives graded submissions for persistence.
type ResultSink interface {
	Record(ctx context.Context, rec *model.SubmissionRecord) error
}

// SubmissionService grades submissions and rejects duplicates.
type SubmissionService struct {
	exams   *ExamService
	guard   SubmissionGuard
	sink    ResultSink
	answers AnswerStore
	log     zerolog.Logger
	now     func() time.Time
}

// NewSubmissionService creates a new SubmissionService.
func NewSubmissionService(exams *ExamService, guard SubmissionGuard, sink ResultSink, answers AnswerStore, log zerolog.Logger) *SubmissionService {
	return &SubmissionService{
		exams:   exams,
		guard:   guard,
		sink:    sink,
		answers: answers,
		log:     log.With().Str("component", "submission_service").Logger(),
		now:     time.Now,
	}
}

// Submit grades the answers of one exam instance for a student.
// A second call for the same instance returns ErrAlreadySubmitted.
func (s *SubmissionService) Submit(ctx context.Context, studentID int, examID, instanceID string, req *model.SubmitExamRequest) (*model.SubmitResult, error) {
	if !req.Reason.Valid() {
		return nil, ErrInvalidReason
	}

	exam, err := s.exams.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	lockKey := config.CacheKey.SubmissionLockKey(examID, instanceID, studentID)
	acquired, err := s.guard.Acquire(ctx, lockKey)
	if err != nil {
		return nil, fmt.Errorf("acquire submission lock: %w", err)
	}
	if !acquired {
		s.log.Info().
			Int("student_id", studentID).
			Str("exam_id", examID).
			Str("instance_id", instanceID).
			Msg("Duplicate submission rejected")
		return nil, ErrAlreadySubmitted
	}

	result := GradeAnswers(exam, req.Answers)

	rec := &model.SubmissionRecord{
		ExamID:         examID,
		InstanceID:     instanceID,
		StudentID:      studentID,
		Reason:         req.Reason,
		Answers:        req.Answers,
		CorrectAnswers: result.CorrectAnswers,
		TotalQuestions: result.TotalQuestions,
		Score:          result.Score,
		SubmittedAt:    s.now().UTC(),
	}

	if err := s.sink.Record(ctx, rec); err != nil {
		// Let the student retry: nothing was stored.
		if relErr := s.guard.Release(ctx, lockKey); relErr != nil {
			s.log.Error().Err(relErr).Str("key", lockKey).Msg("Failed to release submission lock")
		}
		return nil, fmt.Errorf("record submission: %w", err)
	}

	if s.answers != nil {
		s.retireAutosave(ctx, studentID, examID, instanceID, req.Answers)
	}

	s.log.Info().
		Int("student_id", studentID).
		Str("exam_id", examID).
		Str("instance_id", instanceID).
		Str("reason", string(req.Reason)).
		Float64("score", result.Score).
		Int("correct", result.CorrectAnswers).
		Int("total", result.TotalQuestions).
		Msg("Exam submitted and graded")

	return &result, nil
}

// retireAutosave logs how far the autosaved answers drifted from the submitted
// ones, then drops them. Only the submission is graded.
func (s *SubmissionService) retireAutosave(ctx context.Context, studentID int, examID, instanceID string, submitted map[string]string) {
	log := s.log.With().
		Int("student_id", studentID).
		Str("exam_id", examID).
		Str("instance_id", instanceID).
		Logger()

	saved, err := s.answers.Answers(ctx, examID, instanceID, studentID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read autosaved answers")
	} else if drift := autosaveDrift(saved, submitted); drift > 0 {
		log.Info().
			Int("autosaved", len(saved)).
			Int("differing", drift).
			Msg("Submission differs from autosaved answers")
	}

	if err := s.answers.Clear(ctx, examID, instanceID, studentID); err != nil {
		log.Warn().Err(err).Msg("Failed to clear autosaved answers")
	}
}

// autosaveDrift counts autosaved answers the submission does not carry as is.
func autosaveDrift(saved, submitted map[string]string) int {
	drift := 0
	for qid, opt := range saved {
		if submitted[qid] != opt {
			drift++
		}
	}
	return drift
}
