package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/model"
	"github.com/stemsi/exstem-taker/internal/repository"
)

// ExamStore is the source of truth for exams and their answer keys.
type ExamStore interface {
	GetExam(ctx context.Context, examID string) (*model.Exam, error)
}

// ExamCache is an optional read-through cache in front of an ExamStore.
type ExamCache interface {
	Get(ctx context.Context, examID string) (*model.Exam, error)
	Set(ctx context.Context, exam *model.Exam) error
}

// ErrCacheMiss is returned by an ExamCache that does not hold the exam.
var ErrCacheMiss = errors.New("exam not cached")

// ExamService serves exam papers and grades answers.
type ExamService struct {
	store           ExamStore
	cache           ExamCache
	defaultDuration int
	log             zerolog.Logger
}

// NewExamService creates a new ExamService. cache may be nil.
// defaultDuration is used for exams that do not set their own duration.
func NewExamService(store ExamStore, cache ExamCache, defaultDuration int, log zerolog.Logger) *ExamService {
	return &ExamService{
		store:           store,
		cache:           cache,
		defaultDuration: defaultDuration,
		log:             log.With().Str("component", "exam_service").Logger(),
	}
}

// GetExam returns an exam with its answer key, consulting the cache first.
func (s *ExamService) GetExam(ctx context.Context, examID string) (*model.Exam, error) {
	if s.cache != nil {
		exam, err := s.cache.Get(ctx, examID)
		if err == nil {
			return exam, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn().Err(err).Str("exam_id", examID).Msg("Exam cache read failed, falling back to store")
		}
	}

	exam, err := s.store.GetExam(ctx, examID)
	if err != nil {
		if errors.Is(err, repository.ErrExamNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, exam); err != nil {
			s.log.Warn().Err(err).Str("exam_id", examID).Msg("Exam cache write failed")
		}
	}
	return exam, nil
}

// GetPaper returns the student-facing paper of an exam instance.
func (s *ExamService) GetPaper(ctx context.Context, examID, instanceID string) (*model.ExamPaper, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}

	paper := exam.Paper(instanceID)
	if paper.DurationSeconds <= 0 {
		paper.DurationSeconds = s.defaultDuration
	}
	return paper, nil
}

// HasQuestion reports whether questionID belongs to the exam.
func (s *ExamService) HasQuestion(ctx context.Context, examID, questionID string) (bool, error) {
	exam, err := s.GetExam(ctx, examID)
	if err != nil {
		return false, err
	}
	for _, q := range exam.Questions {
		if q.ID == questionID {
			return true, nil
		}
	}
	return false, nil
}

// PrewarmCache loads the given exams into the cache before traffic arrives.
func (s *ExamService) PrewarmCache(ctx context.Context, exams []model.Exam) {
	if s.cache == nil || len(exams) == 0 {
		return
	}

	warmed := 0
	for i := range exams {
		if err := s.cache.Set(ctx, &exams[i]); err != nil {
			s.log.Warn().
				Err(err).
				Str("exam_id", exams[i].ID).
				Msg("Failed to warm exam, skipping")
			continue
		}
		warmed++
	}

	s.log.Info().
		Int("warmed", warmed).
		Int("total", len(exams)).
		Msg("Prewarming complete")
}

// GradeAnswers scores answers against the exam's answer key. Unanswered and
// unknown questions count as wrong; the score is a percentage.
func GradeAnswers(exam *model.Exam, answers map[string]string) model.SubmitResult {
	key := exam.AnswerKey()
	correct := 0
	for qID, correctAns := range key {
		if studentAns, ok := answers[qID]; ok && studentAns == correctAns {
			correct++
		}
	}

	total := len(key)
	var score float64
	if total > 0 {
		score = (float64(correct) / float64(total)) * 100
	}

	return model.SubmitResult{
		Success:        true,
		CorrectAnswers: correct,
		TotalQuestions: total,
		Score:          score,
	}
}
