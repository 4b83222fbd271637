package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/model"
	"github.com/stemsi/exstem-taker/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testExamID = "8f14e45f-ceea-4e7a-9b2f-1d3c5a6b7c80"

func testExam() model.Exam {
	opts := []model.Option{{Label: "A"}, {Label: "B"}, {Label: "C"}, {Label: "D"}}
	return model.Exam{
		ID:    testExamID,
		Title: "Sample",
		Questions: []model.BankQuestion{
			{Question: model.Question{ID: "q1", Number: 1, Options: opts}, CorrectOption: "A"},
			{Question: model.Question{ID: "q2", Number: 2, Options: opts}, CorrectOption: "B"},
			{Question: model.Question{ID: "q3", Number: 3, Options: opts}, CorrectOption: "C"},
			{Question: model.Question{ID: "q4", Number: 4, Options: opts}, CorrectOption: "D"},
		},
	}
}

type mapCache struct {
	exams  map[string]model.Exam
	gets   int
	sets   int
	getErr error
}

func newMapCache() *mapCache { return &mapCache{exams: map[string]model.Exam{}} }

func (c *mapCache) Get(_ context.Context, examID string) (*model.Exam, error) {
	c.gets++
	if c.getErr != nil {
		return nil, c.getErr
	}
	e, ok := c.exams[examID]
	if !ok {
		return nil, ErrCacheMiss
	}
	return &e, nil
}

func (c *mapCache) Set(_ context.Context, exam *model.Exam) error {
	c.sets++
	c.exams[exam.ID] = *exam
	return nil
}

type countingStore struct {
	inner ExamStore
	calls int
}

func (s *countingStore) GetExam(ctx context.Context, examID string) (*model.Exam, error) {
	s.calls++
	return s.inner.GetExam(ctx, examID)
}

func TestGradeAnswers(t *testing.T) {
	exam := testExam()

	tests := []struct {
		name    string
		answers map[string]string
		correct int
		score   float64
	}{
		{"all correct", map[string]string{"q1": "A", "q2": "B", "q3": "C", "q4": "D"}, 4, 100},
		{"half", map[string]string{"q1": "A", "q2": "B", "q3": "A", "q4": "A"}, 2, 50},
		{"none answered", map[string]string{}, 0, 0},
		{"unknown ids ignored", map[string]string{"zz": "A", "q1": "A"}, 1, 25},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := GradeAnswers(&exam, tc.answers)
			assert.True(t, res.Success)
			assert.Equal(t, tc.correct, res.CorrectAnswers)
			assert.Equal(t, 4, res.TotalQuestions)
			assert.InDelta(t, tc.score, res.Score, 0.001)
		})
	}
}

func TestExamService_GetPaper(t *testing.T) {
	svc := NewExamService(repository.NewMemoryExamStore(testExam()), nil, 3600, zerolog.Nop())

	paper, err := svc.GetPaper(context.Background(), testExamID, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, testExamID, paper.ExamID)
	assert.Equal(t, "inst-1", paper.InstanceID)
	assert.Equal(t, 3600, paper.DurationSeconds, "exam without duration gets the default")
	require.Len(t, paper.Questions, 4)
	assert.Equal(t, "q1", paper.Questions[0].ID)

	_, err = svc.GetPaper(context.Background(), "missing", "inst-1")
	assert.ErrorIs(t, err, repository.ErrExamNotFound)
}

func TestExamService_ReadThroughCache(t *testing.T) {
	store := &countingStore{inner: repository.NewMemoryExamStore(testExam())}
	cache := newMapCache()
	svc := NewExamService(store, cache, 3600, zerolog.Nop())
	ctx := context.Background()

	_, err := svc.GetExam(ctx, testExamID)
	require.NoError(t, err)
	_, err = svc.GetExam(ctx, testExamID)
	require.NoError(t, err)

	assert.Equal(t, 1, store.calls, "second read is served by the cache")
	assert.Equal(t, 1, cache.sets)
}

func TestExamService_CacheErrorFallsBack(t *testing.T) {
	store := &countingStore{inner: repository.NewMemoryExamStore(testExam())}
	cache := newMapCache()
	cache.getErr = errors.New("connection refused")
	svc := NewExamService(store, cache, 3600, zerolog.Nop())

	exam, err := svc.GetExam(context.Background(), testExamID)
	require.NoError(t, err)
	assert.Equal(t, testExamID, exam.ID)
	assert.Equal(t, 1, store.calls)
}

func TestExamService_HasQuestion(t *testing.T) {
	svc := NewExamService(repository.NewMemoryExamStore(testExam()), nil, 3600, zerolog.Nop())
	ctx := context.Background()

	ok, err := svc.HasQuestion(ctx, testExamID, "q2")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasQuestion(ctx, testExamID, "q9")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExamService_PrewarmCache(t *testing.T) {
	cache := newMapCache()
	svc := NewExamService(repository.NewMemoryExamStore(), cache, 3600, zerolog.Nop())

	svc.PrewarmCache(context.Background(), []model.Exam{testExam()})
	assert.Contains(t, cache.exams, testExamID)

	exam, err := svc.GetExam(context.Background(), testExamID)
	require.NoError(t, err, "prewarmed exam is served although the store is empty")
	assert.Len(t, exam.Questions, 4)
}
