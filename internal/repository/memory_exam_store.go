package repository

import (
	"context"
	"sync"

	"github.com/stemsi/exstem-taker/internal/model"
)

// MemoryExamStore keeps exams in process memory. It backs the server when no
// DATABASE_URL is configured, and the handler tests.
type MemoryExamStore struct {
	mu    sync.RWMutex
	exams map[string]model.Exam
}

// NewMemoryExamStore creates a store holding the given exams.
func NewMemoryExamStore(exams ...model.Exam) *MemoryExamStore {
	s := &MemoryExamStore{exams: make(map[string]model.Exam, len(exams))}
	for _, e := range exams {
		s.exams[e.ID] = e
	}
	return s
}

// GetExam returns a copy of the exam with the given ID.
func (s *MemoryExamStore) GetExam(_ context.Context, examID string) (*model.Exam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.exams[examID]
	if !ok {
		return nil, ErrExamNotFound
	}
	e.Questions = append([]model.BankQuestion(nil), e.Questions...)
	return &e, nil
}

// Put inserts or replaces an exam.
func (s *MemoryExamStore) Put(e model.Exam) {
	s.mu.Lock()
	s.exams[e.ID] = e
	s.mu.Unlock()
}
