package repository

import (
	"context"
	"sync"

	"github.com/stemsi/exstem-taker/internal/model"
)

// MemorySubmissionStore keeps graded submissions in process memory.
type MemorySubmissionStore struct {
	mu      sync.Mutex
	records []model.SubmissionRecord
}

// NewMemorySubmissionStore creates an empty store.
func NewMemorySubmissionStore() *MemorySubmissionStore {
	return &MemorySubmissionStore{}
}

// Record appends a submission.
func (s *MemorySubmissionStore) Record(_ context.Context, rec *model.SubmissionRecord) error {
	s.mu.Lock()
	s.records = append(s.records, *rec)
	s.mu.Unlock()
	return nil
}

// List returns a copy of all stored submissions in insertion order.
func (s *MemorySubmissionStore) List() []model.SubmissionRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.SubmissionRecord(nil), s.records...)
}
