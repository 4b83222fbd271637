package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// SubmissionLockKey returns the cache key that marks an exam instance as submitted by a student
func (r *CacheKeyStruct) SubmissionLockKey(examID, instanceID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:instance:%s:submitted", studentID, examID, instanceID)
}

// StudentAnswersKey returns the cache key for a student's autosaved answers
func (r *CacheKeyStruct) StudentAnswersKey(examID, instanceID string, studentID int) string {
	return fmt.Sprintf("student:%d:exam:%s:instance:%s:answers", studentID, examID, instanceID)
}

// ExamKey returns the cache key holding an exam with its answer key
func (r *CacheKeyStruct) ExamKey(examID string) string {
	return fmt.Sprintf("exam:%s:bank", examID)
}

var CacheKey = NewCacheKeyStruct()
