package service

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-taker/internal/config"
)

// AnswerStore keeps the autosaved answers of in-progress exam instances.
type AnswerStore interface {
	SaveAnswer(ctx context.Context, examID, instanceID string, studentID int, questionID, option string) error
	Answers(ctx context.Context, examID, instanceID string, studentID int) (map[string]string, error)
	Clear(ctx context.Context, examID, instanceID string, studentID int) error
}

// RedisAnswerStore keeps autosaved answers in a Redis hash per instance.
type RedisAnswerStore struct {
	rdb *redis.Client
}

// NewRedisAnswerStore creates a new RedisAnswerStore.
func NewRedisAnswerStore(rdb *redis.Client) *RedisAnswerStore {
	return &RedisAnswerStore{rdb: rdb}
}

func (s *RedisAnswerStore) SaveAnswer(ctx context.Context, examID, instanceID string, studentID int, questionID, option string) error {
	return s.rdb.HSet(ctx, config.CacheKey.StudentAnswersKey(examID, instanceID, studentID), questionID, option).Err()
}

func (s *RedisAnswerStore) Answers(ctx context.Context, examID, instanceID string, studentID int) (map[string]string, error) {
	return s.rdb.HGetAll(ctx, config.CacheKey.StudentAnswersKey(examID, instanceID, studentID)).Result()
}

func (s *RedisAnswerStore) Clear(ctx context.Context, examID, instanceID string, studentID int) error {
	return s.rdb.Del(ctx, config.CacheKey.StudentAnswersKey(examID, instanceID, studentID)).Err()
}

// MemoryAnswerStore keeps autosaved answers in process memory.
type MemoryAnswerStore struct {
	mu      sync.Mutex
	answers map[string]map[string]string
}

// NewMemoryAnswerStore creates an empty MemoryAnswerStore.
func NewMemoryAnswerStore() *MemoryAnswerStore {
	return &MemoryAnswerStore{answers: make(map[string]map[string]string)}
}

func (s *MemoryAnswerStore) SaveAnswer(_ context.Context, examID, instanceID string, studentID int, questionID, option string) error {
	key := config.CacheKey.StudentAnswersKey(examID, instanceID, studentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.answers[key]
	if !ok {
		m = make(map[string]string)
		s.answers[key] = m
	}
	m[questionID] = option
	return nil
}

func (s *MemoryAnswerStore) Answers(_ context.Context, examID, instanceID string, studentID int) (map[string]string, error) {
	key := config.CacheKey.StudentAnswersKey(examID, instanceID, studentID)

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.answers[key]))
	for q, a := range s.answers[key] {
		out[q] = a
	}
	return out, nil
}

func (s *MemoryAnswerStore) Clear(_ context.Context, examID, instanceID string, studentID int) error {
	s.mu.Lock()
	delete(s.answers, config.CacheKey.StudentAnswersKey(examID, instanceID, studentID))
	s.mu.Unlock()
	return nil
}
