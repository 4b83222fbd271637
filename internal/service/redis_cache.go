package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/model"
)

// RedisExamCache caches whole exams, answer key included, as JSON strings.
type RedisExamCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisExamCache creates a new RedisExamCache.
func NewRedisExamCache(rdb *redis.Client, ttl time.Duration) *RedisExamCache {
	return &RedisExamCache{rdb: rdb, ttl: ttl}
}

func (c *RedisExamCache) Get(ctx context.Context, examID string) (*model.Exam, error) {
	data, err := c.rdb.Get(ctx, config.CacheKey.ExamKey(examID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get exam cache: %w", err)
	}

	var exam model.Exam
	if err := json.Unmarshal(data, &exam); err != nil {
		return nil, fmt.Errorf("unmarshal exam cache: %w", err)
	}
	return &exam, nil
}

func (c *RedisExamCache) Set(ctx context.Context, exam *model.Exam) error {
	data, err := json.Marshal(exam)
	if err != nil {
		return fmt.Errorf("marshal exam: %w", err)
	}
	return c.rdb.Set(ctx, config.CacheKey.ExamKey(exam.ID), data, c.ttl).Err()
}

// RedisResultQueue pushes graded submissions onto the persistence queue
// drained by worker.ResultWorker.
type RedisResultQueue struct {
	rdb *redis.Client
}

// NewRedisResultQueue creates a new RedisResultQueue.
func NewRedisResultQueue(rdb *redis.Client) *RedisResultQueue {
	return &RedisResultQueue{rdb: rdb}
}

func (q *RedisResultQueue) Record(ctx context.Context, rec *model.SubmissionRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	return q.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err()
}
