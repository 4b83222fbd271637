package service

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSubmissionGuard holds submission locks as Redis keys set with SETNX,
// so duplicates are rejected across server replicas.
type RedisSubmissionGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSubmissionGuard creates a guard whose locks expire after ttl.
// A zero ttl keeps them forever.
func NewRedisSubmissionGuard(rdb *redis.Client, ttl time.Duration) *RedisSubmissionGuard {
	return &RedisSubmissionGuard{rdb: rdb, ttl: ttl}
}

func (g *RedisSubmissionGuard) Acquire(ctx context.Context, key string) (bool, error) {
	return g.rdb.SetNX(ctx, key, time.Now().Unix(), g.ttl).Result()
}

func (g *RedisSubmissionGuard) Release(ctx context.Context, key string) error {
	return g.rdb.Del(ctx, key).Err()
}

// MemorySubmissionGuard holds submission locks in process memory.
type MemorySubmissionGuard struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewMemorySubmissionGuard creates an empty MemorySubmissionGuard.
func NewMemorySubmissionGuard() *MemorySubmissionGuard {
	return &MemorySubmissionGuard{held: make(map[string]struct{})}
}

func (g *MemorySubmissionGuard) Acquire(_ context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.held[key]; ok {
		return false, nil
	}
	g.held[key] = struct{}{}
	return true, nil
}

func (g *MemorySubmissionGuard) Release(_ context.Context, key string) error {
	g.mu.Lock()
	delete(g.held, key)
	g.mu.Unlock()
	return nil
}
