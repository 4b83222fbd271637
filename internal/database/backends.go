package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/config"
)

// Backends holds the optional storage connections of the server.
// A nil field means the backend is not configured and memory stores are used.
type Backends struct {
	Pool  *pgxpool.Pool
	Redis *redis.Client
}

// Open connects to every backend whose URL is set in cfg.
func Open(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Backends, error) {
	b := &Backends{}

	if cfg.DatabaseURL != "" {
		pool, err := NewPostgresPool(ctx, cfg, log)
		if err != nil {
			return nil, err
		}
		b.Pool = pool
	} else {
		log.Warn().Msg("DATABASE_URL not set, exams and results are kept in memory")
	}

	if cfg.RedisURL != "" {
		rdb, err := NewRedisClient(ctx, cfg, log)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Redis = rdb
	} else {
		log.Warn().Msg("REDIS_URL not set, submission locks and autosave are kept in memory")
	}

	return b, nil
}

// Close releases every open connection.
func (b *Backends) Close() {
	if b.Pool != nil {
		b.Pool.Close()
	}
	if b.Redis != nil {
		_ = b.Redis.Close()
	}
}
