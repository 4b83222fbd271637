package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/response"
)

const healthCheckTimeout = 2 * time.Second

// SystemHandler reports server health. Both backends are optional.
type SystemHandler struct {
	rdb       *redis.Client
	pool      *pgxpool.Pool
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(rdb *redis.Client, pool *pgxpool.Pool, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:       rdb,
		pool:      pool,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthStatus struct {
	Status       string            `json:"status"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
	QueueResults *int64            `json:"queue_results,omitempty"`
}

// Health godoc
// GET /health
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	st := healthStatus{
		Status:       "ok",
		Uptime:       formatDuration(time.Since(h.startTime)),
		Dependencies: map[string]string{"postgres": "disabled", "redis": "disabled"},
	}

	if h.pool != nil {
		st.Dependencies["postgres"] = "ok"
		if err := h.pool.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Msg("PostgreSQL ping failed")
			st.Dependencies["postgres"] = "down"
			st.Status = "degraded"
		}
	}

	if h.rdb != nil {
		st.Dependencies["redis"] = "ok"
		pipe := h.rdb.Pipeline()
		pingCmd := pipe.Ping(ctx)
		queueCmd := pipe.LLen(ctx, config.WorkerKey.PersistResultsQueue)
		_, _ = pipe.Exec(ctx)
		if err := pingCmd.Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis ping failed")
			st.Dependencies["redis"] = "down"
			st.Status = "degraded"
		} else if n, err := queueCmd.Result(); err == nil {
			st.QueueResults = &n
		}
	}

	code := http.StatusOK
	if st.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	response.Success(c, code, st)
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
