package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-taker/internal/config"
	"github.com/stemsi/exstem-taker/internal/model"
)

const (
	ResultBatchSize    = 50
	ResultBatchTimeout = 2 * time.Second
	ResultPollTimeout  = 1 * time.Second
)

// ResultStore is where graded submissions end up.
type ResultStore interface {
	Record(ctx context.Context, rec *model.SubmissionRecord) error
	RecordBatch(ctx context.Context, batch []*model.SubmissionRecord) error
}

// ResultWorker drains persist_results_queue into a ResultStore in batches.
type ResultWorker struct {
	store ResultStore
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewResultWorker(store ResultStore, rdb *redis.Client, log zerolog.Logger) *ResultWorker {
	return &ResultWorker{
		store: store,
		rdb:   rdb,
		log:   log.With().Str("component", "result_worker").Logger(),
	}
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

// Start runs until ctx is done, then flushes what it holds. Call in a goroutine.
func (w *ResultWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ResultWorker started")

	batch := make([]*model.SubmissionRecord, 0, ResultBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= ResultBatchSize || time.Since(lastFlush) >= ResultBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, ResultPollTimeout, config.WorkerKey.PersistResultsQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			rec, err := decodeResult(item[1])
			if err != nil {
				w.log.Error().Err(err).Msg("Invalid result payload, dropped")
				continue
			}

			batch = append(batch, rec)
		}
	}
}

func decodeResult(raw string) (*model.SubmissionRecord, error) {
	var rec model.SubmissionRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if rec.ExamID == "" || rec.InstanceID == "" || rec.StudentID <= 0 {
		return nil, fmt.Errorf("result for student %d on %q/%q is incomplete", rec.StudentID, rec.ExamID, rec.InstanceID)
	}
	return &rec, nil
}

// ----------------------------------------------------------------
// Batch insert with single-row fallback
// ----------------------------------------------------------------

func (w *ResultWorker) flushSafe(ctx context.Context, batch []*model.SubmissionRecord) {
	if len(batch) == 0 {
		return
	}

	err := w.store.RecordBatch(ctx, batch)
	if err == nil {
		w.log.Debug().Int("count", len(batch)).Msg("Results persisted")
		return
	}

	w.log.Warn().Err(err).Msg("bulk result insert failed, using fallback")

	for _, rec := range batch {
		if err := w.store.Record(ctx, rec); err != nil {
			w.log.Error().Err(err).
				Int("student_id", rec.StudentID).
				Str("exam_id", rec.ExamID).
				Msg("Record failed, requeueing")
			w.requeue(ctx, rec)
		}
	}
}

func (w *ResultWorker) requeue(ctx context.Context, rec *model.SubmissionRecord) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return
	}
	if err := w.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).Msg("Requeue failed, result lost")
	}
}
