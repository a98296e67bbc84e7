package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/seonix/seonix-backend/internal/config"
	"github.com/seonix/seonix-backend/internal/queue"
)

const (
	BatchSize    = 50
	BatchTimeout = 2 * time.Second
	PollTimeout  = 1 * time.Second // Must be >= 1s to satisfy Redis
)

// ExamStatsWorker drains the stats queue and folds attempt/violation events
// into the exams table in batches. Events for the same exam coalesce into a
// single UPDATE per flush.
type ExamStatsWorker struct {
	pool *pgxpool.Pool
	rdb  *redis.Client
	log  zerolog.Logger
}

func NewExamStatsWorker(pool *pgxpool.Pool, rdb *redis.Client, log zerolog.Logger) *ExamStatsWorker {
	return &ExamStatsWorker{
		pool: pool,
		rdb:  rdb,
		log:  log.With().Str("component", "exam_stats_worker").Logger(),
	}
}

func (w *ExamStatsWorker) Start(ctx context.Context) {
	w.log.Info().Msg("ExamStatsWorker started")

	buffer := make([]*queue.StatsEvent, 0, BatchSize)
	lastFlushTime := time.Now()

	for {
		if len(buffer) > 0 {
			if len(buffer) >= BatchSize || time.Since(lastFlushTime) >= BatchTimeout {
				w.flush(ctx, buffer)
				buffer = buffer[:0]
				lastFlushTime = time.Now()
			}
		}

		select {
		case <-ctx.Done():
			w.shutdown(buffer)
			return
		default:
		}

		result, err := w.rdb.BLPop(ctx, PollTimeout, config.WorkerKey.PersistExamStatsQueue).Result()
		if err != nil {
			if err == redis.Nil {
				continue // Queue empty, loop back to check flush timer
			}
			if ctx.Err() != nil {
				return
			}
			w.log.Error().Err(err).Msg("Redis connection error, sleeping 3s")
			time.Sleep(3 * time.Second)
			continue
		}

		if len(result) < 2 {
			continue
		}

		var event queue.StatsEvent
		if err := json.Unmarshal([]byte(result[1]), &event); err != nil {
			// Malformed JSON cannot be retried. Log and discard.
			w.log.Error().Err(err).Str("data", result[1]).Msg("Discarding malformed stats event")
			continue
		}
		buffer = append(buffer, &event)
	}
}

type statsDelta struct {
	attempts   int
	violations int
}

// flush coalesces the batch per exam and applies one counter update each.
// Failed updates are requeued as synthetic events so nothing is lost while
// the database is down.
func (w *ExamStatsWorker) flush(ctx context.Context, batch []*queue.StatsEvent) {
	deltas := make(map[uuid.UUID]statsDelta)
	for _, event := range batch {
		examID, err := uuid.Parse(event.ExamID)
		if err != nil {
			w.log.Error().Str("exam_id", event.ExamID).Msg("Dropping stats event with invalid UUID")
			continue
		}
		d := deltas[examID]
		switch event.Kind {
		case queue.StatsKindAttempt:
			d.attempts++
		case queue.StatsKindViolation:
			d.violations++
		default:
			w.log.Error().Str("kind", event.Kind).Msg("Dropping stats event with unknown kind")
			continue
		}
		deltas[examID] = d
	}

	requeueList := make([]*queue.StatsEvent, 0)
	for examID, d := range deltas {
		_, err := w.pool.Exec(ctx,
			`UPDATE exams
			 SET total_attempts   = total_attempts + $1,
			     total_violations = total_violations + $2,
			     updated_at       = NOW()
			 WHERE id = $3`, d.attempts, d.violations, examID)
		if err != nil {
			w.log.Error().Err(err).Str("exam_id", examID.String()).Msg("Stats update failed, requeueing")
			requeueList = append(requeueList, expand(examID, d)...)
		}
	}

	if len(requeueList) > 0 {
		w.requeue(ctx, requeueList)
	}
}

func expand(examID uuid.UUID, d statsDelta) []*queue.StatsEvent {
	events := make([]*queue.StatsEvent, 0, d.attempts+d.violations)
	now := time.Now().Unix()
	for i := 0; i < d.attempts; i++ {
		events = append(events, &queue.StatsEvent{ExamID: examID.String(), Kind: queue.StatsKindAttempt, Timestamp: now})
	}
	for i := 0; i < d.violations; i++ {
		events = append(events, &queue.StatsEvent{ExamID: examID.String(), Kind: queue.StatsKindViolation, Timestamp: now})
	}
	return events
}

func (w *ExamStatsWorker) requeue(ctx context.Context, items []*queue.StatsEvent) {
	pipe := w.rdb.Pipeline()
	for _, event := range items {
		data, _ := json.Marshal(event)
		pipe.RPush(ctx, config.WorkerKey.PersistExamStatsQueue, data)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("CRITICAL: Failed to requeue stats events. Data loss occurred.")
		return
	}
	w.log.Info().Int("count", len(items)).Msg("Requeued failed stats events")
	// Avoid thrashing while the database is down hard.
	time.Sleep(2 * time.Second)
}

func (w *ExamStatsWorker) shutdown(buffer []*queue.StatsEvent) {
	w.log.Info().Msg("Worker stopping, flushing remaining buffer...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if len(buffer) > 0 {
		w.flush(shutdownCtx, buffer)
	}
}
