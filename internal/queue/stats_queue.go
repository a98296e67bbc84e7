// Package queue publishes advisory exam-statistics events to Redis for
// asynchronous persistence by the stats worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/seonix/seonix-backend/internal/config"
)

// StatsEvent is the wire payload pushed onto the stats queue. Kind is either
// "attempt" or "violation"; the worker folds each into the matching exam
// counter.
type StatsEvent struct {
	ExamID    string `json:"exam_id"`
	Kind      string `json:"kind"`
	Timestamp int64  `json:"timestamp"`
}

const (
	StatsKindAttempt   = "attempt"
	StatsKindViolation = "violation"
)

// ExamStatsQueue is the producer side of the stats pipeline. It satisfies
// service.StatsRecorder.
type ExamStatsQueue struct {
	rdb *redis.Client
}

func NewExamStatsQueue(rdb *redis.Client) *ExamStatsQueue {
	return &ExamStatsQueue{rdb: rdb}
}

func (q *ExamStatsQueue) RecordAttempt(ctx context.Context, examID uuid.UUID) error {
	return q.push(ctx, examID, StatsKindAttempt)
}

func (q *ExamStatsQueue) RecordViolation(ctx context.Context, examID uuid.UUID) error {
	return q.push(ctx, examID, StatsKindViolation)
}

func (q *ExamStatsQueue) push(ctx context.Context, examID uuid.UUID, kind string) error {
	data, err := json.Marshal(StatsEvent{
		ExamID:    examID.String(),
		Kind:      kind,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal stats event: %w", err)
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.PersistExamStatsQueue, data).Err(); err != nil {
		return fmt.Errorf("push stats event: %w", err)
	}
	return nil
}
