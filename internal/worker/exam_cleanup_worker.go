package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

type expiredExamDeactivator interface {
	DeactivateExpired(ctx context.Context) (int64, error)
}

// ExamCleanupWorker periodically deactivates exams whose window has closed,
// so stale exams stop accepting new sessions even if nobody touches them.
type ExamCleanupWorker struct {
	exams    expiredExamDeactivator
	interval time.Duration
	log      zerolog.Logger
}

func NewExamCleanupWorker(exams expiredExamDeactivator, interval time.Duration, log zerolog.Logger) *ExamCleanupWorker {
	return &ExamCleanupWorker{
		exams:    exams,
		interval: interval,
		log:      log.With().Str("component", "exam_cleanup_worker").Logger(),
	}
}

// Start runs one sweep immediately, then one per interval until the context
// is cancelled.
func (w *ExamCleanupWorker) Start(ctx context.Context) {
	w.log.Info().Dur("interval", w.interval).Msg("ExamCleanupWorker started")

	w.sweep(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("ExamCleanupWorker stopping")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ExamCleanupWorker) sweep(ctx context.Context) {
	deactivated, err := w.exams.DeactivateExpired(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error().Err(err).Msg("Cleanup sweep failed")
		return
	}
	if deactivated > 0 {
		w.log.Info().Int64("count", deactivated).Msg("Deactivated expired exams")
	}
}
