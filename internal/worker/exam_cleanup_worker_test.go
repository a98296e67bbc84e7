package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingDeactivator struct {
	calls atomic.Int64
	err   error
}

func (d *countingDeactivator) DeactivateExpired(ctx context.Context) (int64, error) {
	d.calls.Add(1)
	if d.err != nil {
		return 0, d.err
	}
	return 2, nil
}

func TestCleanupSweepsImmediatelyAndOnTick(t *testing.T) {
	deactivator := &countingDeactivator{}
	w := NewExamCleanupWorker(deactivator, 20*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for deactivator.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("only %d sweeps before deadline", deactivator.calls.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}

func TestCleanupKeepsRunningAfterSweepError(t *testing.T) {
	deactivator := &countingDeactivator{err: errors.New("db down")}
	w := NewExamCleanupWorker(deactivator, 10*time.Millisecond, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Start(ctx)

	if deactivator.calls.Load() < 2 {
		t.Errorf("sweeps = %d, want worker to survive errors and keep ticking", deactivator.calls.Load())
	}
}
