package agent

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/seonix/seonix-backend/internal/model"
	"github.com/seonix/seonix-backend/internal/proctor"
)

// Monitor states.
type State string

const (
	StateIdle         State = "idle"
	StateLoadingModel State = "loading_model"
	StateMonitoring   State = "monitoring"
	StateStopped      State = "stopped"
)

// Detection policy: person boxes need higher confidence than objects, and
// each prohibited label maps to its own violation shape.
const (
	personThreshold = 0.5
	objectThreshold = 0.4
)

const readyPollStep = 100 * time.Millisecond

// Monitor runs the webcam detection loop: wait for the classifier and the
// frame source to come up, then tick at a fixed interval, classify one
// frame per tick, and dispatch whatever the frame shows. Ticks overlapping
// a slow classify round are dropped, not queued.
type Monitor struct {
	classifier   Classifier
	frames       FrameSource
	dispatcher   *Dispatcher
	interval     time.Duration
	readyTimeout time.Duration
	log          zerolog.Logger

	mu      sync.Mutex
	state   State
	started bool
	cancel  context.CancelFunc
	done    chan struct{}

	inFlight atomic.Bool
}

func NewMonitor(classifier Classifier, frames FrameSource, dispatcher *Dispatcher, interval, readyTimeout time.Duration, log zerolog.Logger) *Monitor {
	return &Monitor{
		classifier:   classifier,
		frames:       frames,
		dispatcher:   dispatcher,
		interval:     interval,
		readyTimeout: readyTimeout,
		state:        StateIdle,
		log:          log.With().Str("component", "monitor").Logger(),
	}
}

// State returns the current lifecycle state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start brings the monitor up: readiness wait, then the tick loop. Calling
// Start while already running is a no-op. A readiness failure leaves the
// monitor idle and returns the error; the exam continues unproctored
// rather than blocking the student.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.state = StateLoadingModel
	m.mu.Unlock()

	if err := m.waitReady(ctx); err != nil {
		m.mu.Lock()
		m.started = false
		m.state = StateIdle
		m.mu.Unlock()
		m.log.Error().Err(err).Msg("Detection unavailable, monitoring disabled")
		return err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	m.mu.Lock()
	if m.state == StateStopped {
		// Stop raced the readiness wait.
		m.mu.Unlock()
		cancel()
		close(done)
		return nil
	}
	m.state = StateMonitoring
	m.cancel = cancel
	m.done = done
	m.mu.Unlock()

	m.dispatcher.SetLive(true)
	m.log.Info().Dur("interval", m.interval).Msg("Monitoring started")

	go m.loop(loopCtx, done)
	return nil
}

// Stop halts the loop and suppresses in-flight dispatch. Idempotent,
// callable from any state.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.state == StateStopped {
		m.mu.Unlock()
		return
	}
	m.state = StateStopped
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	m.dispatcher.SetLive(false)
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	m.log.Info().Msg("Monitoring stopped")
}

func (m *Monitor) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(m.readyTimeout)
	for {
		if m.classifier.Ready(ctx) && m.frames.Ready(ctx) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("classifier or frame source not ready after %s", m.readyTimeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollStep):
		}
	}
}

func (m *Monitor) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	// Drop the tick if the previous classify round is still running.
	if !m.inFlight.CompareAndSwap(false, true) {
		return
	}
	defer m.inFlight.Store(false)

	frame, err := m.frames.Capture(ctx)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warn().Err(err).Msg("Frame capture failed")
		}
		return
	}

	detections, err := m.classifier.Detect(ctx, frame)
	if err != nil {
		if ctx.Err() == nil {
			m.log.Warn().Err(err).Msg("Classification failed")
		}
		return
	}

	for _, c := range deriveCandidates(detections) {
		m.dispatcher.Dispatch(ctx, c.kind, c.severity, c.description)
	}
}

type candidate struct {
	kind        model.ViolationType
	severity    model.Severity
	description string
}

// deriveCandidates maps one frame's detections to violation candidates: no
// face and multiple faces from the person count, plus one candidate per
// prohibited object label.
func deriveCandidates(detections []Detection) []candidate {
	persons := 0
	var candidates []candidate

	for _, d := range detections {
		switch d.Label {
		case "person":
			if d.Confidence >= personThreshold {
				persons++
			}
		case "cell phone":
			if d.Confidence >= objectThreshold {
				candidates = append(candidates, candidate{
					kind:        model.ViolationCellPhone,
					severity:    proctor.DefaultSeverity(model.ViolationCellPhone),
					description: "Cell phone detected in frame",
				})
			}
		case "book":
			if d.Confidence >= objectThreshold {
				candidates = append(candidates, candidate{
					kind:        model.ViolationProhibitedObject,
					severity:    proctor.DefaultSeverity(model.ViolationProhibitedObject),
					description: "Prohibited object detected: book",
				})
			}
		case "laptop":
			if d.Confidence >= objectThreshold {
				// A second machine is worse than the catalog default for
				// this kind.
				candidates = append(candidates, candidate{
					kind:        model.ViolationProhibitedObject,
					severity:    model.SeverityHigh,
					description: "Prohibited object detected: secondary laptop",
				})
			}
		}
	}

	switch {
	case persons == 0:
		candidates = append(candidates, candidate{
			kind:        model.ViolationNoFace,
			severity:    proctor.DefaultSeverity(model.ViolationNoFace),
			description: "No face detected in frame",
		})
	case persons > 1:
		candidates = append(candidates, candidate{
			kind:        model.ViolationMultipleFaces,
			severity:    proctor.DefaultSeverity(model.ViolationMultipleFaces),
			description: fmt.Sprintf("%d people detected in frame", persons),
		})
	}

	return candidates
}
