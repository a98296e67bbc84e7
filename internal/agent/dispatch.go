package agent

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/seonix/seonix-backend/internal/model"
)

// SessionRef is the late-bindable identity of the attempt being proctored.
// The monitor and guard rails are constructed before the session exists;
// Bind is called once the start call returns.
type SessionRef struct {
	mu        sync.RWMutex
	examID    uuid.UUID
	sessionID uuid.UUID
	bound     bool
}

func (r *SessionRef) Bind(examID, sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.examID = examID
	r.sessionID = sessionID
	r.bound = true
}

func (r *SessionRef) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bound = false
}

// Current returns the bound exam and session, read at call time.
func (r *SessionRef) Current() (examID, sessionID uuid.UUID, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.examID, r.sessionID, r.bound
}

// ViolationReporter delivers a violation to the backend. Implemented by
// APIClient.
type ViolationReporter interface {
	ReportViolation(ctx context.Context, req model.LogViolationRequest) (*model.LogViolationResult, error)
}

// Dispatcher is the single funnel for violation reports. Every report
// passes three gates read at call time: the dispatcher must be live, a
// session must be bound, and the type must be off cooldown. The monitor
// and guard rails share one dispatcher so their cooldowns interact.
type Dispatcher struct {
	reporter ViolationReporter
	ref      *SessionRef
	throttle *Throttle
	live     atomic.Bool
	log      zerolog.Logger
}

func NewDispatcher(reporter ViolationReporter, ref *SessionRef, throttle *Throttle, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		reporter: reporter,
		ref:      ref,
		throttle: throttle,
		log:      log.With().Str("component", "dispatcher").Logger(),
	}
}

// SetLive toggles dispatching. Reports while not live are dropped silently.
func (d *Dispatcher) SetLive(v bool) {
	d.live.Store(v)
}

// Dispatch reports one violation. Returns whether the report was sent.
func (d *Dispatcher) Dispatch(ctx context.Context, kind model.ViolationType, severity model.Severity, description string) bool {
	if !d.live.Load() {
		return false
	}
	examID, sessionID, ok := d.ref.Current()
	if !ok {
		return false
	}
	if !d.throttle.Allow(kind) {
		return false
	}

	result, err := d.reporter.ReportViolation(ctx, model.LogViolationRequest{
		ExamID:      examID,
		SessionID:   sessionID,
		Type:        kind,
		Severity:    severity,
		Description: description,
	})
	if err != nil {
		d.log.Error().Err(err).Str("type", string(kind)).Msg("Failed to report violation")
		return false
	}

	d.log.Info().
		Str("type", string(kind)).
		Int("risk_score", result.RiskScore).
		Msg("Violation reported")
	return true
}
