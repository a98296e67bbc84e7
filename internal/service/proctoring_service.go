package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/seonix/seonix-backend/internal/model"
	"github.com/seonix/seonix-backend/internal/proctor"
)

type logStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ProctoringLog, error)
	GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.ProctoringLog, error)
	GetByKey(ctx context.Context, examID, sessionID, userID uuid.UUID) (*model.ProctoringLog, error)
	Create(ctx context.Context, l *model.ProctoringLog) error
	Update(ctx context.Context, l *model.ProctoringLog) error
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ProctoringLog, error)
	ListFlaggedByExams(ctx context.Context, examIDs []uuid.UUID) ([]model.ProctoringLog, error)
}

type sessionReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
}

// StatsRecorder queues advisory exam statistic updates. Implemented by the
// Redis-backed queue; failures are logged, never propagated. The counters
// are telemetry, not authoritative state.
type StatsRecorder interface {
	RecordAttempt(ctx context.Context, examID uuid.UUID) error
	RecordViolation(ctx context.Context, examID uuid.UUID) error
}

// ProctoringService owns the violation pipeline: authorization against the
// session, append-only timeline, summary counters, risk scoring and
// one-directional auto-flagging.
type ProctoringService struct {
	logs     logStore
	sessions sessionReader
	exams    examStore
	stats    StatsRecorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewProctoringService creates a new ProctoringService.
func NewProctoringService(logs logStore, sessions sessionReader, exams examStore, stats StatsRecorder, log zerolog.Logger) *ProctoringService {
	return &ProctoringService{
		logs:     logs,
		sessions: sessions,
		exams:    exams,
		stats:    stats,
		log:      log.With().Str("component", "proctoring_service").Logger(),
		now:      time.Now,
	}
}

// EnsureLog returns the proctoring log for a session, creating an empty one
// if none exists yet. Only the session owner may touch their log.
func (s *ProctoringService) EnsureLog(ctx context.Context, examID, sessionID uuid.UUID, actor Actor) (*model.ProctoringLog, error) {
	if err := s.verifySessionOwner(ctx, sessionID, actor.ID); err != nil {
		return nil, err
	}
	return s.getOrCreate(ctx, examID, sessionID, actor)
}

// LogViolation appends one violation to the session's log: validate the kind
// against the catalog, push onto the timeline in arrival order, bump the
// summary counter, recompute the risk score from scratch and apply the
// one-way flag rule, persist, then fire the advisory exam counter update.
func (s *ProctoringService) LogViolation(ctx context.Context, req model.LogViolationRequest, actor Actor) (*model.LogViolationResult, error) {
	if err := s.verifySessionOwner(ctx, req.SessionID, actor.ID); err != nil {
		return nil, err
	}
	if !proctor.IsKnown(req.Type) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownViolation, req.Type)
	}

	log, err := s.getOrCreate(ctx, req.ExamID, req.SessionID, actor)
	if err != nil {
		return nil, err
	}

	// Severity is the reporter's call; a bare report means medium. The
	// per-kind defaults in the catalog are for reporters that want them,
	// like the detection agent.
	severity := req.Severity
	if severity == "" {
		severity = model.SeverityMedium
	}
	violation := model.Violation{
		Type:        req.Type,
		Severity:    severity,
		Timestamp:   s.now(),
		Description: req.Description,
		Screenshot:  req.Screenshot,
	}

	log.Violations = append(log.Violations, violation)
	log.Summary.Increment(req.Type)
	proctor.Rescore(log)

	if err := s.logs.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("persist log: %w", err)
	}

	// Advisory counter, decoupled from the append. A queue failure must
	// never fail the violation itself.
	if err := s.stats.RecordViolation(ctx, req.ExamID); err != nil {
		s.log.Warn().Err(err).
			Str("exam_id", req.ExamID.String()).
			Msg("Failed to queue exam stats update")
	}

	s.log.Info().
		Str("session_id", req.SessionID.String()).
		Str("type", string(req.Type)).
		Int("risk_score", log.RiskScore).
		Bool("flagged", log.FlaggedForReview).
		Msg("Violation logged")

	return &model.LogViolationResult{
		Violation:       violation,
		RiskScore:       log.RiskScore,
		TotalViolations: len(log.Violations),
	}, nil
}

// GetBySession retrieves the log for a session. Readable by the owning
// student or by any teacher.
func (s *ProctoringService) GetBySession(ctx context.Context, sessionID uuid.UUID, actor Actor) (*model.ProctoringLog, error) {
	log, err := s.logs.GetBySession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("get log: %w", err)
	}
	if log.UserID != actor.ID && actor.Role != model.RoleTeacher {
		return nil, ErrNotLogAccessible
	}
	return log, nil
}

// ListByExam retrieves all logs for an exam, riskiest first. Exam owner only.
func (s *ProctoringService) ListByExam(ctx context.Context, examID uuid.UUID, actor Actor) ([]model.ProctoringLog, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.CreatedBy != actor.ID {
		return nil, ErrNotExamOwner
	}
	return s.logs.ListByExam(ctx, examID)
}

// ListFlagged retrieves every flagged log across the caller's own exams.
func (s *ProctoringService) ListFlagged(ctx context.Context, actor Actor) ([]model.ProctoringLog, error) {
	examIDs, err := s.exams.ListIDsByOwner(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("list owned exams: %w", err)
	}
	if len(examIDs) == 0 {
		return []model.ProctoringLog{}, nil
	}
	return s.logs.ListFlaggedByExams(ctx, examIDs)
}

// Review applies a teacher's review to a log. This is the only path that
// may clear flagged_for_review; the scorer never unsets it.
func (s *ProctoringService) Review(ctx context.Context, logID uuid.UUID, req model.ReviewRequest, actor Actor) (*model.ProctoringLog, error) {
	log, err := s.logs.GetByID(ctx, logID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLogNotFound
		}
		return nil, fmt.Errorf("get log: %w", err)
	}

	exam, err := s.exams.GetByID(ctx, log.ExamID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrExamNotFound
		}
		return nil, fmt.Errorf("get exam: %w", err)
	}
	if exam.CreatedBy != actor.ID {
		return nil, ErrNotExamOwner
	}

	if req.ReviewNotes != nil {
		log.ReviewNotes = *req.ReviewNotes
	}
	if req.FlaggedForReview != nil {
		log.FlaggedForReview = *req.FlaggedForReview
	}
	reviewer := actor.ID
	log.ReviewedBy = &reviewer

	if err := s.logs.Update(ctx, log); err != nil {
		return nil, fmt.Errorf("persist review: %w", err)
	}
	return log, nil
}

func (s *ProctoringService) verifySessionOwner(ctx context.Context, sessionID, callerID uuid.UUID) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("get session: %w", err)
	}
	if session.UserID != callerID {
		return ErrNotSessionOwner
	}
	return nil
}

func (s *ProctoringService) getOrCreate(ctx context.Context, examID, sessionID uuid.UUID, actor Actor) (*model.ProctoringLog, error) {
	log, err := s.logs.GetByKey(ctx, examID, sessionID, actor.ID)
	if err == nil {
		return log, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get log: %w", err)
	}

	log = &model.ProctoringLog{
		ExamID:     examID,
		SessionID:  sessionID,
		UserID:     actor.ID,
		UserName:   actor.Name,
		UserEmail:  actor.Email,
		Violations: []model.Violation{},
	}
	if err := s.logs.Create(ctx, log); err != nil {
		return nil, fmt.Errorf("create log: %w", err)
	}
	return log, nil
}
