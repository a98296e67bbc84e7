package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/seonix/seonix-backend/internal/model"
)

// Store contracts the session service depends on. The pgx repositories
// satisfy these; tests plug in-memory fakes.
type sessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error)
	GetActiveByExamAndUser(ctx context.Context, examID, userID uuid.UUID) (*model.ExamSession, error)
	Create(ctx context.Context, s *model.ExamSession) error
	UpdateActivity(ctx context.Context, s *model.ExamSession) error
	End(ctx context.Context, id uuid.UUID, status model.SessionStatus, endTime time.Time) error
	ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error)
}

type examStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error)
	ListIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)
}

type resultStore interface {
	Exists(ctx context.Context, examID, userID uuid.UUID) (bool, error)
}

// ExamSessionService governs the exam-session lifecycle: one active session
// per (exam, user), three terminal states, owner-only writes.
type ExamSessionService struct {
	sessions sessionStore
	exams    examStore
	results  resultStore
	stats    StatsRecorder
	log      zerolog.Logger
	now      func() time.Time
}

// NewExamSessionService creates a new ExamSessionService.
func NewExamSessionService(sessions sessionStore, exams examStore, results resultStore, stats StatsRecorder, log zerolog.Logger) *ExamSessionService {
	return &ExamSessionService{
		sessions: sessions,
		exams:    exams,
		results:  results,
		stats:    stats,
		log:      log.With().Str("component", "session_service").Logger(),
		now:      time.Now,
	}
}

// Start begins an exam attempt. Guards, in order: the exam must exist, be
// active, and the current time must fall inside its window; a completed
// result blocks a re-attempt. If the user already has an active session it
// is returned unchanged — starting twice is idempotent resume, never a
// duplicate. Returns the session, the exam it belongs to (clients need the
// duration to run the time-up check), and whether it was resumed.
func (s *ExamSessionService) Start(ctx context.Context, examID, userID uuid.UUID, userAgent string) (*model.ExamSession, *model.Exam, bool, error) {
	exam, err := s.exams.GetByID(ctx, examID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, false, ErrExamNotFound
		}
		return nil, nil, false, fmt.Errorf("get exam: %w", err)
	}

	now := s.now()
	if !exam.IsActive {
		return nil, nil, false, ErrExamNotActive
	}
	if now.Before(exam.StartDate) {
		return nil, nil, false, ErrExamNotStarted
	}
	if now.After(exam.EndDate) {
		return nil, nil, false, ErrExamEnded
	}

	// Resume before the result check: an active session means the attempt
	// is still in flight, so the re-attempt guard does not apply to it.
	existing, err := s.sessions.GetActiveByExamAndUser(ctx, examID, userID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, nil, false, fmt.Errorf("check existing session: %w", err)
	}
	if existing != nil {
		s.log.Debug().
			Str("session_id", existing.ID.String()).
			Str("user_id", userID.String()).
			Msg("Resuming existing session")
		return existing, exam, true, nil
	}

	completed, err := s.results.Exists(ctx, examID, userID)
	if err != nil {
		return nil, nil, false, fmt.Errorf("check completed result: %w", err)
	}
	if completed {
		return nil, nil, false, ErrExamCompleted
	}

	session := &model.ExamSession{
		ExamID:       examID,
		UserID:       userID,
		Status:       model.SessionStatusActive,
		StartTime:    now,
		LastActivity: now,
		Answers:      map[string]string{},
		BrowserInfo:  parseUserAgent(userAgent),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, nil, false, fmt.Errorf("create session: %w", err)
	}

	// Advisory attempt counter; resumes are not new attempts.
	if err := s.stats.RecordAttempt(ctx, examID); err != nil {
		s.log.Warn().Err(err).
			Str("exam_id", examID.String()).
			Msg("Failed to queue exam stats update")
	}

	s.log.Info().
		Str("session_id", session.ID.String()).
		Str("exam_id", examID.String()).
		Str("user_id", userID.String()).
		Msg("Exam session started")

	return session, exam, false, nil
}

// RecordActivity applies an activity patch to an active session. Present
// fields overwrite wholesale; last_activity always advances. Only the owner
// may write, and only while the session is active.
func (s *ExamSessionService) RecordActivity(ctx context.Context, sessionID, callerID uuid.UUID, patch model.ActivityPatch) (*model.ExamSession, error) {
	session, err := s.getOwned(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}
	if session.Status != model.SessionStatusActive {
		return nil, ErrSessionInactive
	}

	session.LastActivity = s.now()
	if patch.IsFullscreenActive != nil {
		session.IsFullscreenActive = *patch.IsFullscreenActive
	}
	if patch.TabSwitchCount != nil {
		session.TabSwitchCount = *patch.TabSwitchCount
	}
	if patch.Answers != nil {
		session.Answers = patch.Answers
	}

	if err := s.sessions.UpdateActivity(ctx, session); err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	return session, nil
}

// End moves a session to the requested terminal status and stamps end_time.
// Owner-only. Ending an already-ended session overwrites status and
// end_time rather than failing; see DESIGN.md for the rationale.
func (s *ExamSessionService) End(ctx context.Context, sessionID, callerID uuid.UUID, status model.SessionStatus) (*model.ExamSession, error) {
	if !model.ValidEndStatus(status) {
		return nil, ErrInvalidStatus
	}

	session, err := s.getOwned(ctx, sessionID, callerID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.sessions.End(ctx, sessionID, status, now); err != nil {
		return nil, fmt.Errorf("end session: %w", err)
	}
	session.Status = status
	session.EndTime = &now

	s.log.Info().
		Str("session_id", sessionID.String()).
		Str("status", string(status)).
		Msg("Exam session ended")

	return session, nil
}

// Get retrieves a session for the owning student or the exam's owning
// teacher.
func (s *ExamSessionService) Get(ctx context.Context, sessionID uuid.UUID, actor Actor) (*model.ExamSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}

	if session.UserID == actor.ID {
		return session, nil
	}
	if actor.Role == model.RoleTeacher {
		exam, err := s.exams.GetByID(ctx, session.ExamID)
		if err == nil && exam.CreatedBy == actor.ID {
			return session, nil
		}
	}
	return nil, ErrNotSessionOwner
}

// ListByExam retrieves all sessions for an exam. Exam owner only.
func (s *ExamSessionService) ListByExam(ctx context.Context, examID uuid.UUID, actor Actor) ([]model.ExamSession, error) {
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
	return s.sessions.ListByExam(ctx, examID)
}

func (s *ExamSessionService) getOwned(ctx context.Context, sessionID, callerID uuid.UUID) (*model.ExamSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("get session: %w", err)
	}
	if session.UserID != callerID {
		return nil, ErrNotSessionOwner
	}
	return session, nil
}

// parseUserAgent derives a descriptive browser snapshot from the User-Agent
// header. Best-effort string matching; informational only.
func parseUserAgent(ua string) model.BrowserInfo {
	info := model.BrowserInfo{UserAgent: ua, Browser: "Unknown", OS: "Unknown", Device: "Desktop"}
	lower := strings.ToLower(ua)

	switch {
	case strings.Contains(lower, "edg/"):
		info.Browser = "Edge"
	case strings.Contains(lower, "chrome"):
		info.Browser = "Chrome"
	case strings.Contains(lower, "firefox"):
		info.Browser = "Firefox"
	case strings.Contains(lower, "safari"):
		info.Browser = "Safari"
	}

	// iOS user agents claim "like Mac OS X", so check them first.
	switch {
	case strings.Contains(lower, "iphone"), strings.Contains(lower, "ipad"):
		info.OS = "iOS"
	case strings.Contains(lower, "android"):
		info.OS = "Android"
	case strings.Contains(lower, "windows"):
		info.OS = "Windows"
	case strings.Contains(lower, "mac os"):
		info.OS = "macOS"
	case strings.Contains(lower, "linux"):
		info.OS = "Linux"
	}

	if strings.Contains(lower, "mobile") || strings.Contains(lower, "android") ||
		strings.Contains(lower, "iphone") {
		info.Device = "Mobile"
	}
	return info
}
