package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seonix/seonix-backend/internal/model"
)

// ExamSessionRepository handles exam session data access. Sessions are audit
// records: rows are inserted and updated, never deleted.
type ExamSessionRepository struct {
	pool *pgxpool.Pool
}

// NewExamSessionRepository creates a new ExamSessionRepository.
func NewExamSessionRepository(pool *pgxpool.Pool) *ExamSessionRepository {
	return &ExamSessionRepository{pool: pool}
}

const sessionColumns = `id, exam_id, user_id, status, start_time, end_time,
	last_activity, is_fullscreen_active, tab_switch_count, answers,
	user_agent, browser, os, device, created_at, updated_at`

func scanSession(row interface{ Scan(...any) error }) (*model.ExamSession, error) {
	s := &model.ExamSession{}
	var answers []byte
	err := row.Scan(
		&s.ID, &s.ExamID, &s.UserID, &s.Status, &s.StartTime, &s.EndTime,
		&s.LastActivity, &s.IsFullscreenActive, &s.TabSwitchCount, &answers,
		&s.BrowserInfo.UserAgent, &s.BrowserInfo.Browser, &s.BrowserInfo.OS,
		&s.BrowserInfo.Device, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &s.Answers); err != nil {
			return nil, fmt.Errorf("decode answers: %w", err)
		}
	}
	if s.Answers == nil {
		s.Answers = map[string]string{}
	}
	return s, nil
}

// GetByID retrieves a session by its id.
func (r *ExamSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM exam_sessions WHERE id = $1`, id))
}

// GetActiveByExamAndUser retrieves the one active session for an exam-user
// pair, if any.
func (r *ExamSessionRepository) GetActiveByExamAndUser(ctx context.Context, examID, userID uuid.UUID) (*model.ExamSession, error) {
	return scanSession(r.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE exam_id = $1 AND user_id = $2 AND status = $3`,
		examID, userID, model.SessionStatusActive))
}

// Create inserts a new active session.
func (r *ExamSessionRepository) Create(ctx context.Context, s *model.ExamSession) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO exam_sessions
		   (exam_id, user_id, status, start_time, last_activity,
		    is_fullscreen_active, tab_switch_count, answers,
		    user_agent, browser, os, device)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		 RETURNING id, created_at, updated_at`,
		s.ExamID, s.UserID, s.Status, s.StartTime, s.LastActivity,
		s.IsFullscreenActive, s.TabSwitchCount, answers,
		s.BrowserInfo.UserAgent, s.BrowserInfo.Browser, s.BrowserInfo.OS,
		s.BrowserInfo.Device,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
}

// UpdateActivity overwrites the mutable activity fields. Last-write-wins:
// concurrent updates from multiple tabs are an accepted race.
func (r *ExamSessionRepository) UpdateActivity(ctx context.Context, s *model.ExamSession) error {
	answers, err := json.Marshal(s.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET last_activity = $1, is_fullscreen_active = $2,
		     tab_switch_count = $3, answers = $4, updated_at = NOW()
		 WHERE id = $5`,
		s.LastActivity, s.IsFullscreenActive, s.TabSwitchCount, answers, s.ID)
	return err
}

// End writes a terminal status and end time.
func (r *ExamSessionRepository) End(ctx context.Context, id uuid.UUID, status model.SessionStatus, endTime time.Time) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exam_sessions
		 SET status = $1, end_time = $2, updated_at = NOW()
		 WHERE id = $3`,
		status, endTime, id)
	return err
}

// ListByExam retrieves all sessions for an exam, newest first.
func (r *ExamSessionRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+sessionColumns+`
		 FROM exam_sessions
		 WHERE exam_id = $1
		 ORDER BY created_at DESC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.ExamSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}
