package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seonix/seonix-backend/internal/model"
)

// ProctoringLogRepository handles proctoring log data access. One row per
// (exam, session, user); the violations timeline is stored as JSONB and the
// eight summary counts as plain columns so teachers can sort and filter
// without unpacking the timeline.
type ProctoringLogRepository struct {
	pool *pgxpool.Pool
}

// NewProctoringLogRepository creates a new ProctoringLogRepository.
func NewProctoringLogRepository(pool *pgxpool.Pool) *ProctoringLogRepository {
	return &ProctoringLogRepository{pool: pool}
}

const logColumns = `id, exam_id, session_id, user_id, user_name, user_email,
	violations,
	no_face_count, multiple_face_count, cell_phone_count, prohibited_object_count,
	tab_switch_count, fullscreen_exit_count, copy_paste_count, suspicious_activity_count,
	risk_score, flagged_for_review, reviewed_by, review_notes, created_at, updated_at`

func scanLog(row interface{ Scan(...any) error }) (*model.ProctoringLog, error) {
	l := &model.ProctoringLog{}
	var violations []byte
	err := row.Scan(
		&l.ID, &l.ExamID, &l.SessionID, &l.UserID, &l.UserName, &l.UserEmail,
		&violations,
		&l.Summary.NoFaceCount, &l.Summary.MultipleFaceCount, &l.Summary.CellPhoneCount,
		&l.Summary.ProhibitedObjectCount, &l.Summary.TabSwitchCount,
		&l.Summary.FullscreenExitCount, &l.Summary.CopyPasteCount,
		&l.Summary.SuspiciousActivityCount,
		&l.RiskScore, &l.FlaggedForReview, &l.ReviewedBy, &l.ReviewNotes,
		&l.CreatedAt, &l.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(violations) > 0 {
		if err := json.Unmarshal(violations, &l.Violations); err != nil {
			return nil, fmt.Errorf("decode violations: %w", err)
		}
	}
	if l.Violations == nil {
		l.Violations = []model.Violation{}
	}
	return l, nil
}

// GetByID retrieves a log by its id.
func (r *ProctoringLogRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ProctoringLog, error) {
	return scanLog(r.pool.QueryRow(ctx,
		`SELECT `+logColumns+` FROM proctoring_logs WHERE id = $1`, id))
}

// GetBySession retrieves the log for a session, if one exists.
func (r *ProctoringLogRepository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*model.ProctoringLog, error) {
	return scanLog(r.pool.QueryRow(ctx,
		`SELECT `+logColumns+` FROM proctoring_logs WHERE session_id = $1`, sessionID))
}

// GetByKey retrieves the log for an (exam, session, user) triple.
func (r *ProctoringLogRepository) GetByKey(ctx context.Context, examID, sessionID, userID uuid.UUID) (*model.ProctoringLog, error) {
	return scanLog(r.pool.QueryRow(ctx,
		`SELECT `+logColumns+`
		 FROM proctoring_logs
		 WHERE exam_id = $1 AND session_id = $2 AND user_id = $3`,
		examID, sessionID, userID))
}

// Create inserts an empty log (lazy creation on first violation or touch).
func (r *ProctoringLogRepository) Create(ctx context.Context, l *model.ProctoringLog) error {
	violations, err := json.Marshal(l.Violations)
	if err != nil {
		return fmt.Errorf("encode violations: %w", err)
	}
	return r.pool.QueryRow(ctx,
		`INSERT INTO proctoring_logs
		   (exam_id, session_id, user_id, user_name, user_email, violations)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		l.ExamID, l.SessionID, l.UserID, l.UserName, l.UserEmail, violations,
	).Scan(&l.ID, &l.CreatedAt, &l.UpdatedAt)
}

// Update persists the full mutable state of a log after an append or a
// review. Single-document read-modify-write, no optimistic locking.
func (r *ProctoringLogRepository) Update(ctx context.Context, l *model.ProctoringLog) error {
	violations, err := json.Marshal(l.Violations)
	if err != nil {
		return fmt.Errorf("encode violations: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`UPDATE proctoring_logs SET
		   violations = $1,
		   no_face_count = $2, multiple_face_count = $3, cell_phone_count = $4,
		   prohibited_object_count = $5, tab_switch_count = $6,
		   fullscreen_exit_count = $7, copy_paste_count = $8,
		   suspicious_activity_count = $9,
		   risk_score = $10, flagged_for_review = $11,
		   reviewed_by = $12, review_notes = $13, updated_at = NOW()
		 WHERE id = $14`,
		violations,
		l.Summary.NoFaceCount, l.Summary.MultipleFaceCount, l.Summary.CellPhoneCount,
		l.Summary.ProhibitedObjectCount, l.Summary.TabSwitchCount,
		l.Summary.FullscreenExitCount, l.Summary.CopyPasteCount,
		l.Summary.SuspiciousActivityCount,
		l.RiskScore, l.FlaggedForReview,
		l.ReviewedBy, l.ReviewNotes, l.ID)
	return err
}

// ListByExam retrieves all logs for an exam, riskiest and newest first.
func (r *ProctoringLogRepository) ListByExam(ctx context.Context, examID uuid.UUID) ([]model.ProctoringLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+logColumns+`
		 FROM proctoring_logs
		 WHERE exam_id = $1
		 ORDER BY risk_score DESC, created_at DESC`, examID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLogs(rows)
}

// ListFlaggedByExams retrieves all flagged logs across the given exams,
// riskiest first.
func (r *ProctoringLogRepository) ListFlaggedByExams(ctx context.Context, examIDs []uuid.UUID) ([]model.ProctoringLog, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+logColumns+`
		 FROM proctoring_logs
		 WHERE exam_id = ANY($1) AND flagged_for_review = TRUE
		 ORDER BY risk_score DESC`, examIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectLogs(rows)
}

type pgxRows interface {
	Next() bool
	Scan(...any) error
	Err() error
}

func collectLogs(rows pgxRows) ([]model.ProctoringLog, error) {
	var logs []model.ProctoringLog
	for rows.Next() {
		l, err := scanLog(rows)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}
