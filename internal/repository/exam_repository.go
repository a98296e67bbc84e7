package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seonix/seonix-backend/internal/model"
)

// ExamRepository handles exam data access. Exam CRUD is owned by a separate
// surface; the proctoring core reads availability/ownership and the workers
// maintain the advisory counters.
type ExamRepository struct {
	pool *pgxpool.Pool
}

// NewExamRepository creates a new ExamRepository.
func NewExamRepository(pool *pgxpool.Pool) *ExamRepository {
	return &ExamRepository{pool: pool}
}

// GetByID retrieves an exam by id.
func (r *ExamRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Exam, error) {
	e := &model.Exam{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, title, created_by, start_date, end_date, duration_minutes,
		        is_active, shuffle_questions, shuffle_options, show_result_immediately,
		        total_attempts, total_violations, created_at, updated_at
		 FROM exams WHERE id = $1`, id,
	).Scan(
		&e.ID, &e.Title, &e.CreatedBy, &e.StartDate, &e.EndDate, &e.DurationMinutes,
		&e.IsActive, &e.Configuration.ShuffleQuestions, &e.Configuration.ShuffleOptions,
		&e.Configuration.ShowResultImmediately,
		&e.Statistics.TotalAttempts, &e.Statistics.TotalViolations,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// ListIDsByOwner returns the ids of all exams created by the given teacher.
func (r *ExamRepository) ListIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM exams WHERE created_by = $1`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// AddStats bumps the advisory attempt and violation counters. Used by the
// stats worker, never on the request path.
func (r *ExamRepository) AddStats(ctx context.Context, examID uuid.UUID, attempts, violations int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE exams
		 SET total_attempts   = total_attempts + $1,
		     total_violations = total_violations + $2,
		     updated_at       = NOW()
		 WHERE id = $3`, attempts, violations, examID)
	return err
}

// DeactivateExpired marks all active exams whose end date has passed as
// inactive. Returns how many rows changed. Idempotent.
func (r *ExamRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE exams SET is_active = FALSE, updated_at = NOW()
		 WHERE is_active = TRUE AND end_date < NOW()`)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Create inserts an exam. Used by seeding tools and tests.
func (r *ExamRepository) Create(ctx context.Context, e *model.Exam) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO exams (title, created_by, start_date, end_date, duration_minutes,
		                    is_active, shuffle_questions, shuffle_options, show_result_immediately)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING id, created_at, updated_at`,
		e.Title, e.CreatedBy, e.StartDate, e.EndDate, e.DurationMinutes,
		e.IsActive, e.Configuration.ShuffleQuestions, e.Configuration.ShuffleOptions,
		e.Configuration.ShowResultImmediately,
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
}
