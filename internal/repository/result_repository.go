package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/seonix/seonix-backend/internal/model"
)

// ResultRepository handles result data access. Grading is external; the
// session service only needs the existence check that blocks re-attempts.
type ResultRepository struct {
	pool *pgxpool.Pool
}

// NewResultRepository creates a new ResultRepository.
func NewResultRepository(pool *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{pool: pool}
}

// Exists reports whether a completed result exists for the user-exam pair.
func (r *ResultRepository) Exists(ctx context.Context, examID, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM results WHERE exam_id = $1 AND user_id = $2)`,
		examID, userID,
	).Scan(&exists)
	return exists, err
}

// Create inserts a result. Used by seeding tools and tests.
func (r *ResultRepository) Create(ctx context.Context, res *model.Result) error {
	return r.pool.QueryRow(ctx,
		`INSERT INTO results (exam_id, user_id, score)
		 VALUES ($1, $2, $3)
		 RETURNING id, created_at`,
		res.ExamID, res.UserID, res.Score,
	).Scan(&res.ID, &res.CreatedAt)
}
