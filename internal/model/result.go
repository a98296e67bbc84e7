package model

import (
	"time"

	"github.com/google/uuid"
)

// Result is the graded outcome of a completed attempt. Grading is owned by
// the result service; the session service only checks existence to block
// re-attempts.
type Result struct {
	ID        uuid.UUID `json:"id"`
	ExamID    uuid.UUID `json:"exam_id"`
	UserID    uuid.UUID `json:"user_id"`
	Score     float64   `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}
