package model

import (
	"time"

	"github.com/google/uuid"
)

// ExamConfiguration holds the per-exam behavior flags consumed by the
// exam-taking client. The proctoring core reads them but does not own them.
type ExamConfiguration struct {
	ShuffleQuestions      bool `json:"shuffle_questions"`
	ShuffleOptions        bool `json:"shuffle_options"`
	ShowResultImmediately bool `json:"show_result_immediately"`
}

// ExamStatistics are advisory aggregate counters maintained best-effort by
// the stats worker. They are telemetry, not authoritative state.
type ExamStatistics struct {
	TotalAttempts   int `json:"total_attempts"`
	TotalViolations int `json:"total_violations"`
}

// Exam represents an exam entity. Exam CRUD is owned elsewhere; the session
// and proctoring services read it for availability and ownership checks.
type Exam struct {
	ID              uuid.UUID         `json:"id"`
	Title           string            `json:"title"`
	CreatedBy       uuid.UUID         `json:"created_by"`
	StartDate       time.Time         `json:"start_date"`
	EndDate         time.Time         `json:"end_date"`
	DurationMinutes int               `json:"duration_minutes"`
	IsActive        bool              `json:"is_active"`
	Configuration   ExamConfiguration `json:"configuration"`
	Statistics      ExamStatistics    `json:"statistics"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}
