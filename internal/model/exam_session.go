package model

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus enumerates exam session states. Active is the only
// non-terminal state; completed, abandoned and terminated are all final.
type SessionStatus string

const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusAbandoned  SessionStatus = "abandoned"
	SessionStatusTerminated SessionStatus = "terminated"
)

// IsTerminal reports whether the status is one of the three end states.
func (s SessionStatus) IsTerminal() bool {
	switch s {
	case SessionStatusCompleted, SessionStatusAbandoned, SessionStatusTerminated:
		return true
	}
	return false
}

// ValidEndStatus reports whether the status is acceptable for the end
// operation. A session can never be ended back into active.
func ValidEndStatus(s SessionStatus) bool {
	return s.IsTerminal()
}

// BrowserInfo is a descriptive snapshot of the client environment taken when
// the session starts. Purely informational, never used for authorization.
type BrowserInfo struct {
	UserAgent string `json:"user_agent"`
	Browser   string `json:"browser"`
	OS        string `json:"os"`
	Device    string `json:"device"`
}

// ExamSession represents one student's attempt at one exam, from start to a
// terminal status. Sessions are retained as audit records and never deleted.
type ExamSession struct {
	ID                 uuid.UUID         `json:"session_id"`
	ExamID             uuid.UUID         `json:"exam_id"`
	UserID             uuid.UUID         `json:"user_id"`
	Status             SessionStatus     `json:"status"`
	StartTime          time.Time         `json:"start_time"`
	EndTime            *time.Time        `json:"end_time,omitempty"`
	LastActivity       time.Time         `json:"last_activity"`
	IsFullscreenActive bool              `json:"is_fullscreen_active"`
	TabSwitchCount     int               `json:"tab_switch_count"`
	Answers            map[string]string `json:"answers"`
	BrowserInfo        BrowserInfo       `json:"browser_info"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

// IsExpired reports whether the session has outlived the exam duration.
// Advisory only: callers use it to decide on forced submission, the server
// does not self-expire sessions.
func (s *ExamSession) IsExpired(examDurationMinutes int, now time.Time) bool {
	return now.Sub(s.StartTime).Minutes() > float64(examDurationMinutes)
}

// StartSessionRequest is the payload for starting an exam session.
type StartSessionRequest struct {
	ExamID uuid.UUID `json:"exam_id" binding:"required"`
}

// ActivityPatch is the payload for a session activity update. Each field is
// independently optional; present fields overwrite wholesale (last-write-wins,
// no merge). LastActivity is always refreshed regardless of the patch body.
type ActivityPatch struct {
	IsFullscreenActive *bool             `json:"is_fullscreen_active" binding:"omitempty"`
	TabSwitchCount     *int              `json:"tab_switch_count" binding:"omitempty,min=0"`
	Answers            map[string]string `json:"answers" binding:"omitempty"`
}

// EndSessionRequest is the payload for ending a session.
type EndSessionRequest struct {
	Status SessionStatus `json:"status" binding:"required,oneof=completed abandoned terminated"`
}
