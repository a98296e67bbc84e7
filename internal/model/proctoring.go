package model

import (
	"time"

	"github.com/google/uuid"
)

// ViolationType is one of the eight fixed violation kinds. Unknown values
// are rejected at append time, never coerced into a catch-all.
type ViolationType string

const (
	ViolationNoFace             ViolationType = "no_face"
	ViolationMultipleFaces      ViolationType = "multiple_faces"
	ViolationCellPhone          ViolationType = "cell_phone"
	ViolationProhibitedObject   ViolationType = "prohibited_object"
	ViolationTabSwitch          ViolationType = "tab_switch"
	ViolationFullscreenExit     ViolationType = "fullscreen_exit"
	ViolationCopyPaste          ViolationType = "copy_paste"
	ViolationSuspiciousActivity ViolationType = "suspicious_activity"
)

// Severity grades a single violation event.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Violation is one detected event on a proctoring log's timeline. The
// timestamp is assigned server-side at append. Screenshot is an opaque
// reference (base64 or URL), never interpreted by the core.
type Violation struct {
	Type        ViolationType `json:"type"`
	Severity    Severity      `json:"severity"`
	Timestamp   time.Time     `json:"timestamp"`
	Description string        `json:"description,omitempty"`
	Screenshot  string        `json:"screenshot,omitempty"`
}

// ViolationSummary holds the running per-kind counts. Eight fixed keys,
// mirrored as columns in storage.
type ViolationSummary struct {
	NoFaceCount             int `json:"no_face_count"`
	MultipleFaceCount       int `json:"multiple_face_count"`
	CellPhoneCount          int `json:"cell_phone_count"`
	ProhibitedObjectCount   int `json:"prohibited_object_count"`
	TabSwitchCount          int `json:"tab_switch_count"`
	FullscreenExitCount     int `json:"fullscreen_exit_count"`
	CopyPasteCount          int `json:"copy_paste_count"`
	SuspiciousActivityCount int `json:"suspicious_activity_count"`
}

// Increment bumps the counter for the given kind. Unknown kinds are a no-op;
// append-time validation keeps them out in the first place.
func (s *ViolationSummary) Increment(t ViolationType) {
	switch t {
	case ViolationNoFace:
		s.NoFaceCount++
	case ViolationMultipleFaces:
		s.MultipleFaceCount++
	case ViolationCellPhone:
		s.CellPhoneCount++
	case ViolationProhibitedObject:
		s.ProhibitedObjectCount++
	case ViolationTabSwitch:
		s.TabSwitchCount++
	case ViolationFullscreenExit:
		s.FullscreenExitCount++
	case ViolationCopyPaste:
		s.CopyPasteCount++
	case ViolationSuspiciousActivity:
		s.SuspiciousActivityCount++
	}
}

// Counts returns the summary as a kind→count map for the scorer.
func (s ViolationSummary) Counts() map[ViolationType]int {
	return map[ViolationType]int{
		ViolationNoFace:             s.NoFaceCount,
		ViolationMultipleFaces:      s.MultipleFaceCount,
		ViolationCellPhone:          s.CellPhoneCount,
		ViolationProhibitedObject:   s.ProhibitedObjectCount,
		ViolationTabSwitch:          s.TabSwitchCount,
		ViolationFullscreenExit:     s.FullscreenExitCount,
		ViolationCopyPaste:          s.CopyPasteCount,
		ViolationSuspiciousActivity: s.SuspiciousActivityCount,
	}
}

// ProctoringLog aggregates one student's violation history for one exam
// attempt. Violations are an append-only timeline in arrival order; the
// summary and risk score are recomputed on every append and must never
// observably diverge from the timeline. Logs are never deleted.
type ProctoringLog struct {
	ID               uuid.UUID        `json:"id"`
	ExamID           uuid.UUID        `json:"exam_id"`
	SessionID        uuid.UUID        `json:"session_id"`
	UserID           uuid.UUID        `json:"user_id"`
	UserName         string           `json:"user_name"`
	UserEmail        string           `json:"user_email"`
	Violations       []Violation      `json:"violations"`
	Summary          ViolationSummary `json:"violation_summary"`
	RiskScore        int              `json:"risk_score"`
	FlaggedForReview bool             `json:"flagged_for_review"`
	ReviewedBy       *uuid.UUID       `json:"reviewed_by,omitempty"`
	ReviewNotes      string           `json:"review_notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// TouchLogRequest is the payload for the explicit create-or-fetch log call.
type TouchLogRequest struct {
	ExamID    uuid.UUID `json:"exam_id" binding:"required"`
	SessionID uuid.UUID `json:"session_id" binding:"required"`
}

// LogViolationRequest is the payload for reporting one violation.
type LogViolationRequest struct {
	ExamID      uuid.UUID     `json:"exam_id" binding:"required"`
	SessionID   uuid.UUID     `json:"session_id" binding:"required"`
	Type        ViolationType `json:"type" binding:"required"`
	Severity    Severity      `json:"severity" binding:"omitempty,oneof=low medium high critical"`
	Description string        `json:"description" binding:"omitempty,max=1000"`
	Screenshot  string        `json:"screenshot" binding:"omitempty"`
}

// LogViolationResult is returned from a successful append.
type LogViolationResult struct {
	Violation       Violation `json:"violation"`
	RiskScore       int       `json:"risk_score"`
	TotalViolations int       `json:"total_violations"`
}

// ReviewRequest is the payload for a teacher review update. Nil fields are
// left untouched.
type ReviewRequest struct {
	ReviewNotes      *string `json:"review_notes" binding:"omitempty,max=2000"`
	FlaggedForReview *bool   `json:"flagged_for_review" binding:"omitempty"`
}
