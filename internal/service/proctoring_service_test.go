package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/seonix/seonix-backend/internal/model"
	"github.com/seonix/seonix-backend/internal/proctor"
)

type proctoringFixture struct {
	svc       *ProctoringService
	logs      *fakeLogStore
	sessions  *fakeSessionStore
	exams     *fakeExamStore
	stats     *fakeStatsRecorder
	examID    uuid.UUID
	sessionID uuid.UUID
	student   Actor
	owner     Actor
	now       time.Time
}

func newProctoringFixture(t *testing.T) *proctoringFixture {
	t.Helper()
	f := &proctoringFixture{
		logs:      newFakeLogStore(),
		sessions:  newFakeSessionStore(),
		exams:     newFakeExamStore(),
		stats:     &fakeStatsRecorder{},
		examID:    uuid.New(),
		sessionID: uuid.New(),
		now:       time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
	}
	f.student = Actor{ID: uuid.New(), Name: "Ana Silva", Email: "ana@example.com", Role: model.RoleStudent}
	f.owner = Actor{ID: uuid.New(), Role: model.RoleTeacher}

	f.exams.exams[f.examID] = &model.Exam{ID: f.examID, CreatedBy: f.owner.ID, IsActive: true}
	f.sessions.sessions[f.sessionID] = &model.ExamSession{
		ID:     f.sessionID,
		ExamID: f.examID,
		UserID: f.student.ID,
		Status: model.SessionStatusActive,
	}

	f.svc = NewProctoringService(f.logs, f.sessions, f.exams, f.stats, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func (f *proctoringFixture) logViolation(t *testing.T, typ model.ViolationType) *model.LogViolationResult {
	t.Helper()
	res, err := f.svc.LogViolation(context.Background(), model.LogViolationRequest{
		ExamID:    f.examID,
		SessionID: f.sessionID,
		Type:      typ,
	}, f.student)
	if err != nil {
		t.Fatalf("LogViolation(%s): %v", typ, err)
	}
	return res
}

func TestEnsureLogCreatesOncePerSession(t *testing.T) {
	f := newProctoringFixture(t)

	first, err := f.svc.EnsureLog(context.Background(), f.examID, f.sessionID, f.student)
	if err != nil {
		t.Fatalf("EnsureLog: %v", err)
	}
	if first.UserName != "Ana Silva" || first.UserEmail != "ana@example.com" {
		t.Errorf("identity snapshot = %q / %q", first.UserName, first.UserEmail)
	}
	if first.RiskScore != 0 || first.FlaggedForReview {
		t.Errorf("fresh log score=%d flagged=%v", first.RiskScore, first.FlaggedForReview)
	}

	second, err := f.svc.EnsureLog(context.Background(), f.examID, f.sessionID, f.student)
	if err != nil {
		t.Fatalf("second EnsureLog: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("second EnsureLog returned a different log: %s vs %s", second.ID, first.ID)
	}
	if len(f.logs.logs) != 1 {
		t.Errorf("log count = %d, want 1", len(f.logs.logs))
	}
}

func TestEnsureLogRejectsNonOwner(t *testing.T) {
	f := newProctoringFixture(t)
	impostor := Actor{ID: uuid.New(), Role: model.RoleStudent}

	if _, err := f.svc.EnsureLog(context.Background(), f.examID, f.sessionID, impostor); !errors.Is(err, ErrNotSessionOwner) {
		t.Errorf("err = %v, want %v", err, ErrNotSessionOwner)
	}
}

func TestLogViolationAccumulates(t *testing.T) {
	f := newProctoringFixture(t)

	res := f.logViolation(t, model.ViolationTabSwitch)
	if res.RiskScore != 5 || res.TotalViolations != 1 {
		t.Errorf("after tab_switch: score=%d total=%d", res.RiskScore, res.TotalViolations)
	}
	if res.Violation.Severity != model.SeverityMedium {
		t.Errorf("severity = %q, want medium default", res.Violation.Severity)
	}
	if !res.Violation.Timestamp.Equal(f.now) {
		t.Errorf("timestamp = %v, want %v", res.Violation.Timestamp, f.now)
	}

	res = f.logViolation(t, model.ViolationCellPhone)
	if res.RiskScore != 20 || res.TotalViolations != 2 {
		t.Errorf("after cell_phone: score=%d total=%d", res.RiskScore, res.TotalViolations)
	}

	log, err := f.svc.GetBySession(context.Background(), f.sessionID, f.student)
	if err != nil {
		t.Fatalf("GetBySession: %v", err)
	}
	if log.Summary.TabSwitchCount != 1 || log.Summary.CellPhoneCount != 1 {
		t.Errorf("summary = %+v", log.Summary)
	}
	if log.Violations[0].Type != model.ViolationTabSwitch || log.Violations[1].Type != model.ViolationCellPhone {
		t.Error("timeline not in arrival order")
	}
}

func TestLogViolationSeverityDefaultsToMedium(t *testing.T) {
	f := newProctoringFixture(t)

	// Omitted severity means medium regardless of kind; the catalog's
	// per-kind defaults are for reporters that send one explicitly.
	res := f.logViolation(t, model.ViolationCellPhone)
	if res.Violation.Severity != model.SeverityMedium {
		t.Errorf("severity = %q, want %q", res.Violation.Severity, model.SeverityMedium)
	}

	res, err := f.svc.LogViolation(context.Background(), model.LogViolationRequest{
		ExamID:    f.examID,
		SessionID: f.sessionID,
		Type:      model.ViolationCellPhone,
		Severity:  model.SeverityCritical,
	}, f.student)
	if err != nil {
		t.Fatalf("LogViolation: %v", err)
	}
	if res.Violation.Severity != model.SeverityCritical {
		t.Errorf("severity = %q, want the reported %q", res.Violation.Severity, model.SeverityCritical)
	}
}

func TestLogViolationFlagsAtThreshold(t *testing.T) {
	f := newProctoringFixture(t)

	// 4 x cell_phone = 60, past the flag threshold.
	for i := 0; i < 3; i++ {
		f.logViolation(t, model.ViolationCellPhone)
	}
	log, _ := f.svc.GetBySession(context.Background(), f.sessionID, f.student)
	if log.FlaggedForReview {
		t.Fatalf("flagged at score %d, too early", log.RiskScore)
	}

	f.logViolation(t, model.ViolationCellPhone)
	log, _ = f.svc.GetBySession(context.Background(), f.sessionID, f.student)
	if !log.FlaggedForReview {
		t.Errorf("not flagged at score %d", log.RiskScore)
	}
}

func TestLogViolationScoreCapped(t *testing.T) {
	f := newProctoringFixture(t)

	var res *model.LogViolationResult
	for i := 0; i < 12; i++ {
		res = f.logViolation(t, model.ViolationMultipleFaces)
	}
	if res.RiskScore != proctor.MaxScore {
		t.Errorf("score = %d, want cap %d", res.RiskScore, proctor.MaxScore)
	}
	if res.TotalViolations != 12 {
		t.Errorf("total = %d, timeline must keep growing past the cap", res.TotalViolations)
	}
}

func TestLogViolationRejectsUnknownType(t *testing.T) {
	f := newProctoringFixture(t)

	_, err := f.svc.LogViolation(context.Background(), model.LogViolationRequest{
		ExamID:    f.examID,
		SessionID: f.sessionID,
		Type:      "eye_tracking",
	}, f.student)
	if !errors.Is(err, ErrUnknownViolation) {
		t.Errorf("err = %v, want %v", err, ErrUnknownViolation)
	}
	if len(f.logs.logs) != 0 {
		t.Error("rejected violation must not create a log")
	}
}

func TestLogViolationQueuesStats(t *testing.T) {
	f := newProctoringFixture(t)

	f.logViolation(t, model.ViolationNoFace)
	f.logViolation(t, model.ViolationCopyPaste)
	if len(f.stats.recorded) != 2 {
		t.Errorf("stats recorded %d times, want 2", len(f.stats.recorded))
	}
}

func TestLogViolationSurvivesStatsFailure(t *testing.T) {
	f := newProctoringFixture(t)
	f.stats.err = errors.New("redis down")

	res := f.logViolation(t, model.ViolationNoFace)
	if res.RiskScore != 8 {
		t.Errorf("score = %d, want 8", res.RiskScore)
	}
}

func TestGetBySessionAuthorization(t *testing.T) {
	f := newProctoringFixture(t)
	f.logViolation(t, model.ViolationNoFace)

	if _, err := f.svc.GetBySession(context.Background(), f.sessionID, f.student); err != nil {
		t.Errorf("owner read: %v", err)
	}
	anyTeacher := Actor{ID: uuid.New(), Role: model.RoleTeacher}
	if _, err := f.svc.GetBySession(context.Background(), f.sessionID, anyTeacher); err != nil {
		t.Errorf("teacher read: %v", err)
	}
	otherStudent := Actor{ID: uuid.New(), Role: model.RoleStudent}
	if _, err := f.svc.GetBySession(context.Background(), f.sessionID, otherStudent); !errors.Is(err, ErrNotLogAccessible) {
		t.Errorf("other student err = %v, want %v", err, ErrNotLogAccessible)
	}
}

func TestListByExamOwnerOnlyLogs(t *testing.T) {
	f := newProctoringFixture(t)
	f.logViolation(t, model.ViolationNoFace)

	logs, err := f.svc.ListByExam(context.Background(), f.examID, f.owner)
	if err != nil {
		t.Fatalf("ListByExam: %v", err)
	}
	if len(logs) != 1 {
		t.Errorf("log count = %d, want 1", len(logs))
	}

	stranger := Actor{ID: uuid.New(), Role: model.RoleTeacher}
	if _, err := f.svc.ListByExam(context.Background(), f.examID, stranger); !errors.Is(err, ErrNotExamOwner) {
		t.Errorf("err = %v, want %v", err, ErrNotExamOwner)
	}
}

func TestListFlaggedScopedToOwnExams(t *testing.T) {
	f := newProctoringFixture(t)
	for i := 0; i < 4; i++ {
		f.logViolation(t, model.ViolationCellPhone) // 60, flagged
	}

	flagged, err := f.svc.ListFlagged(context.Background(), f.owner)
	if err != nil {
		t.Fatalf("ListFlagged: %v", err)
	}
	if len(flagged) != 1 {
		t.Errorf("flagged count = %d, want 1", len(flagged))
	}

	otherTeacher := Actor{ID: uuid.New(), Role: model.RoleTeacher}
	flagged, err = f.svc.ListFlagged(context.Background(), otherTeacher)
	if err != nil {
		t.Fatalf("ListFlagged other: %v", err)
	}
	if len(flagged) != 0 {
		t.Errorf("foreign teacher sees %d flagged logs", len(flagged))
	}
}

func TestReviewClearsFlagAndRecordsReviewer(t *testing.T) {
	f := newProctoringFixture(t)
	for i := 0; i < 4; i++ {
		f.logViolation(t, model.ViolationCellPhone)
	}
	log, _ := f.svc.GetBySession(context.Background(), f.sessionID, f.student)

	notes := "Phone was on the desk but unused, cleared after interview."
	cleared := false
	reviewed, err := f.svc.Review(context.Background(), log.ID, model.ReviewRequest{
		ReviewNotes:      &notes,
		FlaggedForReview: &cleared,
	}, f.owner)
	if err != nil {
		t.Fatalf("Review: %v", err)
	}
	if reviewed.FlaggedForReview {
		t.Error("flag not cleared by review")
	}
	if reviewed.ReviewNotes != notes {
		t.Errorf("notes = %q", reviewed.ReviewNotes)
	}
	if reviewed.ReviewedBy == nil || *reviewed.ReviewedBy != f.owner.ID {
		t.Errorf("reviewed_by = %v, want %s", reviewed.ReviewedBy, f.owner.ID)
	}

	// The review clears the flag for the state at review time, not forever:
	// a later violation re-runs the scorer and re-raises it.
	res := f.logViolation(t, model.ViolationTabSwitch)
	if res.RiskScore < proctor.FlagThreshold {
		t.Fatalf("score = %d, expected past threshold", res.RiskScore)
	}
	log, _ = f.svc.GetBySession(context.Background(), f.sessionID, f.student)
	if !log.FlaggedForReview {
		t.Error("flag not re-raised by post-review violation")
	}
}

func TestReviewRequiresExamOwner(t *testing.T) {
	f := newProctoringFixture(t)
	f.logViolation(t, model.ViolationNoFace)
	log, _ := f.svc.GetBySession(context.Background(), f.sessionID, f.student)

	stranger := Actor{ID: uuid.New(), Role: model.RoleTeacher}
	if _, err := f.svc.Review(context.Background(), log.ID, model.ReviewRequest{}, stranger); !errors.Is(err, ErrNotExamOwner) {
		t.Errorf("err = %v, want %v", err, ErrNotExamOwner)
	}

	if _, err := f.svc.Review(context.Background(), uuid.New(), model.ReviewRequest{}, f.owner); !errors.Is(err, ErrLogNotFound) {
		t.Errorf("missing log err = %v, want %v", err, ErrLogNotFound)
	}
}
