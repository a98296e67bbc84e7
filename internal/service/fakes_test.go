package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/seonix/seonix-backend/internal/model"
)

// In-memory stores standing in for the pgx repositories. They mirror the
// repository contract, including pgx.ErrNoRows on misses.

type fakeSessionStore struct {
	sessions map[uuid.UUID]*model.ExamSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[uuid.UUID]*model.ExamSession{}}
}

func (f *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*model.ExamSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *s
	return &copied, nil
}

func (f *fakeSessionStore) GetActiveByExamAndUser(_ context.Context, examID, userID uuid.UUID) (*model.ExamSession, error) {
	for _, s := range f.sessions {
		if s.ExamID == examID && s.UserID == userID && s.Status == model.SessionStatusActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeSessionStore) Create(_ context.Context, s *model.ExamSession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeSessionStore) UpdateActivity(_ context.Context, s *model.ExamSession) error {
	if _, ok := f.sessions[s.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *s
	f.sessions[s.ID] = &copied
	return nil
}

func (f *fakeSessionStore) End(_ context.Context, id uuid.UUID, status model.SessionStatus, endTime time.Time) error {
	s, ok := f.sessions[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.Status = status
	s.EndTime = &endTime
	return nil
}

func (f *fakeSessionStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.ExamSession, error) {
	var out []model.ExamSession
	for _, s := range f.sessions {
		if s.ExamID == examID {
			out = append(out, *s)
		}
	}
	return out, nil
}

type fakeExamStore struct {
	exams map[uuid.UUID]*model.Exam
}

func newFakeExamStore() *fakeExamStore {
	return &fakeExamStore{exams: map[uuid.UUID]*model.Exam{}}
}

func (f *fakeExamStore) GetByID(_ context.Context, id uuid.UUID) (*model.Exam, error) {
	e, ok := f.exams[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *e
	return &copied, nil
}

func (f *fakeExamStore) ListIDsByOwner(_ context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, e := range f.exams {
		if e.CreatedBy == ownerID {
			ids = append(ids, e.ID)
		}
	}
	return ids, nil
}

type fakeResultStore struct {
	completed map[string]bool
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{completed: map[string]bool{}}
}

func (f *fakeResultStore) markCompleted(examID, userID uuid.UUID) {
	f.completed[examID.String()+"/"+userID.String()] = true
}

func (f *fakeResultStore) Exists(_ context.Context, examID, userID uuid.UUID) (bool, error) {
	return f.completed[examID.String()+"/"+userID.String()], nil
}

type fakeLogStore struct {
	logs map[uuid.UUID]*model.ProctoringLog
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{logs: map[uuid.UUID]*model.ProctoringLog{}}
}

func (f *fakeLogStore) GetByID(_ context.Context, id uuid.UUID) (*model.ProctoringLog, error) {
	l, ok := f.logs[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *l
	return &copied, nil
}

func (f *fakeLogStore) GetBySession(_ context.Context, sessionID uuid.UUID) (*model.ProctoringLog, error) {
	for _, l := range f.logs {
		if l.SessionID == sessionID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeLogStore) GetByKey(_ context.Context, examID, sessionID, userID uuid.UUID) (*model.ProctoringLog, error) {
	for _, l := range f.logs {
		if l.ExamID == examID && l.SessionID == sessionID && l.UserID == userID {
			copied := *l
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeLogStore) Create(_ context.Context, l *model.ProctoringLog) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	copied := *l
	f.logs[l.ID] = &copied
	return nil
}

func (f *fakeLogStore) Update(_ context.Context, l *model.ProctoringLog) error {
	if _, ok := f.logs[l.ID]; !ok {
		return pgx.ErrNoRows
	}
	copied := *l
	f.logs[l.ID] = &copied
	return nil
}

func (f *fakeLogStore) ListByExam(_ context.Context, examID uuid.UUID) ([]model.ProctoringLog, error) {
	var out []model.ProctoringLog
	for _, l := range f.logs {
		if l.ExamID == examID {
			out = append(out, *l)
		}
	}
	return out, nil
}

func (f *fakeLogStore) ListFlaggedByExams(_ context.Context, examIDs []uuid.UUID) ([]model.ProctoringLog, error) {
	var out []model.ProctoringLog
	for _, l := range f.logs {
		if !l.FlaggedForReview {
			continue
		}
		for _, id := range examIDs {
			if l.ExamID == id {
				out = append(out, *l)
				break
			}
		}
	}
	return out, nil
}

type fakeStatsRecorder struct {
	attempts []uuid.UUID
	recorded []uuid.UUID
	err      error
}

func (f *fakeStatsRecorder) RecordAttempt(_ context.Context, examID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.attempts = append(f.attempts, examID)
	return nil
}

func (f *fakeStatsRecorder) RecordViolation(_ context.Context, examID uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, examID)
	return nil
}
