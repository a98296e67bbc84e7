package service

import "errors"

// Sentinel errors surfaced by the session and proctoring services. Handlers
// map these to response codes; anything else is an internal error.
var (
	ErrExamNotFound    = errors.New("exam not found")
	ErrExamNotActive   = errors.New("exam is not active")
	ErrExamNotStarted  = errors.New("exam has not started yet")
	ErrExamEnded       = errors.New("exam has ended")
	ErrExamCompleted   = errors.New("exam already completed by this user")
	ErrSessionNotFound = errors.New("session not found")
	ErrNotSessionOwner = errors.New("not the session owner")
	ErrSessionInactive = errors.New("session is no longer active")
	ErrInvalidStatus   = errors.New("invalid end status")

	ErrLogNotFound      = errors.New("proctoring log not found")
	ErrNotExamOwner     = errors.New("not the exam owner")
	ErrNotLogAccessible = errors.New("not authorized to access this log")
	ErrUnknownViolation = errors.New("unknown violation type")
)
