package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/seonix/seonix-backend/internal/middleware"
	"github.com/seonix/seonix-backend/internal/model"
	"github.com/seonix/seonix-backend/internal/response"
	"github.com/seonix/seonix-backend/internal/service"
	"github.com/seonix/seonix-backend/internal/validator"
)

// SessionHandler handles exam-session lifecycle endpoints.
type SessionHandler struct {
	sessionService *service.ExamSessionService
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(sessionService *service.ExamSessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// StartSession godoc
// POST /api/v1/sessions/start
// Starts an exam attempt, or resumes the caller's existing active session.
func (h *SessionHandler) StartSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, exam, resumed, err := h.sessionService.Start(c.Request.Context(), req.ExamID, claims.UserID, c.GetHeader("User-Agent"))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrExamNotActive):
			response.Fail(c, http.StatusForbidden, response.ErrExamNotActive)
		case errors.Is(err, service.ErrExamNotStarted):
			response.Fail(c, http.StatusForbidden, response.ErrExamNotStarted)
		case errors.Is(err, service.ErrExamEnded):
			response.Fail(c, http.StatusForbidden, response.ErrExamEnded)
		case errors.Is(err, service.ErrExamCompleted):
			response.Fail(c, http.StatusConflict, response.ErrAlreadyCompleted)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}

	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	response.Success(c, status, gin.H{
		"session":          session,
		"resumed":          resumed,
		"duration_minutes": exam.DurationMinutes,
	})
}

// UpdateActivity godoc
// PUT /api/v1/sessions/:session_id/activity
// Applies an activity patch to the caller's active session.
func (h *SessionHandler) UpdateActivity(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var patch model.ActivityPatch
	if fields := validator.Bind(c, &patch); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.RecordActivity(c.Request.Context(), sessionID, claims.UserID, patch)
	if err != nil {
		h.failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// EndSession godoc
// PUT /api/v1/sessions/:session_id/end
// Moves the caller's session to a terminal status.
func (h *SessionHandler) EndSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.EndSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.sessionService.End(c.Request.Context(), sessionID, claims.UserID, req.Status)
	if err != nil {
		if errors.Is(err, service.ErrInvalidStatus) {
			response.Fail(c, http.StatusBadRequest, response.ErrInvalidEndStatus)
			return
		}
		h.failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// GetSession godoc
// GET /api/v1/sessions/:session_id
// Retrieves a session for its owner or the exam's owning teacher.
func (h *SessionHandler) GetSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	sessionID, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessionService.Get(c.Request.Context(), sessionID, claims.Actor())
	if err != nil {
		h.failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"session": session})
}

// ListByExam godoc
// GET /api/v1/sessions/exam/:exam_id
// Lists all sessions for an exam the caller owns.
func (h *SessionHandler) ListByExam(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	sessions, err := h.sessionService.ListByExam(c.Request.Context(), examID, claims.Actor())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrExamNotFound):
			response.Fail(c, http.StatusNotFound, response.ErrNotFound)
		case errors.Is(err, service.ErrNotExamOwner):
			response.Fail(c, http.StatusForbidden, response.ErrNotExamOwner)
		default:
			response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		}
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sessions": sessions})
}

func (h *SessionHandler) failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotSessionOwner)
	case errors.Is(err, service.ErrSessionInactive):
		response.Fail(c, http.StatusForbidden, response.ErrSessionNotActive)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
