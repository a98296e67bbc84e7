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

// ProctoringHandler handles violation reporting and review endpoints.
type ProctoringHandler struct {
	proctoringService *service.ProctoringService
}

// NewProctoringHandler creates a new ProctoringHandler.
func NewProctoringHandler(proctoringService *service.ProctoringService) *ProctoringHandler {
	return &ProctoringHandler{proctoringService: proctoringService}
}

// TouchLog godoc
// POST /api/v1/proctoring/log
// Ensures a proctoring log exists for the caller's session.
func (h *ProctoringHandler) TouchLog(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.TouchLogRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	log, err := h.proctoringService.EnsureLog(c.Request.Context(), req.ExamID, req.SessionID, claims.Actor())
	if err != nil {
		h.failProctoring(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"log": log})
}

// LogViolation godoc
// POST /api/v1/proctoring/violations
// Appends a violation to the caller's session log and returns the new score.
func (h *ProctoringHandler) LogViolation(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	var req model.LogViolationRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.proctoringService.LogViolation(c.Request.Context(), req, claims.Actor())
	if err != nil {
		if errors.Is(err, service.ErrUnknownViolation) {
			response.Fail(c, http.StatusBadRequest, response.ErrUnknownViolationType)
			return
		}
		h.failProctoring(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// GetBySession godoc
// GET /api/v1/proctoring/session/:session_id
// Retrieves the log for a session. Owner or any teacher.
func (h *ProctoringHandler) GetBySession(c *gin.Context) {
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

	log, err := h.proctoringService.GetBySession(c.Request.Context(), sessionID, claims.Actor())
	if err != nil {
		h.failProctoring(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"log": log})
}

// ListByExam godoc
// GET /api/v1/proctoring/exam/:exam_id
// Lists all logs for an exam the caller owns, riskiest first.
func (h *ProctoringHandler) ListByExam(c *gin.Context) {
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

	logs, err := h.proctoringService.ListByExam(c.Request.Context(), examID, claims.Actor())
	if err != nil {
		h.failProctoring(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logs": logs})
}

// ListFlagged godoc
// GET /api/v1/proctoring/flagged
// Lists flagged logs across all exams the caller owns.
func (h *ProctoringHandler) ListFlagged(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	logs, err := h.proctoringService.ListFlagged(c.Request.Context(), claims.Actor())
	if err != nil {
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"logs": logs})
}

// Review godoc
// PUT /api/v1/proctoring/:log_id/review
// Applies the exam owner's review to a log.
func (h *ProctoringHandler) Review(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	logID, err := uuid.Parse(c.Param("log_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.ReviewRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	log, err := h.proctoringService.Review(c.Request.Context(), logID, req, claims.Actor())
	if err != nil {
		h.failProctoring(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"log": log})
}

func (h *ProctoringHandler) failProctoring(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound), errors.Is(err, service.ErrLogNotFound),
		errors.Is(err, service.ErrExamNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotSessionOwner)
	case errors.Is(err, service.ErrNotLogAccessible):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrNotExamOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotExamOwner)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
