package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Arpan7125/procto-3.0/internal/middleware"
	"github.com/Arpan7125/procto-3.0/internal/model"
	"github.com/Arpan7125/procto-3.0/internal/observability"
	"github.com/Arpan7125/procto-3.0/internal/response"
	"github.com/Arpan7125/procto-3.0/internal/service"
	"github.com/Arpan7125/procto-3.0/internal/validator"
)

// ExamSessionHandler handles the exam attempt lifecycle endpoints.
type ExamSessionHandler struct {
	sessions *service.ExamSessionService
}

// NewExamSessionHandler creates a new ExamSessionHandler.
func NewExamSessionHandler(sessions *service.ExamSessionService) *ExamSessionHandler {
	return &ExamSessionHandler{sessions: sessions}
}

// failSession maps session service errors to API responses. Each eligibility
// failure keeps its own code so clients can show the specific reason.
func failSession(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound), errors.Is(err, service.ErrSessionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrExamNotAvailable):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotAvailable)
	case errors.Is(err, service.ErrExamNotStarted):
		response.Fail(c, http.StatusForbidden, response.ErrExamNotStarted)
	case errors.Is(err, service.ErrExamWindowEnded):
		response.Fail(c, http.StatusForbidden, response.ErrExamWindowEnded)
	case errors.Is(err, service.ErrNotEnrolled):
		response.Fail(c, http.StatusForbidden, response.ErrNotEnrolled)
	case errors.Is(err, service.ErrMaxAttempts):
		response.Fail(c, http.StatusForbidden, response.ErrMaxAttempts)
	case errors.Is(err, service.ErrNotSessionOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotAuthorized)
	case errors.Is(err, service.ErrForbidden):
		response.Fail(c, http.StatusForbidden, response.ErrForbidden)
	case errors.Is(err, service.ErrSessionSubmitted):
		response.Fail(c, http.StatusBadRequest, response.ErrSessionSubmitted)
	case errors.Is(err, service.ErrSessionNotActive):
		response.Fail(c, http.StatusBadRequest, response.ErrSessionNotActive)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Start handles POST /api/v1/exam-sessions. Responds 201 for a new
// attempt and 200 when resuming an existing ACTIVE session.
func (h *ExamSessionHandler) Start(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.StartSessionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, resumed, err := h.sessions.Start(c.Request.Context(), claims.UserID, claims.Role, req.ExamID, c.ClientIP())
	if err != nil {
		failSession(c, err)
		return
	}

	if resumed {
		response.Success(c, http.StatusOK, session)
		return
	}
	observability.CountSessionStarted()
	response.Success(c, http.StatusCreated, session)
}

// SaveAnswers handles POST /api/v1/exam-sessions/:session_id/answers.
func (h *ExamSessionHandler) SaveAnswers(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.SaveAnswersRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	saved, err := h.sessions.SaveAnswers(c.Request.Context(), id, claims.UserID, claims.Role, req.Answers)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"saved": saved})
}

// Submit handles POST /api/v1/exam-sessions/:session_id/submit.
func (h *ExamSessionHandler) Submit(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	session, err := h.sessions.Submit(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		failSession(c, err)
		return
	}
	observability.CountSessionSubmitted("student")
	response.Success(c, http.StatusOK, session)
}

// Get handles GET /api/v1/exam-sessions/:session_id.
func (h *ExamSessionHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("session_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	detail, err := h.sessions.Get(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		failSession(c, err)
		return
	}
	response.Success(c, http.StatusOK, detail)
}
