package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Arpan7125/procto-3.0/internal/middleware"
	"github.com/Arpan7125/procto-3.0/internal/model"
	"github.com/Arpan7125/procto-3.0/internal/response"
	"github.com/Arpan7125/procto-3.0/internal/service"
	"github.com/Arpan7125/procto-3.0/internal/validator"
)

// ExamHandler handles exam definition endpoints.
type ExamHandler struct {
	exams *service.ExamService
}

// NewExamHandler creates a new ExamHandler.
func NewExamHandler(exams *service.ExamService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

func failExam(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExamNotFound),
		errors.Is(err, service.ErrCourseNotFound),
		errors.Is(err, service.ErrQuestionNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotAuthorized)
	case errors.Is(err, service.ErrExamStarted):
		response.Fail(c, http.StatusConflict, response.ErrExamStarted)
	case errors.Is(err, service.ErrExamHasSessions):
		response.Fail(c, http.StatusBadRequest, response.ErrExamHasSessions)
	case errors.Is(err, service.ErrNoQuestions):
		response.Fail(c, http.StatusBadRequest, response.ErrNoQuestions)
	case errors.Is(err, service.ErrQuestionsMismatch), errors.Is(err, service.ErrInvalidContent):
		response.Fail(c, http.StatusBadRequest, response.ErrValidation)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Create handles POST /api/v1/exams.
func (h *ExamHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Create(c.Request.Context(), claims.UserID, claims.Role, &req)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusCreated, exam)
}

// ListByCourse handles GET /api/v1/exams?course_id=...
func (h *ExamHandler) ListByCourse(c *gin.Context) {
	claims := middleware.GetClaims(c)
	courseID, err := uuid.Parse(c.Query("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exams, err := h.exams.ListByCourse(c.Request.Context(), courseID, claims.Role)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, exams)
}

// Get handles GET /api/v1/exams/:exam_id.
func (h *ExamHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.exams.Get(c.Request.Context(), id)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Update handles PATCH /api/v1/exams/:exam_id.
func (h *ExamHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateExamRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	exam, err := h.exams.Update(c.Request.Context(), id, claims.UserID, claims.Role, &req)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Delete handles DELETE /api/v1/exams/:exam_id.
func (h *ExamHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.exams.Delete(c.Request.Context(), id, claims.UserID, claims.Role); err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// AddQuestions handles POST /api/v1/exams/:exam_id/questions.
func (h *ExamHandler) AddQuestions(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.AddQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := h.exams.AddQuestions(c.Request.Context(), id, claims.UserID, claims.Role, req.QuestionIDs); err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"added": len(req.QuestionIDs)})
}

// RemoveQuestion handles DELETE /api/v1/exams/:exam_id/questions/:question_id.
func (h *ExamHandler) RemoveQuestion(c *gin.Context) {
	claims := middleware.GetClaims(c)
	examID, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	questionID, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.exams.RemoveQuestion(c.Request.Context(), examID, questionID, claims.UserID, claims.Role); err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}

// Publish handles POST /api/v1/exams/:exam_id/publish.
func (h *ExamHandler) Publish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.exams.Publish(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Unpublish handles POST /api/v1/exams/:exam_id/unpublish.
func (h *ExamHandler) Unpublish(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	exam, err := h.exams.Unpublish(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, exam)
}

// Results handles GET /api/v1/exams/:exam_id/results.
func (h *ExamHandler) Results(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("exam_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	results, err := h.exams.Results(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		failExam(c, err)
		return
	}
	response.Success(c, http.StatusOK, results)
}
