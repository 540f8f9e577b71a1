package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Arpan7125/procto-3.0/internal/middleware"
	"github.com/Arpan7125/procto-3.0/internal/model"
	"github.com/Arpan7125/procto-3.0/internal/response"
	"github.com/Arpan7125/procto-3.0/internal/service"
	"github.com/Arpan7125/procto-3.0/internal/validator"
)

// QuestionHandler handles question-bank endpoints.
type QuestionHandler struct {
	questions *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questions *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questions: questions}
}

func failQuestion(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrQuestionNotFound), errors.Is(err, service.ErrCourseNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotAuthorized)
	case errors.Is(err, service.ErrNotEnrolled):
		response.Fail(c, http.StatusForbidden, response.ErrNotEnrolled)
	case errors.Is(err, service.ErrInvalidContent):
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, map[string]string{"content": err.Error()})
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Create handles POST /api/v1/questions.
func (h *QuestionHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Create(c.Request.Context(), claims.UserID, claims.Role, &req)
	if err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusCreated, q)
}

// Import handles POST /api/v1/questions/import: bulk-create a reviewed batch,
// typically AI-generated drafts.
func (h *QuestionHandler) Import(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.ImportQuestionsRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.questions.Import(c.Request.Context(), claims.UserID, claims.Role, &req)
	if err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"imported": len(questions), "questions": questions})
}

// List handles GET /api/v1/questions?course_id=...&type=...&page=...
func (h *QuestionHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	courseID, err := uuid.Parse(c.Query("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var qType *model.QuestionType
	if raw := c.Query("type"); raw != "" {
		t := model.QuestionType(raw)
		qType = &t
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}

	questions, total, err := h.questions.List(c.Request.Context(), courseID, claims.UserID, claims.Role, qType, page, perPage)
	if err != nil {
		failQuestion(c, err)
		return
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	response.SuccessWithPagination(c, http.StatusOK, questions, &response.Pagination{
		Page:       page,
		PerPage:    perPage,
		TotalItems: int(total),
		TotalPages: totalPages,
	})
}

// Get handles GET /api/v1/questions/:question_id.
func (h *QuestionHandler) Get(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	q, err := h.questions.Get(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// Update handles PATCH /api/v1/questions/:question_id.
func (h *QuestionHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateQuestionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	q, err := h.questions.Update(c.Request.Context(), id, claims.UserID, claims.Role, &req)
	if err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusOK, q)
}

// Delete handles DELETE /api/v1/questions/:question_id.
func (h *QuestionHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("question_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.questions.Delete(c.Request.Context(), id, claims.UserID, claims.Role); err != nil {
		failQuestion(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}
