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

// CourseHandler handles course lifecycle and enrollment endpoints.
type CourseHandler struct {
	courses *service.CourseService
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(courses *service.CourseService) *CourseHandler {
	return &CourseHandler{courses: courses}
}

// failCourse maps course service errors to API responses.
func failCourse(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCourseNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, service.ErrCourseInactive):
		response.Fail(c, http.StatusForbidden, response.ErrCourseInactive)
	case errors.Is(err, service.ErrNotCourseOwner):
		response.Fail(c, http.StatusForbidden, response.ErrNotAuthorized)
	case errors.Is(err, service.ErrNotEnrolled):
		response.Fail(c, http.StatusForbidden, response.ErrNotEnrolled)
	default:
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}

// Create handles POST /api/v1/courses.
func (h *CourseHandler) Create(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.CreateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.courses.Create(c.Request.Context(), claims.UserID, &req)
	if err != nil {
		failCourse(c, err)
		return
	}
	response.Success(c, http.StatusCreated, course)
}

// List handles GET /api/v1/courses.
func (h *CourseHandler) List(c *gin.Context) {
	claims := middleware.GetClaims(c)

	courses, err := h.courses.ListForUser(c.Request.Context(), claims.UserID, claims.Role)
	if err != nil {
		failCourse(c, err)
		return
	}
	response.Success(c, http.StatusOK, courses)
}

// Get handles GET /api/v1/courses/:course_id.
func (h *CourseHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	course, err := h.courses.Get(c.Request.Context(), id)
	if err != nil {
		failCourse(c, err)
		return
	}
	response.Success(c, http.StatusOK, course)
}

// Update handles PATCH /api/v1/courses/:course_id.
func (h *CourseHandler) Update(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	var req model.UpdateCourseRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, err := h.courses.Update(c.Request.Context(), id, claims.UserID, claims.Role, &req)
	if err != nil {
		failCourse(c, err)
		return
	}
	response.Success(c, http.StatusOK, course)
}

// Delete handles DELETE /api/v1/courses/:course_id.
func (h *CourseHandler) Delete(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.courses.Delete(c.Request.Context(), id, claims.UserID, claims.Role); err != nil {
		failCourse(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Enroll handles POST /api/v1/courses/enroll.
func (h *CourseHandler) Enroll(c *gin.Context) {
	claims := middleware.GetClaims(c)

	var req model.EnrollByCodeRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	course, enrollment, err := h.courses.EnrollByCode(c.Request.Context(), claims.UserID, req.CourseCode)
	if err != nil {
		if errors.Is(err, service.ErrCourseNotFound) {
			// A bad code reads as "invalid code", not "not found".
			response.Fail(c, http.StatusNotFound, response.ErrInvalidCourseCode)
			return
		}
		failCourse(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"course": course, "enrollment": enrollment})
}

// Unenroll handles DELETE /api/v1/courses/:course_id/enrollment.
func (h *CourseHandler) Unenroll(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.courses.Unenroll(c.Request.Context(), id, claims.UserID); err != nil {
		failCourse(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"dropped": true})
}

// RemoveStudent handles DELETE /api/v1/courses/:course_id/students/:student_id.
func (h *CourseHandler) RemoveStudent(c *gin.Context) {
	claims := middleware.GetClaims(c)
	courseID, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}
	studentID, err := uuid.Parse(c.Param("student_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	if err := h.courses.RemoveStudent(c.Request.Context(), courseID, studentID, claims.UserID, claims.Role); err != nil {
		failCourse(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"dropped": true})
}

// Roster handles GET /api/v1/courses/:course_id/roster.
func (h *CourseHandler) Roster(c *gin.Context) {
	claims := middleware.GetClaims(c)
	id, err := uuid.Parse(c.Param("course_id"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return
	}

	roster, err := h.courses.Roster(c.Request.Context(), id, claims.UserID, claims.Role)
	if err != nil {
		failCourse(c, err)
		return
	}
	response.Success(c, http.StatusOK, roster)
}
