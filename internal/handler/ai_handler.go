package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Arpan7125/procto-3.0/internal/ai"
	"github.com/Arpan7125/procto-3.0/internal/response"
	"github.com/Arpan7125/procto-3.0/internal/validator"
)

// AIHandler handles question generation endpoints.
type AIHandler struct {
	generator ai.Generator
}

// NewAIHandler creates a new AIHandler.
func NewAIHandler(generator ai.Generator) *AIHandler {
	return &AIHandler{generator: generator}
}

// Generate handles POST /api/v1/ai/generate-questions. Proposals are
// returned for faculty review; nothing is written to the bank here.
func (h *AIHandler) Generate(c *gin.Context) {
	var req ai.GenerateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	questions, err := h.generator.Generate(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ai.ErrGenerationFailed) {
			response.Fail(c, http.StatusBadGateway, response.ErrGenerationFailed)
			return
		}
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"questions": questions})
}
