package ai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// MockGenerator produces deterministic placeholder questions. Used when no
// API key is configured so the endpoint stays exercisable in development.
type MockGenerator struct{}

// NewMockGenerator creates a MockGenerator.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// Generate returns req.Count placeholder questions for the topic.
func (g *MockGenerator) Generate(_ context.Context, req GenerateRequest) ([]GeneratedQuestion, error) {
	out := make([]GeneratedQuestion, 0, req.Count)
	for i := 1; i <= req.Count; i++ {
		content := model.QuestionContent{
			Question:    fmt.Sprintf("Sample question %d about %s", i, req.Prompt),
			Explanation: "Generated placeholder; replace before publishing.",
		}
		switch req.Type {
		case model.QuestionTypeMultipleChoice, model.QuestionTypeMultipleSelect:
			content.Options = []string{"Option A", "Option B", "Option C", "Option D"}
			content.CorrectAnswer = json.RawMessage(`0`)
		case model.QuestionTypeTrueFalse:
			content.CorrectAnswer = json.RawMessage(`true`)
		case model.QuestionTypeNumerical:
			content.CorrectAnswer = json.RawMessage(`42`)
		case model.QuestionTypeShortAnswer, model.QuestionTypeFillBlank:
			content.AcceptedAnswers = []string{"sample answer"}
			content.CaseInsensitive = true
		}
		out = append(out, GeneratedQuestion{Type: req.Type, Content: content, Points: 1})
	}
	return out, nil
}
