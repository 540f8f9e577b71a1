package ai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

func TestMockGeneratorShapes(t *testing.T) {
	g := NewMockGenerator()

	questions, err := g.Generate(context.Background(), GenerateRequest{
		Prompt: "binary trees",
		Type:   model.QuestionTypeMultipleChoice,
		Count:  3,
	})
	require.NoError(t, err)
	require.Len(t, questions, 3)
	for _, q := range questions {
		require.Equal(t, model.QuestionTypeMultipleChoice, q.Type)
		require.NotEmpty(t, q.Content.Question)
		require.Len(t, q.Content.Options, 4)
		require.NotEmpty(t, q.Content.CorrectAnswer)
	}

	short, err := g.Generate(context.Background(), GenerateRequest{
		Prompt: "osmosis",
		Type:   model.QuestionTypeShortAnswer,
		Count:  1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, short[0].Content.AcceptedAnswers)
	require.True(t, short[0].Content.CaseInsensitive)
}

func TestParseGeneratedQuestions(t *testing.T) {
	content := `{"questions": [
		{"question": "What is 2+2?", "options": ["3", "4"], "correct_answer": 1},
		{"question": "", "options": []},
		{"question": "Is water wet?", "correct_answer": true}
	]}`

	questions, err := parseGeneratedQuestions(content, model.QuestionTypeMultipleChoice)
	require.NoError(t, err)
	// The empty-prompt entry is dropped.
	require.Len(t, questions, 2)
	require.Equal(t, "What is 2+2?", questions[0].Content.Question)

	_, err = parseGeneratedQuestions(`not json`, model.QuestionTypeEssay)
	require.ErrorIs(t, err, ErrGenerationFailed)

	_, err = parseGeneratedQuestions(`{"questions": []}`, model.QuestionTypeEssay)
	require.ErrorIs(t, err, ErrGenerationFailed)
}
