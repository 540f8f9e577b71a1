package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"

	"github.com/Arpan7125/procto-3.0/internal/model"
)

// ErrGenerationFailed wraps every provider failure so handlers map them to a
// single error code.
var ErrGenerationFailed = errors.New("question generation failed")

// GenerateRequest describes one generation batch.
type GenerateRequest struct {
	Prompt     string             `json:"prompt" binding:"required,min=3,max=500"`
	Type       model.QuestionType `json:"type" binding:"required,oneof=MULTIPLE_CHOICE MULTIPLE_SELECT TRUE_FALSE SHORT_ANSWER ESSAY FILL_BLANK NUMERICAL CODE"`
	Count      int                `json:"count" binding:"required,min=1,max=50"`
	Difficulty string             `json:"difficulty" binding:"omitempty,oneof=EASY MEDIUM HARD"`
}

// GeneratedQuestion is one question proposal. Faculty review it before it
// enters the bank.
type GeneratedQuestion struct {
	Type    model.QuestionType    `json:"type"`
	Content model.QuestionContent `json:"content"`
	Points  float64               `json:"points"`
}

// Generator produces question proposals from a topic prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) ([]GeneratedQuestion, error)
}

// OpenAIConfig defines configuration options for the OpenAI generator.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}

// OpenAIGenerator implements Generator against the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	cfg    OpenAIConfig
	log    zerolog.Logger
}

// NewOpenAIGenerator builds a generator using the provided configuration.
func NewOpenAIGenerator(cfg OpenAIConfig, log zerolog.Logger) (*OpenAIGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 2048
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}

	return &OpenAIGenerator{
		client: openai.NewClientWithConfig(openai.DefaultConfig(cfg.APIKey)),
		cfg:    cfg,
		log:    log.With().Str("component", "openai_generator").Logger(),
	}, nil
}

// Generate sends the generation request to OpenAI and parses the response.
func (g *OpenAIGenerator) Generate(ctx context.Context, req GenerateRequest) ([]GeneratedQuestion, error) {
	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: generatorSystemPrompt(),
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildUserPrompt(req),
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	if err != nil {
		g.log.Error().Err(err).Str("model", g.cfg.Model).Msg("chat completion failed")
		return nil, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices returned", ErrGenerationFailed)
	}

	questions, err := parseGeneratedQuestions(strings.TrimSpace(resp.Choices[0].Message.Content), req.Type)
	if err != nil {
		return nil, err
	}
	return questions, nil
}

func generatorSystemPrompt() string {
	return "You are an exam question author. Respond with a JSON object of the form " +
		`{"questions": [{"question": "...", "options": ["..."], "correct_answer": ..., "explanation": "..."}]}. ` +
		"For choice questions, correct_answer is the index (or array of indexes) into options. " +
		"For true/false questions, correct_answer is a boolean. Keep questions unambiguous and self-contained."
}

func buildUserPrompt(req GenerateRequest) string {
	b := strings.Builder{}
	fmt.Fprintf(&b, "Generate %d questions of type %s on the following topic.\n\n", req.Count, req.Type)
	b.WriteString("# Topic\n")
	b.WriteString(req.Prompt)
	if req.Difficulty != "" {
		b.WriteString("\n\n# Difficulty\n")
		b.WriteString(req.Difficulty)
	}
	b.WriteString("\nReturn JSON.")
	return b.String()
}

func parseGeneratedQuestions(content string, qType model.QuestionType) ([]GeneratedQuestion, error) {
	var payload struct {
		Questions []model.QuestionContent `json:"questions"`
	}
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return nil, fmt.Errorf("%w: parse response json: %v", ErrGenerationFailed, err)
	}
	if len(payload.Questions) == 0 {
		return nil, fmt.Errorf("%w: empty question list", ErrGenerationFailed)
	}

	out := make([]GeneratedQuestion, 0, len(payload.Questions))
	for _, content := range payload.Questions {
		if content.Question == "" {
			continue
		}
		out = append(out, GeneratedQuestion{Type: qType, Content: content, Points: 1})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no usable questions", ErrGenerationFailed)
	}
	return out, nil
}
