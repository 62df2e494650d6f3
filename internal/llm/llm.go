package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/dmcosta/inspeq/internal/model"
)

// QuestionDraft is one generated checklist question before it gets an id.
type QuestionDraft struct {
	Text         string   `json:"text"`
	ResponseType string   `json:"response_type"`
	IsRequired   bool     `json:"is_required"`
	Options      []string `json:"options"`
	Weight       float64  `json:"weight"`
}

type generationResult struct {
	Questions []QuestionDraft `json:"questions"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable by listing models.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// GenerateQuestions asks the LLM for n draft questions about a safety topic.
// Response types come back as free text and are normalized to the canonical
// enum; drafts with a non-positive weight are corrected to 1 so the result is
// always insertable.
func (c *Client) GenerateQuestions(ctx context.Context, topic string, n int) ([]QuestionDraft, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: buildGenerationPrompt(topic, n)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.4,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM generation response", "raw", raw)

	drafts, err := parseGenerationResult(raw)
	if err != nil {
		return nil, err
	}
	return drafts, nil
}

func parseGenerationResult(raw string) ([]QuestionDraft, error) {
	var result generationResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	if len(result.Questions) == 0 {
		return nil, fmt.Errorf("LLM returned no questions (raw: %s)", raw)
	}

	for i := range result.Questions {
		d := &result.Questions[i]
		d.ResponseType = string(model.NormalizeResponseType(d.ResponseType))
		if d.Weight <= 0 {
			d.Weight = 1
		}
		if !model.ResponseType(d.ResponseType).HasOptions() {
			d.Options = nil
		}
	}
	return result.Questions, nil
}

func buildGenerationPrompt(topic string, n int) string {
	var sb strings.Builder
	sb.WriteString("You are a workplace-safety specialist writing inspection checklist questions.\n\n")
	sb.WriteString(fmt.Sprintf("TOPIC: %s\n", topic))
	sb.WriteString(fmt.Sprintf("NUMBER OF QUESTIONS: %d\n\n", n))
	sb.WriteString("INSTRUCTIONS:\n")
	sb.WriteString("- Write clear, observable questions an inspector can answer on site.\n")
	sb.WriteString("- Prefer yes_no questions; use multiple_choice or numeric only when a yes/no answer loses information.\n")
	sb.WriteString("- Allowed response types: yes_no, text, numeric, multiple_choice, date, time, dropdown, checkboxes, paragraph.\n")
	sb.WriteString("- Provide options only for multiple_choice, dropdown and checkboxes.\n")
	sb.WriteString("- Weight reflects how critical the item is, from 1 (minor) to 10 (life-threatening).\n")
	sb.WriteString("\nRespond ONLY with a JSON object:\n")
	sb.WriteString(`{"questions": [{"text": "...", "response_type": "yes_no", "is_required": true, "options": [], "weight": 5}]}`)
	sb.WriteString("\n")
	return sb.String()
}
