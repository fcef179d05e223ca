// Package llm generates exam content through an OpenAI-compatible API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/examsim/medexam/internal/model"
	"github.com/examsim/medexam/internal/session"
)

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new generator client.
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

// Ping verifies the endpoint is reachable before the server starts taking
// exams against it.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

const systemPrompt = "You are a medical exam item writer. You respond with JSON only, no prose."

// Generate asks the model for a batch of multiple-choice questions.
// It implements session.Generator; records are returned unvalidated.
func (c *Client) Generate(ctx context.Context, req session.GenRequest) ([]model.QuestionRecord, error) {
	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildExamPrompt(req)},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("generator response", "raw", raw)

	records, err := parseExamJSON(raw)
	if err != nil {
		return nil, err
	}
	return records, nil
}

func buildExamPrompt(req session.GenRequest) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Create a %s medical exam with %d multiple-choice questions on %s.\n",
		req.Difficulty, req.Count, req.Topic))
	sb.WriteString("Question stems may carry a type tag such as \"Vignette:\" or \"Match:\".\n")
	if req.Context != "" {
		sb.WriteString("\nBase the questions on this reference text:\n")
		sb.WriteString(req.Context)
		sb.WriteString("\n")
	}
	sb.WriteString("\nRespond ONLY with a JSON array in this exact shape:\n")
	sb.WriteString(`[{"question":"...","options":{"A":"..","B":"..","C":"..","D":".."},"correct":"A","explanation":"...","extra_edge":"..."}]`)
	sb.WriteString("\n")
	sb.WriteString(`Every "correct" value must be one of that question's option keys. Use "N/A" for extra_edge when there is no high-yield note.`)
	sb.WriteString("\n")
	return sb.String()
}

// parseExamJSON slices the outermost JSON array out of the reply and decodes
// it. Models wrap output in prose or code fences often enough that
// unmarshaling the whole reply is not reliable.
func parseExamJSON(raw string) ([]model.QuestionRecord, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")
	if start < 0 || end < start {
		return nil, fmt.Errorf("no JSON array in generator reply")
	}

	var records []model.QuestionRecord
	if err := json.Unmarshal([]byte(raw[start:end+1]), &records); err != nil {
		return nil, fmt.Errorf("parse generator reply: %w", err)
	}
	return records, nil
}
