// Package ai generates task suggestions through an OpenAI-compatible
// chat completions endpoint. The response is constrained to a JSON
// schema so the planner can turn it straight into draft tasks.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-5-mini"
	defaultMaxTokens = 1024
)

// TaskIdea is one suggested task.
type TaskIdea struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Suggestion is the structured result of a suggestion request.
type Suggestion struct {
	Tasks    []TaskIdea `json:"tasks"`
	Category string     `json:"category"`
	Priority string     `json:"priority_level,omitempty"`
}

// Suggester calls the chat completions API to produce task suggestions
// for a grid cell.
type Suggester struct {
	baseURL   string
	apiKey    string
	model     string
	maxTokens int
	client    *http.Client
}

// New creates a suggester with the given configuration. Empty model,
// base URL, or non-positive max tokens fall back to the defaults.
func New(apiKey, baseURL, modelName string, maxTokens int) *Suggester {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if modelName == "" {
		modelName = defaultModel
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	return &Suggester{
		baseURL:   baseURL,
		apiKey:    apiKey,
		model:     modelName,
		maxTokens: maxTokens,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Configured reports whether an API key is available.
func (s *Suggester) Configured() bool {
	return s.apiKey != ""
}

// Suggest asks the model for tasks matching the prompt, aimed at the
// given day and time slot.
func (s *Suggester) Suggest(ctx context.Context, prompt, day, slot string) (Suggestion, error) {
	system := fmt.Sprintf(
		"You are a helpful productivity assistant that generates task suggestions "+
			"for weekly planners. Generate realistic, actionable tasks based on the "+
			"user's input. Consider the day (%s) and time slot (%s) when making "+
			"suggestions. Keep tasks concise and achievable within a typical time block.",
		day, slot,
	)
	user := fmt.Sprintf("Generate task suggestions for: %s. Day: %s, Time: %s", prompt, day, slot)

	reqBody := apiRequest{
		Model:               s.model,
		MaxCompletionTokens: s.maxTokens,
		Messages: []apiMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		ResponseFormat: suggestionResponseFormat(),
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Suggestion{}, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, s.baseURL+"/chat/completions", bytes.NewReader(bodyBytes),
	)
	if err != nil {
		return Suggestion{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return Suggestion{}, fmt.Errorf("calling completions API: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Suggestion{}, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiErrorResponse
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return Suggestion{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
		}
		return Suggestion{}, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	var result apiResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return Suggestion{}, fmt.Errorf("decoding response: %w", err)
	}
	if len(result.Choices) == 0 {
		return Suggestion{}, fmt.Errorf("empty completion response")
	}

	var suggestion Suggestion
	content := result.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), &suggestion); err != nil {
		return Suggestion{}, fmt.Errorf("decoding suggestion payload: %w", err)
	}
	if len(suggestion.Tasks) == 0 {
		return Suggestion{}, fmt.Errorf("suggestion payload holds no tasks")
	}

	return suggestion, nil
}

// Fallback builds generic suggestions for when the API is unreachable
// or unconfigured, so the suggestion flow still produces something
// usable.
func Fallback(prompt string) Suggestion {
	topic := strings.TrimSpace(prompt)
	if topic == "" {
		topic = "your plan"
	}

	return Suggestion{
		Tasks: []TaskIdea{
			{
				Title:       fmt.Sprintf("Plan: %s", topic),
				Description: "Break the goal into concrete steps and pick the first one.",
			},
			{
				Title:       fmt.Sprintf("Work on %s", topic),
				Description: "Spend a focused block making progress on the most important step.",
			},
			{
				Title:       fmt.Sprintf("Review %s", topic),
				Description: "Check what got done and carry anything unfinished forward.",
			},
		},
		Category: "general",
		Priority: "medium",
	}
}

// suggestionResponseFormat returns the JSON schema constraint for the
// completion.
func suggestionResponseFormat() *apiResponseFormat {
	return &apiResponseFormat{
		Type: "json_schema",
		JSONSchema: &apiJSONSchema{
			Name: "task_suggestions",
			Schema: json.RawMessage(`{
				"type": "object",
				"properties": {
					"tasks": {
						"type": "array",
						"items": {
							"type": "object",
							"properties": {
								"title": {"type": "string"},
								"description": {"type": "string"}
							},
							"required": ["title", "description"]
						}
					},
					"category": {"type": "string"},
					"priority_level": {"type": "string", "enum": ["high", "medium", "low"]}
				},
				"required": ["tasks", "category"],
				"additionalProperties": false
			}`),
		},
	}
}

// --- Chat completions API types ---

type apiRequest struct {
	Model               string             `json:"model"`
	MaxCompletionTokens int                `json:"max_completion_tokens,omitempty"`
	Messages            []apiMessage       `json:"messages"`
	ResponseFormat      *apiResponseFormat `json:"response_format,omitempty"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponseFormat struct {
	Type       string         `json:"type"`
	JSONSchema *apiJSONSchema `json:"json_schema,omitempty"`
}

type apiJSONSchema struct {
	Name   string          `json:"name"`
	Schema json.RawMessage `json:"schema"`
}

type apiResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
