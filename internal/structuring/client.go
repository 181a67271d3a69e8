// Package structuring turns recognized report text into a JSON payload with a
// single call to the remote extraction service.
package structuring

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackzampolin/labparse/internal/providers"
	"github.com/jackzampolin/labparse/internal/report"
)

const defaultTemperature = 0.1

var requestFormat = sync.OnceValues(func() (*providers.ResponseFormat, error) {
	schema, err := report.ReportDataShape.JSONSchema()
	if err != nil {
		return nil, err
	}
	return &providers.ResponseFormat{
		Name:        report.ReportDataShape.Name,
		Description: report.ReportDataShape.Description,
		Strict:      true,
		Schema:      schema,
	}, nil
})

// Config configures a Client.
type Config struct {
	LLM         providers.LLMClient
	Model       string  // Optional; client default when empty
	Temperature float64 // Default 0.1
	MaxTokens   int
	Logger      *slog.Logger
}

// Client is the structuring client. It never retries: every call to Extract
// makes exactly one request and classifies any failure.
type Client struct {
	llm         providers.LLMClient
	model       string
	temperature float64
	maxTokens   int
	logger      *slog.Logger
}

// New creates a structuring client.
func New(cfg Config) *Client {
	if cfg.Temperature == 0 {
		cfg.Temperature = defaultTemperature
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Client{
		llm:         cfg.LLM,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      cfg.Logger,
	}
}

// Extract sends rawText to the service and returns the JSON payload.
//
// Errors are one of *providers.TransientServiceError,
// *providers.FatalServiceError, *report.SchemaValidationError (served but not
// JSON), or the context's error when ctx ends.
func (c *Client) Extract(ctx context.Context, rawText string) (string, error) {
	prompt, err := BuildPrompt(rawText)
	if err != nil {
		return "", &providers.FatalServiceError{Provider: c.llm.Name(), Message: "failed to render prompt", Err: err}
	}
	format, err := requestFormat()
	if err != nil {
		return "", &providers.FatalServiceError{Provider: c.llm.Name(), Message: "failed to build response schema", Err: err}
	}

	req := &providers.ChatRequest{
		Model: c.model,
		Messages: []providers.Message{
			{Role: "system", Content: SystemPrompt()},
			{Role: "user", Content: prompt},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: format,
	}

	result, err := c.llm.Chat(ctx, req)
	if err != nil {
		return "", c.classify(ctx, err)
	}

	payload := result.ParsedJSON
	if len(payload) == 0 {
		payload, err = providers.ParseStructuredJSON(result.Content)
		if err != nil {
			return "", &report.SchemaValidationError{Reason: fmt.Sprintf("response is not JSON: %v", err)}
		}
	}

	c.logger.Debug("structuring call succeeded",
		"provider", result.Provider,
		"model", result.ModelUsed,
		"request_id", result.RequestID,
		"prompt_version", PromptVersion(),
		"prompt_tokens", result.PromptTokens,
		"completion_tokens", result.CompletionTokens,
		"latency", result.ExecutionTime)
	return string(payload), nil
}

func (c *Client) classify(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	if providers.IsTransient(err) || providers.IsFatal(err) {
		return err
	}
	if _, ok := report.IsSchemaValidationError(err); ok {
		return err
	}
	return &providers.TransientServiceError{Provider: c.llm.Name(), Message: "unclassified failure", Err: err}
}
