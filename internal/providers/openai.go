package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

const (
	OpenAIName = "openai"
	GeminiName = "gemini"

	// GeminiOpenAIBaseURL is Gemini's OpenAI-compatible endpoint.
	GeminiOpenAIBaseURL  = "https://generativelanguage.googleapis.com/v1beta/openai/"
	GeminiDefaultModel   = "gemini-2.5-flash"
	openAIDefaultModel   = "gpt-4o-mini"
	openAIDefaultTimeout = 120 * time.Second
)

// OpenAIConfig holds configuration for an OpenAI-compatible chat client.
type OpenAIConfig struct {
	Name       string // Provider label used in errors and logs (default "openai")
	APIKey     string
	BaseURL    string        // Optional; empty uses the SDK default
	Model      string        // Default model when the request does not set one
	Timeout    time.Duration // HTTP timeout
	HTTPClient *http.Client  // Optional (tests)
}

// OpenAIClient implements LLMClient against any OpenAI-compatible
// chat-completions endpoint using the official SDK.
type OpenAIClient struct {
	name   string
	model  string
	hasKey bool
	client openai.Client
}

// NewOpenAIClient creates a new client. SDK-level retries are disabled; the
// extraction controller owns the retry policy.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIName
	}
	if cfg.Model == "" {
		cfg.Model = openAIDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = openAIDefaultTimeout
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		name:   cfg.Name,
		model:  cfg.Model,
		hasKey: cfg.APIKey != "",
		client: openai.NewClient(opts...),
	}
}

// NewGeminiClient creates a client for Gemini's OpenAI-compatible endpoint.
func NewGeminiClient(apiKey, model string) *OpenAIClient {
	if model == "" {
		model = GeminiDefaultModel
	}
	return NewOpenAIClient(OpenAIConfig{
		Name:    GeminiName,
		APIKey:  apiKey,
		BaseURL: GeminiOpenAIBaseURL,
		Model:   model,
	})
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Model returns the configured default model.
func (c *OpenAIClient) Model() string {
	return c.model
}

// Chat sends one chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	if !c.hasKey {
		return nil, &FatalServiceError{Provider: c.name, Message: "missing API key"}
	}

	start := time.Now()
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	model := req.Model
	if model == "" {
		model = c.model
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)),
	}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			params.Messages = append(params.Messages, openai.SystemMessage(m.Content))
		case "assistant":
			params.Messages = append(params.Messages, openai.AssistantMessage(m.Content))
		default:
			params.Messages = append(params.Messages, openai.UserMessage(m.Content))
		}
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if rf := req.ResponseFormat; rf != nil {
		schema := shared.ResponseFormatJSONSchemaJSONSchemaParam{
			Name:   rf.Name,
			Schema: rf.Schema,
			Strict: openai.Bool(rf.Strict),
		}
		if rf.Description != "" {
			schema.Description = openai.String(rf.Description)
		}
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{JSONSchema: schema},
		}
	}

	var reqOpts []option.RequestOption
	if req.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(req.Timeout))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params, reqOpts...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, c.mapError(err)
	}

	result := &ChatResult{
		RequestID:        requestID,
		Provider:         c.name,
		ModelUsed:        resp.Model,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		ExecutionTime:    time.Since(start),
	}

	if len(resp.Choices) == 0 {
		return result, &TransientServiceError{Provider: c.name, Message: fmt.Sprintf("empty choices in response (model=%s, id=%s)", resp.Model, resp.ID)}
	}

	choice := resp.Choices[0]
	result.FinishReason = string(choice.FinishReason)
	switch {
	case choice.Message.Refusal != "":
		return result, &FatalServiceError{Provider: c.name, Message: "model refused: " + choice.Message.Refusal}
	case choice.FinishReason == "content_filter":
		return result, &FatalServiceError{Provider: c.name, Message: "response blocked by content filter"}
	case choice.FinishReason == "length":
		return result, &TransientServiceError{Provider: c.name, Message: "response truncated at token limit"}
	case choice.Message.Content == "":
		return result, &TransientServiceError{Provider: c.name, Message: "empty content in response"}
	}

	result.Content = choice.Message.Content
	if req.ResponseFormat != nil {
		// Unparsable content is left for the caller to judge.
		if parsed, err := ParseStructuredJSON(result.Content); err == nil {
			result.ParsedJSON = parsed
		}
	}
	return result, nil
}

func (c *OpenAIClient) mapError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		retryAfter := time.Duration(0)
		if apiErr.Response != nil {
			retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return ClassifyStatus(c.name, apiErr.StatusCode, apiErr.Message, retryAfter, err)
	}
	// No HTTP response: network failure or per-request timeout.
	return &TransientServiceError{Provider: c.name, Message: "request failed", Err: err}
}

// Verify interface
var _ LLMClient = (*OpenAIClient)(nil)
