package providers

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const MockClientName = "mock"

// MockStep is one scripted outcome. Exactly one of Content or Err is used.
type MockStep struct {
	Content string
	Err     error
}

// MockClient is an LLMClient for testing. It replays Script in order; once
// the script is exhausted the last step repeats. With an empty script every
// call returns ResponseText.
type MockClient struct {
	// Configurable behavior
	Latency      time.Duration
	ResponseText string
	Script       []MockStep

	// State
	requestCount atomic.Int64
	mu           sync.Mutex
	requests     []*ChatRequest
}

// NewMockClient creates a new mock client with sensible defaults.
func NewMockClient(steps ...MockStep) *MockClient {
	return &MockClient{
		ResponseText: `{"patient_name":"Mock Patient","date":"2024-01-01","tests":[]}`,
		Script:       steps,
	}
}

// Name returns the client identifier.
func (c *MockClient) Name() string {
	return MockClientName
}

// Chat replays the next scripted step.
func (c *MockClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	count := c.requestCount.Add(1)

	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.mu.Unlock()

	if c.Latency > 0 {
		select {
		case <-time.After(c.Latency):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	step := MockStep{Content: c.ResponseText}
	if n := len(c.Script); n > 0 {
		idx := int(count) - 1
		if idx >= n {
			idx = n - 1
		}
		step = c.Script[idx]
	}
	if step.Err != nil {
		return nil, step.Err
	}

	result := &ChatResult{
		RequestID:     fmt.Sprintf("mock-%d", count),
		Provider:      MockClientName,
		ModelUsed:     req.Model,
		Content:       step.Content,
		FinishReason:  "stop",
		ExecutionTime: time.Since(start),
	}
	if req.ResponseFormat != nil {
		if parsed, err := ParseStructuredJSON(step.Content); err == nil {
			result.ParsedJSON = parsed
		}
	}
	return result, nil
}

// RequestCount returns the number of requests made.
func (c *MockClient) RequestCount() int64 {
	return c.requestCount.Load()
}

// Requests returns the requests received so far.
func (c *MockClient) Requests() []*ChatRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*ChatRequest, len(c.requests))
	copy(out, c.requests)
	return out
}

// Reset clears the request history.
func (c *MockClient) Reset() {
	c.requestCount.Store(0)
	c.mu.Lock()
	c.requests = nil
	c.mu.Unlock()
}

// Verify interface
var _ LLMClient = (*MockClient)(nil)
