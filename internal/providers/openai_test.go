package providers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

const reportSchema = `{"type":"object","properties":{"patient_name":{"type":"string"}},"required":["patient_name"],"additionalProperties":false}`

func chatCompletionBody(content, finishReason string) string {
	b, _ := json.Marshal(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gemini-2.5-flash",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": finishReason,
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 8, "total_tokens": 20},
	})
	return string(b)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*OpenAIClient, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	client := NewOpenAIClient(OpenAIConfig{
		Name:    GeminiName,
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-2.5-flash",
	})
	return client, &hits
}

func structuredRequest() *ChatRequest {
	return &ChatRequest{
		Messages: []Message{
			{Role: "system", Content: "You extract lab reports."},
			{Role: "user", Content: "Patient Name: John Doe"},
		},
		Temperature: 0.1,
		ResponseFormat: &ResponseFormat{
			Name:   "report_data",
			Strict: true,
			Schema: json.RawMessage(reportSchema),
		},
	}
}

func TestOpenAIChatSuccess(t *testing.T) {
	var payload map[string]any

	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected authorization header: %q", got)
		}
		body, err := io.ReadAll(r.Body)
		if err != nil {
			t.Errorf("read body: %v", err)
		}
		if err := json.Unmarshal(body, &payload); err != nil {
			t.Errorf("unmarshal body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatCompletionBody("```json\n{\"patient_name\":\"John Doe\"}\n```", "stop")))
	})

	result, err := client.Chat(context.Background(), structuredRequest())
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if hits.Load() != 1 {
		t.Fatalf("expected exactly one request, got %d", hits.Load())
	}
	if string(result.ParsedJSON) != `{"patient_name":"John Doe"}` {
		t.Fatalf("unexpected parsed JSON: %s", result.ParsedJSON)
	}
	if result.Provider != GeminiName || result.TotalTokens != 20 {
		t.Fatalf("unexpected result metadata: %+v", result)
	}
	if result.RequestID == "" {
		t.Fatal("expected generated request id")
	}

	if got, _ := payload["model"].(string); got != "gemini-2.5-flash" {
		t.Fatalf("expected default model, got %q", got)
	}
	rf, _ := payload["response_format"].(map[string]any)
	if rf["type"] != "json_schema" {
		t.Fatalf("expected json_schema response format, got %v", payload["response_format"])
	}
	js, _ := rf["json_schema"].(map[string]any)
	if js["name"] != "report_data" || js["strict"] != true {
		t.Fatalf("unexpected json_schema block: %v", js)
	}
	if _, ok := js["schema"].(map[string]any); !ok {
		t.Fatalf("expected schema object, got %T", js["schema"])
	}
}

func TestOpenAIChatClassifiesStatus(t *testing.T) {
	tests := []struct {
		name          string
		status        int
		wantTransient bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"server error", http.StatusInternalServerError, true},
		{"unavailable", http.StatusServiceUnavailable, true},
		{"bad credentials", http.StatusUnauthorized, false},
		{"forbidden", http.StatusForbidden, false},
		{"malformed request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":{"message":"nope","type":"error","param":"","code":"x"}}`))
			})

			_, err := client.Chat(context.Background(), structuredRequest())
			if err == nil {
				t.Fatal("expected error")
			}
			if hits.Load() != 1 {
				t.Fatalf("client must not retry internally, got %d requests", hits.Load())
			}
			if IsTransient(err) != tt.wantTransient {
				t.Fatalf("IsTransient = %v, want %v (err=%v)", IsTransient(err), tt.wantTransient, err)
			}
			if IsFatal(err) == tt.wantTransient {
				t.Fatalf("IsFatal = %v, want %v (err=%v)", IsFatal(err), !tt.wantTransient, err)
			}
		})
	}
}

func TestOpenAIChatRetryAfter(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit","type":"rate_limit_error","param":"","code":"rate_limit"}}`))
	})

	_, err := client.Chat(context.Background(), structuredRequest())
	var te *TransientServiceError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientServiceError, got %T: %v", err, err)
	}
	if te.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", te.StatusCode)
	}
	if te.RetryAfter != 3*time.Second {
		t.Fatalf("expected RetryAfter=3s, got %v", te.RetryAfter)
	}
}

func TestOpenAIChatResponseLevelFailures(t *testing.T) {
	tests := []struct {
		name          string
		body          string
		wantTransient bool
	}{
		{"truncated", chatCompletionBody(`{"patient_name":`, "length"), true},
		{"empty content", chatCompletionBody("", "stop"), true},
		{"content filter", chatCompletionBody("x", "content_filter"), false},
		{"no choices", `{"id":"c","object":"chat.completion","created":1,"model":"m","choices":[]}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Chat(context.Background(), structuredRequest())
			if err == nil {
				t.Fatal("expected error")
			}
			if IsTransient(err) != tt.wantTransient {
				t.Fatalf("IsTransient = %v, want %v (err=%v)", IsTransient(err), tt.wantTransient, err)
			}
		})
	}
}

func TestOpenAIChatMissingKeyIsFatal(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{BaseURL: "http://127.0.0.1:0"})
	_, err := client.Chat(context.Background(), structuredRequest())
	if !IsFatal(err) {
		t.Fatalf("expected fatal error for missing key, got %v", err)
	}
}

func TestOpenAIChatNetworkErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewOpenAIClient(OpenAIConfig{APIKey: "k", BaseURL: url})
	_, err := client.Chat(context.Background(), structuredRequest())
	if !IsTransient(err) {
		t.Fatalf("expected transient error for refused connection, got %T: %v", err, err)
	}
}

func TestOpenAIChatCancelledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Chat(ctx, structuredRequest())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGeminiLive(t *testing.T) {
	client := LoadTestConfig().NewGeminiClient()
	if client == nil {
		t.Skip("GEMINI_API_KEY not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	result, err := client.Chat(ctx, structuredRequest())
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if len(result.ParsedJSON) == 0 {
		t.Fatalf("expected structured output, got %q", result.Content)
	}
}
