package providers

import (
	"os"
)

// TestConfig holds provider configuration loaded from environment variables,
// so live tests use the same keys as production.
type TestConfig struct {
	GeminiAPIKey string
	OpenAIAPIKey string
}

// LoadTestConfig loads provider API keys from environment variables.
func LoadTestConfig() TestConfig {
	return TestConfig{
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
	}
}

// HasGemini returns true if a Gemini API key is configured.
func (c TestConfig) HasGemini() bool {
	return c.GeminiAPIKey != ""
}

// NewGeminiClient creates a Gemini client from test config.
// Returns nil if not configured.
func (c TestConfig) NewGeminiClient() *OpenAIClient {
	if !c.HasGemini() {
		return nil
	}
	return NewGeminiClient(c.GeminiAPIKey, "")
}
