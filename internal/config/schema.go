package config

import (
	"fmt"
	"time"
)

// Config holds labparse configuration.
// Stored at: ~/.labparse/config.yaml (or ./config.yaml)
type Config struct {
	LLM        LLMConfig        `mapstructure:"llm" yaml:"llm" json:"llm"`
	OCR        OCRConfig        `mapstructure:"ocr" yaml:"ocr" json:"ocr"`
	Extraction ExtractionConfig `mapstructure:"extraction" yaml:"extraction" json:"extraction"`
	Output     OutputConfig     `mapstructure:"output" yaml:"output" json:"output"`
	Metrics    MetricsConfig    `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// LLMConfig configures the remote extraction service.
type LLMConfig struct {
	Type        string  `mapstructure:"type" yaml:"type" json:"type"`             // "gemini" or "openai"
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url" json:"base_url"` // Empty uses the provider default
	Model       string  `mapstructure:"model" yaml:"model" json:"model"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key" json:"api_key"` // Supports ${ENV_VAR} syntax
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	Timeout     string  `mapstructure:"timeout" yaml:"timeout" json:"timeout"`          // HTTP request timeout, e.g. "60s"
	RateLimit   int     `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"` // Requests per minute, 0 = unlimited
}

// OCRConfig configures text recognition.
type OCRConfig struct {
	TesseractPath string `mapstructure:"tesseract_path" yaml:"tesseract_path" json:"tesseract_path"`
	Language      string `mapstructure:"language" yaml:"language" json:"language"`
	Preprocess    bool   `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
}

// ExtractionConfig configures the retry controller.
type ExtractionConfig struct {
	BackoffUnit    string `mapstructure:"backoff_unit" yaml:"backoff_unit" json:"backoff_unit"`          // Base delay, doubled per attempt
	AttemptTimeout string `mapstructure:"attempt_timeout" yaml:"attempt_timeout" json:"attempt_timeout"` // "0" disables
}

// OutputConfig configures presentation.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"` // "json" or "yaml"
}

// MetricsConfig configures telemetry export.
type MetricsConfig struct {
	// Textfile is a path for Prometheus text-format metrics written after
	// each run. Empty disables export.
	Textfile string `mapstructure:"textfile" yaml:"textfile" json:"textfile"`
}

// LLM provider types.
const (
	LLMTypeGemini = "gemini"
	LLMTypeOpenAI = "openai"
)

// Validate checks enumerations and durations.
func (c *Config) Validate() error {
	switch c.LLM.Type {
	case LLMTypeGemini, LLMTypeOpenAI:
	default:
		return fmt.Errorf("llm.type: unknown provider type %q", c.LLM.Type)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.RateLimit < 0 {
		return fmt.Errorf("llm.rate_limit must not be negative")
	}
	if _, err := c.LLM.RequestTimeout(); err != nil {
		return err
	}
	if _, err := c.Extraction.Unit(); err != nil {
		return err
	}
	if _, err := c.Extraction.Timeout(); err != nil {
		return err
	}
	switch c.Output.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("output.format: unsupported format %q", c.Output.Format)
	}
	return nil
}

// RequestTimeout parses llm.timeout.
func (c LLMConfig) RequestTimeout() (time.Duration, error) {
	return parseDuration("llm.timeout", c.Timeout)
}

// Unit parses extraction.backoff_unit. The unit must be positive.
func (c ExtractionConfig) Unit() (time.Duration, error) {
	d, err := parseDuration("extraction.backoff_unit", c.BackoffUnit)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("extraction.backoff_unit must be positive, got %q", c.BackoffUnit)
	}
	return d, nil
}

// Timeout parses extraction.attempt_timeout.
func (c ExtractionConfig) Timeout() (time.Duration, error) {
	return parseDuration("extraction.attempt_timeout", c.AttemptTimeout)
}

func parseDuration(key, v string) (time.Duration, error) {
	if v == "" || v == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %q", key, v)
	}
	return d, nil
}
