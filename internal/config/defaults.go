package config

import "github.com/jackzampolin/labparse/internal/providers"

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Type:        LLMTypeGemini,
			BaseURL:     providers.GeminiOpenAIBaseURL,
			Model:       providers.GeminiDefaultModel,
			APIKey:      "${GEMINI_API_KEY}",
			Temperature: 0.1,
			Timeout:     "60s",
		},
		OCR: OCRConfig{
			TesseractPath: "tesseract",
			Language:      "eng",
			Preprocess:    true,
		},
		Extraction: ExtractionConfig{
			BackoffUnit:    "1s",
			AttemptTimeout: "90s",
		},
		Output: OutputConfig{
			Format: "json",
		},
	}
}

// defaultKeys flattens DefaultConfig into viper keys so every leaf can be
// overridden from the environment.
func defaultKeys() map[string]any {
	d := DefaultConfig()
	return map[string]any{
		"llm.type":                   d.LLM.Type,
		"llm.base_url":               d.LLM.BaseURL,
		"llm.model":                  d.LLM.Model,
		"llm.api_key":                d.LLM.APIKey,
		"llm.temperature":            d.LLM.Temperature,
		"llm.timeout":                d.LLM.Timeout,
		"llm.rate_limit":             d.LLM.RateLimit,
		"ocr.tesseract_path":         d.OCR.TesseractPath,
		"ocr.language":               d.OCR.Language,
		"ocr.preprocess":             d.OCR.Preprocess,
		"extraction.backoff_unit":    d.Extraction.BackoffUnit,
		"extraction.attempt_timeout": d.Extraction.AttemptTimeout,
		"output.format":              d.Output.Format,
		"metrics.textfile":           d.Metrics.Textfile,
	}
}
