package main

import (
	"fmt"
	"log/slog"

	"github.com/jackzampolin/labparse/internal/config"
	"github.com/jackzampolin/labparse/internal/extraction"
	"github.com/jackzampolin/labparse/internal/home"
	"github.com/jackzampolin/labparse/internal/metrics"
	"github.com/jackzampolin/labparse/internal/ocr"
	"github.com/jackzampolin/labparse/internal/output"
	"github.com/jackzampolin/labparse/internal/pipeline"
	"github.com/jackzampolin/labparse/internal/structuring"
)

// app holds what every pipeline command resolves once at startup.
type app struct {
	home    *home.Dir
	config  *config.Manager
	format  output.Format
	metrics *metrics.Recorder
	logger  *slog.Logger
}

func loadApp() (*app, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}

	mgr, err := config.NewManager(cfgFile, h.Path())
	if err != nil {
		return nil, err
	}

	format := outputFormat
	if format == "" {
		format = mgr.Get().Output.Format
	}
	f, err := output.ParseFormat(format)
	if err != nil {
		return nil, err
	}

	logger := slog.Default()
	if path := mgr.ConfigFile(); path != "" {
		logger.Debug("loaded config", "path", path)
	}

	return &app{
		home:    h,
		config:  mgr,
		format:  f,
		metrics: metrics.New(),
		logger:  logger,
	}, nil
}

// newDriver builds the full pipeline for cfg.
func (a *app) newDriver(cfg *config.Config, generateFixture bool) (*pipeline.Driver, error) {
	llm, err := cfg.LLM.NewLLMClient()
	if err != nil {
		return nil, fmt.Errorf("failed to create llm client: %w", err)
	}
	unit, err := cfg.Extraction.Unit()
	if err != nil {
		return nil, err
	}
	attemptTimeout, err := cfg.Extraction.Timeout()
	if err != nil {
		return nil, err
	}

	client := structuring.New(structuring.Config{
		LLM:         llm,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Logger:      a.logger,
	})
	ctrl := extraction.New(client, extraction.Config{
		Unit:           unit,
		AttemptTimeout: attemptTimeout,
		Observer:       a.metrics,
		Logger:         a.logger,
	})
	recognizer := ocr.NewTesseract(ocr.TesseractConfig{
		Path:       cfg.OCR.TesseractPath,
		Language:   cfg.OCR.Language,
		Preprocess: cfg.OCR.Preprocess,
		Logger:     a.logger,
	})

	return pipeline.New(pipeline.Config{
		Recognizer:      recognizer,
		Extractor:       ctrl,
		GenerateFixture: generateFixture,
		Telemetry:       a.metrics,
		Logger:          a.logger,
	}), nil
}

// flushMetrics writes the textfile export when configured.
func (a *app) flushMetrics(cfg *config.Config) {
	path := config.ResolveEnvVars(cfg.Metrics.Textfile)
	if path == "" {
		return
	}
	if err := a.metrics.WriteTextfile(path); err != nil {
		a.logger.Warn("metrics export failed", "error", err)
	}
}
