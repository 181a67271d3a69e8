// Package pipeline wires recognition, extraction and validation into a single
// run over one report image.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/labparse/internal/extraction"
	"github.com/jackzampolin/labparse/internal/fixture"
	"github.com/jackzampolin/labparse/internal/ocr"
	"github.com/jackzampolin/labparse/internal/report"
)

// Extractor runs the retrying extraction over recognized text.
type Extractor interface {
	Run(ctx context.Context, rawText string) (*extraction.Outcome, error)
}

// Telemetry receives per-run measurements.
type Telemetry interface {
	ObserveRecognition(textLen int, d time.Duration)
	ObserveRun(outcome string, d time.Duration, tests int)
}

// Config configures a Driver.
type Config struct {
	Recognizer ocr.Recognizer
	Extractor  Extractor
	// GenerateFixture synthesizes the sample report when the source image
	// is missing.
	GenerateFixture bool
	Telemetry       Telemetry
	Logger          *slog.Logger
}

// Driver runs the pipeline. It is safe for concurrent use when its
// Recognizer and Extractor are.
type Driver struct {
	recognizer      ocr.Recognizer
	extractor       Extractor
	generateFixture bool
	telemetry       Telemetry
	logger          *slog.Logger
}

// New creates a driver.
func New(cfg Config) *Driver {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Driver{
		recognizer:      cfg.Recognizer,
		extractor:       cfg.Extractor,
		generateFixture: cfg.GenerateFixture,
		telemetry:       cfg.Telemetry,
		logger:          cfg.Logger,
	}
}

// Run processes imagePath. The returned Result is never nil; on failure its
// Failure is set and the same *Failure is returned as the error.
func (d *Driver) Run(ctx context.Context, imagePath string) (*Result, error) {
	res := &Result{
		RunID:     uuid.NewString(),
		Source:    imagePath,
		StartedAt: time.Now(),
	}
	logger := d.logger.With("run_id", res.RunID, "source", imagePath)

	rep, err := d.run(ctx, logger, res)
	res.Total = time.Since(res.StartedAt)
	if err != nil {
		res.Failure = &Failure{Kind: Classify(err), Err: err}
		if ctx.Err() != nil {
			res.Failure.Kind = FailureCancelled
		}
		logger.Error("run failed", "kind", res.Failure.Kind, "error", err, "attempts", len(res.Attempts))
	} else {
		res.Report = rep
		logger.Info("run succeeded", "tests", len(rep.Tests), "attempts", len(res.Attempts), "duration", res.Total)
	}

	if d.telemetry != nil {
		tests := 0
		if res.Report != nil {
			tests = len(res.Report.Tests)
		}
		d.telemetry.ObserveRun(res.Outcome(), res.Total, tests)
	}
	if res.Failure != nil {
		return res, res.Failure
	}
	return res, nil
}

func (d *Driver) run(ctx context.Context, logger *slog.Logger, res *Result) (*report.ReportData, error) {
	if d.generateFixture {
		created, err := fixture.Ensure(res.Source)
		if err != nil {
			return nil, &ocr.RecognitionError{Path: res.Source, Reason: "cannot synthesize sample report", Err: err}
		}
		if created {
			res.FixtureGenerated = true
			logger.Info("generated sample report", "path", res.Source)
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	text, err := d.recognizer.Recognize(ctx, res.Source)
	res.Recognition = time.Since(start)
	if err != nil {
		return nil, err
	}
	res.RawText = text
	if d.telemetry != nil {
		d.telemetry.ObserveRecognition(len(text), res.Recognition)
	}
	logger.Debug("recognized text", "chars", len(text), "duration", res.Recognition)

	start = time.Now()
	outcome, err := d.extractor.Run(ctx, text)
	res.Extraction = time.Since(start)
	if outcome != nil {
		res.Attempts = outcome.Attempts
	}
	if err != nil {
		return nil, err
	}

	return report.Validate([]byte(outcome.Payload))
}
