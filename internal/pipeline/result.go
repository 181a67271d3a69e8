package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackzampolin/labparse/internal/extraction"
	"github.com/jackzampolin/labparse/internal/ocr"
	"github.com/jackzampolin/labparse/internal/providers"
	"github.com/jackzampolin/labparse/internal/report"
)

// FailureKind labels why a run produced no report.
type FailureKind string

const (
	FailureRecognition         FailureKind = "recognition"
	FailureExtractionFatal     FailureKind = "extraction_fatal"
	FailureExtractionExhausted FailureKind = "extraction_exhausted"
	FailureValidation          FailureKind = "validation"
	FailureCancelled           FailureKind = "cancelled"
)

// Failure is the error returned by Driver.Run.
type Failure struct {
	Kind FailureKind
	Err  error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// AsFailure unwraps err to a Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// Classify maps an error from any stage to a FailureKind.
func Classify(err error) FailureKind {
	if _, ok := ocr.IsRecognitionError(err); ok {
		return FailureRecognition
	}
	if (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) && !providers.IsTransient(err) {
		return FailureCancelled
	}
	if _, ok := extraction.IsExhausted(err); ok {
		return FailureExtractionExhausted
	}
	if _, ok := report.IsSchemaValidationError(err); ok {
		return FailureValidation
	}
	return FailureExtractionFatal
}

// Result is the outcome of one run. Report is nil when the run failed.
type Result struct {
	RunID            string               `json:"run_id" yaml:"run_id"`
	Source           string               `json:"source" yaml:"source"`
	FixtureGenerated bool                 `json:"fixture_generated,omitempty" yaml:"fixture_generated,omitempty"`
	Report           *report.ReportData   `json:"report,omitempty" yaml:"report,omitempty"`
	RawText          string               `json:"-" yaml:"-"`
	Attempts         []extraction.Attempt `json:"-" yaml:"-"`
	Failure          *Failure             `json:"-" yaml:"-"`
	StartedAt        time.Time            `json:"started_at" yaml:"started_at"`
	Recognition      time.Duration        `json:"recognition" yaml:"recognition"`
	Extraction       time.Duration        `json:"extraction" yaml:"extraction"`
	Total            time.Duration        `json:"total" yaml:"total"`
}

// Succeeded reports whether the run produced a report.
func (r *Result) Succeeded() bool {
	return r.Failure == nil && r.Report != nil
}

// Outcome is "success" or the failure kind.
func (r *Result) Outcome() string {
	if r.Failure != nil {
		return string(r.Failure.Kind)
	}
	return "success"
}
