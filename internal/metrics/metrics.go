// Package metrics exports run and retry telemetry in Prometheus format.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jackzampolin/labparse/internal/extraction"
	"github.com/jackzampolin/labparse/internal/providers"
	"github.com/jackzampolin/labparse/internal/report"
)

// Attempt outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeTransient = "transient"
	OutcomeFatal     = "fatal"
	OutcomeInvalid   = "invalid"
	OutcomeCancelled = "cancelled"
	OutcomeError     = "error"
)

// Recorder holds the process's collectors on a private registry so tests and
// repeated CLI runs never collide on the default registry.
type Recorder struct {
	registry *prometheus.Registry

	attemptsTotal      *prometheus.CounterVec
	attemptDuration    prometheus.Histogram
	backoffSeconds     prometheus.Histogram
	runsTotal          *prometheus.CounterVec
	runDuration        prometheus.Histogram
	recognitionSeconds prometheus.Histogram
	recognizedLength   prometheus.Histogram
	reportTests        prometheus.Histogram
}

// New creates a Recorder with all collectors registered.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		attemptsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labparse_extraction_attempts_total",
				Help: "Total number of extraction attempts",
			},
			[]string{"outcome"}, // outcome: success, transient, fatal, invalid, cancelled, error
		),
		attemptDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labparse_extraction_attempt_duration_seconds",
				Help:    "Extraction attempt duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100},
			},
		),
		backoffSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labparse_extraction_backoff_seconds",
				Help:    "Backoff wait scheduled before a retry",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 6),
			},
		),
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "labparse_runs_total",
				Help: "Total number of pipeline runs",
			},
			[]string{"outcome"}, // outcome: success or failure kind
		),
		runDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labparse_run_duration_seconds",
				Help:    "Pipeline run duration in seconds",
				Buckets: []float64{.5, 1, 2.5, 5, 10, 25, 50, 100, 250},
			},
		),
		recognitionSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labparse_ocr_duration_seconds",
				Help:    "Text recognition duration in seconds",
				Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25},
			},
		),
		recognizedLength: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labparse_ocr_text_length",
				Help:    "Length of recognized text",
				Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
			},
		),
		reportTests: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "labparse_report_tests",
				Help:    "Number of test rows in validated reports",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
		),
	}
}

// Registry returns the registry holding the collectors.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Transition implements extraction.Observer.
func (r *Recorder) Transition(from, to extraction.State, attempt *extraction.Attempt, delay time.Duration) {
	switch to.Phase {
	case extraction.Retrying:
		r.backoffSeconds.Observe(delay.Seconds())
	case extraction.Succeeded, extraction.Exhausted:
	default:
		return
	}
	if attempt == nil {
		return
	}
	r.attemptsTotal.WithLabelValues(AttemptOutcome(attempt.Err)).Inc()
	r.attemptDuration.Observe(attempt.Duration.Seconds())
}

// ObserveRecognition records one recognition pass.
func (r *Recorder) ObserveRecognition(textLen int, d time.Duration) {
	r.recognitionSeconds.Observe(d.Seconds())
	r.recognizedLength.Observe(float64(textLen))
}

// ObserveRun records a finished pipeline run. tests is the number of rows in
// the report and is ignored for failed runs.
func (r *Recorder) ObserveRun(outcome string, d time.Duration, tests int) {
	r.runsTotal.WithLabelValues(outcome).Inc()
	r.runDuration.Observe(d.Seconds())
	if outcome == OutcomeSuccess {
		r.reportTests.Observe(float64(tests))
	}
}

// WriteTextfile writes all metrics in Prometheus text format, for pickup by
// node_exporter's textfile collector.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}

// AttemptOutcome labels the result of one extraction attempt.
func AttemptOutcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded) && !providers.IsTransient(err):
		return OutcomeCancelled
	case providers.IsTransient(err):
		return OutcomeTransient
	case providers.IsFatal(err):
		return OutcomeFatal
	}
	if _, ok := report.IsSchemaValidationError(err); ok {
		return OutcomeInvalid
	}
	return OutcomeError
}

var _ extraction.Observer = (*Recorder)(nil)
