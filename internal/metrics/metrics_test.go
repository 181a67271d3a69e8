package metrics

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/labparse/internal/extraction"
	"github.com/jackzampolin/labparse/internal/providers"
	"github.com/jackzampolin/labparse/internal/report"
)

func TestAttemptOutcome(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, OutcomeSuccess},
		{&providers.TransientServiceError{StatusCode: 503}, OutcomeTransient},
		{&providers.TransientServiceError{Message: "attempt timed out", Err: context.DeadlineExceeded}, OutcomeTransient},
		{&providers.FatalServiceError{StatusCode: 401}, OutcomeFatal},
		{&report.SchemaValidationError{Path: "date", Reason: "date is required"}, OutcomeInvalid},
		{context.Canceled, OutcomeCancelled},
		{errors.New("boom"), OutcomeError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AttemptOutcome(tt.err), "%v", tt.err)
	}
}

func TestRecorderObservesController(t *testing.T) {
	rec := New()
	calls := 0
	ex := extraction.ExtractorFunc(func(ctx context.Context, rawText string) (string, error) {
		calls++
		if calls < 3 {
			return "", &providers.TransientServiceError{StatusCode: 429}
		}
		return "{}", nil
	})
	c := extraction.New(ex, extraction.Config{Unit: time.Millisecond, Observer: rec})

	_, err := c.Run(context.Background(), "text")
	require.NoError(t, err)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.attemptsTotal.WithLabelValues(OutcomeTransient)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.attemptsTotal.WithLabelValues(OutcomeSuccess)))
	assert.EqualValues(t, 2, histogramCount(t, rec, "labparse_extraction_backoff_seconds"))
}

func histogramCount(t *testing.T, rec *Recorder, name string) uint64 {
	t.Helper()
	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			require.NotEmpty(t, mf.GetMetric())
			return mf.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRecorderFatalAttempt(t *testing.T) {
	rec := New()
	ex := extraction.ExtractorFunc(func(ctx context.Context, rawText string) (string, error) {
		return "", &providers.FatalServiceError{StatusCode: 403}
	})
	c := extraction.New(ex, extraction.Config{Unit: time.Millisecond, Observer: rec})

	_, err := c.Run(context.Background(), "text")
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.attemptsTotal.WithLabelValues(OutcomeFatal)))
}

func TestObserveRunAndTextfile(t *testing.T) {
	rec := New()
	rec.ObserveRecognition(120, 300*time.Millisecond)
	rec.ObserveRun(OutcomeSuccess, 2*time.Second, 4)
	rec.ObserveRun("validation", time.Second, 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runsTotal.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runsTotal.WithLabelValues("validation")))

	path := filepath.Join(t.TempDir(), "labparse.prom")
	require.NoError(t, rec.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `labparse_runs_total{outcome="success"} 1`)
	assert.Contains(t, out, `labparse_runs_total{outcome="validation"} 1`)
	assert.Contains(t, out, "labparse_ocr_text_length_count 1")
	assert.Contains(t, out, "labparse_report_tests_count 1")
}
