package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jackzampolin/labparse/internal/report"
)

var sample = &report.ReportData{
	PatientName: "John Doe",
	Date:        "2024-10-25",
	Tests: []report.MedicalRecord{
		{TestName: "Hemoglobin", Value: 14.5, Unit: "g/dL", Status: report.StatusNormal},
	},
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"", FormatJSON},
		{"json", FormatJSON},
		{"YAML", FormatYAML},
		{"yml", FormatYAML},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sample))
	assert.Contains(t, buf.String(), "\n  \"patient_name\": \"John Doe\"")
	assert.JSONEq(t, `{"patient_name":"John Doe","date":"2024-10-25","tests":[{"test_name":"Hemoglobin","value":14.5,"unit":"g/dL","status":"Normal"}]}`, buf.String())
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sample))
	assert.Contains(t, buf.String(), "patient_name: John Doe")
	assert.Contains(t, buf.String(), "  - test_name: Hemoglobin")
}

func TestWriteUnknown(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), sample))
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")
	require.NoError(t, WriteFile(path, FormatJSON, sample))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := report.Validate(data)
	require.NoError(t, err)
	assert.Equal(t, sample, got)
}
