package report

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hemoglobinPayload = `{
	"patient_name": "John Doe",
	"date": "2024-10-25",
	"tests": [
		{"test_name": "Hemoglobin", "value": 14.5, "unit": "g/dL", "status": "Normal"},
		{"test_name": "Glucose (Fasting)", "value": 115, "unit": "mg/dL", "status": "High"}
	]
}`

func TestValidate_Valid(t *testing.T) {
	data, err := Validate([]byte(hemoglobinPayload))
	require.NoError(t, err)

	assert.Equal(t, "John Doe", data.PatientName)
	assert.Equal(t, "2024-10-25", data.Date)
	require.Len(t, data.Tests, 2)
	assert.Equal(t, MedicalRecord{TestName: "Hemoglobin", Value: 14.5, Unit: "g/dL", Status: StatusNormal}, data.Tests[0])
	assert.Equal(t, "Glucose (Fasting)", data.Tests[1].TestName, "source order must be kept")
}

func TestValidate_EmptyTestsIsValid(t *testing.T) {
	data, err := Validate([]byte(`{"patient_name":"Jane Roe","date":"2024-01-02","tests":[]}`))
	require.NoError(t, err)
	assert.NotNil(t, data.Tests)
	assert.Empty(t, data.Tests)
}

func TestValidate_Rejections(t *testing.T) {
	tests := []struct {
		name       string
		payload    string
		wantPath   string
		wantReason string
	}{
		{
			name:       "status outside enum",
			payload:    `{"patient_name":"A","date":"2024-10-25","tests":[{"test_name":"Hb","value":1,"unit":"g/dL","status":"Elevated"}]}`,
			wantPath:   "tests[0].status",
			wantReason: "status not in {Normal,High,Low}",
		},
		{
			name:       "value as string",
			payload:    `{"patient_name":"A","date":"2024-10-25","tests":[{"test_name":"Hb","value":"14.5","unit":"g/dL","status":"Normal"}]}`,
			wantPath:   "tests[0].value",
			wantReason: "value is not numeric",
		},
		{
			name:       "tests not a list",
			payload:    `{"patient_name":"A","date":"2024-10-25","tests":{}}`,
			wantPath:   "tests",
			wantReason: "tests must be a list",
		},
		{
			name:       "tests missing",
			payload:    `{"patient_name":"A","date":"2024-10-25"}`,
			wantPath:   "tests",
			wantReason: "tests is required",
		},
		{
			name:       "empty patient name",
			payload:    `{"patient_name":"  ","date":"2024-10-25","tests":[]}`,
			wantPath:   "patient_name",
			wantReason: "patient_name must not be empty",
		},
		{
			name:       "ambiguous date",
			payload:    `{"patient_name":"A","date":"10/25/24","tests":[]}`,
			wantPath:   "date",
			wantReason: "date is not an ISO-8601 date (YYYY-MM-DD)",
		},
		{
			name:       "empty unit in second row",
			payload:    `{"patient_name":"A","date":"2024-10-25","tests":[{"test_name":"Hb","value":1,"unit":"g/dL","status":"Low"},{"test_name":"Plt","value":250,"unit":"","status":"Normal"}]}`,
			wantPath:   "tests[1].unit",
			wantReason: "unit must not be empty",
		},
		{
			name:       "root not an object",
			payload:    `[1,2,3]`,
			wantPath:   "",
			wantReason: "report_data must be an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Validate([]byte(tt.payload))
			require.Error(t, err)
			assert.Nil(t, data)

			sve, ok := IsSchemaValidationError(err)
			require.True(t, ok, "expected SchemaValidationError, got %T", err)
			assert.Equal(t, tt.wantPath, sve.Path)
			assert.Equal(t, tt.wantReason, sve.Reason)
		})
	}
}

func TestValidate_UnknownFieldRejectedBySchema(t *testing.T) {
	payload := `{"patient_name":"A","date":"2024-10-25","tests":[],"physician":"Dr. Smith"}`
	_, err := Validate([]byte(payload))
	require.Error(t, err)
	_, ok := IsSchemaValidationError(err)
	assert.True(t, ok)
}

func TestValidate_NotJSON(t *testing.T) {
	_, err := Validate([]byte("Patient: John Doe"))
	sve, ok := IsSchemaValidationError(err)
	require.True(t, ok)
	assert.Contains(t, sve.Reason, "not valid JSON")
}

func TestMarshal_RoundTrip(t *testing.T) {
	original := &ReportData{
		PatientName: "John Doe",
		Date:        "2024-10-25",
		Tests: []MedicalRecord{
			{TestName: "Hemoglobin", Value: 14.5, Unit: "g/dL", Status: StatusNormal},
			{TestName: "White Blood Cells", Value: 6.5, Unit: "K/uL", Status: StatusNormal},
			{TestName: "Platelets", Value: 250, Unit: "K/uL", Status: StatusNormal},
			{TestName: "Glucose (Fasting)", Value: 115, Unit: "mg/dL", Status: StatusHigh},
		},
	}

	payload, err := Marshal(original)
	require.NoError(t, err)

	decoded, err := Validate(payload)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestMarshal_NilTestsRendersEmptyList(t *testing.T) {
	payload, err := Marshal(&ReportData{PatientName: "A", Date: "2024-10-25"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"patient_name":"A","date":"2024-10-25","tests":[]}`, string(payload))
}

func TestPointerToPath(t *testing.T) {
	assert.Equal(t, "tests[2].status", pointerToPath("/tests/2/status"))
	assert.Equal(t, "patient_name", pointerToPath("/patient_name"))
	assert.Equal(t, "", pointerToPath(""))
}

func TestReportData_Count(t *testing.T) {
	data, err := Validate([]byte(hemoglobinPayload))
	require.NoError(t, err)
	counts := data.Count()
	assert.Equal(t, 1, counts[StatusNormal])
	assert.Equal(t, 1, counts[StatusHigh])
	assert.Equal(t, 0, counts[StatusLow])
}

func TestStatusValid(t *testing.T) {
	assert.True(t, StatusHigh.Valid())
	assert.False(t, Status("Elevated").Valid())
}
