// Package report defines the lab report data contracts and the schema used both
// to constrain the remote extraction call and to validate what comes back.
package report

// Status is the interpretation of a test value against its reference range.
type Status string

const (
	StatusNormal Status = "Normal"
	StatusHigh   Status = "High"
	StatusLow    Status = "Low"
)

// Statuses lists the allowed status tags in declaration order.
var Statuses = []Status{StatusNormal, StatusHigh, StatusLow}

// Valid reports whether s is one of the allowed status tags.
func (s Status) Valid() bool {
	for _, allowed := range Statuses {
		if s == allowed {
			return true
		}
	}
	return false
}

// MedicalRecord is one lab test observation.
type MedicalRecord struct {
	TestName string  `json:"test_name" yaml:"test_name"`
	Value    float64 `json:"value" yaml:"value"`
	Unit     string  `json:"unit" yaml:"unit"`
	Status   Status  `json:"status" yaml:"status"`
}

// ReportData is one parsed report. Tests keep the order they appear in the
// source text and are never nil once validated.
type ReportData struct {
	PatientName string          `json:"patient_name" yaml:"patient_name"`
	Date        string          `json:"date" yaml:"date"`
	Tests       []MedicalRecord `json:"tests" yaml:"tests"`
}

// Count returns the number of tests per status.
func (r *ReportData) Count() map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, t := range r.Tests {
		counts[t.Status]++
	}
	return counts
}
