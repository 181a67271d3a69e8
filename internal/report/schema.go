package report

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the type tag of a schema field.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindArray  Kind = "array"
)

// FormatDate marks a string field holding an ISO-8601 calendar date.
const FormatDate = "date"

// Field describes one property of a Shape.
type Field struct {
	Name        string
	Kind        Kind
	Description string

	// Constraints
	NonEmpty bool     // strings only
	Enum     []string // strings only
	Format   string   // strings only
	Items    *Shape   // arrays only
}

// Shape is a declarative description of an object. It is the single source
// for both the outbound request schema and the local validator.
type Shape struct {
	Name        string
	Description string
	Fields      []Field
}

// MedicalRecordShape describes MedicalRecord.
var MedicalRecordShape = Shape{
	Name:        "medical_record",
	Description: "One lab test result row",
	Fields: []Field{
		{Name: "test_name", Kind: KindString, NonEmpty: true, Description: "Name of the lab test"},
		{Name: "value", Kind: KindNumber, Description: "Numerical result"},
		{Name: "unit", Kind: KindString, NonEmpty: true, Description: "Measurement unit"},
		{Name: "status", Kind: KindString, Enum: statusNames(), Description: "Normal, High, or Low against the reference range"},
	},
}

// ReportDataShape describes ReportData.
var ReportDataShape = Shape{
	Name:        "report_data",
	Description: "Structured medical lab report",
	Fields: []Field{
		{Name: "patient_name", Kind: KindString, NonEmpty: true, Description: "Full name of the patient"},
		{Name: "date", Kind: KindString, NonEmpty: true, Format: FormatDate, Description: "Report date as YYYY-MM-DD"},
		{Name: "tests", Kind: KindArray, Items: &MedicalRecordShape, Description: "Test results in the order they appear"},
	},
}

func statusNames() []string {
	names := make([]string, len(Statuses))
	for i, s := range Statuses {
		names[i] = string(s)
	}
	return names
}

// RequestSchema renders the shape as a JSON Schema restricted to the keywords
// structured-output endpoints accept in strict mode.
func (s Shape) RequestSchema() map[string]any {
	return s.jsonSchema(false)
}

// ValidationSchema renders the shape as a JSON Schema including the local-only
// constraints (minLength, format).
func (s Shape) ValidationSchema() map[string]any {
	return s.jsonSchema(true)
}

func (s Shape) jsonSchema(local bool) map[string]any {
	props := make(map[string]any, len(s.Fields))
	required := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		props[f.Name] = f.jsonSchema(local)
		required = append(required, f.Name)
	}
	out := map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	return out
}

func (f Field) jsonSchema(local bool) map[string]any {
	out := map[string]any{"type": string(f.Kind)}
	if f.Description != "" {
		out["description"] = f.Description
	}
	switch f.Kind {
	case KindString:
		if len(f.Enum) > 0 {
			out["enum"] = f.Enum
		}
		if local && f.NonEmpty {
			out["minLength"] = 1
		}
		if local && f.Format != "" {
			out["format"] = f.Format
		}
	case KindArray:
		if f.Items != nil {
			out["items"] = f.Items.jsonSchema(local)
		}
	}
	return out
}

// JSONSchema returns RequestSchema as JSON.
func (s Shape) JSONSchema() (json.RawMessage, error) {
	b, err := json.Marshal(s.RequestSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s schema: %w", s.Name, err)
	}
	return b, nil
}

// Describe renders a compact human-readable field list for prompts, e.g.
// "tests: array of {test_name: string, ...}".
func (s Shape) Describe() string {
	parts := make([]string, 0, len(s.Fields))
	for _, f := range s.Fields {
		switch {
		case f.Kind == KindArray && f.Items != nil:
			parts = append(parts, fmt.Sprintf("%s: array of {%s}", f.Name, f.Items.Describe()))
		case len(f.Enum) > 0:
			parts = append(parts, fmt.Sprintf("%s: one of %s", f.Name, strings.Join(f.Enum, "|")))
		default:
			parts = append(parts, fmt.Sprintf("%s: %s", f.Name, f.Kind))
		}
	}
	return strings.Join(parts, ", ")
}
