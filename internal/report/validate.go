package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidationError reports a payload that does not satisfy the report
// schema. Path uses dotted/indexed form, e.g. "tests[2].status".
type SchemaValidationError struct {
	Path   string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	if e.Path == "" {
		return "schema validation failed: " + e.Reason
	}
	return fmt.Sprintf("schema validation failed at %s: %s", e.Path, e.Reason)
}

// IsSchemaValidationError unwraps err to a SchemaValidationError.
func IsSchemaValidationError(err error) (*SchemaValidationError, bool) {
	var sve *SchemaValidationError
	if errors.As(err, &sve) {
		return sve, true
	}
	return nil, false
}

var compiledReportSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return compileShape(ReportDataShape)
})

func compileShape(s Shape) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(s.ValidationSchema())
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s schema: %w", s.Name, err)
	}
	url := s.Name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("failed to load %s schema: %w", s.Name, err)
	}
	schema, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s schema: %w", s.Name, err)
	}
	return schema, nil
}

// Validate checks payload against ReportDataShape and decodes it. Any
// violation is returned as a *SchemaValidationError.
func Validate(payload []byte) (*ReportData, error) {
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return nil, &SchemaValidationError{Reason: fmt.Sprintf("payload is not valid JSON: %v", err)}
	}

	// Field-level pass first so common failures get precise reasons.
	if err := ReportDataShape.check("", doc); err != nil {
		return nil, err
	}

	schema, err := compiledReportSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fromJSONSchemaError(err)
	}

	var data ReportData
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, &SchemaValidationError{Reason: fmt.Sprintf("payload does not decode: %v", err)}
	}
	if data.Tests == nil {
		data.Tests = []MedicalRecord{}
	}
	return &data, nil
}

// Marshal renders r in its canonical structured-text form.
func Marshal(r *ReportData) ([]byte, error) {
	out := *r
	if out.Tests == nil {
		out.Tests = []MedicalRecord{}
	}
	return json.Marshal(out)
}

func (s Shape) check(path string, v any) error {
	obj, ok := v.(map[string]any)
	if !ok {
		name := path
		if name == "" {
			name = s.Name
		}
		return &SchemaValidationError{Path: path, Reason: name + " must be an object"}
	}
	for _, f := range s.Fields {
		val, present := obj[f.Name]
		fieldPath := joinPath(path, f.Name)
		if !present || val == nil {
			return &SchemaValidationError{Path: fieldPath, Reason: f.Name + " is required"}
		}
		if err := f.check(fieldPath, val); err != nil {
			return err
		}
	}
	return nil
}

func (f Field) check(path string, v any) error {
	fail := func(format string, args ...any) error {
		return &SchemaValidationError{Path: path, Reason: fmt.Sprintf(format, args...)}
	}

	switch f.Kind {
	case KindString:
		s, ok := v.(string)
		if !ok {
			return fail("%s is not a string", f.Name)
		}
		if f.NonEmpty && strings.TrimSpace(s) == "" {
			return fail("%s must not be empty", f.Name)
		}
		if len(f.Enum) > 0 && !contains(f.Enum, s) {
			return fail("%s not in {%s}", f.Name, strings.Join(f.Enum, ","))
		}
		if f.Format == FormatDate {
			if _, err := time.Parse(time.DateOnly, s); err != nil {
				return fail("%s is not an ISO-8601 date (YYYY-MM-DD)", f.Name)
			}
		}
	case KindNumber:
		n, ok := v.(float64)
		if !ok {
			return fail("%s is not numeric", f.Name)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fail("%s is not finite", f.Name)
		}
	case KindArray:
		items, ok := v.([]any)
		if !ok {
			return fail("%s must be a list", f.Name)
		}
		if f.Items == nil {
			return nil
		}
		for i, item := range items {
			if err := f.Items.check(fmt.Sprintf("%s[%d]", path, i), item); err != nil {
				return err
			}
		}
	}
	return nil
}

// fromJSONSchemaError converts the deepest cause of a jsonschema failure.
func fromJSONSchemaError(err error) error {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &SchemaValidationError{Reason: err.Error()}
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	return &SchemaValidationError{Path: pointerToPath(ve.InstanceLocation), Reason: ve.Message}
}

// pointerToPath turns "/tests/2/status" into "tests[2].status".
func pointerToPath(pointer string) string {
	var b strings.Builder
	for _, tok := range strings.Split(strings.TrimPrefix(pointer, "/"), "/") {
		if tok == "" {
			continue
		}
		if _, err := strconv.Atoi(tok); err == nil {
			b.WriteString("[" + tok + "]")
			continue
		}
		if b.Len() > 0 {
			b.WriteByte('.')
		}
		b.WriteString(tok)
	}
	return b.String()
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

func contains(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
