package providers

import (
	"encoding/json"
	"testing"
)

func TestParseStructuredJSON_StripsCodeFence(t *testing.T) {
	content := "```json\n{\"ok\":true}\n```"
	got, err := ParseStructuredJSON(content)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}

	var parsed map[string]any
	if err := json.Unmarshal(got, &parsed); err != nil {
		t.Fatalf("failed to unmarshal parsed JSON: %v", err)
	}
	if ok, _ := parsed["ok"].(bool); !ok {
		t.Fatalf("expected ok=true, got %#v", parsed)
	}
}

func TestParseStructuredJSON_SurroundingText(t *testing.T) {
	content := "Here is the report:\n{\"patient_name\": \"John Doe\",\n \"tests\": []}\nLet me know if you need more."
	got, err := ParseStructuredJSON(content)
	if err != nil {
		t.Fatalf("ParseStructuredJSON() error = %v", err)
	}
	if string(got) != `{"patient_name":"John Doe","tests":[]}` {
		t.Fatalf("unexpected normalized JSON: %s", got)
	}
}

func TestParseStructuredJSON_Failures(t *testing.T) {
	for _, content := range []string{"", "   ", "no json here", "{broken"} {
		if _, err := ParseStructuredJSON(content); err == nil {
			t.Errorf("ParseStructuredJSON(%q) expected error", content)
		}
	}
}
