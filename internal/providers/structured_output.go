package providers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ParseStructuredJSON extracts a JSON document from model output, recovering
// from markdown code fences and leading/trailing chatter. The result is
// re-marshaled so callers always see compact JSON.
func ParseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty structured output")
	}

	for _, candidate := range structuredCandidates(content) {
		var parsed any
		if err := json.Unmarshal([]byte(candidate), &parsed); err != nil {
			continue
		}
		normalized, err := json.Marshal(parsed)
		if err != nil {
			return nil, fmt.Errorf("failed to normalize structured output: %w", err)
		}
		return normalized, nil
	}

	return nil, fmt.Errorf("no JSON document in structured output")
}

// structuredCandidates lists distinct parse attempts, most literal first.
func structuredCandidates(content string) []string {
	candidates := []string{content}
	seen := map[string]bool{content: true}
	for _, c := range []string{stripCodeFences(content), extractJSONObject(content)} {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		candidates = append(candidates, c)
	}
	return candidates
}

func stripCodeFences(content string) string {
	if !strings.HasPrefix(content, "```") {
		return ""
	}
	lines := strings.Split(content, "\n")
	if len(lines) < 2 {
		return ""
	}

	// Drop the opening fence (with optional language tag) and a closing fence.
	lines = lines[1:]
	if strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

// extractJSONObject returns the span from the first '{' to the last '}'.
// Reports are always objects, so arrays are not considered.
func extractJSONObject(content string) string {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end <= start {
		return ""
	}
	return content[start : end+1]
}
