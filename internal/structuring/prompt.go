package structuring

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"strings"
	"text/template"

	"golang.org/x/text/unicode/norm"

	"github.com/jackzampolin/labparse/internal/report"
)

//go:embed system.tmpl
var systemPrompt string

//go:embed user.tmpl
var userPromptTmpl string

var userTemplate = template.Must(template.New("user").Parse(userPromptTmpl))

// UserPromptData is the template input for the user prompt.
type UserPromptData struct {
	RawText string
	Fields  string
}

// SystemPrompt returns the system prompt for report structuring.
func SystemPrompt() string {
	return systemPrompt
}

// BuildPrompt renders the user prompt for rawText. Recognized text is
// NFKC-normalized so ligatures and full-width digits read as plain ASCII.
func BuildPrompt(rawText string) (string, error) {
	var buf bytes.Buffer
	data := UserPromptData{
		RawText: NormalizeText(rawText),
		Fields:  report.ReportDataShape.Describe(),
	}
	if err := userTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// NormalizeText applies NFKC and trims trailing spaces on each line.
func NormalizeText(text string) string {
	text = norm.NFKC.String(text)
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// PromptVersion identifies the embedded prompt pair for log correlation.
func PromptVersion() string {
	h := sha256.Sum256([]byte(systemPrompt + "\x00" + userPromptTmpl))
	return hex.EncodeToString(h[:])[:12]
}
