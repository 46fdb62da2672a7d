// Package structured turns free-form model output into typed report
// objects, falling back to a safe default when parsing fails.
package structured

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Report is a study report produced from the conversation.
type Report struct {
	Name           string   `json:"name"`
	SuggestionList []string `json:"suggestionList"`
}

// FallbackReport is returned whenever the model output cannot be
// parsed into a valid report.
func FallbackReport() Report {
	return Report{
		Name:           "Study Report",
		SuggestionList: []string{"Parsing failed, please retry"},
	}
}

const reportSchemaJSON = `{
	"type": "object",
	"properties": {
		"name": {"type": "string"},
		"suggestionList": {
			"type": "array",
			"items": {"type": "string"}
		}
	},
	"required": ["name", "suggestionList"]
}`

var reportSchema = jsonschema.MustCompileString("report.schema.json", reportSchemaJSON)

// ReportPromptSuffix is appended to the system prompt when asking the
// model for a report. The example block keeps small models on format.
const ReportPromptSuffix = `

Generate a study report from the user's information.
You must respond with JSON containing exactly these fields:
- name: the user's name or the report title
- suggestionList: an array of strings, each one concrete study suggestion

Return only the JSON, nothing else.
Example format:
{
  "name": "Study Report",
  "suggestionList": ["suggestion 1", "suggestion 2", "suggestion 3"]
}`

// BuildReportPrompt returns the system prompt for report generation.
func BuildReportPrompt(systemPrompt string) string {
	return systemPrompt + ReportPromptSuffix
}

// ParseReport extracts the report from model output. It takes the text
// between the first "{" and the last "}" so fenced code blocks and
// surrounding prose survive, validates the shape, and falls back to
// FallbackReport on any failure. It never returns an error.
func ParseReport(content string) Report {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start < 0 || end < start {
		slog.Error("no JSON object found in report output")
		return FallbackReport()
	}
	raw := content[start : end+1]

	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		slog.Error("report output is not valid JSON", "error", err)
		return FallbackReport()
	}
	if err := reportSchema.Validate(decoded); err != nil {
		slog.Error("report output failed shape validation", "error", err)
		return FallbackReport()
	}

	var report Report
	if err := json.Unmarshal([]byte(raw), &report); err != nil {
		slog.Error("decoding report", "error", err)
		return FallbackReport()
	}
	slog.Info("report generated", "name", report.Name, "suggestions", len(report.SuggestionList))
	return report
}
