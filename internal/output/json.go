package output

import (
	"github.com/ldi/devflow/pkg/models"
)

// JSONFormatter formats output as JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSONFormatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// marshalJSON marshals a value to indented JSON with a trailing newline.
func marshalJSON(v any) string {
	data, err := models.MarshalIndent(v)
	if err != nil {
		return `{"error": "failed to encode output"}` + "\n"
	}
	return string(data) + "\n"
}

// FormatList formats a listing and its summary as JSON.
func (f *JSONFormatter) FormatList(result models.ListResult) string {
	return marshalJSON(result)
}

// FormatSummary formats summary counts as JSON.
func (f *JSONFormatter) FormatSummary(summary models.Summary) string {
	return marshalJSON(summary)
}

type messageJSON struct {
	Message string `json:"message"`
}

// FormatMessage formats a simple message as JSON.
func (f *JSONFormatter) FormatMessage(msg string) string {
	return marshalJSON(messageJSON{Message: msg})
}

type errorJSON struct {
	Error string `json:"error"`
}

// FormatError formats an error as JSON.
func (f *JSONFormatter) FormatError(err error) string {
	return marshalJSON(errorJSON{Error: err.Error()})
}
