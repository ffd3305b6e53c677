package output

import (
	"github.com/ldi/devflow/pkg/models"
	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats output as YAML.
type YAMLFormatter struct{}

func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

func marshalYAML(v any) string {
	data, err := yaml.Marshal(v)
	if err != nil {
		return "error: " + err.Error() + "\n"
	}
	return string(data)
}

func (f *YAMLFormatter) FormatList(result models.ListResult) string {
	return marshalYAML(result)
}

func (f *YAMLFormatter) FormatSummary(summary models.Summary) string {
	return marshalYAML(summary)
}

func (f *YAMLFormatter) FormatMessage(msg string) string {
	return marshalYAML(map[string]string{"message": msg})
}

func (f *YAMLFormatter) FormatError(err error) string {
	return marshalYAML(map[string]string{"error": err.Error()})
}
