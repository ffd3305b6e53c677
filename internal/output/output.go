// Package output renders task listings for the CLI.
package output

import (
	"fmt"

	"github.com/ldi/devflow/pkg/models"
)

// Formatter defines the interface for output formatting.
type Formatter interface {
	FormatList(result models.ListResult) string
	FormatSummary(summary models.Summary) string
	FormatMessage(msg string) string
	FormatError(err error) string
}

// Formats lists the accepted formatter names.
var Formats = []string{"human", "json", "yaml"}

// NewFormatter returns the formatter registered under name. An empty name
// selects the human formatter.
func NewFormatter(name string) (Formatter, error) {
	switch name {
	case "", "human":
		return NewHumanFormatter(), nil
	case "json":
		return NewJSONFormatter(), nil
	case "yaml", "yml":
		return NewYAMLFormatter(), nil
	default:
		return nil, fmt.Errorf("unknown output format: %s", name)
	}
}
