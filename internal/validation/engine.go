// Package validation reports the required fields a document type expects
// but an extraction did not produce.
package validation

import (
	"strings"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/extraction"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/schema"
)

// Engine checks extracted fields against the required-field policy of each
// registered document type. It is safe for concurrent use.
type Engine struct {
	registry *schema.Registry
}

// NewEngine creates an engine over registry. A nil registry selects
// schema.Default().
func NewEngine(registry *schema.Registry) *Engine {
	if registry == nil {
		registry = schema.Default()
	}
	return &Engine{registry: registry}
}

// Validate returns one issue per required field of documentType that is
// absent from fields or holds only whitespace, in policy order. The result
// is empty, never nil, when nothing is missing, when the type has no
// required fields and when the type is unknown.
func (e *Engine) Validate(fields extraction.Fields, documentType string) []string {
	s, ok := e.registry.Lookup(documentType)
	if !ok {
		return []string{}
	}
	return ValidateWith(s, fields)
}

// ValidateWith applies the required-field policy of one schema.
func ValidateWith(s *schema.Schema, fields extraction.Fields) []string {
	issues := []string{}
	for _, name := range s.Required {
		if strings.TrimSpace(fields[name]) == "" {
			issues = append(issues, Issue(name))
		}
	}
	return issues
}

// Issue formats the message for a missing field: "employer_name" becomes
// "Missing employer name".
func Issue(field string) string {
	return "Missing " + strings.ReplaceAll(field, "_", " ")
}
