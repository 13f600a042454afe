// Package extraction applies a document type's field patterns to
// normalized text.
package extraction

import (
	"github.com/a3tai/mcp-taxdoc-extractor/internal/schema"
)

// Engine extracts fields using the schemas of a registry. It holds no
// mutable state and is safe for concurrent use.
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

// Registry returns the registry the engine reads.
func (e *Engine) Registry() *schema.Registry {
	return e.registry
}

// Extract searches text with every pattern of documentType, in order.
// Each pattern contributes its first match, trimmed; patterns that do not
// match are left out of the result. Unknown types and empty text both
// yield an empty, non-nil map.
func (e *Engine) Extract(text, documentType string) Fields {
	s, ok := e.registry.Lookup(documentType)
	if !ok {
		return Fields{}
	}
	return ExtractWith(s, text)
}

// ExtractWith applies one schema to text.
func ExtractWith(s *schema.Schema, text string) Fields {
	fields := make(Fields, len(s.Patterns))
	for _, p := range s.Patterns {
		if v, ok := p.Match(text); ok {
			fields[p.Name] = v
		}
	}
	return fields
}
