package schema

import (
	"regexp"
	"strings"
)

// DocumentType is the canonical, lowercase tag that selects a pattern set
// and a required-field policy.
type DocumentType string

const (
	DocumentTypeW2      DocumentType = "w-2"
	DocumentType1099    DocumentType = "1099"
	DocumentTypeReceipt DocumentType = "receipt"
)

// String returns the canonical tag.
func (dt DocumentType) String() string {
	return string(dt)
}

// FieldSpec is the declarative form of a field pattern, as written in the
// built-in table or a catalog file.
type FieldSpec struct {
	Name    string `yaml:"name" json:"name"`
	Pattern string `yaml:"pattern" json:"pattern"`
}

// TypeSpec declares everything known about one document type. It is the
// unit the Builder consumes and the shape of a catalog file entry.
type TypeSpec struct {
	Type        string      `yaml:"type" json:"type"`
	Description string      `yaml:"description,omitempty" json:"description,omitempty"`
	Aliases     []string    `yaml:"aliases,omitempty" json:"aliases,omitempty"`
	Keywords    []string    `yaml:"keywords,omitempty" json:"keywords,omitempty"`
	Fields      []FieldSpec `yaml:"fields" json:"fields"`
	Required    []string    `yaml:"required" json:"required"`
}

// FieldPattern is a compiled, named matching rule with exactly one
// capturing group. It is immutable once built.
type FieldPattern struct {
	Name string
	Expr *regexp.Regexp
}

// Match returns the trimmed capture of the first match in text. A first
// match whose capture is only whitespace counts as no match.
func (p FieldPattern) Match(text string) (string, bool) {
	m := p.Expr.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	v := strings.TrimSpace(m[1])
	return v, v != ""
}

// Schema is the immutable configuration for one document type.
// Callers must treat every slice as read-only.
type Schema struct {
	Type        DocumentType
	Description string
	Aliases     []string
	Keywords    []string
	Patterns    []FieldPattern
	Required    []string
}

// FieldNames returns the pattern names in evaluation order.
func (s *Schema) FieldNames() []string {
	names := make([]string, 0, len(s.Patterns))
	for _, p := range s.Patterns {
		names = append(names, p.Name)
	}
	return names
}
