package intelligence

import (
	"github.com/a3tai/mcp-taxdoc-extractor/internal/schema"
)

// DocumentTypeUnknown is reported when no document type scores above the
// confidence threshold.
const DocumentTypeUnknown schema.DocumentType = "unknown"

// Classification represents the result of classifying recognized text
type Classification struct {
	// Primary classification
	Type       schema.DocumentType `json:"type"`
	Confidence float64             `json:"confidence"` // 0.0 to 1.0

	// Alternative classifications
	Alternatives []Alternative `json:"alternatives,omitempty"`

	// Classification reasoning
	Reasons      []Reason `json:"reasons"`
	RulesApplied []string `json:"rules_applied"`
}

// Known reports whether the text was matched to a registered type.
func (c *Classification) Known() bool {
	return c.Type != DocumentTypeUnknown
}

// Alternative represents a runner-up classification
type Alternative struct {
	Type       schema.DocumentType `json:"type"`
	Confidence float64             `json:"confidence"`
}

// Reason explains why a particular classification was made
type Reason struct {
	Rule       string  `json:"rule"`       // Name of the rule that triggered
	Category   string  `json:"category"`   // keyword, pattern or fallback
	Evidence   string  `json:"evidence"`   // What evidence was found
	Confidence float64 `json:"confidence"` // Confidence contribution of this reason
	Weight     float64 `json:"weight"`
}

// Rule defines keyword and pattern evidence for one document type
type Rule struct {
	Name         string              `json:"name"`
	DocumentType schema.DocumentType `json:"document_type"`
	Category     string              `json:"category"`

	Keywords        []string `json:"keywords,omitempty"`
	KeywordPatterns []string `json:"keyword_patterns,omitempty"` // regex, matched case-insensitively

	Weight        float64 `json:"weight"`         // Importance weight (0.0 to 1.0)
	MinConfidence float64 `json:"min_confidence"` // Minimum confidence to count the rule
	Enabled       bool    `json:"enabled"`
}

// Config tunes the classifier
type Config struct {
	MinConfidenceThreshold float64 `json:"min_confidence_threshold"`
	MaxAlternatives        int     `json:"max_alternatives"`
	MaxContentLength       int     `json:"max_content_length"` // bytes of text inspected; 0 means all
}

// DefaultConfig returns the default classifier configuration
func DefaultConfig() Config {
	return Config{
		MinConfidenceThreshold: 0.3,
		MaxAlternatives:        2,
		MaxContentLength:       50000,
	}
}
