package intelligence

import (
	"github.com/a3tai/mcp-taxdoc-extractor/internal/schema"
)

// identifierPatterns are form identifiers that are stronger evidence than
// loose keywords. They apply only to types present in the registry.
var identifierPatterns = map[schema.DocumentType][]string{
	schema.DocumentTypeW2: {
		`\bw-?2\b`,
		`wage\s+and\s+tax\s+statement`,
	},
	schema.DocumentType1099: {
		`\b1099(?:-[a-z]+)?\b`,
		`nonemployee\s+compensation`,
	},
	schema.DocumentTypeReceipt: {
		`\b(?:sub)?total\b[:\s]*\$?\d`,
		`thank\s+you`,
	},
}

// RulesFor derives classification rules from a registry: a keyword rule
// from each type's catalog keywords, plus identifier patterns for the
// built-in types.
func RulesFor(registry *schema.Registry) []Rule {
	var rules []Rule
	for _, s := range registry.Schemas() {
		if len(s.Keywords) > 0 {
			rules = append(rules, Rule{
				Name:          string(s.Type) + "_keywords",
				DocumentType:  s.Type,
				Category:      "keyword",
				Keywords:      append([]string(nil), s.Keywords...),
				Weight:        1.0,
				MinConfidence: 0.1,
				Enabled:       true,
			})
		}
		if patterns, ok := identifierPatterns[s.Type]; ok {
			rules = append(rules, Rule{
				Name:            string(s.Type) + "_identifiers",
				DocumentType:    s.Type,
				Category:        "pattern",
				KeywordPatterns: append([]string(nil), patterns...),
				Weight:          1.0,
				MinConfidence:   0.15,
				Enabled:         true,
			})
		}
	}
	return rules
}
