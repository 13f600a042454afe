// Package intelligence guesses the document type of recognized text with
// weighted keyword and pattern rules.
package intelligence

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/schema"
)

// DocumentClassifier performs rule-based document classification. Rules
// are compiled once; Classify is safe for concurrent use.
type DocumentClassifier struct {
	config   Config
	rules    []compiledRule
	registry *schema.Registry
	logger   *zap.Logger
}

type compiledRule struct {
	Rule
	patterns []*regexp.Regexp
}

// NewDocumentClassifier creates a classifier for the types of registry
// with the default configuration.
func NewDocumentClassifier(registry *schema.Registry, logger *zap.Logger) (*DocumentClassifier, error) {
	return NewDocumentClassifierWithConfig(registry, DefaultConfig(), logger)
}

// NewDocumentClassifierWithConfig creates a classifier with custom configuration
func NewDocumentClassifierWithConfig(registry *schema.Registry, config Config, logger *zap.Logger) (*DocumentClassifier, error) {
	if registry == nil {
		registry = schema.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dc := &DocumentClassifier{
		config:   config,
		registry: registry,
		logger:   logger,
	}
	if err := dc.AddRules(RulesFor(registry)...); err != nil {
		return nil, err
	}
	return dc, nil
}

// AddRules compiles and appends rules. An invalid pattern rejects the
// whole batch.
func (dc *DocumentClassifier) AddRules(rules ...Rule) error {
	compiled := make([]compiledRule, 0, len(rules))
	for _, rule := range rules {
		cr := compiledRule{Rule: rule}
		for _, pattern := range rule.KeywordPatterns {
			re, err := regexp.Compile("(?i)" + pattern)
			if err != nil {
				return fmt.Errorf("rule %s: invalid pattern %q: %w", rule.Name, pattern, err)
			}
			cr.patterns = append(cr.patterns, re)
		}
		compiled = append(compiled, cr)
	}
	dc.rules = append(dc.rules, compiled...)
	return nil
}

// Classify scores text against every enabled rule and returns the best
// scoring document type, or DocumentTypeUnknown when no type reaches the
// confidence threshold.
func (dc *DocumentClassifier) Classify(ctx context.Context, text string) (*Classification, error) {
	if limit := dc.config.MaxContentLength; limit > 0 && len(text) > limit {
		text = text[:limit]
	}
	lower := strings.ToLower(text)

	scores := make(map[schema.DocumentType]float64)
	reasons := make(map[schema.DocumentType][]Reason)
	rulesApplied := []string{}

	for _, rule := range dc.rules {
		if !rule.Enabled {
			continue
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		confidence, ruleReasons := evaluateRule(rule, text, lower)
		if confidence > 0 && confidence >= rule.MinConfidence {
			scores[rule.DocumentType] += confidence * rule.Weight
			reasons[rule.DocumentType] = append(reasons[rule.DocumentType], ruleReasons...)
			rulesApplied = append(rulesApplied, rule.Name)
		}
	}

	primaryType, primaryConfidence := dc.determinePrimaryClassification(scores)

	finalReasons := reasons[primaryType]
	if len(finalReasons) == 0 {
		finalReasons = []Reason{
			{
				Rule:       "default",
				Category:   "fallback",
				Evidence:   "No strong classification signals found",
				Confidence: primaryConfidence,
				Weight:     1.0,
			},
		}
	}

	c := &Classification{
		Type:         primaryType,
		Confidence:   primaryConfidence,
		Alternatives: dc.generateAlternatives(scores, primaryType),
		Reasons:      finalReasons,
		RulesApplied: rulesApplied,
	}

	dc.logger.Debug("classified text",
		zap.String("type", string(c.Type)),
		zap.Float64("confidence", c.Confidence),
		zap.Strings("rules", rulesApplied))

	return c, nil
}

// evaluateRule scores one rule: 0.1 per keyword occurrence and 0.15 per
// pattern match.
func evaluateRule(rule compiledRule, text, lower string) (float64, []Reason) {
	var confidence float64
	var reasons []Reason

	for _, keyword := range rule.Keywords {
		count := strings.Count(lower, strings.ToLower(keyword))
		if count == 0 {
			continue
		}
		c := 0.1 * float64(count)
		confidence += c
		reasons = append(reasons, Reason{
			Rule:       rule.Name,
			Category:   "keyword",
			Evidence:   fmt.Sprintf("Found keyword '%s' %d times", keyword, count),
			Confidence: c,
			Weight:     rule.Weight,
		})
	}

	for i, re := range rule.patterns {
		matches := re.FindAllStringIndex(text, -1)
		if len(matches) == 0 {
			continue
		}
		c := 0.15 * float64(len(matches))
		confidence += c
		reasons = append(reasons, Reason{
			Rule:       rule.Name,
			Category:   "pattern",
			Evidence:   fmt.Sprintf("Pattern '%s' matched %d times", rule.KeywordPatterns[i], len(matches)),
			Confidence: c,
			Weight:     rule.Weight,
		})
	}

	return confidence, reasons
}

// determinePrimaryClassification picks the highest score, preferring the
// earlier registered type on ties, and caps confidence at 1.0.
func (dc *DocumentClassifier) determinePrimaryClassification(scores map[schema.DocumentType]float64) (schema.DocumentType, float64) {
	maxType := DocumentTypeUnknown
	var maxScore float64

	for _, dt := range dc.registry.Types() {
		if score := scores[dt]; score > maxScore {
			maxScore = score
			maxType = dt
		}
	}

	if maxScore > 1.0 {
		maxScore = 1.0
	}

	if maxScore < dc.config.MinConfidenceThreshold {
		return DocumentTypeUnknown, maxScore
	}

	return maxType, maxScore
}

// generateAlternatives lists runner-up types scoring at least half the
// threshold, best first.
func (dc *DocumentClassifier) generateAlternatives(scores map[schema.DocumentType]float64, primaryType schema.DocumentType) []Alternative {
	var alternatives []Alternative
	for _, dt := range dc.registry.Types() {
		score := scores[dt]
		if dt == primaryType || score == 0 || score < dc.config.MinConfidenceThreshold*0.5 {
			continue
		}
		if score > 1.0 {
			score = 1.0
		}
		alternatives = append(alternatives, Alternative{Type: dt, Confidence: score})
	}

	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Confidence > alternatives[j].Confidence
	})

	if len(alternatives) > dc.config.MaxAlternatives {
		alternatives = alternatives[:dc.config.MaxAlternatives]
	}
	return alternatives
}

// Config returns the current configuration
func (dc *DocumentClassifier) Config() Config {
	return dc.config
}
