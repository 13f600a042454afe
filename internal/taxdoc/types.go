package taxdoc

import (
	"github.com/a3tai/mcp-taxdoc-extractor/internal/extraction"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/intelligence"
)

// AutoDetect as a document type asks the service to classify the text and
// extract with the detected type.
const AutoDetect = "auto"

// ProcessFileRequest represents a request to process a document file
type ProcessFileRequest struct {
	Path         string `json:"path"`
	DocumentType string `json:"document_type"`
	Validate     bool   `json:"validate"`
}

// ProcessTextRequest represents a request to process already recognized
// page text
type ProcessTextRequest struct {
	Pages        []string `json:"pages"`
	DocumentType string   `json:"document_type"`
	Validate     bool     `json:"validate"`
}

// Result is the outcome of processing one document.
type Result struct {
	ID string `json:"id"`
	// DocumentType is the canonical type when Known, otherwise the folded
	// label that was asked for.
	DocumentType   string                       `json:"document_type"`
	Known          bool                         `json:"known"`
	Classification *intelligence.Classification `json:"classification,omitempty"`

	RawText   string            `json:"raw_text"`
	Truncated bool              `json:"truncated,omitempty"`
	Fields    extraction.Fields `json:"fields"`

	// Issues is nil unless validation was requested.
	Validated bool     `json:"validated"`
	Issues    []string `json:"issues"`

	Pages      int      `json:"pages"`
	Method     string   `json:"method,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	DurationMS int64    `json:"duration_ms"`
}

// TypeInfo describes one registered document type
type TypeInfo struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Aliases     []string `json:"aliases,omitempty"`
	Fields      []string `json:"fields"`
	Required    []string `json:"required"`
}

// Info summarizes the service limits and catalog
type Info struct {
	Directory     string   `json:"directory"`
	MaxFileSize   int64    `json:"max_file_size"`
	MaxTextLength int      `json:"max_text_length"`
	Extensions    []string `json:"extensions"`
	DocumentTypes []string `json:"document_types"`
}
