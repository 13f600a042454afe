// Package taxdoc ties recognition, normalization, extraction and
// validation together behind request-level operations.
package taxdoc

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/extraction"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/intelligence"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/metrics"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/ocr"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/schema"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/textnorm"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/validation"
)

// PageSource recovers page text from a file.
type PageSource interface {
	Recognize(ctx context.Context, path string, kind ocr.FileKind) ocr.Result
}

// Config holds the request limits of a Service.
type Config struct {
	Dir           string
	MaxFileSize   int64
	MaxTextLength int
}

// Service processes tax documents. It is safe for concurrent use.
type Service struct {
	cfg        Config
	sandbox    *Sandbox
	registry   *schema.Registry
	extractor  *extraction.Engine
	validator  *validation.Engine
	classifier *intelligence.DocumentClassifier
	pages      PageSource
	logger     *zap.Logger
	metrics    *metrics.Metrics
}

// NewService creates a service over registry (nil selects the built-in
// catalog) reading files through pages.
func NewService(cfg Config, registry *schema.Registry, pages PageSource, logger *zap.Logger, m *metrics.Metrics) (*Service, error) {
	if registry == nil {
		registry = schema.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if pages == nil {
		return nil, fmt.Errorf("page source cannot be nil")
	}

	sandbox, err := NewSandbox(cfg.Dir)
	if err != nil {
		return nil, err
	}

	classifier, err := intelligence.NewDocumentClassifier(registry, logger.Named("classifier"))
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier: %w", err)
	}

	return &Service{
		cfg:        cfg,
		sandbox:    sandbox,
		registry:   registry,
		extractor:  extraction.NewEngine(registry),
		validator:  validation.NewEngine(registry),
		classifier: classifier,
		pages:      pages,
		logger:     logger,
		metrics:    m,
	}, nil
}

// Registry returns the document-type registry in use.
func (s *Service) Registry() *schema.Registry {
	return s.registry
}

// ProcessFile recognizes, extracts and optionally validates one file from
// the document directory. Only request problems are errors; unreadable
// content yields a result with empty text and warnings.
func (s *Service) ProcessFile(ctx context.Context, req ProcessFileRequest) (*Result, error) {
	start := time.Now()
	res, err := s.processFile(ctx, req, start)
	s.metrics.ObserveRequest("process_file", status(err), time.Since(start))
	if err != nil {
		s.logger.Warn("rejected file", zap.String("path", req.Path), zap.Error(err))
		return nil, err
	}
	return res, nil
}

func (s *Service) processFile(ctx context.Context, req ProcessFileRequest, start time.Time) (*Result, error) {
	path, err := s.sandbox.Resolve(req.Path)
	if err != nil {
		return nil, err
	}

	kind := ocr.KindForPath(path)
	if kind == ocr.KindUnknown {
		return nil, newError(CodeUnsupportedFile,
			fmt.Sprintf("unsupported file type %q (supported: %s)", filepath.Ext(path), strings.Join(ocr.Extensions(), ", ")))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, newError(CodeInvalidPath, "cannot access file", err)
	}
	if s.cfg.MaxFileSize > 0 && info.Size() > s.cfg.MaxFileSize {
		return nil, newError(CodeFileTooLarge,
			fmt.Sprintf("file too large: %d bytes (max: %d bytes)", info.Size(), s.cfg.MaxFileSize))
	}

	recognized := s.pages.Recognize(ctx, path, kind)
	res, err := s.process(ctx, recognized.Pages, req.DocumentType, req.Validate, start)
	if err != nil {
		return nil, err
	}
	res.Method = recognized.Method
	res.Warnings = append(append([]string(nil), recognized.Warnings...), res.Warnings...)
	return res, nil
}

// ProcessText extracts from pages that were recognized elsewhere.
func (s *Service) ProcessText(ctx context.Context, req ProcessTextRequest) (*Result, error) {
	start := time.Now()
	res, err := s.process(ctx, req.Pages, req.DocumentType, req.Validate, start)
	s.metrics.ObserveRequest("process_text", status(err), time.Since(start))
	return res, err
}

func (s *Service) process(ctx context.Context, pages []string, documentType string, validate bool, start time.Time) (*Result, error) {
	res := &Result{
		ID:     uuid.NewString(),
		Pages:  len(pages),
		Fields: extraction.Fields{},
	}

	text := textnorm.Normalize(pages)
	if limit := s.cfg.MaxTextLength; limit > 0 && len(text) > limit {
		text = truncateUTF8(text, limit)
		res.Truncated = true
		res.Warnings = append(res.Warnings, fmt.Sprintf("text truncated to %d bytes", limit))
	}
	res.RawText = text

	label := documentType
	if schema.Fold(documentType) == AutoDetect {
		c, err := s.classifier.Classify(ctx, text)
		if err != nil {
			return nil, newError(CodeInvalidRequest, "classification aborted", err)
		}
		res.Classification = c
		label = string(c.Type)
	}

	sch, known := s.registry.Lookup(label)
	res.Known = known
	if known {
		res.DocumentType = string(sch.Type)
	} else {
		res.DocumentType = schema.Fold(label)
	}

	if known && text != "" {
		res.Fields = extraction.ExtractWith(sch, text)
	}
	if validate {
		res.Validated = true
		if known {
			res.Issues = validation.ValidateWith(sch, res.Fields)
		} else {
			res.Issues = []string{}
		}
	}

	res.DurationMS = time.Since(start).Milliseconds()
	s.metrics.ObserveExtraction(res.DocumentType, known, len(res.Fields), len(res.Issues), len(text))
	s.logger.Info("processed document",
		zap.String("id", res.ID),
		zap.String("document_type", res.DocumentType),
		zap.Bool("known", known),
		zap.Int("pages", res.Pages),
		zap.Int("fields", len(res.Fields)),
		zap.Int("issues", len(res.Issues)),
		zap.Int64("duration_ms", res.DurationMS))

	return res, nil
}

// Extract applies the patterns of documentType to already normalized text.
func (s *Service) Extract(text, documentType string) extraction.Fields {
	return s.extractor.Extract(text, documentType)
}

// Validate checks fields against the required-field policy of
// documentType.
func (s *Service) Validate(fields extraction.Fields, documentType string) []string {
	start := time.Now()
	issues := s.validator.Validate(fields, documentType)
	s.metrics.ObserveRequest("validate", "ok", time.Since(start))
	return issues
}

// Classify guesses the document type of text.
func (s *Service) Classify(ctx context.Context, text string) (*intelligence.Classification, error) {
	return s.classifier.Classify(ctx, text)
}

// DocumentTypes lists the registered types in registration order.
func (s *Service) DocumentTypes() []TypeInfo {
	var out []TypeInfo
	for _, sch := range s.registry.Schemas() {
		out = append(out, TypeInfo{
			Type:        string(sch.Type),
			Description: sch.Description,
			Aliases:     append([]string(nil), sch.Aliases...),
			Fields:      sch.FieldNames(),
			Required:    append([]string{}, sch.Required...),
		})
	}
	return out
}

// Info reports the limits and catalog of the service.
func (s *Service) Info() Info {
	types := make([]string, 0)
	for _, dt := range s.registry.Types() {
		types = append(types, string(dt))
	}
	return Info{
		Directory:     s.sandbox.Dir(),
		MaxFileSize:   s.cfg.MaxFileSize,
		MaxTextLength: s.cfg.MaxTextLength,
		Extensions:    ocr.Extensions(),
		DocumentTypes: types,
	}
}

func status(err error) string {
	if err != nil {
		if code := CodeOf(err); code != "" {
			return strings.ToLower(code)
		}
		return "error"
	}
	return "ok"
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
