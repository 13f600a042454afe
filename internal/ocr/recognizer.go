package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/metrics"
)

// Recognition methods reported in Result.Method.
const (
	MethodTextLayer = "text_layer"
	MethodOCR       = "ocr"
	MethodMixed     = "mixed"
	MethodNone      = "none"
)

// page outcome labels for metrics
const pageFailed = "failed"

// Config controls the external engines and the per-document work.
type Config struct {
	Tesseract string
	Pdftoppm  string
	Language  string
	DPI       int
	// MaxPages caps the pages read from a PDF; 0 reads all.
	MaxPages int
	// Workers bounds concurrent page OCR.
	Workers int
	// FormFields appends filled-in AcroForm values as a final page.
	FormFields bool

	// BreakerFailures consecutive tesseract failures open the breaker for
	// BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// DefaultConfig returns the defaults used by the server.
func DefaultConfig() Config {
	return Config{
		Tesseract:       "tesseract",
		Pdftoppm:        "pdftoppm",
		Language:        "eng",
		DPI:             300,
		Workers:         4,
		FormFields:      true,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// Result is the text recovered from one file. Pages is never nil; it is
// empty when nothing could be read, with the reasons in Warnings.
type Result struct {
	Pages    []string `json:"-"`
	Method   string   `json:"method"`
	Warnings []string `json:"warnings,omitempty"`
}

// Recognizer turns document files into page text. It never returns an
// error: failures degrade to fewer or empty pages plus warnings.
type Recognizer struct {
	cfg     Config
	runner  Runner
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// NewRecognizer creates a recognizer. A nil runner executes real
// programs; a nil logger or metrics disables them.
func NewRecognizer(cfg Config, runner Runner, logger *zap.Logger, m *metrics.Metrics) *Recognizer {
	def := DefaultConfig()
	if cfg.Tesseract == "" {
		cfg.Tesseract = def.Tesseract
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = def.Pdftoppm
	}
	if cfg.Language == "" {
		cfg.Language = def.Language
	}
	if cfg.DPI <= 0 {
		cfg.DPI = def.DPI
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Recognizer{cfg: cfg, runner: runner, logger: logger, metrics: m}
	r.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "tesseract",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("OCR engine breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return r
}

// Config returns the effective configuration.
func (r *Recognizer) Config() Config {
	return r.cfg
}

// Tools reports which external programs are installed.
func (r *Recognizer) Tools() []ToolStatus {
	return []ToolStatus{lookTool(r.cfg.Tesseract), lookTool(r.cfg.Pdftoppm)}
}

// BreakerState returns the state of the OCR engine breaker.
func (r *Recognizer) BreakerState() string {
	return r.breaker.State().String()
}

// Pages returns one text blob per page of path, or an empty slice.
func (r *Recognizer) Pages(ctx context.Context, path string, kind FileKind) []string {
	return r.Recognize(ctx, path, kind).Pages
}

// Recognize reads path according to kind.
func (r *Recognizer) Recognize(ctx context.Context, path string, kind FileKind) Result {
	var res Result
	switch kind {
	case KindPDF:
		res = r.recognizePDF(ctx, path)
	case KindImage:
		res = r.recognizeImage(ctx, path)
	default:
		res = Result{Method: MethodNone, Warnings: []string{fmt.Sprintf("unsupported file type: %s", filepath.Ext(path))}}
	}
	if res.Pages == nil {
		res.Pages = []string{}
	}
	for _, w := range res.Warnings {
		r.logger.Warn("recognition degraded", zap.String("path", path), zap.String("warning", w))
	}
	return res
}

func (r *Recognizer) recognizeImage(ctx context.Context, path string) Result {
	text, err := r.ocrImage(ctx, path)
	if err != nil {
		r.metrics.ObservePages(pageFailed, 1)
		return Result{Method: MethodNone, Warnings: []string{fmt.Sprintf("OCR failed: %v", err)}}
	}
	r.metrics.ObservePages(MethodOCR, 1)
	return Result{Pages: []string{text}, Method: MethodOCR}
}

func (r *Recognizer) recognizePDF(ctx context.Context, path string) Result {
	var res Result

	pageCount, formLines, err := r.probe(path)
	if err != nil {
		res.Method = MethodNone
		res.Warnings = append(res.Warnings, fmt.Sprintf("invalid PDF: %v", err))
		return res
	}
	if r.cfg.MaxPages > 0 && pageCount > r.cfg.MaxPages {
		res.Warnings = append(res.Warnings, fmt.Sprintf("read %d of %d pages", r.cfg.MaxPages, pageCount))
		pageCount = r.cfg.MaxPages
	}

	pages, err := textLayer(path, pageCount)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("text layer unreadable: %v", err))
		pages = make([]string, pageCount)
	}

	textPages := 0
	var blank []int
	for i, p := range pages {
		if strings.TrimSpace(p) == "" {
			blank = append(blank, i)
		} else {
			textPages++
		}
	}

	ocrPages, failed, warnings := r.ocrPDFPages(ctx, path, pages, blank)
	res.Warnings = append(res.Warnings, warnings...)

	r.metrics.ObservePages(MethodTextLayer, textPages)
	r.metrics.ObservePages(MethodOCR, ocrPages)
	r.metrics.ObservePages(pageFailed, failed)

	for i := range pages {
		pages[i] = cleanPage(pages[i])
	}
	if len(formLines) > 0 {
		pages = append(pages, cleanPage(strings.Join(formLines, "\n")))
	}

	res.Pages = pages
	res.Method = method(textPages+len(formLines), ocrPages)
	return res
}

// probe validates the file with pdfcpu and returns its page count and the
// filled-in form field lines.
func (r *Recognizer) probe(path string) (int, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pctx, err := api.ReadContext(f, conf)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := pctx.EnsurePageCount(); err != nil {
		return 0, nil, fmt.Errorf("failed to ensure page count: %w", err)
	}

	if !r.cfg.FormFields {
		return pctx.PageCount, nil, nil
	}
	lines, err := formFieldLines(pctx)
	if err != nil {
		r.logger.Debug("form fields unreadable", zap.String("path", path), zap.Error(err))
	}
	return pctx.PageCount, lines, nil
}

// textLayer returns the embedded text of the first n pages.
func textLayer(path string, n int) (pages []string, err error) {
	// The parser panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("parser panic: %v", rec)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if reader.NumPage() < n {
		n = reader.NumPage()
	}
	pages = make([]string, n)
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		pages[i-1] = content
	}
	return pages, nil
}

// ocrPDFPages rasterizes and recognizes the pages at indexes blank,
// filling pages in place. Failed pages stay empty.
func (r *Recognizer) ocrPDFPages(ctx context.Context, path string, pages []string, blank []int) (done, failed int, warnings []string) {
	if len(blank) == 0 {
		return 0, 0, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Workers)

	for _, idx := range blank {
		g.Go(func() error {
			text, err := r.ocrPDFPage(gctx, path, idx+1)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				warnings = append(warnings, fmt.Sprintf("page %d: %v", idx+1, err))
				return nil
			}
			pages[idx] = text
			done++
			return nil
		})
	}
	_ = g.Wait()
	return done, failed, warnings
}

func (r *Recognizer) ocrPDFPage(ctx context.Context, path string, pageNum int) (string, error) {
	dir, err := os.MkdirTemp("", "taxdoc-page-*")
	if err != nil {
		return "", fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	n := strconv.Itoa(pageNum)
	if _, err := r.runner.Run(ctx, r.cfg.Pdftoppm,
		"-r", strconv.Itoa(r.cfg.DPI), "-png", "-f", n, "-l", n, "-singlefile", path, prefix); err != nil {
		return "", fmt.Errorf("rasterize: %w", err)
	}

	return r.ocrImage(ctx, prefix+".png")
}

func (r *Recognizer) ocrImage(ctx context.Context, imagePath string) (string, error) {
	out, err := r.breaker.Execute(func() ([]byte, error) {
		return r.runner.Run(ctx, r.cfg.Tesseract, imagePath, "stdout", "-l", r.cfg.Language)
	})
	if err != nil {
		return "", err
	}
	return cleanPage(string(out)), nil
}

func method(textPages, ocrPages int) string {
	switch {
	case textPages > 0 && ocrPages > 0:
		return MethodMixed
	case ocrPages > 0:
		return MethodOCR
	case textPages > 0:
		return MethodTextLayer
	default:
		return MethodNone
	}
}
