// Command taxdoc_extract runs the extraction pipeline on one file from the
// command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/logging"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/ocr"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/schema"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/taxdoc"
)

const stdinPath = "-"

type options struct {
	documentType string
	validate     bool
	format       string
	catalog      string
	language     string
	dpi          int
	verbose      bool
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr, ocr.ExecRunner{}))
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer, runner ocr.Runner) int {
	flags := pflag.NewFlagSet("taxdoc_extract", pflag.ContinueOnError)
	flags.SetOutput(stderr)

	var opts options
	flags.StringVarP(&opts.documentType, "type", "t", taxdoc.AutoDetect, "Document type (w-2, 1099, receipt) or 'auto'")
	flags.BoolVar(&opts.validate, "validate", false, "Report missing required fields")
	flags.StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")
	flags.StringVar(&opts.catalog, "catalog", "", "YAML file with additional document types")
	flags.StringVar(&opts.language, "ocrlang", "eng", "Tesseract language")
	flags.IntVar(&opts.dpi, "dpi", 300, "Rasterization DPI for scanned pages")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: taxdoc_extract [options] <file.pdf|image|->\n\n")
		fmt.Fprintf(stderr, "Extract W-2, 1099 and receipt fields from a document. Use - to read\n")
		fmt.Fprintf(stderr, "already recognized text from stdin.\n\nOptions:\n")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}
	if flags.NArg() != 1 {
		fmt.Fprintf(stderr, "Error: exactly one file path required\n\n")
		flags.Usage()
		return 2
	}
	if opts.format != "text" && opts.format != "json" {
		fmt.Fprintf(stderr, "Error: unsupported format %q\n", opts.format)
		return 2
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logger, err := logging.New(level, logging.FormatConsole, true)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	result, err := process(ctx, opts, flags.Arg(0), stdin, runner, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if opts.format == "json" {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
		return 0
	}
	printText(stdout, result)
	return 0
}

func process(ctx context.Context, opts options, path string, stdin io.Reader, runner ocr.Runner, logger *zap.Logger) (*taxdoc.Result, error) {
	registry, err := schema.NewRegistryWithCatalog(opts.catalog)
	if err != nil {
		return nil, err
	}

	dir := "."
	if path != stdinPath {
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, err
		}
		dir, path = filepath.Dir(abs), abs
	}

	cfg := ocr.DefaultConfig()
	cfg.Language = opts.language
	cfg.DPI = opts.dpi
	recognizer := ocr.NewRecognizer(cfg, runner, logger.Named("ocr"), nil)

	service, err := taxdoc.NewService(taxdoc.Config{Dir: dir}, registry, recognizer, logger.Named("taxdoc"), nil)
	if err != nil {
		return nil, err
	}

	if path == stdinPath {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		pages := strings.Split(string(data), "\f")
		return service.ProcessText(ctx, taxdoc.ProcessTextRequest{Pages: pages, DocumentType: opts.documentType, Validate: opts.validate})
	}
	return service.ProcessFile(ctx, taxdoc.ProcessFileRequest{Path: path, DocumentType: opts.documentType, Validate: opts.validate})
}

func printText(w io.Writer, res *taxdoc.Result) {
	fmt.Fprintf(w, "Document type: %s", res.DocumentType)
	if !res.Known {
		fmt.Fprint(w, " (not registered)")
	}
	fmt.Fprintln(w)
	if res.Classification != nil {
		fmt.Fprintf(w, "Confidence: %.2f\n", res.Classification.Confidence)
	}
	if res.Method != "" {
		fmt.Fprintf(w, "Method: %s\n", res.Method)
	}
	fmt.Fprintf(w, "Pages: %d\n", res.Pages)

	fmt.Fprintln(w, "\nFields:")
	if len(res.Fields) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, name := range res.Fields.Names() {
		fmt.Fprintf(w, "  %s: %s\n", name, res.Fields[name])
	}

	if res.Validated {
		fmt.Fprintln(w, "\nValidation:")
		if len(res.Issues) == 0 {
			fmt.Fprintln(w, "  all required fields present")
		}
		for _, issue := range res.Issues {
			fmt.Fprintf(w, "  - %s\n", issue)
		}
	}

	for _, warning := range res.Warnings {
		fmt.Fprintf(w, "\nWarning: %s\n", warning)
	}
}
