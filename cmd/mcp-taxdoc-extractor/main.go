package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"go.uber.org/zap"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/config"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/logging"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/mcp"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/metrics"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/ocr"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/schema"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/taxdoc"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// loadRegistry returns the built-in catalog, extended by cfg.Catalog when set.
func loadRegistry(cfg *config.Config) (*schema.Registry, error) {
	if cfg.Catalog == "" {
		return schema.Default(), nil
	}
	return schema.NewRegistryWithCatalog(cfg.Catalog)
}

// buildServer wires the document pipeline behind the MCP server.
func buildServer(cfg *config.Config, logger *zap.Logger, runner ocr.Runner) (*mcp.Server, error) {
	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	m := metrics.New()
	recognizer := ocr.NewRecognizer(cfg.OCR(), runner, logger.Named("ocr"), m)

	service, err := taxdoc.NewService(cfg.Service(), registry, recognizer, logger.Named("taxdoc"), m)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}

	return mcp.NewServer(cfg, service,
		mcp.WithLogger(logger.Named("mcp")),
		mcp.WithMetrics(m),
		mcp.WithEngines(recognizer),
	)
}

func run(cfg *config.Config, logger *zap.Logger) error {
	server, err := buildServer(cfg, logger, ocr.ExecRunner{})
	if err != nil {
		return err
	}

	for _, tool := range server.Info().Engines {
		if !tool.Available {
			logger.Warn("OCR engine not found, scanned pages will come back empty", zap.String("tool", tool.Name))
		}
	}

	// In stdio mode the parent process usually ends us by closing stdin;
	// signals cover both modes.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			printVersion(os.Stdout)
			return
		}
	}

	cfg, err := config.LoadFromFlags()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if version != "dev" {
		cfg.Version = version
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, cfg.IsStdioMode())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	logger.Debug("starting", zap.Stringer("config", cfg))

	if err := run(cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Tax Document Extractor\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
