package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/ocr"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/taxdoc"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Log formats
	FormatConsole = "console"
	FormatJSON    = "json"

	// Default values
	DefaultPort          = 8080
	DefaultHost          = "127.0.0.1"
	DefaultLogLevel      = "info"
	DefaultLogFormat     = FormatConsole
	DefaultMaxFileSize   = 50 * 1024 * 1024 // 50MB
	DefaultMaxTextLength = 1024 * 1024      // 1MB
	DefaultOCRLanguage   = "eng"
	DefaultDPI           = 300
	DefaultOCRWorkers    = 4

	// Rasterization bounds
	MinDPI = 72
	MaxDPI = 1200

	// Directory permissions
	DefaultDirPerm = 0o750

	envPrefix = "TAXDOC"
)

// Config holds all configuration for the tax document MCP server
type Config struct {
	// Server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document configuration
	Directory     string
	MaxFileSize   int64 // Maximum input file size in bytes
	MaxTextLength int   // Cap on normalized text handed to extraction
	Catalog       string

	// OCR configuration
	Tesseract   string
	Pdftoppm    string
	OCRLanguage string
	DPI         int
	MaxPages    int
	OCRWorkers  int
	FormFields  bool

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
	LogFormat  string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		currentDir = "."
	}

	return &Config{
		Mode:          ModeStdio,
		Host:          DefaultHost,
		Port:          DefaultPort,
		Directory:     currentDir,
		MaxFileSize:   DefaultMaxFileSize,
		MaxTextLength: DefaultMaxTextLength,
		Tesseract:     "tesseract",
		Pdftoppm:      "pdftoppm",
		OCRLanguage:   DefaultOCRLanguage,
		DPI:           DefaultDPI,
		OCRWorkers:    DefaultOCRWorkers,
		FormFields:    true,
		Version:       "1.0.0",
		ServerName:    "mcp-taxdoc-extractor",
		LogLevel:      DefaultLogLevel,
		LogFormat:     DefaultLogFormat,
	}
}

// LoadFromFlags parses command line flags and returns a configuration
func LoadFromFlags() (*Config, error) {
	cfg := DefaultConfig()

	setupViperEnvironment(cfg)
	defineCommandLineFlags(cfg)
	bindFlagsToViper()
	setupUsageMessage()

	if err := checkVersionFlag(); err != nil {
		return nil, err
	}

	pflag.Parse()

	populateConfigFromViper(cfg)

	if cfg.Directory != "" {
		if expandedPath, err := filepath.Abs(cfg.Directory); err == nil {
			cfg.Directory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// flagKeys lists every key shared by flags, environment and viper.
var flagKeys = []string{
	"mode", "host", "port", "dir", "loglevel", "logformat",
	"maxfilesize", "maxtextlength", "catalog",
	"tesseract", "pdftoppm", "ocrlang", "dpi", "maxpages", "ocrworkers", "formfields",
}

// setupViperEnvironment configures viper with environment variables and defaults
func setupViperEnvironment(cfg *Config) {
	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv()

	viper.SetDefault("mode", cfg.Mode)
	viper.SetDefault("host", cfg.Host)
	viper.SetDefault("port", cfg.Port)
	viper.SetDefault("dir", cfg.Directory)
	viper.SetDefault("loglevel", cfg.LogLevel)
	viper.SetDefault("logformat", cfg.LogFormat)
	viper.SetDefault("maxfilesize", cfg.MaxFileSize)
	viper.SetDefault("maxtextlength", cfg.MaxTextLength)
	viper.SetDefault("catalog", cfg.Catalog)
	viper.SetDefault("tesseract", cfg.Tesseract)
	viper.SetDefault("pdftoppm", cfg.Pdftoppm)
	viper.SetDefault("ocrlang", cfg.OCRLanguage)
	viper.SetDefault("dpi", cfg.DPI)
	viper.SetDefault("maxpages", cfg.MaxPages)
	viper.SetDefault("ocrworkers", cfg.OCRWorkers)
	viper.SetDefault("formfields", cfg.FormFields)
}

// defineCommandLineFlags sets up all command line flags
func defineCommandLineFlags(cfg *Config) {
	pflag.String("mode", cfg.Mode, "Server mode: 'stdio' for MCP standard I/O, 'server' for HTTP server")
	pflag.String("host", cfg.Host, "Server host address (server mode only)")
	pflag.Int("port", cfg.Port, "Server port (server mode only)")
	pflag.String("dir", cfg.Directory, "Directory containing tax documents")
	pflag.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	pflag.String("logformat", cfg.LogFormat, "Log format (console, json)")
	pflag.Int64("maxfilesize", cfg.MaxFileSize, "Maximum document file size in bytes")
	pflag.Int("maxtextlength", cfg.MaxTextLength, "Maximum normalized text length in bytes")
	pflag.String("catalog", cfg.Catalog, "YAML file with additional document types")
	pflag.String("tesseract", cfg.Tesseract, "Tesseract binary")
	pflag.String("pdftoppm", cfg.Pdftoppm, "pdftoppm binary")
	pflag.String("ocrlang", cfg.OCRLanguage, "Tesseract language")
	pflag.Int("dpi", cfg.DPI, "Rasterization DPI for scanned pages")
	pflag.Int("maxpages", cfg.MaxPages, "Maximum pages read per PDF (0 = all)")
	pflag.Int("ocrworkers", cfg.OCRWorkers, "Concurrent page OCR workers")
	pflag.Bool("formfields", cfg.FormFields, "Read filled-in PDF form fields")
}

// bindFlagsToViper binds command line flags to viper configuration
func bindFlagsToViper() {
	for _, key := range flagKeys {
		_ = viper.BindPFlag(key, pflag.Lookup(key))
	}
}

// setupUsageMessage configures the custom usage message
func setupUsageMessage() {
	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage of %s:\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nMCP Tax Document Extractor - OCR field extraction for W-2, 1099 and receipts\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		pflag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s                                          "+
			"# stdio mode, current directory (default)\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --dir=/path/to/docs                      "+
			"# stdio mode with custom directory\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --mode=server --dir=/path/to/docs        # server mode\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s --catalog=types.yaml --ocrlang=eng+spa   # extra types, two languages\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		for _, key := range flagKeys {
			fmt.Fprintf(os.Stderr, "  %s_%s\n", envPrefix, strings.ToUpper(key))
		}
	}
}

// checkVersionFlag checks if version flag was requested
func checkVersionFlag() error {
	for _, arg := range os.Args[1:] {
		if arg == "-version" || arg == "--version" || arg == "-v" {
			return fmt.Errorf("version requested")
		}
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(cfg *Config) {
	cfg.Mode = viper.GetString("mode")
	cfg.Host = viper.GetString("host")
	cfg.Port = viper.GetInt("port")
	cfg.Directory = viper.GetString("dir")
	cfg.LogLevel = viper.GetString("loglevel")
	cfg.LogFormat = viper.GetString("logformat")
	cfg.MaxFileSize = viper.GetInt64("maxfilesize")
	cfg.MaxTextLength = viper.GetInt("maxtextlength")
	cfg.Catalog = viper.GetString("catalog")
	cfg.Tesseract = viper.GetString("tesseract")
	cfg.Pdftoppm = viper.GetString("pdftoppm")
	cfg.OCRLanguage = viper.GetString("ocrlang")
	cfg.DPI = viper.GetInt("dpi")
	cfg.MaxPages = viper.GetInt("maxpages")
	cfg.OCRWorkers = viper.GetInt("ocrworkers")
	cfg.FormFields = viper.GetBool("formfields")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Port only matters when listening
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.Directory == "" {
		return errors.New("document directory cannot be empty")
	}

	// Create the document directory if it doesn't exist
	if _, err := os.Stat(c.Directory); os.IsNotExist(err) {
		if err := os.MkdirAll(c.Directory, DefaultDirPerm); err != nil {
			return fmt.Errorf("cannot create document directory %s: %w", c.Directory, err)
		}
	} else if err != nil {
		return fmt.Errorf("cannot access document directory %s: %w", c.Directory, err)
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}
	if c.MaxTextLength <= 0 {
		return errors.New("maximum text length must be positive")
	}

	if c.Catalog != "" {
		if _, err := os.Stat(c.Catalog); err != nil {
			return fmt.Errorf("cannot access catalog %s: %w", c.Catalog, err)
		}
	}

	if c.OCRLanguage == "" {
		return errors.New("OCR language cannot be empty")
	}
	if c.DPI < MinDPI || c.DPI > MaxDPI {
		return fmt.Errorf("dpi must be between %d and %d", MinDPI, MaxDPI)
	}
	if c.MaxPages < 0 {
		return errors.New("maximum pages cannot be negative")
	}
	if c.OCRWorkers < 1 {
		return errors.New("OCR workers must be at least 1")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	if c.LogFormat != FormatConsole && c.LogFormat != FormatJSON {
		return fmt.Errorf("invalid log format: %s (must be one of: console, json)", c.LogFormat)
	}

	return nil
}

// OCR returns the recognizer settings
func (c *Config) OCR() ocr.Config {
	defaults := ocr.DefaultConfig()
	return ocr.Config{
		Tesseract:       c.Tesseract,
		Pdftoppm:        c.Pdftoppm,
		Language:        c.OCRLanguage,
		DPI:             c.DPI,
		MaxPages:        c.MaxPages,
		Workers:         c.OCRWorkers,
		FormFields:      c.FormFields,
		BreakerFailures: defaults.BreakerFailures,
		BreakerTimeout:  defaults.BreakerTimeout,
	}
}

// Service returns the request limits of the document service
func (c *Config) Service() taxdoc.Config {
	return taxdoc.Config{
		Dir:           c.Directory,
		MaxFileSize:   c.MaxFileSize,
		MaxTextLength: c.MaxTextLength,
	}
}

// ShutdownTimeout bounds graceful shutdown in server mode
func (c *Config) ShutdownTimeout() time.Duration {
	return 10 * time.Second
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, Directory: %s, LogLevel: %s, MaxFileSize: %d, "+
		"MaxTextLength: %d, Catalog: %s, OCRLanguage: %s, DPI: %d, OCRWorkers: %d}",
		c.Mode, c.Host, c.Port, c.Directory, c.LogLevel, c.MaxFileSize,
		c.MaxTextLength, c.Catalog, c.OCRLanguage, c.DPI, c.OCRWorkers)
}

// IsServerMode returns true if the server is running in HTTP server mode
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the server is running in stdio mode
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
