package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/config"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/descriptions"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/extraction"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/metrics"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/ocr"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/taxdoc"
)

// EngineStatus reports on the external OCR engines.
type EngineStatus interface {
	Tools() []ocr.ToolStatus
	BreakerState() string
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *taxdoc.Service
	engines   EngineStatus
	logger    *zap.Logger
	metrics   *metrics.Metrics
	mcpServer *server.MCPServer
}

// Option configures optional collaborators of a Server.
type Option func(*Server)

// WithLogger sets the logger used for tool calls and transport events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics exposes m on /metrics in server mode.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithEngines reports OCR engine status in taxdoc_server_info.
func WithEngines(e EngineStatus) Option {
	return func(s *Server) { s.engines = e }
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *taxdoc.Service, opts ...Option) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false), // We don't support dynamic tool capabilities
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		logger:    zap.NewNop(),
		mcpServer: mcpServer,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	processFileTool := mcp.NewTool(
		descriptions.ToolProcessFile,
		mcp.WithDescription(descriptions.ProcessFileDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Path to a PDF or image, absolute or relative to the document directory"),
		),
		mcp.WithString("document_type",
			mcp.Description("Document type such as w-2, 1099 or receipt; 'auto' detects it (default)"),
		),
		mcp.WithBoolean("validate",
			mcp.Description("Report missing required fields (default true)"),
		),
	)
	s.mcpServer.AddTool(processFileTool, s.instrument(descriptions.ToolProcessFile, s.handleProcessFile))

	extractTextTool := mcp.NewTool(
		descriptions.ToolExtractText,
		mcp.WithDescription(descriptions.ExtractTextDescription),
		mcp.WithArray("pages",
			mcp.Required(),
			mcp.Description("Recognized text, one entry per page"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithString("document_type",
			mcp.Required(),
			mcp.Description("Document type such as w-2, 1099 or receipt; 'auto' detects it"),
		),
		mcp.WithBoolean("validate",
			mcp.Description("Report missing required fields (default true)"),
		),
	)
	s.mcpServer.AddTool(extractTextTool, s.instrument(descriptions.ToolExtractText, s.handleExtractText))

	validateFieldsTool := mcp.NewTool(
		descriptions.ToolValidateFields,
		mcp.WithDescription(descriptions.ValidateFieldsDescription),
		mcp.WithObject("fields",
			mcp.Required(),
			mcp.Description("Field name to extracted value"),
		),
		mcp.WithString("document_type",
			mcp.Required(),
			mcp.Description("Document type whose required-field policy applies"),
		),
	)
	s.mcpServer.AddTool(validateFieldsTool, s.instrument(descriptions.ToolValidateFields, s.handleValidateFields))

	classifyTextTool := mcp.NewTool(
		descriptions.ToolClassifyText,
		mcp.WithDescription(descriptions.ClassifyTextDescription),
		mcp.WithString("text",
			mcp.Required(),
			mcp.Description("Recognized document text"),
		),
	)
	s.mcpServer.AddTool(classifyTextTool, s.instrument(descriptions.ToolClassifyText, s.handleClassifyText))

	documentTypesTool := mcp.NewTool(
		descriptions.ToolDocumentTypes,
		mcp.WithDescription(descriptions.DocumentTypesDescription),
	)
	s.mcpServer.AddTool(documentTypesTool, s.instrument(descriptions.ToolDocumentTypes, s.handleDocumentTypes))

	serverInfoTool := mcp.NewTool(
		descriptions.ToolServerInfo,
		mcp.WithDescription(descriptions.ServerInfoDescription),
	)
	s.mcpServer.AddTool(serverInfoTool, s.instrument(descriptions.ToolServerInfo, s.handleServerInfo))
}

// instrument logs every tool call with its outcome and duration.
func (s *Server) instrument(name string, h server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := h(ctx, request)
		failed := err != nil || (result != nil && result.IsError)
		s.logger.Debug("tool call",
			zap.String("tool", name),
			zap.Bool("failed", failed),
			zap.Duration("duration", time.Since(start)))
		return result, err
	}
}

// Handler functions
func (s *Server) handleProcessFile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := taxdoc.ProcessFileRequest{
		Path:         path,
		DocumentType: request.GetString("document_type", taxdoc.AutoDetect),
		Validate:     request.GetBool("validate", true),
	}
	result, err := s.service.ProcessFile(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(result)
}

func (s *Server) handleExtractText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pages, err := stringList(request.GetArguments()["pages"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid pages: %v", err)), nil
	}
	documentType, err := request.RequireString("document_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := taxdoc.ProcessTextRequest{
		Pages:        pages,
		DocumentType: documentType,
		Validate:     request.GetBool("validate", true),
	}
	result, err := s.service.ProcessText(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(result)
}

func (s *Server) handleValidateFields(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	fields, err := fieldMap(request.GetArguments()["fields"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid fields: %v", err)), nil
	}
	documentType, err := request.RequireString("document_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(s.service.Validate(fields, documentType))
}

func (s *Server) handleClassifyText(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	classification, err := s.service.Classify(ctx, text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return jsonResult(classification)
}

func (s *Server) handleDocumentTypes(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.service.DocumentTypes())
}

func (s *Server) handleServerInfo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(s.Info())
}

// ToolInfo describes one registered tool
type ToolInfo struct {
	Name    string `json:"name"`
	Summary string `json:"summary"`
}

// ServerInfo is the payload of taxdoc_server_info
type ServerInfo struct {
	ServerName string `json:"server_name"`
	Version    string `json:"version"`
	Mode       string `json:"mode"`
	taxdoc.Info
	Tools        []ToolInfo       `json:"tools"`
	Engines      []ocr.ToolStatus `json:"ocr_engines,omitempty"`
	BreakerState string           `json:"ocr_breaker,omitempty"`
}

// Info assembles the server description returned by taxdoc_server_info.
func (s *Server) Info() ServerInfo {
	info := ServerInfo{
		ServerName: s.config.ServerName,
		Version:    s.config.Version,
		Mode:       s.config.Mode,
		Info:       s.service.Info(),
	}
	for _, name := range descriptions.GetAllToolNames() {
		info.Tools = append(info.Tools, ToolInfo{Name: name, Summary: descriptions.Summary(name)})
	}
	if s.engines != nil {
		info.Engines = s.engines.Tools()
		info.BreakerState = s.engines.BreakerState()
	}
	return info
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// stringList accepts a JSON array of strings or a single string.
func stringList(v any) ([]string, error) {
	switch list := v.(type) {
	case nil:
		return nil, errors.New("required argument is missing")
	case string:
		return []string{list}, nil
	case []string:
		return list, nil
	case []any:
		out := make([]string, 0, len(list))
		for i, item := range list {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("page %d is %T, not a string", i+1, item)
			}
			out = append(out, str)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an array of strings, got %T", v)
	}
}

// fieldMap converts a JSON object into extraction fields. Scalars are
// rendered as text; null becomes the empty string.
func fieldMap(v any) (extraction.Fields, error) {
	switch m := v.(type) {
	case nil:
		return nil, errors.New("required argument is missing")
	case map[string]string:
		return extraction.Fields(m).Clone(), nil
	case map[string]any:
		out := make(extraction.Fields, len(m))
		for name, value := range m {
			switch val := value.(type) {
			case nil:
				out[name] = ""
			case string:
				out[name] = val
			case bool, float64, int, int64:
				out[name] = fmt.Sprint(val)
			default:
				return nil, fmt.Errorf("field %q is %T, not a scalar", name, value)
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an object, got %T", v)
	}
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	switch {
	case s.config.IsServerMode():
		return s.runServerMode(ctx)
	case s.config.IsStdioMode():
		return s.runStdioMode(ctx)
	default:
		return fmt.Errorf("unsupported mode: %s", s.config.Mode)
	}
}

// runStdioMode serves MCP over stdin/stdout until ctx is done or stdin closes
func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Info("starting MCP server in stdio mode", zap.String("dir", s.config.Directory))

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))

	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// HTTPHandler routes MCP over SSE alongside /metrics and /healthz.
func (s *Server) HTTPHandler(sse http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", s.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/", sse)
	return mux
}

// runServerMode serves MCP over HTTP with server-sent events
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.HTTPHandler(sse),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting MCP server in server mode",
			zap.String("addr", addr),
			zap.String("dir", s.config.Directory))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout())
	defer cancel()

	if err := sse.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("SSE shutdown failed", zap.Error(err))
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down http server: %w", err)
	}
	s.logger.Info("server stopped")
	return nil
}
