package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/config"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/intelligence"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/metrics"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/ocr"
	"github.com/a3tai/mcp-taxdoc-extractor/internal/taxdoc"
)

type fakePages struct {
	result ocr.Result
}

func (f fakePages) Recognize(_ context.Context, _ string, _ ocr.FileKind) ocr.Result {
	return f.result
}

type fakeEngines struct{}

func (fakeEngines) Tools() []ocr.ToolStatus {
	return []ocr.ToolStatus{{Name: "tesseract", Path: "/usr/bin/tesseract", Available: true}, {Name: "pdftoppm"}}
}

func (fakeEngines) BreakerState() string { return "closed" }

const w2Text = "Form W-2 Wage and Tax Statement\nEmployer: Acme Corp\nEmployee: John Smith\nWages: $50,000.00"

func newTestServer(t *testing.T, pages ocr.Result) (*Server, string) {
	t.Helper()
	dir := t.TempDir()

	cfg := &config.Config{
		Mode:          "stdio",
		Host:          "127.0.0.1",
		Port:          0,
		Directory:     dir,
		MaxFileSize:   1024 * 1024,
		MaxTextLength: 1024 * 1024,
		Version:       "1.0.0",
		ServerName:    "test-server",
		LogLevel:      "info",
	}
	service, err := taxdoc.NewService(cfg.Service(), nil, fakePages{result: pages}, nil, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	server, err := NewServer(cfg, service, WithEngines(fakeEngines{}), WithMetrics(metrics.New()))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return server, dir
}

func callTool(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func decodeResult(t *testing.T, result *mcp.CallToolResult, v interface{}) {
	t.Helper()
	if result == nil {
		t.Fatal("result should not be nil")
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", extractTextFromResult(result))
	}
	if err := json.Unmarshal([]byte(extractTextFromResult(result)), v); err != nil {
		t.Fatalf("result is not JSON: %v\n%s", err, extractTextFromResult(result))
	}
}

func TestNewServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Directory = t.TempDir()
	service, err := taxdoc.NewService(cfg.Service(), nil, fakePages{}, nil, nil)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	server, err := NewServer(cfg, service)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.config != cfg {
		t.Error("server config not set correctly")
	}
	if server.service != service {
		t.Error("server service not set correctly")
	}
	if server.mcpServer == nil {
		t.Error("mcpServer should be initialized")
	}
	if server.logger == nil {
		t.Error("logger should default to a no-op logger")
	}

	if _, err := NewServer(cfg, nil); err == nil {
		t.Error("expected error for nil service")
	}
	if _, err := NewServer(nil, service); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestServer_HandleExtractText(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})

	result, err := server.handleExtractText(context.Background(), callTool(map[string]interface{}{
		"pages":         []interface{}{"Form W-2 Wage and Tax Statement\nEmployer: Acme Corp\n", "Employee: John Smith\nWages: $50,000.00"},
		"document_type": "W2",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var got taxdoc.Result
	decodeResult(t, result, &got)

	if got.DocumentType != "w-2" || !got.Known {
		t.Errorf("expected known w-2, got %s (known=%t)", got.DocumentType, got.Known)
	}
	want := map[string]string{"employer_name": "Acme Corp", "employee_name": "John Smith", "wages": "50,000.00"}
	for name, value := range want {
		if got.Fields[name] != value {
			t.Errorf("field %s = %q, want %q", name, got.Fields[name], value)
		}
	}
	if !got.Validated || len(got.Issues) != 0 {
		t.Errorf("expected validation with no issues, got %v", got.Issues)
	}
}

func TestServer_HandleExtractTextErrors(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing pages", map[string]interface{}{"document_type": "w-2"}, "invalid pages"},
		{"non-string page", map[string]interface{}{"pages": []interface{}{"ok", 3.0}, "document_type": "w-2"}, "page 2"},
		{"missing document type", map[string]interface{}{"pages": []interface{}{"text"}}, "document_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleExtractText(context.Background(), callTool(tt.args))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected a tool error")
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.want) {
				t.Errorf("expected error containing %q, got: %s", tt.want, text)
			}
		})
	}
}

func TestServer_HandleExtractTextSinglePageString(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})

	result, err := server.handleExtractText(context.Background(), callTool(map[string]interface{}{
		"pages":         "Payer: Acme Corp\nRecipient: Jane Doe",
		"document_type": "1099",
		"validate":      false,
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var got taxdoc.Result
	decodeResult(t, result, &got)
	if got.Fields["payer_name"] != "Acme Corp" || got.Fields["recipient_name"] != "Jane Doe" {
		t.Errorf("unexpected fields: %v", got.Fields)
	}
	if got.Validated || got.Issues != nil {
		t.Errorf("expected no validation, got %v", got.Issues)
	}
}

func TestServer_HandleProcessFile(t *testing.T) {
	server, dir := newTestServer(t, ocr.Result{Pages: []string{w2Text}, Method: ocr.MethodOCR})
	if err := os.WriteFile(filepath.Join(dir, "w2.png"), []byte("png"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result, err := server.handleProcessFile(context.Background(), callTool(map[string]interface{}{
		"path": "w2.png",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var got taxdoc.Result
	decodeResult(t, result, &got)
	if got.Classification == nil || got.Classification.Type != "w-2" {
		t.Fatalf("expected auto detection to classify as w-2, got %+v", got.Classification)
	}
	if got.Method != ocr.MethodOCR {
		t.Errorf("expected method %s, got %s", ocr.MethodOCR, got.Method)
	}
	if got.Fields["wages"] != "50,000.00" {
		t.Errorf("expected wages, got %v", got.Fields)
	}
	if !got.Validated {
		t.Error("expected validation by default")
	}
}

func TestServer_HandleProcessFileErrors(t *testing.T) {
	server, dir := newTestServer(t, ocr.Result{})
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("text"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	tests := []struct {
		name string
		args map[string]interface{}
		want string
	}{
		{"missing path", map[string]interface{}{}, "path"},
		{"outside directory", map[string]interface{}{"path": "/etc/passwd"}, "INVALID_PATH"},
		{"unsupported", map[string]interface{}{"path": "notes.txt"}, "UNSUPPORTED_FILE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleProcessFile(context.Background(), callTool(tt.args))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}
			if !result.IsError {
				t.Fatal("expected a tool error")
			}
			if text := extractTextFromResult(result); !strings.Contains(text, tt.want) {
				t.Errorf("expected error containing %q, got: %s", tt.want, text)
			}
		})
	}
}

func TestServer_HandleValidateFields(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})

	tests := []struct {
		name         string
		fields       interface{}
		documentType string
		want         []string
	}{
		{
			name:         "missing employee and wages",
			fields:       map[string]interface{}{"employer_name": "Acme"},
			documentType: "w-2",
			want:         []string{"Missing employee name", "Missing wages"},
		},
		{
			name:         "null and whitespace count as missing",
			fields:       map[string]interface{}{"payer_name": nil, "recipient_name": "  "},
			documentType: "1099",
			want:         []string{"Missing payer name", "Missing recipient name"},
		},
		{
			name:         "numbers are rendered as text",
			fields:       map[string]interface{}{"employer_name": "Acme", "employee_name": "Jo", "wages": 1000.5},
			documentType: "w-2",
			want:         []string{},
		},
		{
			name:         "unknown type",
			fields:       map[string]interface{}{},
			documentType: "1040",
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.handleValidateFields(context.Background(), callTool(map[string]interface{}{
				"fields":        tt.fields,
				"document_type": tt.documentType,
			}))
			if err != nil {
				t.Fatalf("handler failed: %v", err)
			}

			var got []string
			decodeResult(t, result, &got)
			if strings.Join(got, "|") != strings.Join(tt.want, "|") {
				t.Errorf("got %v, want %v", got, tt.want)
			}
			if got == nil {
				t.Error("issues should encode as an empty list, not null")
			}
		})
	}

	result, _ := server.handleValidateFields(context.Background(), callTool(map[string]interface{}{
		"fields":        map[string]interface{}{"wages": []interface{}{"nested"}},
		"document_type": "w-2",
	}))
	if !result.IsError {
		t.Error("expected error for non-scalar field")
	}
}

func TestServer_HandleClassifyText(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})

	result, err := server.handleClassifyText(context.Background(), callTool(map[string]interface{}{
		"text": "Form 1099-NEC\nPayer: Acme\nRecipient: Jane\nNonemployee compensation: $900.00",
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var got intelligence.Classification
	decodeResult(t, result, &got)
	if got.Type != "1099" {
		t.Errorf("expected 1099, got %s", got.Type)
	}
	if got.Confidence <= 0 || got.Confidence > 1 {
		t.Errorf("confidence out of range: %f", got.Confidence)
	}
}

func TestServer_HandleDocumentTypes(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})

	result, err := server.handleDocumentTypes(context.Background(), callTool(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var got []taxdoc.TypeInfo
	decodeResult(t, result, &got)
	if len(got) != 3 {
		t.Fatalf("expected 3 document types, got %d", len(got))
	}
	if got[0].Type != "w-2" || got[1].Type != "1099" || got[2].Type != "receipt" {
		t.Errorf("unexpected order: %v", got)
	}
	if got[2].Required == nil {
		t.Error("receipt required list should be empty, not null")
	}
}

func TestServer_HandleServerInfo(t *testing.T) {
	server, dir := newTestServer(t, ocr.Result{})

	result, err := server.handleServerInfo(context.Background(), callTool(nil))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}

	var got ServerInfo
	decodeResult(t, result, &got)
	if got.ServerName != "test-server" || got.Version != "1.0.0" || got.Mode != "stdio" {
		t.Errorf("unexpected identity: %+v", got)
	}
	if got.Directory != dir {
		t.Errorf("expected directory %s, got %s", dir, got.Directory)
	}
	if len(got.Tools) != 6 {
		t.Errorf("expected 6 tools, got %d", len(got.Tools))
	}
	if len(got.Engines) != 2 || !got.Engines[0].Available || got.Engines[1].Available {
		t.Errorf("unexpected engine status: %+v", got.Engines)
	}
	if got.BreakerState != "closed" {
		t.Errorf("expected closed breaker, got %s", got.BreakerState)
	}
	if len(got.DocumentTypes) != 3 {
		t.Errorf("expected 3 document types, got %v", got.DocumentTypes)
	}
}

func TestStringList(t *testing.T) {
	if got, err := stringList([]string{"a", "b"}); err != nil || len(got) != 2 {
		t.Errorf("stringList([]string) = %v, %v", got, err)
	}
	if got, err := stringList([]interface{}{}); err != nil || len(got) != 0 {
		t.Errorf("stringList(empty) = %v, %v", got, err)
	}
	if _, err := stringList(42.0); err == nil {
		t.Error("expected error for a number")
	}
}

// extractTextFromResult returns the first text content of a tool result.
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil || len(result.Content) == 0 {
		return ""
	}

	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}
