package mcp

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/a3tai/mcp-taxdoc-extractor/internal/ocr"
)

func TestServer_Run_StdioMode(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := server.Run(ctx); err != nil && !strings.Contains(err.Error(), "context") {
		t.Errorf("Run() error = %v, expected nil or a context error", err)
	}
}

func TestServer_Run_ServerMode(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})
	server.config.Mode = "server"
	server.config.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- server.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v, expected clean shutdown", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after cancellation")
	}
}

func TestServer_Run_InvalidMode(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})
	server.config.Mode = "invalid"

	err := server.Run(context.Background())
	if err == nil {
		t.Fatal("Run() expected error for invalid mode")
	}
	if !strings.Contains(err.Error(), "unsupported mode") {
		t.Errorf("Run() error = %v, want unsupported mode", err)
	}
}

func TestServer_HTTPHandler(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})

	sse := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	ts := httptest.NewServer(server.HTTPHandler(sse))
	defer ts.Close()

	tests := []struct {
		path       string
		wantStatus int
		wantBody   string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/metrics", http.StatusOK, "go_goroutines"},
		{"/sse", http.StatusTeapot, ""},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatalf("GET %s failed: %v", tt.path, err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("GET %s status = %d, want %d", tt.path, resp.StatusCode, tt.wantStatus)
			}
			body, _ := io.ReadAll(resp.Body)
			if !strings.Contains(string(body), tt.wantBody) {
				t.Errorf("GET %s body does not contain %q", tt.path, tt.wantBody)
			}
		})
	}
}

func TestServer_HTTPHandlerWithoutMetrics(t *testing.T) {
	server, _ := newTestServer(t, ocr.Result{})
	server.metrics = nil

	rec := httptest.NewRecorder()
	server.HTTPHandler(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", rec.Code)
	}
}
