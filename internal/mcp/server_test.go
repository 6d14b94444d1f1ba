package mcp

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/querybee/querybee/internal/dialogflow"
	qblog "github.com/querybee/querybee/internal/log"
	"github.com/querybee/querybee/internal/relay"
	"github.com/querybee/querybee/internal/token"
)

type stubDetector struct {
	result *dialogflow.QueryResult
	err    error
	last   dialogflow.DetectIntentRequest
}

func (s *stubDetector) DetectIntent(_ context.Context, _ string, req dialogflow.DetectIntentRequest) (*dialogflow.QueryResult, error) {
	s.last = req
	return s.result, s.err
}

func newTestServer(det relay.Detector) *Server {
	rl := relay.New(relay.Config{
		ProjectID:       "querybee-owui",
		KnowledgeBaseID: "kb1",
		Transport:       "rest",
	}, det, token.NewProvider(token.Options{ManualToken: "manual-secret"}))
	return NewServer(rl)
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content type = %T, want mcp.TextContent", result.Content[0])
	}
	return text.Text
}

func TestToolDefinitions(t *testing.T) {
	tests := []struct {
		name     string
		tool     mcp.Tool
		wantName string
	}{
		{"ask", askTool, "ask_querybee"},
		{"status", statusTool, "querybee_status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.tool.Name != tt.wantName {
				t.Errorf("tool name = %q, want %q", tt.tool.Name, tt.wantName)
			}
			if tt.tool.Description == "" {
				t.Error("tool description should not be empty")
			}
		})
	}

	if len(askTool.InputSchema.Required) != 1 || askTool.InputSchema.Required[0] != "query" {
		t.Errorf("ask_querybee required = %v, want [query]", askTool.InputSchema.Required)
	}
}

func TestNewServer(t *testing.T) {
	srv := newTestServer(&stubDetector{})
	if srv == nil {
		t.Fatal("NewServer returned nil")
	}
	if srv.mcp == nil {
		t.Fatal("MCP server not initialized")
	}
}

func TestHandleAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("reply", func(t *testing.T) {
		det := &stubDetector{result: &dialogflow.QueryResult{
			FulfillmentText: "Admissions open in June.",
			Intent:          &dialogflow.Intent{DisplayName: "admission"},
		}}
		srv := newTestServer(det)

		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{
			"query":      "How do I apply?",
			"session_id": "s-1",
		}

		result, err := srv.handleAsk(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Fatalf("unexpected tool error: %v", result.Content)
		}
		text := resultText(t, result)
		for _, want := range []string{"Admissions open in June.", "session_id: s-1", "intent: admission", "source: intent"} {
			if !strings.Contains(text, want) {
				t.Errorf("reply missing %q:\n%s", want, text)
			}
		}
		if det.last.SessionID != "s-1" {
			t.Errorf("session = %q, want s-1", det.last.SessionID)
		}
	})

	t.Run("missing query", func(t *testing.T) {
		srv := newTestServer(&stubDetector{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{}

		result, err := srv.handleAsk(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for missing query")
		}
	})

	t.Run("blank query", func(t *testing.T) {
		srv := newTestServer(&stubDetector{})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "   "}

		result, err := srv.handleAsk(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected error for blank query")
		}
	})

	t.Run("upstream not found", func(t *testing.T) {
		srv := newTestServer(&stubDetector{err: &dialogflow.APIError{
			Status:  http.StatusNotFound,
			Message: "not found",
		}})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "hello"}

		result, err := srv.handleAsk(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Fatal("expected tool error")
		}
		if text := resultText(t, result); !strings.Contains(text, "querybee-owui") {
			t.Errorf("error text = %q, want project id mentioned", text)
		}
	})

	t.Run("generic failure", func(t *testing.T) {
		srv := newTestServer(&stubDetector{err: errors.New("connection reset")})
		req := mcp.CallToolRequest{}
		req.Params.Arguments = map[string]any{"query": "hello"}

		result, err := srv.handleAsk(ctx, req)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Error("expected tool error")
		}
	})
}

func TestFailedAskIsLogged(t *testing.T) {
	var buf bytes.Buffer
	qblog.Configure(qblog.Config{Output: &buf})
	t.Cleanup(func() { qblog.Configure(qblog.Config{}) })

	srv := newTestServer(&stubDetector{err: errors.New("connection reset")})
	req := mcp.CallToolRequest{}
	req.Params.Arguments = map[string]any{"query": "hello"}

	if _, err := srv.handleAsk(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"component":"mcp"`) {
		t.Errorf("log output missing mcp component:\n%s", out)
	}
	if !strings.Contains(out, "ask_querybee failed") {
		t.Errorf("log output missing failure message:\n%s", out)
	}
}

func TestHandleStatus(t *testing.T) {
	srv := newTestServer(&stubDetector{})

	result, err := srv.handleStatus(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %v", result.Content)
	}

	text := resultText(t, result)
	for _, want := range []string{
		"Project: querybee-owui",
		"projects/querybee-owui/knowledgeBases/kb1",
		"Transport: rest",
		"Manual token: configured",
		"Service account: false",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("status missing %q:\n%s", want, text)
		}
	}
	if strings.Contains(text, "manual-secret") {
		t.Error("status must not reveal the token value")
	}
}
