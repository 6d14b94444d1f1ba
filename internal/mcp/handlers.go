package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/querybee/querybee/internal/relay"
)

// handleAsk sends the question through the relay.
func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	resp, err := s.relay.Detect(ctx, relay.Request{
		Query:     query,
		SessionID: request.GetString("session_id", ""),
	})
	if err != nil {
		if relay.IsValidation(err) {
			return mcp.NewToolResultError("query must not be empty"), nil
		}
		s.log.Warn().Err(err).Msg("ask_querybee failed")
		return mcp.NewToolResultError(relay.Describe(err, s.relay.Config().ProjectID)), nil
	}

	return mcp.NewToolResultText(formatReply(resp)), nil
}

// handleStatus reports configuration and token state.
func (s *Server) handleStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	d := s.relay.Diagnose()
	ts := s.relay.TokenStatus()

	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", d.ProjectID)
	if d.KnowledgeBasePath != "" {
		fmt.Fprintf(&b, "Knowledge base: %s\n", d.KnowledgeBasePath)
	} else {
		b.WriteString("Knowledge base: none\n")
	}
	fmt.Fprintf(&b, "Transport: %s\n", d.Transport)
	fmt.Fprintf(&b, "Manual token: %s\n", manualState(ts))
	fmt.Fprintf(&b, "Service account: %t\n", ts.HasServiceAccount)
	if ts.CachedToken {
		fmt.Fprintf(&b, "Cached token expires in: %ds\n", ts.TokenExpiresInSeconds)
	}
	return mcp.NewToolResultText(b.String()), nil
}

func manualState(ts relay.TokenStatus) string {
	switch {
	case !ts.HasManualToken:
		return "not configured"
	case ts.ManualTokenRejected:
		return "rejected"
	default:
		return "configured"
	}
}

func formatReply(resp *relay.Response) string {
	var b strings.Builder
	b.WriteString(resp.Response)
	b.WriteString("\n\n---\n")
	fmt.Fprintf(&b, "session_id: %s\n", resp.SessionID)
	fmt.Fprintf(&b, "source: %s\n", resp.Source)
	if resp.Intent != nil {
		fmt.Fprintf(&b, "intent: %s\n", *resp.Intent)
	}
	return b.String()
}
